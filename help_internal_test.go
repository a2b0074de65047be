package beerscot

import (
	"fmt"
	"github.com/beerscot/beerscot/config"
	"github.com/beerscot/beerscot/schedule"
	"github.com/nlopes/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/api/metric"
	"strings"
	"testing"
)

type failingUserInfoFinder struct {
}

func (u *failingUserInfoFinder) GetUserInfo(userID string) (user *slack.User, err error) {
	return nil, fmt.Errorf("user [%s] not found", userID)
}

func newPluginWithActionsOfAllTypes() (p *Plugin) {
	p = new(Plugin)
	p.Name = "brewer"
	p.Commands = []ActionDefinition{
		{
			Match: func(m *IncomingMessage) bool {
				return strings.HasPrefix(m.NormalizedText, "brew")
			},
			Usage:       "brew <style>",
			Description: "Start a batch",
			Answer: func(m *IncomingMessage) *Answer {
				return nil
			}},
		{
			Hidden: true,
			Match: func(m *IncomingMessage) bool {
				return true
			},
			Usage:       "secret",
			Description: "Never shown",
			Answer: func(m *IncomingMessage) *Answer {
				return nil
			}},
	}

	p.HearActions = []ActionDefinition{{
		Match: func(m *IncomingMessage) bool {
			return strings.Contains(m.NormalizedText, "hops")
		},
		Usage:       "say `hops` and hear a cheer",
		Description: "Cheer when hearing people talk about hops",
		Answer: func(m *IncomingMessage) *Answer {
			return nil
		}}}

	p.ScheduledActions = []ScheduledActionDefinition{{Schedule: schedule.Definition{Interval: 30, Unit: schedule.Seconds}, Description: "Checks the fermenter every 30 seconds", Action: func() {}}}

	return p
}

func newTestHelpPlugin(t *testing.T) *helpPlugin {
	s, err := New("robert", config.NewViperWithDefaults(), OptionMeter(metric.NoopMeter{}))
	require.NoError(t, err)

	s.RegisterPlugin(newPluginWithActionsOfAllTypes())

	help := s.newHelpPlugin("1.0.0")
	help.Logger = newDiscardingSLogger()

	return help
}

func TestHelpMatching(t *testing.T) {
	help := newTestHelpPlugin(t)
	help.UserInfoFinder = &userInfoFinder{}

	cmd := help.Commands[0]
	assert.False(t, cmd.Match(&IncomingMessage{NormalizedText: " help"}))
	assert.True(t, cmd.Match(&IncomingMessage{NormalizedText: "help"}))
	assert.True(t, cmd.Match(&IncomingMessage{NormalizedText: "Help"}))
	assert.True(t, cmd.Match(&IncomingMessage{NormalizedText: "help and something else"}))
}

func TestHelpWithUserInfo(t *testing.T) {
	help := newTestHelpPlugin(t)
	help.UserInfoFinder = &userInfoFinder{}

	a := help.Commands[0].Answer(&IncomingMessage{NormalizedText: "help"})
	require.NotNil(t, a)

	assert.Equal(t, "🍻 You're `Heath Seals` and I'm `robert` (engine `v1.0.0`). I listen to the team's chat and bring beers into it.\n\n"+
		"I currently support the following commands:\n\t• `brew <style>` - Start a batch\n\nAnd listen for the following:\n"+
		"\t• `say `hops` and hear a cheer` - Cheer when hearing people talk about hops\n\nAnd do those things periodically:\n"+
		"\t• [`brewer`] `Every 30 seconds` (`Local`) - Checks the fermenter every 30 seconds\n", a.Text)
	assert.Equal(t, map[string]string{ThreadedReplyOpt: "true"}, ApplyAnswerOpts(a.Options...))
}

func TestHelpWithoutUserInfo(t *testing.T) {
	help := newTestHelpPlugin(t)
	help.UserInfoFinder = &failingUserInfoFinder{}

	a := help.Commands[0].Answer(&IncomingMessage{NormalizedText: "help"})
	require.NotNil(t, a)

	assert.True(t, strings.HasPrefix(a.Text, "🍻 I'm `robert` (engine `v1.0.0`). I listen to the team's chat and bring beers into it.\n"))
	assert.NotContains(t, a.Text, "secret")
}
