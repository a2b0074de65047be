package actions_test

import (
	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/actions"
	"github.com/beerscot/beerscot/schedule"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestNewCommandWithDefaults(t *testing.T) {
	action := actions.NewCommand().Build()
	assert.False(t, action.Hidden)
	assert.True(t, action.Match(&beerscot.IncomingMessage{}))
	assert.Nil(t, action.Answer(&beerscot.IncomingMessage{}))
}

func TestNewHearActionWithDefaults(t *testing.T) {
	action := actions.NewHearAction().Build()
	assert.False(t, action.Hidden)
	assert.True(t, action.Match(&beerscot.IncomingMessage{}))
	assert.Nil(t, action.Answer(&beerscot.IncomingMessage{}))
}

func TestNewActionWithMatcher(t *testing.T) {
	action := actions.NewCommand().
		WithMatcher(func(m *beerscot.IncomingMessage) bool {
			return m.NormalizedText == "untappd"
		}).
		Build()

	assert.False(t, action.Match(&beerscot.IncomingMessage{NormalizedText: "untappd badges"}))
	assert.True(t, action.Match(&beerscot.IncomingMessage{NormalizedText: "untappd"}))
}

func TestNewActionWithAnswerer(t *testing.T) {
	action := actions.NewCommand().
		WithAnswerer(func(m *beerscot.IncomingMessage) *beerscot.Answer {
			return &beerscot.Answer{Text: "No friends to approve."}
		}).
		Build()

	assert.Equal(t, &beerscot.Answer{Text: "No friends to approve."}, action.Answer(&beerscot.IncomingMessage{}))
}

func TestNewActionWithUsageAndDescription(t *testing.T) {
	action := actions.NewCommand().
		WithUsage("untappd beer <query>").
		WithDescription("Search for a beer").
		Build()

	assert.Equal(t, "untappd beer <query>", action.Usage)
	assert.Equal(t, "Search for a beer", action.Description)
}

func TestNewActionWithDescriptionf(t *testing.T) {
	action := actions.NewCommand().
		WithDescriptionf("Toast the last %d checkins of your friends", 5).
		Build()

	assert.Equal(t, "Toast the last 5 checkins of your friends", action.Description)
}

func TestNewHiddenAction(t *testing.T) {
	action := actions.NewCommand().
		Hidden().
		Build()

	assert.True(t, action.Hidden)
}

func TestNewScheduledActionWithDefaults(t *testing.T) {
	action := actions.NewScheduledAction().Build()

	assert.False(t, action.Hidden)
	assert.NotNil(t, action.Action)
	assert.Equal(t, schedule.Definition{}, action.Schedule)
}

func TestNewScheduledAction(t *testing.T) {
	ran := false
	action := actions.NewScheduledAction().
		WithSchedule(schedule.Definition{Interval: 1, Weekday: time.Friday.String(), AtTime: "16:00"}).
		WithDescriptionf("Post the friend feed to %d channels", 2).
		WithAction(func() { ran = true }).
		Hidden().
		Build()

	assert.True(t, action.Hidden)
	assert.Equal(t, "Post the friend feed to 2 channels", action.Description)
	assert.Equal(t, "Every Friday at 16:00", action.Schedule.String())

	action.Action()
	assert.True(t, ran)
}

func TestNewScheduledActionWithDescription(t *testing.T) {
	action := actions.NewScheduledAction().
		WithDescription("Weekly digest").
		Build()

	assert.Equal(t, "Weekly digest", action.Description)
}
