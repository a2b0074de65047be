/*
Package actions provides a fluent API for creating beerscot plugin actions. Typical usages
will also involve using the plugin fluent API from github.com/beerscot/beerscot/plugin.

A quick example could look like:

	import (
		"github.com/beerscot/beerscot"
		"github.com/beerscot/beerscot/plugin"
		"github.com/beerscot/beerscot/actions"
	)

	func newPlugin() (p *beerscot.Plugin) {
		p = plugin.New("bartender").
			WithCommand(actions.NewCommand().
				WithMatcher(func(m *beerscot.IncomingMessage) bool {
					return strings.HasPrefix(m.NormalizedText, "pour")
				}).
				WithUsage("pour <something>").
				WithDescription("Pour the `<something>` you need").
				WithAnswerer(func(m *beerscot.IncomingMessage) *beerscot.Answer {
					return &beerscot.Answer{Text: ":beer: Here you go!"}
				}).
				Build()).
			WithScheduledAction(actions.NewScheduledAction().
				WithSchedule(schedule.Definition{Interval: 1, Weekday: time.Friday.String(), AtTime: "16:00"}).
				WithDescription("Announce happy hour").
				WithAction(happyHour).
				Build()).
			Build()
		return p
	}
*/
package actions

import (
	"fmt"
	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/schedule"
)

// ActionBuilder holds the action to build
type ActionBuilder struct {
	action beerscot.ActionDefinition
}

// ScheduledActionBuilder holds the scheduled action to build
type ScheduledActionBuilder struct {
	scheduledAction beerscot.ScheduledActionDefinition
}

var (
	// Default to always match. Most answerers return nil when there's nothing to say so
	// this is a reasonable default
	defaultMatcher = func(m *beerscot.IncomingMessage) bool {
		return true
	}

	// Default to always return nil. This is not a default you want to use in most cases
	defaultAnswerer = func(m *beerscot.IncomingMessage) *beerscot.Answer {
		return nil
	}
)

// newAction creates a new action and returns the ActionBuilder to set various attributes
// of the action. When done with the setup, the caller is expected to call Build() to get
// the action
func newAction() (ab *ActionBuilder) {
	ab = new(ActionBuilder)
	ab.action = beerscot.ActionDefinition{Hidden: false}

	ab.action.Match = defaultMatcher
	ab.action.Answer = defaultAnswerer

	return ab
}

// NewCommand returns a new ActionBuilder to build a new command
func NewCommand() (ab *ActionBuilder) {
	return newAction()
}

// NewHearAction returns a new ActionBuilder to build a new hear action
func NewHearAction() (ab *ActionBuilder) {
	return newAction()
}

// WithMatcher sets the action's matcher function
func (ab *ActionBuilder) WithMatcher(matcher beerscot.Matcher) *ActionBuilder {
	ab.action.Match = matcher
	return ab
}

// WithUsage sets the action usage
func (ab *ActionBuilder) WithUsage(usage string) *ActionBuilder {
	ab.action.Usage = usage
	return ab
}

// WithDescription sets the action description
func (ab *ActionBuilder) WithDescription(description string) *ActionBuilder {
	ab.action.Description = description
	return ab
}

// WithDescriptionf sets the action description delegating format and arguments to fmt.Sprintf
func (ab *ActionBuilder) WithDescriptionf(format string, a ...interface{}) *ActionBuilder {
	ab.action.Description = fmt.Sprintf(format, a...)
	return ab
}

// WithAnswerer sets the action's answerer function
func (ab *ActionBuilder) WithAnswerer(answerer beerscot.Answerer) *ActionBuilder {
	ab.action.Answer = answerer
	return ab
}

// Hidden sets the action to hidden
func (ab *ActionBuilder) Hidden() *ActionBuilder {
	ab.action.Hidden = true
	return ab
}

// Build returns the ActionDefinition
func (ab *ActionBuilder) Build() beerscot.ActionDefinition {
	return ab.action
}

// NewScheduledAction returns a new ScheduledActionBuilder to build a new ScheduledActionDefinition
func NewScheduledAction() (sab *ScheduledActionBuilder) {
	sab = new(ScheduledActionBuilder)
	sab.scheduledAction = beerscot.ScheduledActionDefinition{Hidden: false}
	sab.scheduledAction.Action = func() {}

	return sab
}

// WithSchedule sets the schedule for the scheduled action
func (sab *ScheduledActionBuilder) WithSchedule(schedule schedule.Definition) *ScheduledActionBuilder {
	sab.scheduledAction.Schedule = schedule
	return sab
}

// WithDescription sets the scheduled action description
func (sab *ScheduledActionBuilder) WithDescription(desc string) *ScheduledActionBuilder {
	sab.scheduledAction.Description = desc
	return sab
}

// WithDescriptionf sets the scheduled action description delegating format and arguments to fmt.Sprintf
func (sab *ScheduledActionBuilder) WithDescriptionf(format string, a ...interface{}) *ScheduledActionBuilder {
	sab.scheduledAction.Description = fmt.Sprintf(format, a...)
	return sab
}

// WithAction sets the action function to run on schedule
func (sab *ScheduledActionBuilder) WithAction(action beerscot.ScheduledAction) *ScheduledActionBuilder {
	sab.scheduledAction.Action = action
	return sab
}

// Hidden sets the scheduled action to hidden
func (sab *ScheduledActionBuilder) Hidden() *ScheduledActionBuilder {
	sab.scheduledAction.Hidden = true
	return sab
}

// Build returns the ScheduledActionDefinition
func (sab *ScheduledActionBuilder) Build() beerscot.ScheduledActionDefinition {
	return sab.scheduledAction
}
