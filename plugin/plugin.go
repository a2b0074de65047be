// Package plugin provides a fluent API for creating beerscot plugins. It's meant to be used
// along with github.com/beerscot/beerscot/actions to build each of the plugin's actions
package plugin

import (
	"github.com/beerscot/beerscot"
)

// Builder holds a plugin to build
type Builder struct {
	plugin *beerscot.Plugin
}

// New creates a new Builder with a plugin with the given name and empty set of actions
func New(name string) (pb *Builder) {
	pb = new(Builder)
	pb.plugin = new(beerscot.Plugin)
	pb.plugin.Name = name
	pb.plugin.Commands = make([]beerscot.ActionDefinition, 0)
	pb.plugin.HearActions = make([]beerscot.ActionDefinition, 0)
	pb.plugin.ScheduledActions = make([]beerscot.ScheduledActionDefinition, 0)

	return pb
}

// WithCommand adds a command to the plugin
func (pb *Builder) WithCommand(command beerscot.ActionDefinition) *Builder {
	pb.plugin.Commands = append(pb.plugin.Commands, command)
	return pb
}

// WithHearAction adds an hear action to the plugin
func (pb *Builder) WithHearAction(hearAction beerscot.ActionDefinition) *Builder {
	pb.plugin.HearActions = append(pb.plugin.HearActions, hearAction)
	return pb
}

// WithScheduledAction adds a scheduled action to the plugin
func (pb *Builder) WithScheduledAction(scheduledAction beerscot.ScheduledActionDefinition) *Builder {
	pb.plugin.ScheduledActions = append(pb.plugin.ScheduledActions, scheduledAction)
	return pb
}

// Build returns the created Plugin instance
func (pb *Builder) Build() (p *beerscot.Plugin) {
	return pb.plugin
}
