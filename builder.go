package beerscot

import (
	"github.com/beerscot/beerscot/config"
	"github.com/spf13/viper"
)

// Builder holds a beerscot instance to build
type Builder struct {
	bot *Beerscot
	err error
}

// PluginInstantiator creates a new instance of a plugin given a PluginConfig
type PluginInstantiator func(c *config.PluginConfig) (p *Plugin, err error)

// NewBot returns a new Builder used to set up a new beerscot
func NewBot(name string, v *viper.Viper, options ...Option) (sb *Builder) {
	sb = new(Builder)
	sb.bot, sb.err = New(name, v, options...)

	return sb
}

// WithPlugin adds a plugin to the beerscot instance
func (sb *Builder) WithPlugin(p *Plugin) *Builder {
	if sb.err != nil {
		return sb
	}

	sb.bot.RegisterPlugin(p)

	return sb
}

// WithPluginErr adds a plugin that has a creation function returning (Plugin, error) to the beerscot instance
func (sb *Builder) WithPluginErr(p *Plugin, err error) *Builder {
	if sb.err == nil && err != nil {
		sb.err = err
	}

	return sb.WithPlugin(p)
}

// WithConfigurablePluginErr adds a plugin to the beerscot instance by first checking and getting its configuration and
// then invoking the instantiator with it. The plugin configuration is the one found at plugins.<name>
func (sb *Builder) WithConfigurablePluginErr(name string, newInstance PluginInstantiator) *Builder {
	if sb.err != nil {
		return sb
	}

	pc, err := config.GetPluginConfig(sb.bot.config, name)
	if err != nil {
		sb.err = err
		return sb
	}

	return sb.WithPluginErr(newInstance(pc))
}

// WithEnvConfigurablePluginErr is like WithConfigurablePluginErr except that a missing plugin configuration
// isn't an error. The instantiator then gets an empty configuration and is expected to look for its values
// elsewhere (i.e. environment variables)
func (sb *Builder) WithEnvConfigurablePluginErr(name string, newInstance PluginInstantiator) *Builder {
	if sb.err != nil {
		return sb
	}

	return sb.WithPluginErr(newInstance(config.GetPluginConfigOrEmpty(sb.bot.config, name)))
}

// Build returns the built beerscot instance. If there was an error during
// setup, the error is returned along with a nil beerscot
func (sb *Builder) Build() (s *Beerscot, err error) {
	if sb.err != nil {
		return nil, sb.err
	}

	return sb.bot, nil
}
