// Command beerscot runs the beerscot slack bot with the untappd and versioner plugins
package main

import (
	"log"
	"os"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/config"
	"github.com/beerscot/beerscot/plugins"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const name = "beerscot"

var (
	configFile = flag.StringP("config", "c", "~/.beerscot/config.yaml", "Configuration file (yaml, toml or json)")
	logfile    = flag.StringP("logfile", "l", "", "Log file path. Logs go to stdout when empty")
	debug      = flag.BoolP("debug", "d", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	v, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}

	if *debug {
		v.Set(config.DebugKey, true)
	}

	options := make([]beerscot.Option, 0)
	if *logfile != "" {
		f, err := openLogfile(*logfile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		options = append(options, beerscot.OptionLogfile(f))
	}

	bot, err := beerscot.NewBot(name, v, options...).
		WithEnvConfigurablePluginErr(plugins.UntappdPluginName, func(conf *config.PluginConfig) (p *beerscot.Plugin, err error) {
			return plugins.NewUntappd(name, conf)
		}).
		WithPlugin(plugins.NewVersioner(name, beerscot.VERSION)).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	err = bot.Run()
	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the configuration file, if present, and layers the environment on top of it.
// The slack token can be set with SLACK_TOKEN
func loadConfig(path string) (v *viper.Viper, err error) {
	v = config.NewViperWithDefaults()

	if err = v.BindEnv(config.TokenKey, "SLACK_TOKEN"); err != nil {
		return nil, err
	}

	if err = v.BindEnv(config.DebugKey, "BEERSCOT_DEBUG"); err != nil {
		return nil, err
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration path [%s]", path)
	}

	if _, err = os.Stat(expanded); os.IsNotExist(err) {
		log.Printf("No configuration file at [%s], using the environment only", expanded)
		return v, nil
	}

	v.SetConfigFile(expanded)
	if err = v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "error loading configuration file [%s]", expanded)
	}

	return v, nil
}

func openLogfile(path string) (f *os.File, err error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log file path [%s]", path)
	}

	f, err = os.OpenFile(expanded, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening log file [%s]", expanded)
	}

	return f, nil
}
