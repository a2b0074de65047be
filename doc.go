/*
Package beerscot provides the building blocks of a slack bot that brings beer check-ins into
the team's chat.

It is extendable via plugins that can combine commands, hear actions (listeners) as well
as scheduled actions. Message processing is spread over partition workers so that slow
plugin answers (i.e. waiting on a remote API) don't hold up other messages.

Plugins also have access to services injected on startup by beerscot such as:
 - UserInfoFinder: To query slack user info
 - SLogger: To log debug/info statements
 - MessageSender: To send any number of messages (text or rich attachments) to a channel, outside
   of the one-answer-per-action flow (i.e. for sending many messages or sending via a scheduled action)

Example code (from cmd/beerscot):

	bot, err := beerscot.NewBot(name, v, options...).
		WithEnvConfigurablePluginErr(plugins.UntappdPluginName, func(conf *config.PluginConfig) (p *beerscot.Plugin, err error) {
			return plugins.NewUntappd(name, conf)
		}).
		WithPlugin(plugins.NewVersioner(name, version)).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	err = bot.Run()
	if err != nil {
		log.Fatal(err)
	}
*/
package beerscot
