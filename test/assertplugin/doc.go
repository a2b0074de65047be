// Package assertplugin provides testing functions to validate a plugin's overall functionality.
// This package is designed to play well but not require the assertanswer package for validation
// of answers
//
// Note that all commands and hearActions are evaluated by assertplugin's driver but this is a
// simplified version of how beerscot actually drives plugins and aims to provide the minimal
// processing required to allow a plugin to test functionality given an incoming message.
// Users should take special care to include <@botUserID> with the same botUserID with which the
// plugin driver has been instantiated in the message text inputs to test commands (or include a
// channel name that starts with D for direct channel testing)
//
// Example:
//    func TestPlugin(t *testing.T) {
//        assertplugin := assertplugin.New(t, "bot")
//        yourPlugin := newPlugin()
//
//        assertplugin.AnswersAndSends(yourPlugin, &slack.Msg{Text: "<@bot> untappd friends"}, func(t *testing.T, answers []*beerscot.Answer, sent map[string][]*beerscot.Answer) bool {
//            return assert.Empty(t, answers) && assert.Len(t, sent[""], 1)
//        })
//    }
package assertplugin // import "github.com/beerscot/beerscot/test/assertplugin"
