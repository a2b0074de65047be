package plugins

import (
	"fmt"
	"strings"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/actions"
	"github.com/beerscot/beerscot/plugin"
)

const (
	versionerPluginName = "versioner"
)

// NewVersioner creates a new instance of the versioner plugin
func NewVersioner(name string, version string) (p *beerscot.Plugin) {
	p = plugin.New(versionerPluginName).
		WithCommand(actions.NewCommand().
			WithMatcher(func(m *beerscot.IncomingMessage) bool {
				return strings.HasPrefix(strings.ToLower(m.NormalizedText), "version")
			}).
			WithUsage("version").
			WithDescriptionf("Reply with `%s`'s `version` number", name).
			WithAnswerer(func(m *beerscot.IncomingMessage) *beerscot.Answer {
				return &beerscot.Answer{Text: fmt.Sprintf("🍺 I'm `%s`, version `%s`", name, version)}
			}).
			Build()).
		Build()

	return p
}
