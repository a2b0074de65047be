package beerscot_test

import (
	"github.com/beerscot/beerscot"
	"github.com/stretchr/testify/assert"
	"log"
	"strings"
	"testing"
)

func TestLogWhenDebugEnabled(t *testing.T) {
	var b strings.Builder
	l := log.New(&b, "", 0)
	slog := beerscot.NewSLogger(l, true)

	slog.Debugf("Looking up checkins for [%s]\n", "heathseals")

	assert.Equal(t, "Looking up checkins for [heathseals]\n", b.String())
}

func TestLogWhenDebugDisabled(t *testing.T) {
	var b strings.Builder
	l := log.New(&b, "", 0)
	slog := beerscot.NewSLogger(l, false)

	slog.Debugf("Looking up checkins for [%s]\n", "heathseals")

	// Nothing should have been logged
	assert.Equal(t, "", b.String())
}

func TestPrintfLogsRegardlessOfDebug(t *testing.T) {
	for _, debug := range []bool{true, false} {
		var b strings.Builder
		l := log.New(&b, "", 0)
		slog := beerscot.NewSLogger(l, debug)

		slog.Printf("[untappd] Error getting friend activity: %s\n", "500: boom")

		assert.Equal(t, "[untappd] Error getting friend activity: 500: boom\n", b.String())
	}
}
