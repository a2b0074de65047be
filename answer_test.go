package beerscot_test

import (
	"github.com/beerscot/beerscot"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestApplyAnswerOptions(t *testing.T) {
	testCases := []struct {
		name           string
		options        []beerscot.AnswerOption
		expectedConfig map[string]string
	}{
		{"none", []beerscot.AnswerOption{}, make(map[string]string)},
		{"threadedReply", []beerscot.AnswerOption{beerscot.AnswerInThread()}, map[string]string{beerscot.ThreadedReplyOpt: "true"}},
		{"threadedReplyWithBroadcast", []beerscot.AnswerOption{beerscot.AnswerInThreadWithBroadcast()}, map[string]string{beerscot.ThreadedReplyOpt: "true", beerscot.BroadcastOpt: "true"}},
		{"noThreading", []beerscot.AnswerOption{beerscot.AnswerWithoutThreading()}, map[string]string{beerscot.ThreadedReplyOpt: "false"}},
		{"threadReplyOnExistingThread", []beerscot.AnswerOption{beerscot.AnswerInExistingThread("1000")}, map[string]string{beerscot.ThreadedReplyOpt: "true", beerscot.ThreadTimestamp: "1000"}},
		{"noLinkUnfurl", []beerscot.AnswerOption{beerscot.AnswerWithoutLinkUnfurl()}, map[string]string{beerscot.LinkUnfurlOpt: "false"}},
		{"combined", []beerscot.AnswerOption{beerscot.AnswerWithoutLinkUnfurl(), beerscot.AnswerInThread()}, map[string]string{beerscot.LinkUnfurlOpt: "false", beerscot.ThreadedReplyOpt: "true"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := beerscot.ApplyAnswerOpts(tc.options...)
			assert.Equal(t, tc.expectedConfig, c)
		})
	}
}
