package assertaction_test

import (
	"strings"
	"testing"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/test/assertaction"
	"github.com/nlopes/slack"
	"github.com/stretchr/testify/assert"
)

var echoAction = beerscot.ActionDefinition{
	Hidden: false,
	Match: func(m *beerscot.IncomingMessage) bool {
		return strings.Contains(m.NormalizedText, "ping")
	},
	Usage:       "ping",
	Description: "Sends `pong` on hearing `ping`",
	Answer: func(m *beerscot.IncomingMessage) *beerscot.Answer {
		return &beerscot.Answer{Text: "pong"}
	},
}

func TestAssertNoMatchWhenMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.NotMatch(mockT, echoAction, &beerscot.IncomingMessage{NormalizedText: "ping", Msg: slack.Msg{Text: "ping"}}))
}

func TestAssertNoMatchWhenNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.NotMatch(mockT, echoAction, &beerscot.IncomingMessage{NormalizedText: "pang", Msg: slack.Msg{Text: "pang"}}))
}

func TestAssertMatchAndAnswersWhenNoMatch(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.MatchesAndAnswers(mockT, echoAction, &beerscot.IncomingMessage{NormalizedText: "pang", Msg: slack.Msg{Text: "pang"}}, func(t *testing.T, a *beerscot.Answer) bool {
		return true
	}))
}

func TestAssertMatchAndAnswersWhenMatchesButAnswerNotValid(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, false, assertaction.MatchesAndAnswers(mockT, echoAction, &beerscot.IncomingMessage{NormalizedText: "ping", Msg: slack.Msg{Text: "ping"}}, func(t *testing.T, a *beerscot.Answer) bool {
		return false
	}))
}

func TestAssertMatchAndAnswersWhenMatchesWithValidAnswer(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.MatchesAndAnswers(mockT, echoAction, &beerscot.IncomingMessage{NormalizedText: "ping", Msg: slack.Msg{Text: "ping"}}, func(t *testing.T, a *beerscot.Answer) bool {
		return a.Text == "pong"
	}))
}

func TestHasUsage(t *testing.T) {
	mockT := new(testing.T)
	assert.Equal(t, true, assertaction.HasUsage(mockT, echoAction, "ping"))
	assert.Equal(t, false, assertaction.HasUsage(mockT, echoAction, "pong"))
}

func TestHasUsageWhenHidden(t *testing.T) {
	mockT := new(testing.T)
	hidden := echoAction
	hidden.Hidden = true

	assert.Equal(t, false, assertaction.HasUsage(mockT, hidden, "ping"))
}
