// Package assertaction provides testing functions for validation a plugin action's behavior
package assertaction

import (
	"testing"

	"github.com/beerscot/beerscot"
	"github.com/stretchr/testify/assert"
)

// AnswerValidator is a function to do further validation of an action's answer. The return value is meant to be true if validation
// is successful and false otherwise (following the testify convention)
type AnswerValidator func(t *testing.T, a *beerscot.Answer) bool

// MatchesAndAnswers asserts that the action.Match is true and gets the action's answer to be further validated by AnswerValidator
func MatchesAndAnswers(t *testing.T, action beerscot.ActionDefinition, m *beerscot.IncomingMessage, validateAnswer AnswerValidator) bool {
	isMatch := action.Match(m)

	if !assert.Equalf(t, true, isMatch, "Message [%s] expected to match but action.Match returned false", m.NormalizedText) {
		return false
	}

	return validateAnswer(t, action.Answer(m))
}

// NotMatch asserts that action.Match is false
func NotMatch(t *testing.T, action beerscot.ActionDefinition, m *beerscot.IncomingMessage) bool {
	isMatch := action.Match(m)

	return assert.Equalf(t, false, isMatch, "Message [%s] should not be a match but action.Match returned true", m.NormalizedText)
}

// HasUsage asserts that the action is visible in help with the given usage
func HasUsage(t *testing.T, action beerscot.ActionDefinition, usage string) bool {
	return assert.Falsef(t, action.Hidden, "Action [%s] expected to be visible but is hidden", action.Usage) &&
		assert.Equal(t, usage, action.Usage)
}
