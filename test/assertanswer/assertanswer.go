// Package assertanswer provides testing functions to validate a plugin's answer
package assertanswer

import (
	"testing"

	"github.com/beerscot/beerscot"
	"github.com/stretchr/testify/assert"
)

// ResolvedAnswerOption holds a pair of Key/Value representing the physical AnswerOption
type ResolvedAnswerOption struct {
	Key   string
	Value string
}

// HasText asserts that the answer's text is the expected text
func HasText(t *testing.T, answer *beerscot.Answer, text string) bool {
	if assert.NotNil(t, answer) {
		return assert.Equalf(t, text, answer.Text, "Answer text expected to be [%s] but was [%s]", text, answer.Text)
	}
	return false
}

// HasTextContaining asserts that the answer's text contains the expected subString
func HasTextContaining(t *testing.T, answer *beerscot.Answer, subString string) bool {
	if assert.NotNil(t, answer) {
		return assert.Containsf(t, answer.Text, subString, "Answer expected to have text containing [%s] but its text [%s] didn't", subString, answer.Text)
	}
	return false
}

// HasOptions asserts that the answer's options contains the expected configuration key/values
func HasOptions(t *testing.T, answer *beerscot.Answer, options ...ResolvedAnswerOption) bool {
	if assert.NotNil(t, answer) {
		ropts := convertConfigsToResolvedAnswerOptions(beerscot.ApplyAnswerOpts(answer.Options...))
		return assert.ElementsMatchf(t, options, ropts, "Answer options expected %s but were %s", options, ropts)
	}
	return false
}

// HasAttachmentFallbacks asserts that the answer has attachments with the expected fallbacks, in order
func HasAttachmentFallbacks(t *testing.T, answer *beerscot.Answer, fallbacks ...string) bool {
	if assert.NotNil(t, answer) {
		actual := make([]string, 0, len(answer.Attachments))
		for _, a := range answer.Attachments {
			actual = append(actual, a.Fallback)
		}

		return assert.Equalf(t, fallbacks, actual, "Answer attachment fallbacks expected %s but were %s", fallbacks, actual)
	}
	return false
}

// convertConfigsToResolvedAnswerOptions converts a map[string]string of answer options to an array
// of ResolvedAnswerOptions for easier matching
func convertConfigsToResolvedAnswerOptions(configs map[string]string) (ropts []ResolvedAnswerOption) {
	ropts = make([]ResolvedAnswerOption, 0)

	for key, value := range configs {
		ropts = append(ropts, ResolvedAnswerOption{Key: key, Value: value})
	}

	return ropts
}
