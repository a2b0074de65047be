package assertplugin

import (
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/schedule"
	"github.com/beerscot/beerscot/test/capture"
	"github.com/nlopes/slack"
	"github.com/stretchr/testify/assert"
)

// Asserter represents a plugin driver/asserter and holds the bot identifier that tests are using when
// sending test messages for processing
type Asserter struct {
	t         *testing.T
	botUserID string
	logger    *log.Logger
}

// New creates a new asserter with the given botUserId
// (only include the id without the '@' prefix).
// The botUserId is used in order to detect commands formed with
// <@botUserId>
func New(t *testing.T, botUserID string, options ...Option) (a *Asserter) {
	a = new(Asserter)
	a.t = t
	a.botUserID = botUserID

	for _, option := range options {
		option(a)
	}

	return a
}

// Option defines an option for the Asserter
type Option func(*Asserter)

// OptionLog sets a logger for the asserter such that this logger is attached to the plugin when driven by
// the asserter
func OptionLog(logger *log.Logger) func(*Asserter) {
	return func(a *Asserter) {
		a.logger = logger
	}
}

// ResultValidator is a function to do further validation of the answers and messages sent by a plugin
// while processing all of its commands and hear actions. Sent messages are keyed by channel ID. The
// return value is meant to be true if validation is successful and false otherwise (following the
// testify convention)
type ResultValidator func(t *testing.T, answers []*beerscot.Answer, sent map[string][]*beerscot.Answer) bool

// SentValidator is a function to do further validation of the messages sent by a plugin's scheduled actions
type SentValidator func(t *testing.T, sent map[string][]*beerscot.Answer) bool

// AnswersAndSends drives a plugin and collects Answers as well as messages sent with the plugin's
// MessageSender. Once all of those have been collected, it passes handling to a validator to assert
// the expected answers and sent messages. It follows the style of github.com/stretchr/testify/assert
// as far as returning true/false to indicate success for further nested testing.
func (a *Asserter) AnswersAndSends(p *beerscot.Plugin, m *slack.Msg, validate ResultValidator) (valid bool) {
	ac := a.injectServices(p)

	answers := a.driveActions(p, m)

	return validate(a.t, answers, ac.SentAnswers())
}

// RunsOnSchedule asserts that the plugin has a scheduled action with the given schedule, runs it
// and passes the messages it sent to a validator
func (a *Asserter) RunsOnSchedule(p *beerscot.Plugin, sched schedule.Definition, validate SentValidator) (valid bool) {
	ac := a.injectServices(p)

	ran := false
	for _, sa := range p.ScheduledActions {
		if sa.Schedule == sched {
			sa.Action()
			ran = true
		}
	}

	if !assert.Truef(a.t, ran, "Expected plugin [%s] to have an action scheduled [%s] but it had none", p.Name, sched) {
		return false
	}

	return validate(a.t, ac.SentAnswers())
}

// DoesNotRunOnSchedule asserts that the plugin has no scheduled action with the given schedule
func (a *Asserter) DoesNotRunOnSchedule(p *beerscot.Plugin, sched schedule.Definition) (valid bool) {
	for _, sa := range p.ScheduledActions {
		if sa.Schedule == sched {
			return assert.Failf(a.t, "Unexpected scheduled action", "Expected plugin [%s] to not run on schedule [%s] but found [%s]", p.Name, sched, sa)
		}
	}

	return true
}

func (a *Asserter) injectServices(p *beerscot.Plugin) (ac *capture.AnswerCaptor) {
	ac = capture.NewAnswerCaptor()
	p.MessageSender = ac
	p.Logger = beerscot.NewSLogger(getLogger(a), true)

	return ac
}

func getLogger(a *Asserter) (logger *log.Logger) {
	if a.logger != nil {
		return a.logger
	}

	var b strings.Builder
	return log.New(&b, "", 0)
}

func (a *Asserter) driveActions(p *beerscot.Plugin, m *slack.Msg) (answers []*beerscot.Answer) {
	botMentionPrefix := fmt.Sprintf("<@%s> ", a.botUserID)

	if strings.HasPrefix(m.Text, botMentionPrefix) {
		normalizedText := strings.TrimPrefix(m.Text, botMentionPrefix)
		inMsg := beerscot.IncomingMessage{NormalizedText: normalizedText, Msg: *m}

		return runActions(p.Commands, &inMsg)
	}

	inMsg := beerscot.IncomingMessage{NormalizedText: m.Text, Msg: *m}

	if strings.HasPrefix(m.Channel, "D") {
		return runActions(p.Commands, &inMsg)
	}

	return runActions(p.HearActions, &inMsg)
}

func runActions(actions []beerscot.ActionDefinition, m *beerscot.IncomingMessage) (answers []*beerscot.Answer) {
	answers = make([]*beerscot.Answer, 0)

	for _, action := range actions {
		if action.Match(m) {
			a := action.Answer(m)

			if a != nil {
				answers = append(answers, a)
			}
		}
	}

	return answers
}
