package beerscot

import (
	"fmt"
	"github.com/beerscot/beerscot/config"
	"github.com/beerscot/beerscot/schedule"
	"github.com/nlopes/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/api/metric"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"testing"
	"time"
)

type infoFinder struct {
}

func (i *infoFinder) GetInfo() (user *slack.Info) {
	return &slack.Info{User: &slack.UserDetails{ID: "BotUserID", Name: "beerscot"}}
}

type userInfoFinder struct {
}

func (u *userInfoFinder) GetUserInfo(userID string) (user *slack.User, err error) {
	return &slack.User{ID: userID, Name: "heathseals", RealName: "Heath Seals"}, nil
}

type testPlugin struct {
	Plugin
}

func newTestPlugin() (tp *testPlugin) {
	tp = new(testPlugin)
	tp.Name = "tester"
	tp.Commands = []ActionDefinition{
		{
			Match: func(m *IncomingMessage) bool {
				return strings.HasPrefix(m.NormalizedText, "pour")
			},
			Usage:       "pour `<something>`",
			Description: "Have the test bot pour something for you",
			Answer: func(m *IncomingMessage) *Answer {
				return &Answer{Text: fmt.Sprintf("Pour it yourself, %s", m.User)}
			},
		},
		{
			Match: func(m *IncomingMessage) bool {
				return strings.HasPrefix(m.NormalizedText, "quiet")
			},
			Usage:       "quiet",
			Description: "Matches but never answers",
			Answer: func(m *IncomingMessage) *Answer {
				return nil
			},
		},
	}
	tp.HearActions = []ActionDefinition{{
		Hidden: true,
		Match: func(m *IncomingMessage) bool {
			return strings.Contains(m.NormalizedText, "hops")
		},
		Usage:       "Talk about hops",
		Description: "Reply when hearing about hops",
		Answer: func(m *IncomingMessage) *Answer {
			return &Answer{Text: "Did someone say hops?"}
		},
	}}

	return tp
}

func TestLogfileOverrideUsed(t *testing.T) {
	tmpfile, err := ioutil.TempFile("", "test")
	require.NoError(t, err)

	defer os.Remove(tmpfile.Name())

	runBeerscotWithIncomingEvents(t, []slack.RTMEvent{}, OptionLogfile(tmpfile))

	logs, err := ioutil.ReadFile(tmpfile.Name())
	require.NoError(t, err)

	assert.Contains(t, string(logs), "Connection counter: 0")
}

func TestInvalidCredentialsShutsdownImmediately(t *testing.T) {
	sentMsgs, logs := runBeerscotWithIncomingEventsWithLogs(t, []slack.RTMEvent{
		{Type: "invalid_auth_event", Data: &slack.InvalidAuthEvent{}},
	})

	assert.Contains(t, logs, "Invalid credentials")
	assert.Empty(t, sentMsgs)
}

func TestHandleIncomingMessages(t *testing.T) {
	sentMsgs, _ := runBeerscotWithIncomingEventsWithLogs(t, []slack.RTMEvent{
		newRTMMessageEvent(newMessageEvent("CGENERAL", "Bonjour", "Alphonse", "1000.01")),
		newRTMMessageEvent(newMessageEvent("CGENERAL", "these hops are fresh", "Alphonse", "1000.02")),
		newRTMMessageEvent(newMessageEvent("CGENERAL", "<@BotUserID> pour me a pint", "Alphonse", "1000.03")),
		newRTMMessageEvent(newMessageEvent("CGENERAL", "beerscot: pour me another", "Alphonse", "1000.04")),
		newRTMMessageEvent(newMessageEvent("DBOT", "pour me a stout", "Alphonse", "1000.05")),
		newRTMMessageEvent(newMessageEvent("CGENERAL", "<@BotUserID> dance", "Alphonse", "1000.06")),
		newRTMMessageEvent(newMessageEvent("CGENERAL", "<@BotUserID> quiet please", "Alphonse", "1000.07")),
		newRTMMessageEvent(newMessageEvent("CGENERAL", "I love hops too", "BotUserID", "1000.08")),
	})

	texts := make([]string, 0)
	for _, m := range sentMsgs {
		texts = append(texts, fmt.Sprintf("%s:%s", m.channelID, m.values.Get("text")))
	}

	assert.ElementsMatch(t, []string{
		"CGENERAL:Did someone say hops?",
		"CGENERAL:Pour it yourself, Alphonse",
		"CGENERAL:Pour it yourself, Alphonse",
		"DBOT:Pour it yourself, Alphonse",
		"CGENERAL:I don't understand, ask me for \"help\" to get a list of things I do",
	}, texts)
}

func TestIgnoredMessageSubtypes(t *testing.T) {
	edited := newMessageEvent("CGENERAL", "<@BotUserID> pour me a pint", "Alphonse", "1000.01")
	edited.SubType = "message_changed"

	reply := newMessageEvent("CGENERAL", "<@BotUserID> pour me a pint", "Alphonse", "1000.02")
	reply.ReplyTo = 1

	sentMsgs, _ := runBeerscotWithIncomingEventsWithLogs(t, []slack.RTMEvent{
		newRTMMessageEvent(edited),
		newRTMMessageEvent(reply),
	})

	assert.Empty(t, sentMsgs)
}

func TestThreadedAnswerRepliesToTriggeringMessage(t *testing.T) {
	v := config.NewViperWithDefaults()
	s, err := New("beerscot", v, OptionLog(log.New(ioutil.Discard, "", 0)), OptionMeter(metric.NoopMeter{}))
	require.NoError(t, err)

	p := Plugin{Name: "threader", Commands: []ActionDefinition{{
		Match: func(m *IncomingMessage) bool { return true },
		Answer: func(m *IncomingMessage) *Answer {
			return &Answer{Text: "In thread", Options: []AnswerOption{AnswerInThread()}}
		},
	}}}
	s.RegisterPlugin(&p)
	s.attachIdentifiersToPluginActions()

	d := inMemoryChatDriver{}
	s.processMessageEvent(&d, newMessageEvent("DBOT", "anything", "Alphonse", "1000.01"))

	msgs := d.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "1000.01", msgs[0].values.Get("thread_ts"))
}

func TestInvalidPartitionCount(t *testing.T) {
	v := config.NewViperWithDefaults()
	v.Set(config.MessageProcessingPartitionCount, 3)

	_, err := New("beerscot", v)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "invalid [messageProcessingPartitionCount] value")
	}
}

func TestInjectServices(t *testing.T) {
	s, err := New("beerscot", config.NewViperWithDefaults(), OptionMeter(metric.NoopMeter{}))
	require.NoError(t, err)

	tp := newTestPlugin()
	s.RegisterPlugin(&tp.Plugin)

	sender := newAnswerSender(&inMemoryChatDriver{})
	s.injectServices(&userInfoFinder{}, sender)

	assert.Equal(t, sender, tp.MessageSender)
	assert.NotNil(t, tp.Logger)
	assert.NotNil(t, tp.UserInfoFinder)
}

func TestStartActionScheduler(t *testing.T) {
	s, err := New("beerscot", config.NewViperWithDefaults(), OptionLog(log.New(ioutil.Discard, "", 0)), OptionMeter(metric.NoopMeter{}))
	require.NoError(t, err)

	s.RegisterPlugin(&Plugin{Name: "digester", ScheduledActions: []ScheduledActionDefinition{{Schedule: schedule.Definition{Interval: 1, Weekday: time.Friday.String(), AtTime: "16:00"}, Description: "Weekly digest", Action: func() {}}}})

	stop, err := s.startActionScheduler(time.UTC)
	require.NoError(t, err)
	close(stop)
}

func TestStartActionSchedulerWithInvalidSchedule(t *testing.T) {
	s, err := New("beerscot", config.NewViperWithDefaults(), OptionLog(log.New(ioutil.Discard, "", 0)), OptionMeter(metric.NoopMeter{}))
	require.NoError(t, err)

	s.RegisterPlugin(&Plugin{Name: "digester", ScheduledActions: []ScheduledActionDefinition{{Schedule: schedule.Definition{Interval: 1, Weekday: "Caturday"}, Action: func() {}}}})

	_, err = s.startActionScheduler(time.UTC)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "error scheduling action for plugin [digester]")
	}
}

func newRTMMessageEvent(msgEvent *slack.MessageEvent) (e slack.RTMEvent) {
	e.Type = "message"
	e.Data = msgEvent

	return e
}

func newMessageEvent(channel string, text string, user string, timestamp string) (msge *slack.MessageEvent) {
	msge = new(slack.MessageEvent)
	msge.Type = "message"
	msge.Channel = channel
	msge.User = user
	msge.Text = text
	msge.Timestamp = timestamp

	return msge
}

func runBeerscotWithIncomingEventsWithLogs(t *testing.T, events []slack.RTMEvent) (sentMessages []sentMessage, logs []string) {
	var logBuilder strings.Builder
	logger := log.New(&logBuilder, "", 0)

	sentMessages = runBeerscotWithIncomingEvents(t, events, OptionLog(logger))
	return sentMessages, strings.Split(logBuilder.String(), "\n")
}

func runBeerscotWithIncomingEvents(t *testing.T, events []slack.RTMEvent, option Option) (sentMessages []sentMessage) {
	v := config.NewViperWithDefaults()

	driver := inMemoryChatDriver{timeCursor: 1547785956}

	s, err := New("beerscot", v, option, OptionMeter(metric.NoopMeter{}))
	require.NoError(t, err)

	tp := newTestPlugin()
	s.RegisterPlugin(&tp.Plugin)
	s.attachIdentifiersToPluginActions()

	ec := make(chan slack.RTMEvent)
	termination := make(chan bool)
	go s.handleIncomingEvents(ec, termination, &driver, &infoFinder{})

	go sendTestEventsForProcessing(ec, events)

	<-termination

	return driver.messages()
}

func sendTestEventsForProcessing(ec chan<- slack.RTMEvent, events []slack.RTMEvent) {
	// Start with a connected event to simulate the normal flow that allows an instance to cache its
	// own identity
	ec <- slack.RTMEvent{Type: "connected_event", Data: &slack.ConnectedEvent{}}

	for _, e := range events {
		ec <- e
	}

	// Terminate the sequence of test events by sending a termination event
	ec <- slack.RTMEvent{Type: "termination", Data: &terminationEvent{}}
}
