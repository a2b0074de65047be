package beerscot

import (
	"context"
	"fmt"
	"github.com/beerscot/beerscot/config"
	"github.com/beerscot/beerscot/schedule"
	"github.com/marcsantiago/gocron"
	"github.com/nlopes/slack"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/api/global"
	"go.opentelemetry.io/otel/api/metric"
	"log"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// VERSION represents the current beerscot version
	VERSION = "1.0.0"

	defaultLogPrefix = "beerscot: "
	defaultLogFlag   = log.Lshortfile | log.LstdFlags
)

// Beerscot represents what defines a Slack Mascot (mostly, a name and its plugins)
type Beerscot struct {
	name          string
	config        *viper.Viper
	defaultAction Answerer
	plugins       []*Plugin

	// Internal state as an optimization when looping through all commands/hearActions
	commandsWithID    []actionDefinitionWithID
	hearActionsWithID []actionDefinitionWithID

	// Self identity, set on connection and read by partition workers
	identityLock    sync.RWMutex
	selfID          string
	selfName        string
	selfMentionExpr *regexp.Regexp

	log          *sLogger
	meter        metric.Meter
	instrumenter *instrumenter
	router       *partitionRouter
}

// Plugin represents a plugin (its name, action definitions and injected services)
type Plugin struct {
	Name             string
	Commands         []ActionDefinition
	HearActions      []ActionDefinition
	ScheduledActions []ScheduledActionDefinition

	// Services injected by beerscot when the plugin is registered and the bot starts
	Logger         SLogger
	UserInfoFinder UserInfoFinder
	MessageSender  MessageSender
}

// ActionDefinition represents how an action is triggered, published, used and described
// along with defining the function defining its behavior
type ActionDefinition struct {
	// Indicates whether the action should be omitted from the help message
	Hidden bool

	// Matcher that will determine whether or not the action should be triggered
	Match Matcher

	// Usage example
	Usage string

	// Help description for the action
	Description string

	// Function to execute if the Matcher matches
	Answer Answerer
}

// ScheduledActionDefinition represents when a scheduled action is triggered as well
// as what it does and how
type ScheduledActionDefinition struct {
	// Indicates whether the action should be omitted from the help message
	Hidden bool

	// Schedule definition determining when the action runs
	Schedule schedule.Definition

	// Help description for the scheduled action
	Description string

	// ScheduledAction is the function that is invoked when the schedule activates
	Action ScheduledAction
}

// IncomingMessage holds data for an incoming slack message. In addition to a slack.Msg, it also has
// a normalized text that is the original text stripped from the bot mention prefix (i.e. "<@beerscot> untappd"
// becomes "untappd")
type IncomingMessage struct {
	// The original slack.Msg text stripped from the "<@Mention>" prefix, if applicable
	NormalizedText string
	slack.Msg
}

// Matcher is the function that determines whether or not an action should be triggered. Note that a match doesn't guarantee that the action should
// actually respond with anything once invoked
type Matcher func(m *IncomingMessage) bool

// Answerer is what gets executed when an ActionDefinition is triggered. A nil answer means nothing gets
// sent back by the engine (plugins can still deliver messages with their MessageSender)
type Answerer func(m *IncomingMessage) *Answer

// ScheduledAction is what gets executed when a ScheduledActionDefinition is triggered (by its Schedule)
type ScheduledAction func()

// String returns a friendly description of a ScheduledActionDefinition
func (a ScheduledActionDefinition) String() string {
	return fmt.Sprintf("`%s` - %s", a.Schedule, a.Description)
}

// String returns a friendly description of an ActionDefinition
func (a ActionDefinition) String() string {
	return fmt.Sprintf("`%s` - %s", a.Usage, a.Description)
}

// actionDefinitionWithID holds an action definition along with its identifier string and the name
// of the plugin it belongs to
type actionDefinitionWithID struct {
	ActionDefinition
	id         string
	pluginName string
}

// terminationEvent is an event sent on the incoming events channel to terminate processing
type terminationEvent struct {
}

// Option defines an option for a Beerscot
type Option func(*Beerscot)

// OptionLog sets a logger for Beerscot
func OptionLog(logger *log.Logger) Option {
	return func(s *Beerscot) {
		s.log.logger = logger
	}
}

// OptionLogfile sets a logfile for Beerscot while using the other default logging prefix and options
func OptionLogfile(logfile *os.File) Option {
	return func(s *Beerscot) {
		s.log.logger = log.New(logfile, defaultLogPrefix, defaultLogFlag)
	}
}

// OptionMeter sets the open telemetry meter used to record beerscot metrics. Defaults to the
// global meter provider's meter named after the bot
func OptionMeter(meter metric.Meter) Option {
	return func(s *Beerscot) {
		s.meter = meter
	}
}

// New creates a new beerscot from a name, a configuration and options. Plugins should then be
// registered with RegisterPlugin before calling Run
func New(name string, v *viper.Viper, options ...Option) (s *Beerscot, err error) {
	s = new(Beerscot)

	s.name = name
	s.config = config.LayerConfigWithDefaults(v)
	s.defaultAction = func(m *IncomingMessage) *Answer {
		return &Answer{Text: fmt.Sprintf("I don't understand, ask me for \"%s\" to get a list of things I do", helpPluginName)}
	}
	s.plugins = make([]*Plugin, 0)
	s.log = NewSLogger(log.New(os.Stdout, defaultLogPrefix, defaultLogFlag), v.GetBool(config.DebugKey))
	s.meter = global.MeterProvider().Meter(name)

	for _, opt := range options {
		opt(s)
	}

	s.instrumenter = newInstrumenter(name, s.meter)

	s.router, err = newPartitionRouter(v.GetInt(config.MessageProcessingPartitionCount), v.GetInt(config.MessageProcessingBufferedMessageCount), s.log, s.instrumenter)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid [%s] value", config.MessageProcessingPartitionCount)
	}

	return s, nil
}

// RegisterPlugin registers a plugin with the Beerscot engine. This should be invoked
// prior to calling Run
func (s *Beerscot) RegisterPlugin(p *Plugin) {
	s.plugins = append(s.plugins, p)
}

// Run starts the Beerscot and loops until the process is interrupted
func (s *Beerscot) Run() (err error) {
	// Start by adding the help command now that we know all plugins have been registered
	helpPlugin := s.newHelpPlugin(VERSION)
	s.RegisterPlugin(&helpPlugin.Plugin)
	s.attachIdentifiersToPluginActions()

	api := slack.New(
		s.config.GetString(config.TokenKey),
		slack.OptionDebug(s.config.GetBool(config.DebugKey)),
		slack.OptionLog(log.New(os.Stdout, "slack: ", defaultLogFlag)),
	)

	uf, err := NewCachingUserInfoFinder(s.config, NewUserInfoFinderWithTelemetry(api, s.name, s.meter), s.log)
	if err != nil {
		return err
	}

	driver := newChatDriverWithTelemetry(api, s.name, s.meter)
	s.injectServices(uf, newAnswerSender(driver))

	// Load time zone location for the scheduler
	timeLoc, err := config.GetTimeLocation(s.config)
	if err != nil {
		return err
	}

	schedulerStop, err := s.startActionScheduler(timeLoc)
	if err != nil {
		return err
	}
	defer close(schedulerStop)

	rtm := api.NewRTM()
	go rtm.ManageConnection()
	defer rtm.Disconnect()

	termination := make(chan bool)
	go s.watchForTerminationSignalToAbort(rtm.IncomingEvents)
	go s.handleIncomingEvents(rtm.IncomingEvents, termination, driver, rtm)

	<-termination

	return nil
}

// injectServices sets the beerscot services on every registered plugin
func (s *Beerscot) injectServices(uf UserInfoFinder, sender MessageSender) {
	for _, p := range s.plugins {
		p.Logger = s.log
		p.UserInfoFinder = uf
		p.MessageSender = sender
	}
}

// handleIncomingEvents runs the loop dispatching incoming slack events until a terminationEvent or an
// invalid authentication event is received. Message processing is done by partition workers and is
// drained before signaling termination
func (s *Beerscot) handleIncomingEvents(events <-chan slack.RTMEvent, termination chan<- bool, driver chatDriver, sif selfInfoFinder) {
	s.router.start(func(msgEvent slack.MessageEvent) {
		s.processMessageEvent(driver, &msgEvent)
	})

	defer func() {
		s.router.stop()
		termination <- true
	}()

	for msg := range events {
		switch e := msg.Data.(type) {
		case *slack.ConnectedEvent:
			s.log.Printf("Infos: %v\n", e.Info)
			s.log.Printf("Connection counter: %d\n", e.ConnectionCount)
			s.cacheSelfIdentity(sif)

		case *slack.MessageEvent:
			s.instrumenter.coreMetrics.msgsSeen.Add(context.Background(), 1)
			s.router.routeMessageEvent(*e)

		case *slack.LatencyReport:
			s.log.Printf("Current latency: %v\n", e.Value)
			s.instrumenter.coreMetrics.slackLatencyMillis.Set(context.Background(), e.Value.Milliseconds())

		case *slack.RTMError:
			s.log.Printf("Error: %s\n", e.Error())

		case *slack.InvalidAuthEvent:
			s.log.Printf("Invalid credentials")
			return

		case *terminationEvent:
			s.log.Debugf("Received termination event, stopping message processing")
			return

		default:
			// Ignoring other messages
		}
	}
}

// watchForTerminationSignalToAbort waits for a SIGTERM or SIGINT and sends a terminationEvent to finish
// the main Run() loop and terminate cleanly. Note that this is meant to run in a go routine given that this is blocking
func (s *Beerscot) watchForTerminationSignalToAbort(events chan<- slack.RTMEvent) {
	tSignals := make(chan os.Signal, 1)
	signal.Notify(tSignals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-tSignals

	s.log.Debugf("Received termination signal [%s], terminating processing\n", sig)
	events <- slack.RTMEvent{Type: "termination", Data: &terminationEvent{}}
}

// attachIdentifiersToPluginActions attaches an action identifier to every plugin action and sets them accordingly
// in the internal state of Beerscot
// The identifiers are generated the following way:
//  - pluginName.c[pluginIndexOfTheCommand] for commands
//  - pluginName.h[pluginIndexOfTheHearAction] for hear actions
func (s *Beerscot) attachIdentifiersToPluginActions() {
	s.commandsWithID = make([]actionDefinitionWithID, 0)
	s.hearActionsWithID = make([]actionDefinitionWithID, 0)

	for _, p := range s.plugins {
		for i, c := range p.Commands {
			s.commandsWithID = append(s.commandsWithID, actionDefinitionWithID{ActionDefinition: c, id: fmt.Sprintf("%s.c[%d]", p.Name, i), pluginName: p.Name})
		}

		for i, h := range p.HearActions {
			s.hearActionsWithID = append(s.hearActionsWithID, actionDefinitionWithID{ActionDefinition: h, id: fmt.Sprintf("%s.h[%d]", p.Name, i), pluginName: p.Name})
		}
	}
}

// cacheSelfIdentity gets "our" identity and keeps the selfID and selfName to avoid having to look it up every time
func (s *Beerscot) cacheSelfIdentity(sif selfInfoFinder) {
	info := sif.GetInfo()
	if info == nil || info.User == nil {
		s.log.Printf("No self identity available from slack, commands will only be answered on direct messages\n")
		return
	}

	s.identityLock.Lock()
	defer s.identityLock.Unlock()

	s.selfID = info.User.ID
	s.selfName = info.User.Name
	s.selfMentionExpr = regexp.MustCompile("(?s)^(<@" + regexp.QuoteMeta(s.selfID) + ">|@?" + regexp.QuoteMeta(s.selfName) + "):? +(.+)")

	s.log.Debugf("Caching self id [%s] and self name [%s]\n", s.selfID, s.selfName)
}

// startActionScheduler creates all ScheduledActionDefinition from all plugins and registers them with the scheduler
// before starting it. Closing the returned channel stops the scheduler
func (s *Beerscot) startActionScheduler(timeLoc *time.Location) (stop chan bool, err error) {
	gocron.ChangeLoc(timeLoc)
	sc := gocron.NewScheduler()

	for _, p := range s.plugins {
		for _, sa := range p.ScheduledActions {
			j, err := schedule.NewJob(sc, sa.Schedule)
			if err != nil {
				return nil, errors.Wrapf(err, "error scheduling action for plugin [%s]", p.Name)
			}

			s.log.Debugf("Adding job [%s] to scheduler\n", sa.Schedule)
			j.Do(sa.Action)
		}
	}

	_, t := sc.NextRun()
	s.log.Debugf("Starting scheduler with first job scheduled at [%s]\n", t)

	return sc.Start(), nil
}

// processMessageEvent handles high-level processing of a new slack message and sends any answers triggered by it.
// Message edits and deletions are ignored: beerscot doesn't track responses to update or delete them
func (s *Beerscot) processMessageEvent(driver chatDriver, msgEvent *slack.MessageEvent) {
	// reply_to is set by slack when a sent message has been acknowledged and should be considered
	// officially sent to others. Those are mostly for clients/UI to show status
	if msgEvent.ReplyTo > 0 || msgEvent.Type != "message" || msgEvent.SubType != "" {
		s.log.Debugf("Ignoring message event [%s] with subtype [%s]\n", msgEvent.Type, msgEvent.SubType)
		return
	}

	d := measure(func() {
		answers := s.routeMessage(&msgEvent.Msg)

		for _, a := range answers {
			if _, _, err := sendAnswer(driver, msgEvent.Channel, a, msgEvent.Timestamp); err != nil {
				s.log.Printf("Unable to send answer triggered by message [%s] on [%s]: %v\n", msgEvent.Timestamp, msgEvent.Channel, err)
			}
		}
	})

	s.instrumenter.coreMetrics.msgsProcessed.Add(context.Background(), 1)
	s.instrumenter.coreMetrics.msgProcessingLatencyMillis.Record(context.Background(), d.Milliseconds())
}

// routeMessage handles routing the message to commands or hear actions according to the context
// The rules are the following:
// 	1. If the message is on a channel with a direct mention to us (@name), we route to commands
// 	2. If the message is a direct message to us, we route to commands
// 	3. If the message is on a channel without mention (regular conversation), we route to hear actions
func (s *Beerscot) routeMessage(m *slack.Msg) (answers []*Answer) {
	s.identityLock.RLock()
	selfID, mentionExpr := s.selfID, s.selfMentionExpr
	s.identityLock.RUnlock()

	// Ignore messages sent by "us"
	if selfID != "" && (m.User == selfID || m.BotID == selfID) {
		s.log.Debugf("Ignoring message from user [%s] because that's \"us\" [%s]", m.User, selfID)

		return nil
	}

	if mentionExpr != nil {
		if matches := mentionExpr.FindStringSubmatch(m.Text); len(matches) == 3 {
			return s.handleCommand(&IncomingMessage{NormalizedText: matches[2], Msg: *m})
		}
	}

	if strings.HasPrefix(m.Channel, "D") {
		return s.handleCommand(&IncomingMessage{NormalizedText: m.Text, Msg: *m})
	}

	answers, _ = s.answerActions(s.hearActionsWithID, &IncomingMessage{NormalizedText: m.Text, Msg: *m})
	return answers
}

// handleCommand tries a match with all known commands. If no command matches, the default action is invoked
func (s *Beerscot) handleCommand(m *IncomingMessage) (answers []*Answer) {
	answers, matched := s.answerActions(s.commandsWithID, m)
	if !matched {
		return []*Answer{s.defaultAction(m)}
	}

	return answers
}

// answerActions loops over all action definitions and invokes the answerer of all of those matching the
// incoming message. Note that more than one action can be triggered during the processing of a single message
func (s *Beerscot) answerActions(actions []actionDefinitionWithID, m *IncomingMessage) (answers []*Answer, matched bool) {
	answers = make([]*Answer, 0)

	for _, action := range actions {
		if !action.Match(m) {
			continue
		}

		matched = true
		pm := s.instrumenter.getOrCreatePluginMetrics(action.pluginName)

		var a *Answer
		d := measure(func() {
			a = action.Answer(m)
		})
		pm.processingTimeMillis.Record(context.Background(), d.Milliseconds())

		if a != nil {
			s.log.Debugf("Action [%s] answered message [%s]\n", action.id, m.Timestamp)
			pm.answerCount.Add(context.Background(), 1)
			answers = append(answers, a)
		}
	}

	return answers, matched
}
