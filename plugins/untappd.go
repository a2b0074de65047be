// Package plugins provides the plugins of beerscot: untappd, the bridge between the team's chat
// and the untappd friends of the bot, and versioner
package plugins

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/actions"
	"github.com/beerscot/beerscot/config"
	"github.com/beerscot/beerscot/plugin"
	"github.com/beerscot/beerscot/schedule"
	"github.com/beerscot/beerscot/untappd"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/api/global"
	"go.opentelemetry.io/otel/api/metric"
)

// UntappdPluginName holds the identifying name of the untappd plugin
const UntappdPluginName = "untappd"

// Configuration keys of the untappd plugin. Credentials and numeric settings can also be set
// from the environment
const (
	APIKeyKey               = "apiKey"               // Untappd client id, string. Env: UNTAPPD_API_KEY
	APISecretKey            = "apiSecret"            // Untappd client secret, string. Env: UNTAPPD_API_SECRET
	AccessTokenKey          = "accessToken"          // Access token of the bot's untappd account, string. Env: UNTAPPD_API_ACCESS_TOKEN
	MaxCountKey             = "maxCount"             // Number of results to show, int. Env: UNTAPPD_MAX_COUNT
	MaxRandomIDKey          = "maxRandomID"          // Upper bound of random beer ids, int. Env: UNTAPPD_MAX_RANDOM_ID
	MaxDescriptionLengthKey = "maxDescriptionLength" // Max length of beer descriptions, int. 0 hides them. Env: UNTAPPD_MAX_DESCRIPTION_LENGTH
	AttachmentsKey          = "attachments"          // Render results as rich attachments, boolean
	APIURLKey               = "apiURL"               // Base url of the untappd api, string
	TimeoutKey              = "timeout"              // Timeout of untappd api calls, duration
	DigestChannelIDsKey     = "digestChannelIDs"     // Channels to post the friend feed digest to, string slice. Empty disables the digest
	DigestWeekdayKey        = "digestWeekday"        // Day of the friend feed digest, string
	DigestAtTimeKey         = "digestAtTime"         // Time of the friend feed digest, string
)

var untappdEnvVars = map[string]string{
	APIKeyKey:               "UNTAPPD_API_KEY",
	APISecretKey:            "UNTAPPD_API_SECRET",
	AccessTokenKey:          "UNTAPPD_API_ACCESS_TOKEN",
	MaxCountKey:             "UNTAPPD_MAX_COUNT",
	MaxRandomIDKey:          "UNTAPPD_MAX_RANDOM_ID",
	MaxDescriptionLengthKey: "UNTAPPD_MAX_DESCRIPTION_LENGTH",
}

const (
	defaultMaxCount             = 5
	defaultMaxRandomID          = 5485000
	defaultMaxDescriptionLength = 150
	defaultDigestAtTime         = "16:00"
	maxRandomBeerAttempts       = 5
)

const missingConfigMessage = "You are missing required configuration. Be sure to set UNTAPPD_API_KEY, UNTAPPD_API_SECRET and UNTAPPD_API_ACCESS_TOKEN."

var (
	friendFeedRegex  = regexp.MustCompile(`(?i)^untappd$`)
	badgeFeedRegex   = regexp.MustCompile(`(?i)^untappd\s+badges(?:\s.*)?$`)
	userRegex        = regexp.MustCompile(`(?i)^untappd\s+user(?:\s+(.*))?$`)
	beerRegex        = regexp.MustCompile(`(?i)^untappd\s+beer(?:\s+(.*))?$`)
	breweryRegex     = regexp.MustCompile(`(?i)^untappd\s+brewery(?:\s+(.*))?$`)
	toastRegex       = regexp.MustCompile(`(?i)^untappd\s+(?:toast|prost|cheers|skol)(?:\s+(.*))?$`)
	registerRegex    = regexp.MustCompile(`(?i)^untappd\s+register(?:\s.*)?$`)
	approveRegex     = regexp.MustCompile(`(?i)^untappd\s+approve(?:\s.*)?$`)
	friendsRegex     = regexp.MustCompile(`(?i)^untappd\s+friends(?:\s.*)?$`)
	removeRegex      = regexp.MustCompile(`(?i)^untappd\s+remove(?:\s+(.*))?$`)
	unknownVerbRegex = regexp.MustCompile(`(?i)^untappd\s+(\S+)`)
	numericRegex     = regexp.MustCompile(`^\d+$`)
)

var untappdVerbs = map[string]bool{"badges": true, "user": true, "beer": true, "brewery": true, "toast": true, "prost": true,
	"cheers": true, "skol": true, "register": true, "approve": true, "friends": true, "remove": true}

// Untappd holds the plugin data for the untappd plugin
type Untappd struct {
	beerscot.Plugin

	botName          string
	configured       bool
	api              untappd.API
	formatter        Formatter
	maxCount         int
	maxRandomID      int
	randomIntn       func(n int) int
	now              func() time.Time
	meter            metric.Meter
	digestChannelIDs []string
}

// UntappdOption defines an option for the untappd plugin
type UntappdOption func(*Untappd)

// OptionUntappdClock sets the clock used to render relative times
func OptionUntappdClock(now func() time.Time) UntappdOption {
	return func(u *Untappd) {
		u.now = now
	}
}

// OptionUntappdRandom sets the function drawing random beer ids in [0, n)
func OptionUntappdRandom(randomIntn func(n int) int) UntappdOption {
	return func(u *Untappd) {
		u.randomIntn = randomIntn
	}
}

// OptionUntappdMeter sets the open telemetry meter recording untappd api calls
func OptionUntappdMeter(meter metric.Meter) UntappdOption {
	return func(u *Untappd) {
		u.meter = meter
	}
}

// newRandomIntn returns a goroutine-safe random int generator
func newRandomIntn(seed int64) func(n int) int {
	var lock sync.Mutex
	r := rand.New(rand.NewSource(seed))

	return func(n int) int {
		lock.Lock()
		defer lock.Unlock()

		return r.Intn(n)
	}
}

// NewUntappd creates a new instance of the untappd plugin for the bot with the given name. Invalid
// numeric settings fail the creation while missing credentials only make every command answer
// with instructions to set them
func NewUntappd(botName string, c *config.PluginConfig, options ...UntappdOption) (p *beerscot.Plugin, err error) {
	u := new(Untappd)
	u.botName = botName
	u.now = time.Now
	u.randomIntn = newRandomIntn(time.Now().UnixNano())
	u.meter = global.MeterProvider().Meter(botName)

	for _, opt := range options {
		opt(u)
	}

	for key, env := range untappdEnvVars {
		if err = c.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "error binding [%s] to [%s]", key, env)
		}
	}

	c.SetDefault(MaxCountKey, defaultMaxCount)
	c.SetDefault(MaxRandomIDKey, defaultMaxRandomID)
	c.SetDefault(MaxDescriptionLengthKey, defaultMaxDescriptionLength)
	c.SetDefault(AttachmentsKey, true)
	c.SetDefault(APIURLKey, untappd.DefaultBaseURL)
	c.SetDefault(TimeoutKey, untappd.DefaultTimeout)
	c.SetDefault(DigestWeekdayKey, time.Friday.String())
	c.SetDefault(DigestAtTimeKey, defaultDigestAtTime)

	if u.maxCount, err = positiveInt(c, MaxCountKey); err != nil {
		return nil, err
	}

	if u.maxRandomID, err = positiveInt(c, MaxRandomIDKey); err != nil {
		return nil, err
	}

	maxDescriptionLength, err := cast.ToIntE(c.Get(MaxDescriptionLengthKey))
	if err != nil || maxDescriptionLength < 0 {
		return nil, errors.Errorf("invalid [%s] value [%v] for plugin [%s]", MaxDescriptionLengthKey, c.Get(MaxDescriptionLengthKey), UntappdPluginName)
	}

	rich, err := cast.ToBoolE(c.Get(AttachmentsKey))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid [%s] value for plugin [%s]", AttachmentsKey, UntappdPluginName)
	}

	timeout, err := cast.ToDurationE(c.Get(TimeoutKey))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid [%s] value for plugin [%s]", TimeoutKey, UntappdPluginName)
	}

	apiKey, apiSecret, accessToken := c.GetString(APIKeyKey), c.GetString(APISecretKey), c.GetString(AccessTokenKey)
	u.configured = apiKey != "" && apiSecret != "" && accessToken != ""

	client, err := untappd.New(apiKey, apiSecret, accessToken, untappd.OptionBaseURL(c.GetString(APIURLKey)), untappd.OptionTimeout(timeout))
	if err != nil {
		return nil, err
	}

	u.api = untappd.NewAPIWithTelemetry(client, botName, u.meter)
	u.formatter = NewFormatter(rich, maxDescriptionLength, u.now)
	u.digestChannelIDs = c.GetStringSlice(DigestChannelIDsKey)

	pb := plugin.New(UntappdPluginName).
		WithCommand(u.newCommand(friendFeedRegex, "untappd", "Show the latest checkins of my untappd friends", u.showFriendFeed)).
		WithCommand(u.newCommand(badgeFeedRegex, "untappd badges", "Show the badges my untappd friends earned lately", u.showBadgeFeed)).
		WithCommand(u.newCommand(userRegex, "untappd user <username>", "Show a user's stats and latest checkins", u.showUser)).
		WithCommand(u.newCommand(beerRegex, "untappd beer <query|id|random>", "Search for a beer, look one up by id or get a random one", u.showBeer)).
		WithCommand(u.newCommand(breweryRegex, "untappd brewery <query|id>", "Search for a brewery or look one up by id", u.showBrewery)).
		WithCommand(u.newCommand(toastRegex, "untappd toast [<username>]", "Toast the latest checkins of my friends (or a friend's latest checkin). Also `prost`, `cheers` and `skol`", u.toast)).
		WithCommand(u.newCommand(registerRegex, "untappd register", "Explain how to become my untappd friend", u.showRegistration)).
		WithCommand(u.newCommand(approveRegex, "untappd approve", "Accept all pending friend requests", u.approveFriends)).
		WithCommand(u.newCommand(friendsRegex, "untappd friends", "List my untappd friends", u.showFriends)).
		WithCommand(u.newCommand(removeRegex, "untappd remove <username>", "Remove a user from my untappd friends", u.removeFriend)).
		WithCommand(actions.NewCommand().
			Hidden().
			WithMatcher(matchUnknownVerb).
			WithAnswerer(u.requireConfiguration(func(channelID string, _ string) {
				u.sendText(channelID, "Not a valid command.")
			}, nil)).
			Build())

	if len(u.digestChannelIDs) > 0 {
		pb = pb.WithScheduledAction(actions.NewScheduledAction().
			WithSchedule(schedule.Definition{Interval: 1, Unit: schedule.Weeks, Weekday: c.GetString(DigestWeekdayKey), AtTime: c.GetString(DigestAtTimeKey)}).
			WithDescriptionf("Post the latest checkins of my untappd friends to %d channel(s)", len(u.digestChannelIDs)).
			WithAction(u.postDigest).
			Build())
	}

	u.Plugin = *pb.Build()

	return &u.Plugin, nil
}

func positiveInt(c *config.PluginConfig, key string) (value int, err error) {
	value, err = cast.ToIntE(c.Get(key))
	if err != nil || value <= 0 {
		return 0, errors.Errorf("invalid [%s] value [%v] for plugin [%s], must be a positive integer", key, c.Get(key), UntappdPluginName)
	}

	return value, nil
}

func normalize(text string) string {
	return strings.TrimSpace(text)
}

func matchUnknownVerb(m *beerscot.IncomingMessage) bool {
	matches := unknownVerbRegex.FindStringSubmatch(normalize(m.NormalizedText))
	return matches != nil && !untappdVerbs[strings.ToLower(matches[1])]
}

// newCommand builds a command matching re and handing its optional argument to handle
func (u *Untappd) newCommand(re *regexp.Regexp, usage string, description string, handle func(channelID string, arg string)) beerscot.ActionDefinition {
	return actions.NewCommand().
		WithMatcher(func(m *beerscot.IncomingMessage) bool {
			return re.MatchString(normalize(m.NormalizedText))
		}).
		WithUsage(usage).
		WithDescription(description).
		WithAnswerer(u.requireConfiguration(handle, re)).
		Build()
}

// requireConfiguration returns an answerer running handle only when credentials are configured. Answers
// are sent with the plugin's MessageSender so the answerer itself never returns any
func (u *Untappd) requireConfiguration(handle func(channelID string, arg string), re *regexp.Regexp) beerscot.Answerer {
	return func(m *beerscot.IncomingMessage) *beerscot.Answer {
		if !u.configured {
			u.sendText(m.Channel, missingConfigMessage)
			return nil
		}

		arg := ""
		if re != nil {
			if matches := re.FindStringSubmatch(normalize(m.NormalizedText)); len(matches) > 1 {
				arg = strings.TrimSpace(matches[1])
			}
		}

		handle(m.Channel, arg)
		return nil
	}
}

func (u *Untappd) sendAnswer(channelID string, a *beerscot.Answer) {
	if err := u.MessageSender.SendAnswer(channelID, a); err != nil {
		u.Logger.Printf("[%s] Error sending answer to channel [%s]: %v", UntappdPluginName, channelID, err)
	}
}

func (u *Untappd) sendAll(channelID string, answers []*beerscot.Answer) {
	for _, a := range answers {
		u.sendAnswer(channelID, a)
	}
}

func (u *Untappd) sendText(channelID string, text string) {
	u.sendAnswer(channelID, &beerscot.Answer{Text: text})
}

// reportError logs err and reports it to the channel as "<code>: <detail>" for api errors or verbatim otherwise
func (u *Untappd) reportError(channelID string, err error) {
	u.Logger.Printf("[%s] Error calling untappd: %v", UntappdPluginName, err)

	if apiErr, ok := errors.Cause(err).(*untappd.Error); ok {
		u.sendText(channelID, fmt.Sprintf("%d: %s", apiErr.Code, apiErr.Detail))
		return
	}

	u.sendText(channelID, err.Error())
}

func (u *Untappd) showFriendFeed(channelID string, _ string) {
	checkins, err := u.api.FriendActivity(context.Background(), u.maxCount)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	u.Logger.Debugf("[%s] Got [%d] checkins from friends", UntappdPluginName, len(checkins))
	u.sendAll(channelID, u.formatter.FriendFeed(checkins))

	if u.maxCount > 1 {
		if congrats := runningTheBoard(checkins); congrats != "" {
			u.sendText(channelID, congrats)
		}
	}
}

func (u *Untappd) postDigest() {
	for _, channelID := range u.digestChannelIDs {
		u.showFriendFeed(channelID, "")
	}
}

func (u *Untappd) showBadgeFeed(channelID string, _ string) {
	checkins, err := u.api.FriendActivity(context.Background(), u.maxCount)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	u.sendAll(channelID, u.formatter.BadgeFeed(checkins))
}

func (u *Untappd) showUser(channelID string, username string) {
	if username == "" {
		u.sendText(channelID, "Must provide a username to ask about.")
		return
	}

	ctx := context.Background()
	user, err := u.api.UserInfo(ctx, username)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	checkins, err := u.api.UserActivity(ctx, username, u.maxCount)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	u.sendAll(channelID, u.formatter.UserActivity(user, checkins))
}

func (u *Untappd) showBeer(channelID string, query string) {
	if query == "" {
		u.sendText(channelID, "Must provide a beer name to ask about.")
		return
	}

	ctx := context.Background()
	if strings.EqualFold(query, "random") || numericRegex.MatchString(query) {
		var beer *untappd.Beer
		var err error

		if numericRegex.MatchString(query) {
			id, _ := strconv.ParseInt(query, 10, 64)
			beer, err = u.api.BeerInfo(ctx, id)
		} else {
			beer, err = u.lookupRandomBeer(ctx, maxRandomBeerAttempts)
		}

		if err != nil {
			u.reportError(channelID, err)
			return
		}

		u.sendAll(channelID, u.formatter.Beers([]untappd.Beer{*beer}))
		return
	}

	beers, err := u.api.SearchBeer(ctx, query, u.maxCount)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	if len(beers) == 0 {
		u.sendText(channelID, fmt.Sprintf("No beers matched '%s'", query))
		return
	}

	if len(beers) > u.maxCount {
		beers = beers[:u.maxCount]
	}

	u.sendAll(channelID, u.formatter.Beers(beers))
}

// lookupRandomBeer looks up a random beer id, drawing a new one on a not found response as long as
// attempts remain
func (u *Untappd) lookupRandomBeer(ctx context.Context, attemptsLeft int) (beer *untappd.Beer, err error) {
	id := int64(u.randomIntn(u.maxRandomID))
	beer, err = u.api.BeerInfo(ctx, id)

	if untappd.IsNotFound(err) && attemptsLeft > 1 {
		u.Logger.Debugf("[%s] No beer with random id [%d], %d attempt(s) left", UntappdPluginName, id, attemptsLeft-1)
		return u.lookupRandomBeer(ctx, attemptsLeft-1)
	}

	return beer, err
}

func (u *Untappd) showBrewery(channelID string, query string) {
	if query == "" {
		u.sendText(channelID, "Must provide a brewery name to ask about.")
		return
	}

	ctx := context.Background()
	if numericRegex.MatchString(query) {
		id, _ := strconv.ParseInt(query, 10, 64)
		brewery, err := u.api.BreweryInfo(ctx, id)
		if err != nil {
			u.reportError(channelID, err)
			return
		}

		u.sendAll(channelID, u.formatter.Breweries([]untappd.Brewery{*brewery}))
		return
	}

	breweries, err := u.api.SearchBrewery(ctx, query, u.maxCount)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	if len(breweries) == 0 {
		u.sendText(channelID, fmt.Sprintf("No breweries matched '%s'", query))
		return
	}

	if len(breweries) > u.maxCount {
		breweries = breweries[:u.maxCount]
	}

	u.sendAll(channelID, u.formatter.Breweries(breweries))
}

// toastable returns the checkins not yet toasted by the bot, keeping a single checkin per user
func toastable(checkins []untappd.Checkin) (selected []untappd.Checkin) {
	selected = make([]untappd.Checkin, 0, len(checkins))
	toasted := make(map[int64]bool)

	for _, c := range checkins {
		if c.Toasts.AuthToast || toasted[c.User.UID] {
			continue
		}

		toasted[c.User.UID] = true
		selected = append(selected, c)
	}

	return selected
}

func (u *Untappd) toast(channelID string, username string) {
	ctx := context.Background()

	var checkins []untappd.Checkin
	var err error
	if username != "" {
		checkins, err = u.api.UserActivity(ctx, username, 1)
	} else {
		checkins, err = u.api.FriendActivity(ctx, u.maxCount)
	}

	if err != nil {
		u.reportError(channelID, err)
		return
	}

	var wg sync.WaitGroup
	for _, c := range toastable(checkins) {
		wg.Add(1)

		go func(c untappd.Checkin) {
			defer wg.Done()

			if _, err := u.api.Toast(ctx, c.ID); err != nil {
				u.reportError(channelID, err)
				return
			}

			u.sendText(channelID, fmt.Sprintf("🍻 Toasted %s's %s - %s", formatUserHandle(c.User), formatBeerName(c.Beer, c.Brewery.Name, false), checkinURL(c)))
		}(c)
	}

	wg.Wait()
}

func (u *Untappd) showRegistration(channelID string, _ string) {
	user, err := u.api.OwnInfo(context.Background())
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	u.sendText(channelID, fmt.Sprintf("1) Add %s as a friend - %s\n2) Type `%s untappd approve`", user.UserName, user.URL, u.botName))
}

func (u *Untappd) showFriends(channelID string, _ string) {
	friends, err := u.api.Friends(context.Background())
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	if len(friends) == 0 {
		u.sendText(channelID, "Your robot has no friends.")
		return
	}

	names := make([]string, 0, len(friends))
	for _, f := range friends {
		names = append(names, fmt.Sprintf("%s (%s)", f.FullName(), f.UserName))
	}

	u.sendText(channelID, strings.Join(names, ", "))
}

func (u *Untappd) approveFriends(channelID string, _ string) {
	ctx := context.Background()
	pending, err := u.api.PendingFriends(ctx)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	if len(pending) == 0 {
		u.sendText(channelID, "No friends to approve.")
		return
	}

	var wg sync.WaitGroup
	for _, p := range pending {
		wg.Add(1)

		go func(uid int64) {
			defer wg.Done()

			friend, err := u.api.AcceptFriend(ctx, uid)
			if err != nil {
				u.reportError(channelID, err)
				return
			}

			u.sendText(channelID, fmt.Sprintf("Approved: %s (%s)", friend.FullName(), friend.UserName))
		}(p.UID)
	}

	wg.Wait()
}

func (u *Untappd) removeFriend(channelID string, username string) {
	if username == "" {
		u.sendText(channelID, "Must provide a username to remove.")
		return
	}

	ctx := context.Background()
	user, err := u.api.UserInfo(ctx, username)
	if err != nil {
		u.reportError(channelID, err)
		return
	}

	u.sendText(channelID, fmt.Sprintf("Removing %s ...", username))

	if _, err = u.api.RemoveFriend(ctx, user.UID); err != nil {
		u.reportError(channelID, err)
		return
	}

	u.sendText(channelID, fmt.Sprintf("Removed: %s (%s)", user.FullName(), user.UserName))
}
