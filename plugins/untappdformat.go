package plugins

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/beerscot/beerscot"
	"github.com/beerscot/beerscot/untappd"
	"github.com/dustin/go-humanize"
	"github.com/nlopes/slack"
)

const (
	untappdWebURL = "https://untappd.com"
	feedColor     = "#7CD197"
	joinedLayout  = "Jan 02, 2006"
	footerSep     = " • "
	month         = humanize.Day / 4800 * 146097
	year          = humanize.Day / 400 * 146097
)

// relTimeMagnitude renders durations shorter than D. Counts are rounded to the nearest DivBy
type relTimeMagnitude struct {
	D      time.Duration
	Format string
	DivBy  time.Duration
}

// relTimeMagnitudes renders relative times the way people say them ("an hour ago", "12 days ago").
// A unit is used once the count rounds to more than 1 of it
var relTimeMagnitudes = []relTimeMagnitude{
	{D: 44*time.Second + 500*time.Millisecond, Format: "a few seconds", DivBy: time.Second},
	{D: 90 * time.Second, Format: "a minute", DivBy: time.Minute},
	{D: 44*time.Minute + 30*time.Second, Format: "%d minutes", DivBy: time.Minute},
	{D: 90 * time.Minute, Format: "an hour", DivBy: time.Hour},
	{D: 21*time.Hour + 30*time.Minute, Format: "%d hours", DivBy: time.Hour},
	{D: 36 * time.Hour, Format: "a day", DivBy: humanize.Day},
	{D: 25*humanize.Day + 12*time.Hour, Format: "%d days", DivBy: humanize.Day},
	{D: month / 2 * 3, Format: "a month", DivBy: month},
	{D: month / 2 * 21, Format: "%d months", DivBy: month},
	{D: year / 2 * 3, Format: "a year", DivBy: year},
	{D: math.MaxInt64, Format: "%d years", DivBy: year},
}

// Formatter renders untappd entities as answers. The plain formatter renders text answers
// (one per entity) while the rich formatter renders a single answer of slack attachments
type Formatter interface {
	FriendFeed(checkins []untappd.Checkin) []*beerscot.Answer
	BadgeFeed(checkins []untappd.Checkin) []*beerscot.Answer
	UserActivity(user *untappd.User, checkins []untappd.Checkin) []*beerscot.Answer
	Beers(beers []untappd.Beer) []*beerscot.Answer
	Breweries(breweries []untappd.Brewery) []*beerscot.Answer
}

// NewFormatter returns the rich (attachments) formatter when rich is true and the plain text one otherwise
func NewFormatter(rich bool, maxDescriptionLength int, now func() time.Time) Formatter {
	tf := textFormatter{maxDescriptionLength: maxDescriptionLength, now: now}
	if rich {
		return richFormatter{textFormatter: tf}
	}

	return plainFormatter{textFormatter: tf}
}

// textFormatter holds the plain text renditions of entities. Rich attachments use them as fallbacks
type textFormatter struct {
	maxDescriptionLength int
	now                  func() time.Time
}

type plainFormatter struct {
	textFormatter
}

type richFormatter struct {
	textFormatter
}

// formatBeerName renders a beer's name followed by its style and, unless titleOnly is set, its abv and brewery
func formatBeerName(beer untappd.Beer, breweryName string, titleOnly bool) string {
	var b strings.Builder
	b.WriteString(beer.Name)

	if beer.IsOutOfProduction() {
		b.WriteString(" [Out of Production]")
	}

	if titleOnly {
		fmt.Fprintf(&b, " (%s)", beer.Style)
		return b.String()
	}

	fmt.Fprintf(&b, " (%s", beer.Style)
	if beer.ABV != 0 {
		fmt.Fprintf(&b, " - %s%%", humanize.Ftoa(beer.ABV))
	}
	b.WriteString(")")

	if breweryName != "" {
		fmt.Fprintf(&b, " by %s", breweryName)
	}

	return b.String()
}

var lineBreakRemover = strings.NewReplacer("\r\n", "", "\n", "", "\r", "")

// formatBeerDescription removes line breaks, collapses whitespace and shortens a description to maxLength
// characters. An empty string is returned when maxLength is 0
func formatBeerDescription(description string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	normalized := strings.Join(strings.Fields(lineBreakRemover.Replace(description)), " ")
	runes := []rune(normalized)
	if len(runes) <= maxLength {
		return normalized
	}

	return strings.TrimSpace(string(runes[:maxLength-1])) + " ..."
}

func beerBreweryName(beer untappd.Beer) string {
	if beer.Brewery != nil {
		return beer.Brewery.Name
	}

	return ""
}

func formatUserHandle(user untappd.User) string {
	return fmt.Sprintf("%s (%s)", user.FirstName, user.UserName)
}

func formatLocation(l untappd.Location) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{l.City, l.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, ", ")
}

func formatRating(r *untappd.Rating) string {
	return fmt.Sprintf("%.2f (%s ratings)", r.Score, humanize.Comma(int64(r.Count)))
}

func checkinURL(c untappd.Checkin) string {
	return fmt.Sprintf("%s/user/%s/checkin/%d", untappdWebURL, c.User.UserName, c.ID)
}

func userURL(u untappd.User) string {
	return fmt.Sprintf("%s/user/%s", untappdWebURL, u.UserName)
}

func beerURL(b untappd.Beer) string {
	return fmt.Sprintf("%s/beer/%d", untappdWebURL, b.ID)
}

func breweryURL(b untappd.Brewery) string {
	return fmt.Sprintf("%s/brewery/%d", untappdWebURL, b.ID)
}

// formatBadges summarizes the badges earned with a checkin and returns the icon of the first one
func formatBadges(badges untappd.Badges) (summary string, icon string) {
	if len(badges.Items) == 0 {
		return "", ""
	}

	count := badges.Count
	if count < len(badges.Items) {
		count = len(badges.Items)
	}

	first := badges.Items[0]
	if count == 1 {
		return fmt.Sprintf("Earned the %s badge", first.Name), first.Image.Small
	}

	return fmt.Sprintf("Earned the %s badge and %d more", first.Name, count-1), first.Image.Small
}

func venueSuffix(c untappd.Checkin) string {
	if c.Venue == nil {
		return ""
	}

	return " at " + c.Venue.Name
}

func (tf textFormatter) relativeTime(t untappd.Time) string {
	diff := tf.now().Sub(t.Time)
	future := diff < 0
	if future {
		diff = -diff
	}

	mag := relTimeMagnitudes[len(relTimeMagnitudes)-1]
	for _, m := range relTimeMagnitudes {
		if diff < m.D {
			mag = m
			break
		}
	}

	rendered := mag.Format
	if strings.Contains(mag.Format, "%d") {
		rendered = fmt.Sprintf(mag.Format, int64((diff+mag.DivBy/2)/mag.DivBy))
	}

	if future {
		return "in " + rendered
	}

	return rendered + " ago"
}

func (tf textFormatter) friendCheckinText(c untappd.Checkin) string {
	return fmt.Sprintf("%s was drinking %s%s - %s", formatUserHandle(c.User), formatBeerName(c.Beer, c.Brewery.Name, false), venueSuffix(c), tf.relativeTime(c.CreatedAt))
}

func (tf textFormatter) badgeText(c untappd.Checkin, badge untappd.Badge) string {
	return fmt.Sprintf("%s earned the %s Badge after drinking a %s%s - %s - %s", formatUserHandle(c.User), badge.Name, c.Beer.Name, venueSuffix(c), tf.relativeTime(c.CreatedAt), checkinURL(c))
}

func (tf textFormatter) checkinLine(c untappd.Checkin) string {
	return fmt.Sprintf("- %s%s - %s", formatBeerName(c.Beer, c.Brewery.Name, false), venueSuffix(c), tf.relativeTime(c.CreatedAt))
}

func userSummary(u untappd.User) string {
	return fmt.Sprintf("%s: %d beers, %d checkins, %d badges", formatUserHandle(u), u.Stats.TotalBeers, u.Stats.TotalCheckins, u.Stats.TotalBadges)
}

func (tf textFormatter) beerText(b untappd.Beer) string {
	text := formatBeerName(b, beerBreweryName(b), false)
	if desc := formatBeerDescription(b.Description, tf.maxDescriptionLength); desc != "" {
		text = text + " - " + desc
	}

	return text
}

func breweryText(b untappd.Brewery) string {
	name := b.Name
	if b.Location.City != "" {
		name = fmt.Sprintf("%s (%s)", b.Name, formatLocation(b.Location))
	}

	return fmt.Sprintf("%s - %d beers - %s", name, b.BeerCount, breweryURL(b))
}

func textAnswers(texts []string) (answers []*beerscot.Answer) {
	answers = make([]*beerscot.Answer, 0, len(texts))
	for _, t := range texts {
		answers = append(answers, &beerscot.Answer{Text: t})
	}

	return answers
}

// FriendFeed implements Formatter
func (pf plainFormatter) FriendFeed(checkins []untappd.Checkin) []*beerscot.Answer {
	texts := make([]string, 0, len(checkins))
	for _, c := range checkins {
		texts = append(texts, pf.friendCheckinText(c))
	}

	return textAnswers(texts)
}

// BadgeFeed implements Formatter
func (pf plainFormatter) BadgeFeed(checkins []untappd.Checkin) []*beerscot.Answer {
	texts := make([]string, 0)
	for _, c := range checkins {
		for _, badge := range c.Badges.Items {
			texts = append(texts, pf.badgeText(c, badge))
		}
	}

	return textAnswers(texts)
}

// UserActivity implements Formatter
func (pf plainFormatter) UserActivity(user *untappd.User, checkins []untappd.Checkin) []*beerscot.Answer {
	lines := []string{userSummary(*user)}
	for _, c := range checkins {
		lines = append(lines, pf.checkinLine(c))
	}

	return textAnswers([]string{strings.Join(lines, "\n")})
}

// Beers implements Formatter
func (pf plainFormatter) Beers(beers []untappd.Beer) []*beerscot.Answer {
	texts := make([]string, 0, len(beers))
	for _, b := range beers {
		texts = append(texts, fmt.Sprintf("%s - %s", pf.beerText(b), beerURL(b)))
	}

	return textAnswers(texts)
}

// Breweries implements Formatter
func (pf plainFormatter) Breweries(breweries []untappd.Brewery) []*beerscot.Answer {
	texts := make([]string, 0, len(breweries))
	for _, b := range breweries {
		texts = append(texts, breweryText(b))
	}

	return textAnswers(texts)
}

func attachmentsAnswer(attachments []slack.Attachment) []*beerscot.Answer {
	if len(attachments) == 0 {
		return []*beerscot.Answer{}
	}

	return []*beerscot.Answer{{Attachments: attachments, Options: []beerscot.AnswerOption{beerscot.AnswerWithoutLinkUnfurl()}}}
}

func timestamp(t untappd.Time) json.Number {
	return json.Number(strconv.FormatInt(t.Unix(), 10))
}

func shortField(title string, value string) slack.AttachmentField {
	return slack.AttachmentField{Title: title, Value: value, Short: true}
}

// FriendFeed implements Formatter
func (rf richFormatter) FriendFeed(checkins []untappd.Checkin) []*beerscot.Answer {
	attachments := make([]slack.Attachment, 0, len(checkins))
	for _, c := range checkins {
		badges, badgeIcon := formatBadges(c.Badges)

		footer := make([]string, 0, 2)
		footerIcon := badgeIcon
		if c.Venue != nil {
			footer = append(footer, c.Venue.Name)
			if footerIcon == "" {
				footerIcon = c.Venue.Icon.Small
			}
		}

		if badges != "" {
			footer = append(footer, badges)
		}

		attachments = append(attachments, slack.Attachment{
			Color:      feedColor,
			Fallback:   rf.friendCheckinText(c),
			Title:      fmt.Sprintf("%s was drinking %s by %s", formatUserHandle(c.User), c.Beer.Name, c.Brewery.Name),
			TitleLink:  checkinURL(c),
			ThumbURL:   c.Beer.Label,
			Footer:     strings.Join(footer, footerSep),
			FooterIcon: footerIcon,
			Ts:         timestamp(c.CreatedAt),
		})
	}

	return attachmentsAnswer(attachments)
}

// BadgeFeed implements Formatter
func (rf richFormatter) BadgeFeed(checkins []untappd.Checkin) []*beerscot.Answer {
	attachments := make([]slack.Attachment, 0)
	for _, c := range checkins {
		for _, badge := range c.Badges.Items {
			attachments = append(attachments, slack.Attachment{
				Color:      feedColor,
				Fallback:   rf.badgeText(c, badge),
				AuthorName: rf.relativeTime(c.CreatedAt) + venueSuffix(c),
				Title:      fmt.Sprintf("%s earned the %s Badge", formatUserHandle(c.User), badge.Name),
				TitleLink:  checkinURL(c),
				ThumbURL:   badge.Image.Small,
				Footer:     c.Beer.Name,
				FooterIcon: c.Beer.Label,
			})
		}
	}

	return attachmentsAnswer(attachments)
}

// UserActivity implements Formatter
func (rf richFormatter) UserActivity(user *untappd.User, checkins []untappd.Checkin) []*beerscot.Answer {
	fields := make([]slack.AttachmentField, 0, 4)
	if !user.DateJoined.IsZero() {
		fields = append(fields, shortField("Joined", user.DateJoined.Format(joinedLayout)))
	}

	fields = append(fields,
		shortField("Beers", strconv.Itoa(user.Stats.TotalBeers)),
		shortField("Checkins", strconv.Itoa(user.Stats.TotalCheckins)),
		shortField("Badges", strconv.Itoa(user.Stats.TotalBadges)))

	attachments := []slack.Attachment{{
		Fallback:  userSummary(*user),
		Title:     formatUserHandle(*user),
		TitleLink: userURL(*user),
		ThumbURL:  user.Avatar,
		Fields:    fields,
	}}

	for _, c := range checkins {
		beer := formatBeerName(c.Beer, c.Brewery.Name, false)

		a := slack.Attachment{
			Fallback:  beer,
			Title:     beer,
			TitleLink: checkinURL(c),
			ThumbURL:  c.Beer.Label,
			Ts:        timestamp(c.CreatedAt),
		}

		if c.Venue != nil {
			a.Footer = "at " + c.Venue.Name
			a.FooterIcon = c.Venue.Icon.Small
		}

		attachments = append(attachments, a)
	}

	return attachmentsAnswer(attachments)
}

// Beers implements Formatter
func (rf richFormatter) Beers(beers []untappd.Beer) []*beerscot.Answer {
	attachments := make([]slack.Attachment, 0, len(beers))
	for _, b := range beers {
		a := slack.Attachment{
			Fallback:   rf.beerText(b),
			Title:      formatBeerName(b, "", true),
			TitleLink:  beerURL(b),
			Text:       formatBeerDescription(b.Description, rf.maxDescriptionLength),
			ThumbURL:   b.Label,
			MarkdownIn: []string{"text"},
		}

		if b.Brewery != nil {
			a.AuthorName = b.Brewery.Name
			if b.Brewery.Location.City != "" {
				a.AuthorName = fmt.Sprintf("%s (%s)", b.Brewery.Name, formatLocation(b.Brewery.Location))
			}
			a.AuthorLink = b.Brewery.Contact.URL
			a.AuthorIcon = b.Brewery.Label
		}

		if r := b.Rating(); r != nil && r.Score > 0 {
			a.Fields = append(a.Fields, shortField("Rating", formatRating(r)))
		}

		if b.ABV > 0 {
			a.Fields = append(a.Fields, shortField("ABV", humanize.Ftoa(b.ABV)+"%"))
		}

		if b.IBU > 0 {
			a.Fields = append(a.Fields, shortField("IBU", strconv.Itoa(b.IBU)))
		}

		attachments = append(attachments, a)
	}

	return attachmentsAnswer(attachments)
}

// Breweries implements Formatter
func (rf richFormatter) Breweries(breweries []untappd.Brewery) []*beerscot.Answer {
	attachments := make([]slack.Attachment, 0, len(breweries))
	for _, b := range breweries {
		a := slack.Attachment{
			Fallback:  breweryText(b),
			Title:     b.Name,
			TitleLink: breweryURL(b),
			Text:      b.Description,
			ThumbURL:  b.Label,
		}

		if b.Location.City != "" {
			a.Fields = append(a.Fields, shortField("Location", formatLocation(b.Location)))
		}

		if b.Type != "" {
			a.Fields = append(a.Fields, shortField("Brewery Type", b.Type))
		}

		if b.BeerCount > 0 {
			a.Fields = append(a.Fields, shortField("Beers", humanize.Comma(int64(b.BeerCount))))
		}

		if b.Rating != nil && b.Rating.Score > 0 {
			a.Fields = append(a.Fields, shortField("Rating", formatRating(b.Rating)))
		}

		attachments = append(attachments, a)
	}

	return attachmentsAnswer(attachments)
}

// runningTheBoard returns the congratulation line for friends who account for a whole friend feed or an
// empty string when nobody ran the board. A board held at a single venue takes precedence over one held
// by a single user
func runningTheBoard(checkins []untappd.Checkin) string {
	if len(checkins) < 2 {
		return ""
	}

	venues := make(map[string]bool)
	users := make([]string, 0)
	seenUsers := make(map[string]bool)

	for _, c := range checkins {
		venue := ""
		if c.Venue != nil {
			venue = c.Venue.Name
		}
		venues[venue] = true

		if !seenUsers[c.User.UserName] {
			seenUsers[c.User.UserName] = true
			users = append(users, formatUserHandle(c.User))
		}
	}

	if len(venues) == 1 && checkins[0].Venue != nil {
		return fmt.Sprintf("🏆 Congratulations to %s for running the board at %s! 🍻", strings.Join(users, ", "), checkins[0].Venue.Name)
	}

	if len(users) == 1 {
		return fmt.Sprintf("🏆 Congratulations to %s for running the board! 🍻", users[0])
	}

	return ""
}
