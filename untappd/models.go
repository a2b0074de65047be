package untappd

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// timeLayout is the layout of all timestamps returned by the api (i.e. "Fri, 30 Mar 2018 17:47:53 +0000")
const timeLayout = time.RFC1123Z

// Time is a time.Time decoded from the api's timestamp format. Empty or null values decode to
// the zero time
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Time) UnmarshalJSON(data []byte) (err error) {
	var s string
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if err = json.Unmarshal(data, &s); err != nil {
		return errors.Wrapf(err, "invalid timestamp [%s]", string(data))
	}

	if s == "" {
		return nil
	}

	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		return errors.Wrapf(err, "invalid timestamp [%s]", s)
	}

	t.Time = parsed
	return nil
}

// Checkin is a user's record of drinking a beer
type Checkin struct {
	ID        int64   `json:"checkin_id"`
	CreatedAt Time    `json:"created_at"`
	User      User    `json:"user"`
	Beer      Beer    `json:"beer"`
	Brewery   Brewery `json:"brewery"`
	// Venue is nil when the checkin wasn't made at a venue
	Venue  *Venue `json:"-"`
	Badges Badges `json:"badges"`
	Toasts Toasts `json:"toasts"`
}

// UnmarshalJSON implements json.Unmarshaler. The api sends an empty array instead of an object
// when a checkin has no venue
func (c *Checkin) UnmarshalJSON(data []byte) (err error) {
	type checkin Checkin
	aux := struct {
		*checkin
		Venue json.RawMessage `json:"venue"`
	}{checkin: (*checkin)(c)}

	if err = json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Venue = nil
	raw := bytes.TrimSpace(aux.Venue)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}

	var v Venue
	if err = json.Unmarshal(raw, &v); err != nil {
		return errors.Wrapf(err, "invalid venue for checkin [%d]", c.ID)
	}

	if v.Name != "" {
		c.Venue = &v
	}

	return nil
}

// Badges holds the badges earned with a checkin
type Badges struct {
	Count int     `json:"count"`
	Items []Badge `json:"items"`
}

// Badge is an achievement earned by a user
type Badge struct {
	Name  string `json:"badge_name"`
	Image Image  `json:"badge_image"`
}

// Image holds the urls of an image in its different sizes
type Image struct {
	Small  string `json:"sm"`
	Medium string `json:"md"`
	Large  string `json:"lg"`
}

// Toasts holds the toast summary of a checkin
type Toasts struct {
	Count int `json:"count"`
	// AuthToast is true when the authenticated account already toasted the checkin
	AuthToast bool `json:"auth_toast"`
}

// Venue is where a checkin happened
type Venue struct {
	Name string `json:"venue_name"`
	Icon Image  `json:"venue_icon"`
}

// User is an untappd user
type User struct {
	UID        int64     `json:"uid"`
	UserName   string    `json:"user_name"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Avatar     string    `json:"user_avatar"`
	URL        string    `json:"untappd_url"`
	DateJoined Time      `json:"date_joined"`
	Stats      UserStats `json:"stats"`
}

// FullName returns the first and last name of a user, omitting whichever is empty
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserStats holds a user's drinking totals
type UserStats struct {
	TotalBeers    int `json:"total_beers"`
	TotalCheckins int `json:"total_checkins"`
	TotalBadges   int `json:"total_badges"`
}

// Beer is a beer as returned by search, info and checkin endpoints
type Beer struct {
	ID          int64   `json:"bid"`
	Name        string  `json:"beer_name"`
	Style       string  `json:"beer_style"`
	ABV         float64 `json:"beer_abv"`
	IBU         int     `json:"beer_ibu"`
	Description string  `json:"beer_description"`
	Label       string  `json:"beer_label"`
	// InProduction is nil when unknown, 0 when the beer is out of production
	InProduction *int     `json:"is_in_production"`
	RatingScore  *float64 `json:"rating_score"`
	RatingCount  *int     `json:"rating_count"`
	// Brewery is only set by endpoints that embed it with the beer
	Brewery *Brewery `json:"brewery"`
}

// UnmarshalJSON implements json.Unmarshaler. Search results name the production flag
// in_production while info endpoints name it is_in_production
func (b *Beer) UnmarshalJSON(data []byte) (err error) {
	type beer Beer
	aux := struct {
		*beer
		SearchInProduction *int `json:"in_production"`
	}{beer: (*beer)(b)}

	if err = json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if b.InProduction == nil {
		b.InProduction = aux.SearchInProduction
	}

	return nil
}

// Rating returns the beer's rating or nil when the api didn't include one
func (b Beer) Rating() *Rating {
	if b.RatingScore == nil {
		return nil
	}

	r := Rating{Score: *b.RatingScore}
	if b.RatingCount != nil {
		r.Count = *b.RatingCount
	}

	return &r
}

// IsOutOfProduction returns true when the beer is known to be out of production
func (b Beer) IsOutOfProduction() bool {
	return b.InProduction != nil && *b.InProduction == 0
}

// Rating is the aggregated rating of a beer or brewery
type Rating struct {
	Count int     `json:"count"`
	Score float64 `json:"rating_score"`
}

// Brewery is a beer maker
type Brewery struct {
	ID          int64    `json:"brewery_id"`
	Name        string   `json:"brewery_name"`
	Type        string   `json:"brewery_type"`
	Label       string   `json:"brewery_label"`
	BeerCount   int      `json:"beer_count"`
	Description string   `json:"brewery_description"`
	Location    Location `json:"location"`
	Contact     Contact  `json:"contact"`
	Rating      *Rating  `json:"rating"`
}

// Location is a brewery's location
type Location struct {
	City  string `json:"brewery_city"`
	State string `json:"brewery_state"`
}

// Contact holds a brewery's contact details
type Contact struct {
	URL string `json:"url"`
}

// ToastResult is the outcome of a toast call. LikeType is "toast" or "un-toast" since toasting
// an already toasted checkin reverts the toast
type ToastResult struct {
	Result   string `json:"result"`
	LikeType string `json:"like_type"`
}
