package untappd

import (
	"context"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/api/key"
	"go.opentelemetry.io/otel/api/metric"
)

var apiMethods = []string{"FriendActivity", "UserActivity", "UserInfo", "OwnInfo", "SearchBeer", "BeerInfo",
	"SearchBrewery", "BreweryInfo", "PendingFriends", "AcceptFriend", "RemoveFriend", "Friends", "Toast"}

// APIWithTelemetry implements API with all methods wrapped with open telemetry metrics
type APIWithTelemetry struct {
	base               API
	methodCounters     map[string]metric.BoundInt64Counter
	errCounters        map[string]metric.BoundInt64Counter
	methodTimeMeasures map[string]metric.BoundInt64Measure
}

// NewAPIWithTelemetry returns an instance of the API decorated with open telemetry timing and count metrics
func NewAPIWithTelemetry(base API, name string, meter metric.Meter) APIWithTelemetry {
	return APIWithTelemetry{
		base:               base,
		methodCounters:     newAPIMethodCounters("Calls", name, meter),
		errCounters:        newAPIMethodCounters("Errors", name, meter),
		methodTimeMeasures: newAPIMethodTimeMeasures(name, meter),
	}
}

func metricName(method string, suffix string) string {
	n := []rune("untappd_" + method + "_" + suffix)
	n[0] = unicode.ToLower(n[0])
	return string(n)
}

func newAPIMethodTimeMeasures(appName string, meter metric.Meter) (boundTimeMeasures map[string]metric.BoundInt64Measure) {
	boundTimeMeasures = make(map[string]metric.BoundInt64Measure)
	labels := meter.Labels(key.New("name").String(appName))

	for _, method := range apiMethods {
		m := meter.NewInt64Measure(metricName(method, "ProcessingTimeMillis"), metric.WithKeys(key.New("name")))
		boundTimeMeasures[method] = m.Bind(labels)
	}

	return boundTimeMeasures
}

func newAPIMethodCounters(suffix string, appName string, meter metric.Meter) (boundCounters map[string]metric.BoundInt64Counter) {
	boundCounters = make(map[string]metric.BoundInt64Counter)
	labels := meter.Labels(key.New("name").String(appName))

	for _, method := range apiMethods {
		c := meter.NewInt64Counter(metricName(method, suffix), metric.WithKeys(key.New("name")))
		boundCounters[method] = c.Bind(labels)
	}

	return boundCounters
}

// record returns the func to defer in order to record a call of method
func (d APIWithTelemetry) record(ctx context.Context, method string, errp *error) func() {
	since := time.Now()
	return func() {
		if *errp != nil {
			d.errCounters[method].Add(ctx, 1)
		}

		d.methodCounters[method].Add(ctx, 1)
		d.methodTimeMeasures[method].Record(ctx, time.Since(since).Milliseconds())
	}
}

// FriendActivity implements API
func (d APIWithTelemetry) FriendActivity(ctx context.Context, limit int) (checkins []Checkin, err error) {
	defer d.record(ctx, "FriendActivity", &err)()
	return d.base.FriendActivity(ctx, limit)
}

// UserActivity implements API
func (d APIWithTelemetry) UserActivity(ctx context.Context, username string, limit int) (checkins []Checkin, err error) {
	defer d.record(ctx, "UserActivity", &err)()
	return d.base.UserActivity(ctx, username, limit)
}

// UserInfo implements API
func (d APIWithTelemetry) UserInfo(ctx context.Context, username string) (user *User, err error) {
	defer d.record(ctx, "UserInfo", &err)()
	return d.base.UserInfo(ctx, username)
}

// OwnInfo implements API
func (d APIWithTelemetry) OwnInfo(ctx context.Context) (user *User, err error) {
	defer d.record(ctx, "OwnInfo", &err)()
	return d.base.OwnInfo(ctx)
}

// SearchBeer implements API
func (d APIWithTelemetry) SearchBeer(ctx context.Context, query string, limit int) (beers []Beer, err error) {
	defer d.record(ctx, "SearchBeer", &err)()
	return d.base.SearchBeer(ctx, query, limit)
}

// BeerInfo implements API
func (d APIWithTelemetry) BeerInfo(ctx context.Context, id int64) (beer *Beer, err error) {
	defer d.record(ctx, "BeerInfo", &err)()
	return d.base.BeerInfo(ctx, id)
}

// SearchBrewery implements API
func (d APIWithTelemetry) SearchBrewery(ctx context.Context, query string, limit int) (breweries []Brewery, err error) {
	defer d.record(ctx, "SearchBrewery", &err)()
	return d.base.SearchBrewery(ctx, query, limit)
}

// BreweryInfo implements API
func (d APIWithTelemetry) BreweryInfo(ctx context.Context, id int64) (brewery *Brewery, err error) {
	defer d.record(ctx, "BreweryInfo", &err)()
	return d.base.BreweryInfo(ctx, id)
}

// PendingFriends implements API
func (d APIWithTelemetry) PendingFriends(ctx context.Context) (users []User, err error) {
	defer d.record(ctx, "PendingFriends", &err)()
	return d.base.PendingFriends(ctx)
}

// AcceptFriend implements API
func (d APIWithTelemetry) AcceptFriend(ctx context.Context, targetID int64) (user *User, err error) {
	defer d.record(ctx, "AcceptFriend", &err)()
	return d.base.AcceptFriend(ctx, targetID)
}

// RemoveFriend implements API
func (d APIWithTelemetry) RemoveFriend(ctx context.Context, targetID int64) (user *User, err error) {
	defer d.record(ctx, "RemoveFriend", &err)()
	return d.base.RemoveFriend(ctx, targetID)
}

// Friends implements API
func (d APIWithTelemetry) Friends(ctx context.Context) (users []User, err error) {
	defer d.record(ctx, "Friends", &err)()
	return d.base.Friends(ctx)
}

// Toast implements API
func (d APIWithTelemetry) Toast(ctx context.Context, checkinID int64) (result *ToastResult, err error) {
	defer d.record(ctx, "Toast", &err)()
	return d.base.Toast(ctx, checkinID)
}
