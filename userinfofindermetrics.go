package beerscot

import (
	"context"
	"time"

	"github.com/nlopes/slack"
	"go.opentelemetry.io/otel/api/key"
	"go.opentelemetry.io/otel/api/metric"
)

// UserInfoFinderWithTelemetry implements UserInfoFinder with all methods wrapped
// with open telemetry metrics
type UserInfoFinderWithTelemetry struct {
	base                UserInfoFinder
	callCounter         metric.BoundInt64Counter
	errCounter          metric.BoundInt64Counter
	processingTimeMeter metric.BoundInt64Measure
}

// NewUserInfoFinderWithTelemetry returns an instance of the UserInfoFinder decorated with open telemetry timing and count metrics
func NewUserInfoFinderWithTelemetry(base UserInfoFinder, name string, meter metric.Meter) UserInfoFinderWithTelemetry {
	labels := meter.Labels(key.New("name").String(name))

	calls := meter.NewInt64Counter("userInfoFinder_GetUserInfo_Calls", metric.WithKeys(key.New("name")))
	errs := meter.NewInt64Counter("userInfoFinder_GetUserInfo_Errors", metric.WithKeys(key.New("name")))
	processingTime := meter.NewInt64Measure("userInfoFinder_GetUserInfo_ProcessingTimeMillis", metric.WithKeys(key.New("name")))

	return UserInfoFinderWithTelemetry{
		base:                base,
		callCounter:         calls.Bind(labels),
		errCounter:          errs.Bind(labels),
		processingTimeMeter: processingTime.Bind(labels),
	}
}

// GetUserInfo implements UserInfoFinder
func (d UserInfoFinderWithTelemetry) GetUserInfo(userID string) (user *slack.User, err error) {
	since := time.Now()
	defer func() {
		if err != nil {
			d.errCounter.Add(context.Background(), 1)
		}

		d.callCounter.Add(context.Background(), 1)
		d.processingTimeMeter.Record(context.Background(), time.Since(since).Milliseconds())
	}()

	return d.base.GetUserInfo(userID)
}
