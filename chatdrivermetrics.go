package beerscot

import (
	"context"
	"time"

	"github.com/nlopes/slack"
	"go.opentelemetry.io/otel/api/key"
	"go.opentelemetry.io/otel/api/metric"
)

// chatDriverWithTelemetry implements chatDriver with all methods wrapped
// with open telemetry metrics
type chatDriverWithTelemetry struct {
	base                chatDriver
	callCounter         metric.BoundInt64Counter
	errCounter          metric.BoundInt64Counter
	processingTimeMeter metric.BoundInt64Measure
}

// newChatDriverWithTelemetry returns an instance of the chatDriver decorated with open telemetry timing and count metrics
func newChatDriverWithTelemetry(base chatDriver, name string, meter metric.Meter) chatDriverWithTelemetry {
	labels := meter.Labels(key.New("name").String(name))

	calls := meter.NewInt64Counter("chatDriver_SendMessage_Calls", metric.WithKeys(key.New("name")))
	errs := meter.NewInt64Counter("chatDriver_SendMessage_Errors", metric.WithKeys(key.New("name")))
	processingTime := meter.NewInt64Measure("chatDriver_SendMessage_ProcessingTimeMillis", metric.WithKeys(key.New("name")))

	return chatDriverWithTelemetry{
		base:                base,
		callCounter:         calls.Bind(labels),
		errCounter:          errs.Bind(labels),
		processingTimeMeter: processingTime.Bind(labels),
	}
}

// SendMessage implements chatDriver
func (d chatDriverWithTelemetry) SendMessage(channelID string, options ...slack.MsgOption) (rChannelID string, rTimestamp string, rText string, err error) {
	since := time.Now()
	defer func() {
		if err != nil {
			d.errCounter.Add(context.Background(), 1)
		}

		d.callCounter.Add(context.Background(), 1)
		d.processingTimeMeter.Record(context.Background(), time.Since(since).Milliseconds())
	}()

	return d.base.SendMessage(channelID, options...)
}
