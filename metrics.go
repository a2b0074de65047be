package beerscot

import (
	"go.opentelemetry.io/otel/api/key"
	"go.opentelemetry.io/otel/api/metric"
	"sync"
	"time"
)

// instrumenter holds data for core instrumentation
type instrumenter struct {
	appName string
	meter   metric.Meter

	coreMetrics coreMetrics

	pluginMetricsLock sync.Mutex
	pluginMetrics     map[string]pluginMetrics
}

// coreMetrics holds core beerscot metrics
type coreMetrics struct {
	msgsSeen                   metric.BoundInt64Counter
	msgsProcessed              metric.BoundInt64Counter
	msgProcessingLatencyMillis metric.BoundInt64Measure
	msgDispatchLatencyMillis   metric.BoundInt64Measure
	slackLatencyMillis         metric.BoundInt64Gauge
}

// pluginMetrics holds metrics specific to a plugin
type pluginMetrics struct {
	processingTimeMillis metric.BoundInt64Measure
	answerCount          metric.BoundInt64Counter
}

// newInstrumenter creates a new core instrumenter
func newInstrumenter(appName string, meter metric.Meter) (ins *instrumenter) {
	ins = new(instrumenter)

	defaultLabels := meter.Labels(key.New("name").String(appName))

	msgSeen := meter.NewInt64Counter("msgSeen", metric.WithKeys(key.New("name")))
	msgProcessed := meter.NewInt64Counter("msgProcessed", metric.WithKeys(key.New("name")))
	processingLatency := meter.NewInt64Measure("msgProcessingLatencyMillis", metric.WithKeys(key.New("name")))
	dispatchLatency := meter.NewInt64Measure("msgDispatchLatencyMillis", metric.WithKeys(key.New("name")))
	slackLatency := meter.NewInt64Gauge("slackLatencyMillis", metric.WithKeys(key.New("name")))

	ins.coreMetrics = coreMetrics{msgsSeen: msgSeen.Bind(defaultLabels),
		msgsProcessed:              msgProcessed.Bind(defaultLabels),
		msgProcessingLatencyMillis: processingLatency.Bind(defaultLabels),
		msgDispatchLatencyMillis:   dispatchLatency.Bind(defaultLabels),
		slackLatencyMillis:         slackLatency.Bind(defaultLabels)}

	ins.appName = appName
	ins.meter = meter
	ins.pluginMetrics = make(map[string]pluginMetrics)

	return ins
}

// getOrCreatePluginMetrics returns an existing pluginMetrics for a plugin or creates a new one, if necessary.
// Partition workers call this concurrently
func (ins *instrumenter) getOrCreatePluginMetrics(pluginName string) (pm pluginMetrics) {
	ins.pluginMetricsLock.Lock()
	defer ins.pluginMetricsLock.Unlock()

	pm, ok := ins.pluginMetrics[pluginName]
	if !ok {
		pm = newPluginMetrics(ins.appName, pluginName, ins.meter)
		ins.pluginMetrics[pluginName] = pm
	}

	return pm
}

// newPluginMetrics returns a new pluginMetrics instance for a plugin
func newPluginMetrics(appName string, pluginName string, meter metric.Meter) (pm pluginMetrics) {
	c := meter.NewInt64Counter("answerCount", metric.WithKeys(key.New("name"), key.New("plugin")))
	m := meter.NewInt64Measure("processingTimeMillis", metric.WithKeys(key.New("name"), key.New("plugin")))

	labels := meter.Labels(key.New("name").String(appName), key.New("plugin").String(pluginName))
	pm.answerCount = c.Bind(labels)
	pm.processingTimeMillis = m.Bind(labels)

	return pm
}

type timed func()

// measure returns the execution duration of a timed function
func measure(operation timed) (d time.Duration) {
	before := time.Now()

	operation()

	return time.Since(before)
}
