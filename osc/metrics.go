package osc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "osc"

// Metrics holds the Prometheus collectors for decoding and forwarding. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	packetsReceived *prometheus.CounterVec // By kind (message/bundle)
	parseErrors     *prometheus.CounterVec // By suppressed (true/false)
	eventsForwarded *prometheus.CounterVec // By stream (packet/message/bundle)
	forwardDelay    prometheus.Histogram   // Scheduled nested bundle delays
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_received_total",
			Help:      "Total number of packets decoded by streams",
		}, []string{"kind"}),

		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "parse_errors_total",
			Help:      "Total number of packets that failed to decode",
		}, []string{"suppressed"}),

		eventsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_forwarded_total",
			Help:      "Total number of events emitted on stream feeds",
		}, []string{"stream"}),

		forwardDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "forward_delay_seconds",
			Help:      "Delay scheduled for time-tagged nested bundles",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.packetsReceived, m.parseErrors, m.eventsForwarded, m.forwardDelay} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) packetReceived(p Packet) {
	if m == nil {
		return
	}
	kind := "message"
	if p.IsBundle() {
		kind = "bundle"
	}
	m.packetsReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) parseError(suppressed bool) {
	if m == nil {
		return
	}
	label := "false"
	if suppressed {
		label = "true"
	}
	m.parseErrors.WithLabelValues(label).Inc()
}

func (m *Metrics) eventForwarded(stream string) {
	if m == nil {
		return
	}
	m.eventsForwarded.WithLabelValues(stream).Inc()
}

func (m *Metrics) delayScheduled(d time.Duration) {
	if m == nil {
		return
	}
	m.forwardDelay.Observe(d.Seconds())
}
