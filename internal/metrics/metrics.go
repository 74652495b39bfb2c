package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	IncomingMessages *prometheus.CounterVec
	OutgoingMessages *prometheus.CounterVec
	PushFailures     *prometheus.CounterVec
	RemindersSent    *prometheus.CounterVec
	EvidenceFanout   prometheus.Counter
	Errors           *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			IncomingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "incoming_messages_total",
				Help:      "Total incoming chat messages processed.",
			}, []string{"type"}),
			OutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outgoing_messages_total",
				Help:      "Total outgoing chat messages sent.",
			}, []string{"type"}),
			PushFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "push_failures_total",
				Help:      "Total failed outbound pushes by destination kind.",
			}, []string{"kind"}),
			RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_sent_total",
				Help:      "Total engagement reminders sent by kind.",
			}, []string{"kind"}),
			EvidenceFanout: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evidence_fanout_deliveries_total",
				Help:      "Total evidence photos delivered to registered clients.",
			}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.IncomingMessages,
			metricsInstance.OutgoingMessages,
			metricsInstance.PushFailures,
			metricsInstance.RemindersSent,
			metricsInstance.EvidenceFanout,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
