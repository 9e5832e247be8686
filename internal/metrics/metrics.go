// Package metrics provides Prometheus metrics for task generation and delivery.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// instancesCreatedTotal counts persisted task instances.
	// Labels:
	//   - owner: "user" or "group"
	//   - source: "horizon", "completion" or "bootstrap"
	instancesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_instances_created_total",
			Help: "Total number of task instances persisted by the generation engine",
		},
		[]string{"owner", "source"},
	)

	// generationDuration records how long one materialization call takes.
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_generation_duration_seconds",
			Help:    "Duration of template materialization calls in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"owner"},
	)

	// fanoutChunksTotal counts group write chunks.
	// Labels:
	//   - status: "committed" or "failed"
	fanoutChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_fanout_chunks_total",
			Help: "Total number of group fan-out chunks by commit status",
		},
		[]string{"status"},
	)

	// notificationsTotal counts push attempts.
	// Labels:
	//   - type: payload type
	//   - result: "sent", "invalid_recipient", "provider_auth" or "failed"
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_notifications_total",
			Help: "Total number of push notification attempts by result",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(instancesCreatedTotal)
	prometheus.MustRegister(generationDuration)
	prometheus.MustRegister(fanoutChunksTotal)
	prometheus.MustRegister(notificationsTotal)
}

func RecordInstancesCreated(owner, source string, n int) {
	if n <= 0 {
		return
	}
	instancesCreatedTotal.WithLabelValues(owner, source).Add(float64(n))
}

func RecordGenerationDuration(owner string, seconds float64) {
	generationDuration.WithLabelValues(owner).Observe(seconds)
}

func RecordFanoutChunk(status string) {
	fanoutChunksTotal.WithLabelValues(status).Inc()
}

func RecordNotification(kind, result string) {
	notificationsTotal.WithLabelValues(kind, result).Inc()
}
