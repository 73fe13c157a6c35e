// Package metrics содержит Prometheus-коллекторы движка
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess помечает успешно обработанные сообщения
	OutcomeSuccess = "success"
	// OutcomeError помечает отказы обработки
	OutcomeError = "error"
)

var (
	submitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hazard_fusion",
			Name:      "submits_total",
			Help:      "Total number of report submissions handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	submitDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hazard_fusion",
			Name:      "submit_seconds",
			Help:      "Report processing latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	activeAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hazard_fusion",
			Name:      "active_alerts",
			Help:      "Number of alerts currently in active or verified status.",
		},
	)

	incidentMergesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hazard_fusion",
			Name:      "incident_merges_total",
			Help:      "Incident creation races resolved by deterministic merge.",
		},
	)
)

// Register подключает коллекторы движка к переданному Prometheus registerer
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		submitsTotal,
		submitDurationSeconds,
		activeAlerts,
		incidentMergesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSubmit фиксирует длительность и исход обработки сообщения
func ObserveSubmit(duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	submitsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	submitDurationSeconds.Observe(duration.Seconds())
}

// SetActiveAlerts обновляет датчик действующих оповещений
func SetActiveAlerts(count int) {
	activeAlerts.Set(float64(count))
}

// IncIncidentMerge фиксирует разрешенную гонку создания инцидентов
func IncIncidentMerge() {
	incidentMergesTotal.Inc()
}
