package player

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus collectors for a Player, for processes that
// expose a /metrics endpoint alongside the media session. Player.Run
// increments PacketsTotal for each packet read; nothing in this
// repository updates DiscontinuitiesTotal, SectionsDroppedTotal or
// SelectedService.
type Metrics struct {
	PacketsTotal         prometheus.Counter
	DiscontinuitiesTotal prometheus.Counter
	SectionsDroppedTotal prometheus.Counter
	SelectedService      prometheus.Gauge
}

// NewMetrics constructs a Metrics with every collector registered
// against reg under the isdbt_player namespace.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isdbt_player",
			Name:      "packets_total",
			Help:      "Transport Stream packets read from the source.",
		}),
		DiscontinuitiesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isdbt_player",
			Name:      "discontinuities_total",
			Help:      "Continuity-counter discontinuities observed across all PIDs.",
		}),
		SectionsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isdbt_player",
			Name:      "sections_dropped_total",
			Help:      "PSI sections discarded for failing CRC or version-gate checks.",
		}),
		SelectedService: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "isdbt_player",
			Name:      "selected_service_id",
			Help:      "program_number of the currently selected service, or 0 if none.",
		}),
	}
	reg.MustRegister(m.PacketsTotal, m.DiscontinuitiesTotal, m.SectionsDroppedTotal, m.SelectedService)
	return m
}
