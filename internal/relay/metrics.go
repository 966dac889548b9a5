package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the relay's Prometheus instruments.
type Metrics struct {
	Rooms          prometheus.Gauge
	Players        prometheus.Gauge
	Connections    prometheus.Gauge
	Events         *prometheus.CounterVec
	SignalsRelayed prometheus.Counter
	Dropped        prometheus.Counter
	RoomFull       prometheus.Counter
	GamesStarted   prometheus.Counter
}

// NewMetrics registers the relay instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "rooms", Help: "Rooms currently held by the relay.",
		}),
		Players: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "players", Help: "Players currently seated in a room.",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "connections", Help: "Open WebSocket connections.",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "events_total", Help: "Inbound events by name.",
		}, []string{"event"}),
		SignalsRelayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "signals_relayed_total", Help: "Signals delivered to a peer.",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "dropped_total", Help: "Outbound events dropped on a full or unknown connection.",
		}),
		RoomFull: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "room_full_total", Help: "Joins rejected because the room was full.",
		}),
		GamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lightcycles", Subsystem: "relay",
			Name: "games_started_total", Help: "Rooms that reached game-start.",
		}),
	}
}
