package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RoomsLive       prometheus.Gauge
	ConnectionsLive prometheus.Gauge
	RoomsCreated    prometheus.Counter
	RoomsDeleted    prometheus.Counter
	RoomsExpired    prometheus.Counter
	MessagesRelayed prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RoomsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ember",
			Name:      "rooms_live",
			Help:      "Number of rooms currently in the registry.",
		}),
		ConnectionsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ember",
			Name:      "connections_live",
			Help:      "Number of live websocket connections.",
		}),
		RoomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Name:      "rooms_created_total",
			Help:      "Total rooms created.",
		}),
		RoomsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Name:      "rooms_deleted_total",
			Help:      "Total rooms deleted by their owner or by owner disconnect.",
		}),
		RoomsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Name:      "rooms_expired_total",
			Help:      "Total rooms destroyed by timer expiry.",
		}),
		MessagesRelayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Name:      "messages_relayed_total",
			Help:      "Total chat messages relayed to room audiences.",
		}),
	}
}
