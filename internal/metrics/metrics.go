package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crosszero"

const (
	EvictReasonExpired = "expired"
	EvictReasonEmpty   = "empty"
)

var (
	roomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of rooms currently registered",
		},
	)

	roomsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total number of rooms created",
		},
	)

	roomsEvictedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_evicted_total",
			Help:      "Total number of rooms removed from the registry",
		},
		[]string{"reason"},
	)

	gamesConcludedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_concluded_total",
			Help:      "Total number of finished games",
		},
		[]string{"result"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Number of open WebSocket connections",
		},
	)

	wsMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Total number of inbound WebSocket messages by action",
		},
		[]string{"action"},
	)
)

func SetActiveRooms(count int) {
	roomsActive.Set(float64(count))
}

func IncrementRoomsCreated() {
	roomsCreatedTotal.Inc()
}

func IncrementRoomsEvicted(reason string) {
	roomsEvictedTotal.WithLabelValues(reason).Inc()
}

func IncrementGamesConcluded(result string) {
	gamesConcludedTotal.WithLabelValues(result).Inc()
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func IncrementWSMessages(action string) {
	wsMessagesTotal.WithLabelValues(action).Inc()
}
