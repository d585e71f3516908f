package socket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vibin_client",
			Name:      "notifications_dropped_total",
			Help:      "Chat events not delivered because a subscriber buffer was full.",
		},
	)

	socketEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vibin_client",
			Name:      "socket_events_total",
			Help:      "Inbound Socket.IO events by name.",
		},
		[]string{"event"},
	)
)
