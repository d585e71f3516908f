package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discoveryActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vibin_client",
			Name:      "discovery_actions_total",
			Help:      "Like and pass submissions by outcome.",
		},
		[]string{"action", "result"},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vibin_client",
			Name:      "matches_total",
			Help:      "Likes that resolved into a match.",
		},
	)

	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vibin_client",
			Name:      "messages_sent_total",
			Help:      "Outgoing messages by transport result.",
		},
		[]string{"kind", "result"},
	)

	messagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vibin_client",
			Name:      "messages_received_total",
			Help:      "Incoming messages merged into a timeline.",
		},
		[]string{"origin"},
	)
)
