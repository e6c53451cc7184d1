package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons an inbound event is dropped without a reply.
const (
	dropMalformed    = "malformed"
	dropUserNotFound = "user_not_found"
	dropLookupFailed = "lookup_failed"
	dropForbidden    = "forbidden"
	dropUnknown      = "unknown_event"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Name:      "connections_active",
		Help:      "Websocket connections currently registered with the hub.",
	})

	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "events_received_total",
		Help:      "Inbound client events by name.",
	}, []string{"event"})

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "events_dropped_total",
		Help:      "Inbound client events dropped without a reply, by reason.",
	}, []string{"reason"})

	deliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "slow_consumers_dropped_total",
		Help:      "Connections dropped because their send buffer was full.",
	})

	presenceWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "presence_write_failures_total",
		Help:      "Failed presence writes by operation.",
	}, []string{"op"})
)
