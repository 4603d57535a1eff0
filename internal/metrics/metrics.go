package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WSConnections tracks currently open websocket connections
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tugasin_ws_connections",
		Help: "Number of open websocket connections.",
	})

	// MessagesSent counts messages accepted by the pipeline
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugasin_messages_sent_total",
		Help: "Total messages persisted and fanned out.",
	})

	// NotificationsCreated counts durable notifications for offline members
	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tugasin_notifications_created_total",
		Help: "Total notifications created for offline recipients.",
	})

	// TaskTransitions counts task status transitions by target status
	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tugasin_task_transitions_total",
		Help: "Total task status transitions.",
	}, []string{"status"})
)

// Handler exposes the default registry as a fiber handler
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
