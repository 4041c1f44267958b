// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of inbound payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	ClaimRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_claim_rejections_total",
			Help: "Total number of notification claim rejections by reason",
		},
		[]string{"reason"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_emails_sent_total",
			Help: "Total number of notification emails sent by delivery mode",
		},
		[]string{"mode"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "payment_pipeline_duration_seconds",
			Help: "Duration of end-to-end webhook processing in seconds",
		},
		[]string{"outcome"},
	)
)
