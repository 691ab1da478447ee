// Package metrics exposes the prometheus instruments the gateway records.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carries application-level instruments. A nil *Metrics is valid and
// records nothing, so callers never guard their instrumentation sites.
type Metrics struct {
	registry *prometheus.Registry

	paymentEvents     *prometheus.CounterVec
	webhooksRejected  *prometheus.CounterVec
	offersSkipped     *prometheus.CounterVec
	notificationSends *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globetrotter_payment_events_total",
			Help: "Payment lifecycle events by gateway and event type.",
		}, []string{"gateway", "event_type"}),
		webhooksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globetrotter_webhooks_rejected_total",
			Help: "Webhook deliveries rejected by signature verification.",
		}, []string{"gateway"}),
		offersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globetrotter_flight_offers_skipped_total",
			Help: "Malformed flight offers dropped during normalization.",
		}, []string{"provider"}),
		notificationSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globetrotter_notification_sends_total",
			Help: "Notification attempts by channel and outcome.",
		}, []string{"channel", "status"}),
	}
	registry.MustRegister(m.paymentEvents, m.webhooksRejected, m.offersSkipped, m.notificationSends)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordPaymentEvent(gateway, eventType string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(gateway, eventType).Inc()
}

func (m *Metrics) RecordWebhookRejected(gateway string) {
	if m == nil {
		return
	}
	m.webhooksRejected.WithLabelValues(gateway).Inc()
}

func (m *Metrics) RecordOfferSkipped(provider string) {
	if m == nil {
		return
	}
	m.offersSkipped.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordNotificationSend(channel, status string) {
	if m == nil {
		return
	}
	m.notificationSends.WithLabelValues(channel, status).Inc()
}
