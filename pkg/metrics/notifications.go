package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics counts dispatched and failed notifications per event.
type NotificationMetrics struct {
	sent   *prometheus.CounterVec
	failed *prometheus.CounterVec
}

// NewNotificationMetrics registers notification counters; a nil registerer yields a no-op.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notifications_sent_total",
		Help:      "Notifications handed to the mail transport.",
	}, []string{"event"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notifications_failed_total",
		Help:      "Notifications that could not be delivered.",
	}, []string{"event"})
	reg.MustRegister(sent, failed)
	return &NotificationMetrics{sent: sent, failed: failed}
}

func (n *NotificationMetrics) IncSent(event string) {
	if n == nil || n.sent == nil {
		return
	}
	n.sent.WithLabelValues(normalizeLabel(event)).Inc()
}

func (n *NotificationMetrics) IncFailed(event string) {
	if n == nil || n.failed == nil {
		return
	}
	n.failed.WithLabelValues(normalizeLabel(event)).Inc()
}
