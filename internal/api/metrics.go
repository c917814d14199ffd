package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// notificationsTotal counts every inbound webhook by topic and what became
// of it. "credited" vs "already_counted" is the duplicate-delivery signal;
// "storage_error" spikes mean the sender is being asked to retry.
var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "funnel",
	Name:      "webhook_notifications_total",
	Help:      "Inbound webhook notifications by topic and outcome.",
}, []string{"topic", "outcome"})
