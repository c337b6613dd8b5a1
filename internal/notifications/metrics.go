package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "schoolrun",
	Subsystem: "notifications",
	Name:      "deliveries_total",
	Help:      "Notification deliveries by type, stage and outcome",
}, []string{"type", "stage", "outcome"})
