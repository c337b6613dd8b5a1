package rides

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolrun",
		Subsystem: "rides",
		Name:      "transitions_total",
		Help:      "Ride and request state transitions",
	}, []string{"transition"})

	acceptConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolrun",
		Subsystem: "rides",
		Name:      "accept_conflicts_total",
		Help:      "Accepts that lost to a concurrent accept",
	})

	otpFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolrun",
		Subsystem: "rides",
		Name:      "otp_failures_total",
		Help:      "Rejected pickup code verifications by reason",
	}, []string{"reason"})
)
