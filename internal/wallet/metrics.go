package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolrun",
		Subsystem: "wallet",
		Name:      "transactions_total",
		Help:      "Ledger entries written by type and category",
	}, []string{"type", "category"})

	insufficientFundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolrun",
		Subsystem: "wallet",
		Name:      "insufficient_funds_total",
		Help:      "Debits rejected for insufficient balance by category",
	}, []string{"category"})
)
