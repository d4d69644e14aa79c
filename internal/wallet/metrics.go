package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rentbuddy",
		Subsystem: "wallet",
		Name:      "transactions_total",
		Help:      "Committed wallet transactions, by type.",
	}, []string{"type"})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rentbuddy",
		Subsystem: "wallet",
		Name:      "rejected_total",
		Help:      "Wallet operations rejected at the boundary, by reason.",
	}, []string{"reason"})

	couponsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rentbuddy",
		Subsystem: "wallet",
		Name:      "coupons_issued_total",
		Help:      "Discount coupons issued.",
	})
)
