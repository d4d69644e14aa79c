package booking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rentbuddy",
	Subsystem: "booking",
	Name:      "requests_total",
	Help:      "Booking request lifecycle events, by event.",
}, []string{"event"})
