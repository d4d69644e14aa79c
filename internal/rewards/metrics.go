package rewards

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var spinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rentbuddy",
	Subsystem: "rewards",
	Name:      "spins_total",
	Help:      "Spin attempts, by outcome (reward kind or cooling_down).",
}, []string{"outcome"})
