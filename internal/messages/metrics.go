package messages

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rentbuddy",
	Subsystem: "messages",
	Name:      "messages_total",
	Help:      "Chat messages written, by kind.",
}, []string{"kind"})
