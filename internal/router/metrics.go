package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codebot_events_total",
		Help: "Inbound events by route.",
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codebot_errors_total",
		Help: "Failed requests by error kind.",
	}, []string{"kind"})

	codesIndexedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codebot_codes_indexed_total",
		Help: "Codes written to the index by ingestion path.",
	}, []string{"source"})
)
