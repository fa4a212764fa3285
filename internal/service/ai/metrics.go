package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zstory",
		Name:      "generation_requests_total",
		Help:      "Generation requests sent to the AI backend by kind and outcome.",
	}, []string{"kind", "outcome"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zstory",
		Name:      "generation_duration_seconds",
		Help:      "Latency of generation requests by kind.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 9),
	}, []string{"kind"})

	illustrationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zstory",
		Name:      "illustration_fallbacks_total",
		Help:      "Illustrations replaced by the placeholder image.",
	})
)

const (
	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeMalformed = "malformed"
	outcomeEmpty     = "empty"
)

const kindIllustration = "illustration"
