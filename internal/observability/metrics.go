package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggdirect",
			Subsystem: "session",
			Name:      "established_total",
			Help:      "Sessions established after a confirmed handshake.",
		},
		[]string{"role"},
	)
	handshakeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggdirect",
			Subsystem: "handshake",
			Name:      "failures_total",
			Help:      "Handshake attempts that failed, by phase.",
		},
		[]string{"phase"},
	)
	buffersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggdirect",
			Subsystem: "stream",
			Name:      "buffers_total",
			Help:      "Cell buffers moved across sessions.",
		},
		[]string{"direction"},
	)
	cellsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggdirect",
			Subsystem: "stream",
			Name:      "cells_total",
			Help:      "Cell records moved across sessions.",
		},
		[]string{"direction"},
	)
	bufferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ggdirect",
			Subsystem: "stream",
			Name:      "buffer_duration_seconds",
			Help:      "Time spent encoding or decoding one cell buffer.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"direction"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sessionsTotal, handshakeFailures, buffersTotal, cellsTotal, bufferDuration)
	})
}

func RecordSession(role string) {
	RegisterMetrics()
	sessionsTotal.WithLabelValues(role).Inc()
}

func RecordHandshakeFailure(phase string) {
	RegisterMetrics()
	handshakeFailures.WithLabelValues(phase).Inc()
}

func RecordBuffer(direction string, cells int, duration time.Duration) {
	RegisterMetrics()
	buffersTotal.WithLabelValues(direction).Inc()
	cellsTotal.WithLabelValues(direction).Add(float64(cells))
	bufferDuration.WithLabelValues(direction).Observe(duration.Seconds())
}
