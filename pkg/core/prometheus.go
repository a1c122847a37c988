package core

import (
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// blockHeight prometheus metric.
	blockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current index of sealed block",
			Name:      "current_block_height",
			Namespace: "kittychain",
		},
	)
	// kittyCount prometheus metric.
	kittyCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of kitties ever minted",
			Name:      "kitty_count",
			Namespace: "kittychain",
		},
	)
	// callsTotal prometheus metric.
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of processed calls",
			Name:      "calls_total",
			Namespace: "kittychain",
		},
		[]string{"method", "state"},
	)
)

func init() {
	prometheus.MustRegister(
		blockHeight,
		kittyCount,
		callsTotal,
	)
}

func updateBlockHeightMetric(bHeight uint32) {
	blockHeight.Set(float64(bHeight))
}

func updateKittyCountMetric(n uint64) {
	kittyCount.Set(float64(n))
}

func updateCallsMetric(method string, s state.ExecState) {
	callsTotal.WithLabelValues(method, s.String()).Inc()
}
