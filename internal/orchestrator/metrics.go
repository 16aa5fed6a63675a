package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"valvenet/internal/domain"
	"valvenet/internal/search"
)

var (
	// runsTotal counts submitted runs by outcome: solved, cached, invalid, failed.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valvenet_runs_total",
		Help: "Submitted runs by outcome",
	}, []string{"result"})

	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "valvenet_solve_duration_seconds",
		Help:    "Search duration per query mode",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10, 60},
	}, []string{"mode"})

	searchStates = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "valvenet_search_states",
		Help:    "Search states expanded per query mode",
		Buckets: prometheus.ExponentialBuckets(10, 10, 8),
	}, []string{"mode"})
)

func observeSolve(mode domain.Mode, elapsed time.Duration, stats search.Stats) {
	solveDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	searchStates.WithLabelValues(string(mode)).Observe(float64(stats.States))
}
