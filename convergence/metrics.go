package convergence

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	resamplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootstrap_resamples_total",
			Help: "Total bootstrap resamples completed.",
		},
	)

	degenerateRatiosTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootstrap_degenerate_ratios_total",
			Help: "Total convergence ratios dropped for a zero own-centroid distance.",
		},
	)

	nonConvergedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootstrap_nonconverged_ordinations_total",
			Help: "Total resample ordinations that hit the iteration cap without converging.",
		},
	)

	registered uint32
)

// RegisterMetrics registers and exposes Prometheus metrics on /metrics. The
// listener is optional debugging surface for long bootstrap runs; the
// analysis itself never depends on it.
func RegisterMetrics(mux *http.ServeMux) {
	if atomic.CompareAndSwapUint32(&registered, 0, 1) {
		prometheus.MustRegister(resamplesTotal, degenerateRatiosTotal, nonConvergedTotal)
	}
	mux.Handle("/metrics", promhttp.Handler())
}
