package tiles

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of a single provider. They are registered on
// the provider's registerer, so two providers must not share one.
type Metrics struct {
	computed *prometheus.CounterVec
	aborted  prometheus.Counter
	evicted  prometheus.Counter
	resets   prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, queueLen, cacheLen func() float64) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		computed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wolfram",
			Subsystem: "tiles",
			Name:      "computed_total",
			Help:      "Tiles computed, by whether a raster was produced.",
		}, []string{"kind"}),
		aborted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wolfram",
			Subsystem: "tiles",
			Name:      "aborted_total",
			Help:      "Tile computations abandoned because an ancestor was missing.",
		}),
		evicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wolfram",
			Subsystem: "tiles",
			Name:      "rasters_evicted_total",
			Help:      "Rasters dropped for tiles that scrolled out of range.",
		}),
		resets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wolfram",
			Subsystem: "tiles",
			Name:      "cache_resets_total",
			Help:      "Full cache clears caused by rule or resolution changes.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wolfram",
			Subsystem: "tiles",
			Name:      "compute_seconds",
			Help:      "Time spent computing a single tile.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "wolfram",
		Subsystem: "tiles",
		Name:      "queue_length",
		Help:      "Tiles waiting in the current render queue.",
	}, queueLen)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "wolfram",
		Subsystem: "tiles",
		Name:      "cache_entries",
		Help:      "Tiles held in the cache.",
	}, cacheLen)
	return m
}

func (m *Metrics) observeTile(raster bool, d time.Duration) {
	kind := "state"
	if raster {
		kind = "raster"
	}
	m.computed.WithLabelValues(kind).Inc()
	m.duration.Observe(d.Seconds())
}
