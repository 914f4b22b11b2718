// Package metrics exports measurements to Prometheus.
package metrics

import (
	"time"

	"github.com/asjoyner/hcsr04"
	"github.com/asjoyner/hcsr04/units"
	"github.com/prometheus/client_golang/prometheus"
)

// Error kinds, used as the "kind" label of hcsr04_sample_errors_total.
const (
	KindResponseTimeout     = "response_timeout"
	KindSignalTimeout       = "signal_timeout"
	KindMaxDistanceExceeded = "max_distance_exceeded"
)

type Recorder struct {
	samples   prometheus.Counter
	errors    *prometheus.CounterVec
	distance  prometheus.Gauge
	skipped   prometheus.Counter
	cooldown  prometheus.Gauge
	durations prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hcsr04_samples_total",
			Help: "Probes sent to the sensor.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hcsr04_sample_errors_total",
			Help: "Probes discarded from a measurement, by reason.",
		}, []string{"kind"}),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hcsr04_distance_meters",
			Help: "Most recent measured distance with at least one valid sample.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hcsr04_cooldown_skips_total",
			Help: "Measurements skipped because the sensor was cooling down.",
		}),
		cooldown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hcsr04_cooldown_active",
			Help: "1 while the sensor refuses to probe after a total response timeout.",
		}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hcsr04_measurement_duration_seconds",
			Help:    "Wall time of a whole measurement, settle delays included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
	// Start every kind at zero so rate() works from the first scrape.
	for _, kind := range []string{KindResponseTimeout, KindSignalTimeout, KindMaxDistanceExceeded} {
		r.errors.WithLabelValues(kind)
	}
	reg.MustRegister(r.samples, r.errors, r.distance, r.skipped, r.cooldown, r.durations)
	return r
}

// Observe records m, which took took to measure.
func (r *Recorder) Observe(m hcsr04.Measurement, took time.Duration) {
	if m.CooldownActive {
		r.skipped.Inc()
		r.cooldown.Set(1)
		return
	}
	r.cooldown.Set(0)
	r.durations.Observe(took.Seconds())
	r.samples.Add(float64(m.Samples))
	r.errors.WithLabelValues(KindResponseTimeout).Add(float64(m.ResponseTimeouts))
	r.errors.WithLabelValues(KindSignalTimeout).Add(float64(m.SignalTimeouts))
	r.errors.WithLabelValues(KindMaxDistanceExceeded).Add(float64(m.MaxDistanceExceeded))
	if m.Valid() > 0 {
		r.distance.Set(units.ConvertDistance(m.Distance, m.Unit, units.Meters))
	}
}
