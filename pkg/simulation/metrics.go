package simulation

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors fed by a flock. It implements
// StepObserver, so it is wired in with WithObserver.
type Metrics struct {
	gatherer prometheus.Gatherer

	Steps        prometheus.Counter
	StepDuration prometheus.Histogram
	Population   prometheus.Gauge
	MeanSpeed    prometheus.Gauge
	MaxSpeed     prometheus.Gauge
}

var _ StepObserver = (*Metrics)(nil)

// NewMetrics registers the flock metrics against reg, defaulting to the
// global Prometheus registry when nil. Registering twice on the same registry
// returns the collectors already there.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boids_steps_total",
		Help: "Number of completed flock steps.",
	}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "boids_step_duration_seconds",
		Help:    "Wall time spent in one flock step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}))
	if err != nil {
		return nil, err
	}
	population, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boids_population",
		Help: "Number of boids in the flock.",
	}))
	if err != nil {
		return nil, err
	}
	meanSpeed, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boids_mean_speed",
		Help: "Average velocity magnitude after the last step.",
	}))
	if err != nil {
		return nil, err
	}
	maxSpeed, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boids_max_speed",
		Help: "Largest velocity magnitude after the last step.",
	}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:     gatherer,
		Steps:        steps,
		StepDuration: duration,
		Population:   population,
		MeanSpeed:    meanSpeed,
		MaxSpeed:     maxSpeed,
	}, nil
}

// ObserveStep records one completed step.
func (m *Metrics) ObserveStep(elapsed time.Duration, stats Stats) {
	if m == nil {
		return
	}
	m.Steps.Inc()
	m.StepDuration.Observe(elapsed.Seconds())
	m.Population.Set(float64(stats.Population))
	m.MeanSpeed.Set(stats.MeanSpeed)
	m.MaxSpeed.Set(stats.MaxSpeed)
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := m.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %T already registered with incompatible type", c)
		}
		var zero C
		return zero, err
	}
	return c, nil
}
