package simulation

import (
	"iter"
	"math"
	"math/rand/v2"
	"time"

	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/geometry"
	"go.uber.org/zap"
)

// PositionSource yields the spawn position of boid i. The driver owns the
// randomness behind it.
type PositionSource func(i int) geometry.Vector2D

// UniformPositions spreads boids uniformly over bounds using rng.
func UniformPositions(rng *rand.Rand, bounds geometry.Rect) PositionSource {
	return func(int) geometry.Vector2D {
		return geometry.Vector2D{
			X: bounds.Left + rng.Float64()*bounds.Width(),
			Y: bounds.Bottom + rng.Float64()*bounds.Height(),
		}
	}
}

// StepObserver is notified after every completed Step.
type StepObserver interface {
	ObserveStep(elapsed time.Duration, stats Stats)
}

// Stats summarizes the flock after a step.
type Stats struct {
	Tick       uint64
	Population int
	Centroid   geometry.Vector2D
	MeanSpeed  float64
	MaxSpeed   float64
}

// Flock owns the population and drives one simulation step at a time.
// It is not safe for concurrent use: the driver calls Step from one goroutine
// and reads boids between steps.
type Flock struct {
	settings behavior.Settings
	boids    []behavior.Boid
	deltas   []geometry.Vector2D
	grid     *grid // nil means exhaustive pairwise search
	tick     uint64

	log      *zap.Logger
	observer StepObserver
}

// Option configures a Flock at construction.
type Option func(*Flock)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(f *Flock) {
		if l != nil {
			f.log = l
		}
	}
}

// WithObserver registers o to receive per-step stats.
func WithObserver(o StepObserver) Option {
	return func(f *Flock) { f.observer = o }
}

// WithSpatialIndex overrides Config.SpatialIndex.
func WithSpatialIndex(enabled bool) Option {
	return func(f *Flock) {
		if enabled {
			f.grid = newGrid(f.settings)
		} else {
			f.grid = nil
		}
	}
}

// NewFlock spawns cfg.Population boids at positions drawn from positions,
// each starting with velocity (InitialSpeed, InitialSpeed).
func NewFlock(cfg Config, positions PositionSource, opts ...Option) (*Flock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	boids := make([]behavior.Boid, cfg.Population)
	vel := geometry.Vector2D{X: cfg.InitialSpeed, Y: cfg.InitialSpeed}
	for i := range boids {
		boids[i] = behavior.New(i, positions(i), vel)
	}
	return newFlock(cfg, boids, opts), nil
}

// FromBoids builds a flock around an explicit population. The slice is copied
// and IDs are reassigned to indices. Config.Population is replaced by len(boids).
func FromBoids(cfg Config, boids []behavior.Boid, opts ...Option) (*Flock, error) {
	cfg.Population = len(boids)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	own := make([]behavior.Boid, len(boids))
	for i, b := range boids {
		own[i] = behavior.New(i, b.Pos, b.Vel)
	}
	return newFlock(cfg, own, opts), nil
}

func newFlock(cfg Config, boids []behavior.Boid, opts []Option) *Flock {
	f := &Flock{
		settings: cfg.Settings,
		boids:    boids,
		deltas:   make([]geometry.Vector2D, len(boids)),
		log:      zap.NewNop(),
	}
	if cfg.SpatialIndex {
		f.grid = newGrid(f.settings)
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log.Info("flock created",
		zap.Int("population", len(f.boids)),
		zap.Bool("spatialIndex", f.grid != nil),
		zap.Float64("speedLimit", f.settings.SpeedLimit),
		zap.Float64("separationRadius", f.settings.SeparationRadius),
		zap.Float64("neighborRadius", f.settings.NeighborRadius),
	)
	return f
}

// Step advances the simulation by one tick inside bounds.
//
// Every boid's steering is computed from the population as it was when the
// tick started; only then are border nudges and updates applied, in index
// order. bounds must be valid (see geometry.Rect.Validate).
func (f *Flock) Step(bounds geometry.Rect) {
	start := time.Now()

	// Phase 1: read only.
	if f.grid != nil {
		f.grid.rebuild(f.boids)
		for i, b := range f.boids {
			f.deltas[i] = b.Steer(f.grid.nearby(b.Pos, f.boids), f.settings)
		}
	} else {
		for i, b := range f.boids {
			f.deltas[i] = b.Steer(f.boids, f.settings)
		}
	}

	// Phase 2: write.
	for i := range f.boids {
		f.boids[i].CheckBorder(bounds, f.settings)
		f.boids[i].Update(f.deltas[i], f.settings)
	}
	f.tick++

	if f.observer != nil || f.log.Core().Enabled(zap.DebugLevel) {
		stats := f.Stats()
		elapsed := time.Since(start)
		f.log.Debug("step",
			zap.Uint64("tick", stats.Tick),
			zap.Duration("elapsed", elapsed),
			zap.Float64("meanSpeed", stats.MeanSpeed),
			zap.Float64("maxSpeed", stats.MaxSpeed),
			zap.Stringer("centroid", stats.Centroid),
		)
		if f.observer != nil {
			f.observer.ObserveStep(elapsed, stats)
		}
	}
}

// Settings returns the rule parameters the flock runs with.
func (f *Flock) Settings() behavior.Settings { return f.settings }

// Len is the fixed population size.
func (f *Flock) Len() int { return len(f.boids) }

// Ticks is the number of completed steps.
func (f *Flock) Ticks() uint64 { return f.tick }

// Boid returns a copy of boid i.
func (f *Flock) Boid(i int) behavior.Boid { return f.boids[i] }

// All iterates over the boids in index order without copying the slice.
// The flock must not be stepped while iterating.
func (f *Flock) All() iter.Seq2[int, behavior.Boid] {
	return func(yield func(int, behavior.Boid) bool) {
		for i, b := range f.boids {
			if !yield(i, b) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the population.
func (f *Flock) Snapshot() []behavior.Boid {
	out := make([]behavior.Boid, len(f.boids))
	copy(out, f.boids)
	return out
}

// Stats computes summary values over the current population.
func (f *Flock) Stats() Stats {
	st := Stats{Tick: f.tick, Population: len(f.boids)}
	if len(f.boids) == 0 {
		return st
	}
	sumPos := geometry.Zero
	sumSpeed := 0.0
	for _, b := range f.boids {
		sumPos = sumPos.Add(b.Pos)
		speed := b.Speed()
		sumSpeed += speed
		st.MaxSpeed = math.Max(st.MaxSpeed, speed)
	}
	n := float64(len(f.boids))
	st.Centroid = sumPos.Div(n)
	st.MeanSpeed = sumSpeed / n
	return st
}
