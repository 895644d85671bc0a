// Package driver holds the startup plumbing shared by the commands: logger
// construction, seeding and flock creation. The simulation core never depends
// on it.
package driver

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/simulation"
	"go.uber.org/zap"
)

// NewLogger builds a zap logger at the given level ("debug", "info", ...).
// Development mode switches to the human readable console encoder.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}

// Seed returns seed unless it is 0, in which case one is derived from the clock.
func Seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// NewRNG returns a deterministic generator for seed.
func NewRNG(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// NewFlock resolves the seed, spawns the population uniformly over the
// configured viewport and returns the flock with the seed actually used.
func NewFlock(cfg *simulation.Config, log *zap.Logger, opts ...simulation.Option) (*simulation.Flock, int64, error) {
	seed := Seed(cfg.Seed)
	rng := NewRNG(seed)
	opts = append([]simulation.Option{simulation.WithLogger(log)}, opts...)
	flock, err := simulation.NewFlock(*cfg, simulation.UniformPositions(rng, cfg.Bounds()), opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create flock: %w", err)
	}
	log.Info("population spawned", zap.Int64("seed", seed), zap.Int("population", flock.Len()))
	return flock, seed, nil
}

// LoadConfig returns DefaultConfig when path is empty, the parsed file otherwise.
func LoadConfig(path string) (*simulation.Config, error) {
	if path == "" {
		return simulation.DefaultConfig(), nil
	}
	return simulation.LoadConfig(path)
}
