package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/geometry"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed config.schema.json
var configSchema string

const schemaURL = "config.schema.json"

// Config holds every parameter of a run. It is set once at startup and never
// changed afterwards; the flock keeps its own copy.
type Config struct {
	// World Dimensions (initial viewport, used to spawn the population)
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`

	// Population
	Population   int     `json:"population" toml:"population"`
	InitialSpeed float64 `json:"initialSpeed" toml:"initialSpeed"` // set on both velocity components
	Seed         int64   `json:"seed" toml:"seed"`                 // 0 lets the driver pick one

	// SpatialIndex switches neighbour search to a uniform grid.
	SpatialIndex bool `json:"spatialIndex" toml:"spatialIndex"`

	// Boids flocking parameters
	behavior.Settings
}

// DefaultConfig returns the classic parameters: a 1024x768 viewport, 40px
// personal space and 100px vision.
func DefaultConfig() *Config {
	return &Config{
		Width:        1024,
		Height:       768,
		Population:   150,
		InitialSpeed: 3,
		Settings: behavior.Settings{
			Margin:           100,
			SpeedLimit:       10,
			SeparationRadius: 40,
			NeighborRadius:   100,
			SeparationFactor: 0.05,
			AlignmentFactor:  0.05,
			CohesionFactor:   0.005,
			BorderTurnFactor: 1,
		},
	}
}

// Bounds is the initial world rectangle [0,Width] x [0,Height].
func (c *Config) Bounds() geometry.Rect {
	return geometry.NewRect(c.Width, c.Height)
}

// Validate checks the parameters a flock cannot run with.
func (c *Config) Validate() error {
	type field struct {
		name string
		v    float64
	}
	fields := []field{
		{"width", c.Width},
		{"height", c.Height},
		{"initialSpeed", c.InitialSpeed},
		{"margin", c.Margin},
		{"speedLimit", c.SpeedLimit},
		{"separationRadius", c.SeparationRadius},
		{"neighborRadius", c.NeighborRadius},
		{"separationFactor", c.SeparationFactor},
		{"alignmentFactor", c.AlignmentFactor},
		{"cohesionFactor", c.CohesionFactor},
		{"borderTurnFactor", c.BorderTurnFactor},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, f.name, f.v)
		}
	}

	positive := []field{
		{"width", c.Width},
		{"height", c.Height},
		{"speedLimit", c.SpeedLimit},
		{"separationRadius", c.SeparationRadius},
		{"neighborRadius", c.NeighborRadius},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidConfig, p.name, p.v)
		}
	}

	nonNegative := []field{
		{"margin", c.Margin},
		{"separationFactor", c.SeparationFactor},
		{"alignmentFactor", c.AlignmentFactor},
		{"cohesionFactor", c.CohesionFactor},
		{"borderTurnFactor", c.BorderTurnFactor},
	}
	for _, p := range nonNegative {
		if p.v < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidConfig, p.name, p.v)
		}
	}

	if c.Population < 1 {
		return fmt.Errorf("%w: population must be >= 1, got %d", ErrInvalidConfig, c.Population)
	}
	return nil
}

// LoadConfig reads a JSON or TOML file (chosen by extension) on top of
// DefaultConfig and validates the result. JSON files are also checked
// against the embedded schema.
func LoadConfig(configFile string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".toml":
		return loadTOML(configFile)
	case ".json", "":
		b, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return ParseJSONConfig(b)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(configFile))
	}
}

// ParseJSONConfig validates raw JSON against the schema and decodes it on top
// of the defaults.
func ParseJSONConfig(b []byte) (*Config, error) {
	// 1. Compile Schema
	sch, err := jsonschema.CompileString(schemaURL, configSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// 2. Validate the raw document
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 3. Unmarshal into Struct, missing keys keep their default
	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidConfig, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
