package behavior

import (
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/geometry"
)

// Boid represents a single entity in the flock.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds, and related group motion.
// The name "boid" corresponds to a shortened version of "bird-oid object",
// which refers to a bird-like object. https://en.wikipedia.org/wiki/Boids
//
// Fields are exported so the renderer can read them. ID is the boid's index
// in its flock and is what the rules use to skip "self": two boids sharing
// the exact same position and velocity still see each other.
type Boid struct {
	ID  int
	Pos geometry.Vector2D
	Vel geometry.Vector2D
}

// Settings controls the physics constants for the simulation.
// It is passed by value into every rule so a flock can be tested with
// varied parameters without touching any global state.
type Settings struct {
	Margin     float64 `json:"margin" toml:"margin"`         // width of the border response zone
	SpeedLimit float64 `json:"speedLimit" toml:"speedLimit"` // max velocity magnitude after Update

	SeparationRadius float64 `json:"separationRadius" toml:"separationRadius"` // personal space radius
	NeighborRadius   float64 `json:"neighborRadius" toml:"neighborRadius"`     // how far can they see?

	SeparationFactor float64 `json:"separationFactor" toml:"separationFactor"` // avoid strength
	AlignmentFactor  float64 `json:"alignmentFactor" toml:"alignmentFactor"`   // velocity matching strength
	CohesionFactor   float64 `json:"cohesionFactor" toml:"cohesionFactor"`     // centering strength
	BorderTurnFactor float64 `json:"borderTurnFactor" toml:"borderTurnFactor"` // edge turning strength
}

// New creates a boid with the given state. Nothing is validated.
func New(id int, pos, vel geometry.Vector2D) Boid {
	return Boid{ID: id, Pos: pos, Vel: vel}
}

// Distance is the Euclidean distance between two boids.
func Distance(a, b Boid) float64 {
	return a.Pos.DistanceTo(b.Pos)
}

// Heading returns the direction of travel in radians, used to orient sprites.
func (b Boid) Heading() float64 {
	return b.Vel.Angle()
}

// Speed returns the velocity magnitude.
func (b Boid) Speed() float64 {
	return b.Vel.Len()
}

// Separation keeps a small distance away from other boids.
// Every other boid strictly closer than SeparationRadius pushes by
// (b.Pos - other.Pos); the sum is not normalized so a crowded boid is pushed
// harder than one with a single close neighbour.
func (b Boid) Separation(population []Boid, s Settings) geometry.Vector2D {
	push := geometry.Zero
	for _, other := range population {
		if other.ID == b.ID {
			continue
		}
		if Distance(b, other) < s.SeparationRadius {
			push = push.Add(b.Pos.Sub(other.Pos))
		}
	}
	return push.Mul(s.SeparationFactor)
}

// Alignment matches velocity with the average velocity of visible boids.
func (b Boid) Alignment(population []Boid, s Settings) geometry.Vector2D {
	sum := geometry.Zero
	neighbors := 0
	for _, other := range population {
		if other.ID == b.ID {
			continue
		}
		if Distance(b, other) < s.NeighborRadius {
			sum = sum.Add(other.Vel)
			neighbors++
		}
	}
	if neighbors == 0 {
		return geometry.Zero
	}
	return sum.Div(float64(neighbors)).Sub(b.Vel).Mul(s.AlignmentFactor)
}

// Cohesion flies towards the center of mass of visible boids.
func (b Boid) Cohesion(population []Boid, s Settings) geometry.Vector2D {
	sum := geometry.Zero
	neighbors := 0
	for _, other := range population {
		if other.ID == b.ID {
			continue
		}
		if Distance(b, other) < s.NeighborRadius {
			sum = sum.Add(other.Pos)
			neighbors++
		}
	}
	if neighbors == 0 {
		return geometry.Zero
	}
	return sum.Div(float64(neighbors)).Sub(b.Pos).Mul(s.CohesionFactor)
}

// Steer is the combined contribution of the three flocking rules.
func (b Boid) Steer(population []Boid, s Settings) geometry.Vector2D {
	return b.Separation(population, s).
		Add(b.Alignment(population, s)).
		Add(b.Cohesion(population, s))
}

// CheckBorder nudges the velocity back toward the interior when the boid is
// inside the margin of any side. It is a soft turn, not a clamp: the nudge
// repeats every tick until the boid turns around, and a boid that overshoots
// the edge keeps being pushed back from the same side.
func (b *Boid) CheckBorder(bounds geometry.Rect, s Settings) {
	if b.Pos.X < bounds.Left+s.Margin {
		b.Vel.X += s.BorderTurnFactor
	}
	if b.Pos.X > bounds.Right-s.Margin {
		b.Vel.X -= s.BorderTurnFactor
	}
	if b.Pos.Y < bounds.Bottom+s.Margin {
		b.Vel.Y += s.BorderTurnFactor
	}
	if b.Pos.Y > bounds.Top-s.Margin {
		b.Vel.Y -= s.BorderTurnFactor
	}
}

// Update applies delta to the velocity, caps the speed and moves the boid.
func (b *Boid) Update(delta geometry.Vector2D, s Settings) {
	b.Vel = b.Vel.Add(delta)
	b.limitSpeed(s.SpeedLimit)
	b.Pos = b.Pos.Add(b.Vel)
}

// limitSpeed rescales the velocity to limit when it is faster, keeping its
// direction. A zero velocity is left alone.
func (b *Boid) limitSpeed(limit float64) {
	speed := b.Vel.Len()
	if speed == 0 {
		return
	}
	if speed > limit {
		b.Vel = b.Vel.Div(speed).Mul(limit)
	}
}
