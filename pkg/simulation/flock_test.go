package simulation

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/geometry"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const speedEpsilon = 1e-9

func vec(x, y float64) geometry.Vector2D { return geometry.Vector2D{X: x, Y: y} }

// largeBounds keeps test boids far from every margin.
var largeBounds = geometry.Rect{Left: -1e6, Right: 1e6, Bottom: -1e6, Top: 1e6}

func randomFlock(t testing.TB, seed uint64, n int, opts ...Option) *Flock {
	t.Helper()
	cfg := *DefaultConfig()
	cfg.Population = n
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	f, err := NewFlock(cfg, UniformPositions(rng, cfg.Bounds()), opts...)
	if err != nil {
		t.Fatalf("NewFlock: %v", err)
	}
	return f
}

func TestNewFlock(t *testing.T) {
	cfg := *DefaultConfig()
	cfg.Population = 40
	cfg.InitialSpeed = 3
	rng := rand.New(rand.NewPCG(1, 2))

	f, err := NewFlock(cfg, UniformPositions(rng, cfg.Bounds()), WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("NewFlock: %v", err)
	}
	if f.Len() != 40 {
		t.Fatalf("Len = %d; want 40", f.Len())
	}
	for i, b := range f.All() {
		if b.ID != i {
			t.Errorf("boid %d has ID %d", i, b.ID)
		}
		if !cfg.Bounds().Contains(b.Pos) {
			t.Errorf("boid %d spawned outside the viewport at %v", i, b.Pos)
		}
		if b.Vel != vec(3, 3) {
			t.Errorf("boid %d initial velocity %v; want (3, 3)", i, b.Vel)
		}
	}
	if f.Ticks() != 0 {
		t.Errorf("Ticks = %d; want 0", f.Ticks())
	}
}

func TestNewFlock_InvalidConfig(t *testing.T) {
	cfg := *DefaultConfig()
	cfg.Population = 0
	_, err := NewFlock(cfg, func(int) geometry.Vector2D { return geometry.Zero })
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("NewFlock error = %v; want ErrInvalidConfig", err)
	}

	if _, err := FromBoids(*DefaultConfig(), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("FromBoids(nil) error = %v; want ErrInvalidConfig", err)
	}
}

func TestFromBoids_ReassignsIDsAndCopies(t *testing.T) {
	in := []behavior.Boid{
		{ID: 42, Pos: vec(1, 1)},
		{ID: 42, Pos: vec(2, 2)},
	}
	f, err := FromBoids(*DefaultConfig(), in)
	if err != nil {
		t.Fatalf("FromBoids: %v", err)
	}
	if f.Boid(0).ID != 0 || f.Boid(1).ID != 1 {
		t.Errorf("IDs = %d,%d; want 0,1", f.Boid(0).ID, f.Boid(1).ID)
	}
	in[0].Pos = vec(99, 99)
	if f.Boid(0).Pos != vec(1, 1) {
		t.Error("flock shares memory with the input slice")
	}
}

func TestStep_TwoBoidsSeparate(t *testing.T) {
	// Two resting boids 10 apart (inside the separation radius of 40) end up
	// moving away from each other.
	cfg := *DefaultConfig()
	f, err := FromBoids(cfg, []behavior.Boid{
		{Pos: vec(0, 0)},
		{Pos: vec(10, 0)},
	})
	if err != nil {
		t.Fatalf("FromBoids: %v", err)
	}

	f.Step(largeBounds)

	a, b := f.Boid(0), f.Boid(1)
	if a.Vel.IsZero() || b.Vel.IsZero() {
		t.Fatalf("velocities %v and %v should be nonzero", a.Vel, b.Vel)
	}
	if a.Vel.X >= 0 {
		t.Errorf("left boid velocity %v does not point away (negative X)", a.Vel)
	}
	if b.Vel.X <= 0 {
		t.Errorf("right boid velocity %v does not point away (positive X)", b.Vel)
	}
	for _, bd := range []behavior.Boid{a, b} {
		if bd.Speed() > cfg.SpeedLimit+speedEpsilon {
			t.Errorf("boid %d speed %v above limit", bd.ID, bd.Speed())
		}
	}
	if f.Ticks() != 1 {
		t.Errorf("Ticks = %d; want 1", f.Ticks())
	}
}

func TestStep_ReadsTickStartSnapshot(t *testing.T) {
	// Each boid's update must match a computation done purely on the
	// population as it was before the step, whatever the iteration order.
	cfg := *DefaultConfig()
	f := randomFlock(t, 7, 60)
	bounds := cfg.Bounds()

	for tick := 0; tick < 20; tick++ {
		before := f.Snapshot()
		want := make([]behavior.Boid, len(before))
		for i, b := range before {
			delta := b.Steer(before, f.Settings())
			b.CheckBorder(bounds, f.Settings())
			b.Update(delta, f.Settings())
			want[i] = b
		}

		f.Step(bounds)

		for i := range want {
			if got := f.Boid(i); got != want[i] {
				t.Fatalf("tick %d boid %d = %+v; want %+v", tick, i, got, want[i])
			}
		}
	}
}

func TestStep_OrderIndependent(t *testing.T) {
	// Reversing the population order must yield the same boids, reversed.
	cfg := *DefaultConfig()
	f := randomFlock(t, 3, 30)
	fwd := f.Snapshot()
	rev := make([]behavior.Boid, len(fwd))
	for i, b := range fwd {
		rev[len(fwd)-1-i] = b
	}
	g, err := FromBoids(cfg, rev)
	if err != nil {
		t.Fatalf("FromBoids: %v", err)
	}

	for tick := 0; tick < 10; tick++ {
		f.Step(cfg.Bounds())
		g.Step(cfg.Bounds())
	}

	n := f.Len()
	for i := 0; i < n; i++ {
		a, b := f.Boid(i), g.Boid(n-1-i)
		if !a.Pos.Eq(b.Pos) || !a.Vel.Eq(b.Vel) {
			t.Fatalf("boid %d diverged: %+v vs %+v", i, a, b)
		}
	}
}

func TestStep_Deterministic(t *testing.T) {
	cfg := *DefaultConfig()
	run := func() []behavior.Boid {
		f := randomFlock(t, 11, 80)
		bounds := cfg.Bounds()
		for tick := 0; tick < 100; tick++ {
			// Resize the viewport halfway through, like a window resize would.
			if tick == 50 {
				bounds = geometry.NewRect(cfg.Width/2, cfg.Height)
			}
			f.Step(bounds)
		}
		return f.Snapshot()
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("boid %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestStep_SpeedNeverExceedsLimit(t *testing.T) {
	cfg := *DefaultConfig()
	f := randomFlock(t, 5, 120)
	for tick := 0; tick < 200; tick++ {
		f.Step(cfg.Bounds())
		for i, b := range f.All() {
			if b.Speed() > cfg.SpeedLimit+speedEpsilon {
				t.Fatalf("tick %d boid %d speed %v above %v", tick, i, b.Speed(), cfg.SpeedLimit)
			}
		}
	}
}

func TestStep_LoneBoidBorderScenario(t *testing.T) {
	// A single boid exactly one margin away from the left wall, moving left:
	// its x-velocity grows by BorderTurnFactor on every tick spent inside the
	// margin, and it eventually leaves the zone heading right.
	cfg := *DefaultConfig()
	bounds := geometry.NewRect(1000, 1000)
	f, err := FromBoids(cfg, []behavior.Boid{{Pos: vec(bounds.Left+cfg.Margin, 500), Vel: vec(-4, 0)}})
	if err != nil {
		t.Fatalf("FromBoids: %v", err)
	}

	entered := false
	for tick := 0; tick < 100; tick++ {
		before := f.Boid(0)
		inMargin := before.Pos.X < bounds.Left+cfg.Margin
		f.Step(bounds)
		after := f.Boid(0)

		if inMargin {
			entered = true
			if got := after.Vel.X - before.Vel.X; got != cfg.BorderTurnFactor {
				t.Fatalf("tick %d: x-velocity grew by %v; want %v", tick, got, cfg.BorderTurnFactor)
			}
		} else if after.Vel.X != before.Vel.X {
			t.Fatalf("tick %d: x-velocity changed outside the margin", tick)
		}
		if entered && after.Vel.X > 0 && after.Pos.X >= bounds.Left+cfg.Margin {
			return
		}
	}
	t.Fatalf("boid never turned away from the wall: %+v", f.Boid(0))
}

func TestStats(t *testing.T) {
	f, err := FromBoids(*DefaultConfig(), []behavior.Boid{
		{Pos: vec(0, 0), Vel: vec(3, 4)},
		{Pos: vec(10, 20), Vel: vec(0, 1)},
	})
	if err != nil {
		t.Fatalf("FromBoids: %v", err)
	}
	st := f.Stats()
	if st.Population != 2 || st.Tick != 0 {
		t.Errorf("Stats = %+v", st)
	}
	if !st.Centroid.Eq(vec(5, 10)) {
		t.Errorf("Centroid = %v; want (5, 10)", st.Centroid)
	}
	if st.MeanSpeed != 3 || st.MaxSpeed != 5 {
		t.Errorf("MeanSpeed/MaxSpeed = %v/%v; want 3/5", st.MeanSpeed, st.MaxSpeed)
	}
}

type recordingObserver struct {
	calls []Stats
}

func (r *recordingObserver) ObserveStep(_ time.Duration, st Stats) {
	r.calls = append(r.calls, st)
}

func TestStep_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	f := randomFlock(t, 9, 10, WithObserver(obs), WithLogger(zap.NewNop()))
	for i := 0; i < 3; i++ {
		f.Step(DefaultConfig().Bounds())
	}
	if len(obs.calls) != 3 {
		t.Fatalf("observer called %d times; want 3", len(obs.calls))
	}
	if obs.calls[2].Tick != 3 || obs.calls[2].Population != 10 {
		t.Errorf("last stats = %+v", obs.calls[2])
	}
}

func TestAll_StopsEarly(t *testing.T) {
	f := randomFlock(t, 1, 10)
	seen := 0
	for i := range f.All() {
		seen++
		if i == 3 {
			break
		}
	}
	if seen != 4 {
		t.Errorf("iterated %d boids; want 4", seen)
	}
}

func BenchmarkFlock_Step(b *testing.B) {
	for _, tc := range []struct {
		name  string
		index bool
	}{{"exhaustive", false}, {"grid", true}} {
		b.Run(tc.name, func(b *testing.B) {
			f := randomFlock(b, 1, 500, WithSpatialIndex(tc.index))
			bounds := DefaultConfig().Bounds()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				f.Step(bounds)
			}
		})
	}
}
