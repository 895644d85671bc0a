package simulation

import (
	"math"
	"slices"

	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/geometry"
)

type gridKey struct {
	x, y int
}

// grid is a uniform spatial hash over boid indices. With a cell at least as
// large as the biggest rule radius, every neighbour of a boid lies in the 3x3
// block of cells around it, so a candidate scan selects exactly the boids an
// exhaustive scan would.
type grid struct {
	cellSize float64
	cells    map[gridKey][]int

	// scratch buffers reused for every query
	indices    []int
	candidates []behavior.Boid
}

func newGrid(s behavior.Settings) *grid {
	return &grid{
		cellSize: cellSizeFor(s),
		cells:    make(map[gridKey][]int),
	}
}

// cellSizeFor uses the largest radius so the 3x3 scan covers everything.
func cellSizeFor(s behavior.Settings) float64 {
	// Clamp to a minimum of 1 to avoid tiny grids or div by zero
	return math.Max(math.Max(s.SeparationRadius, s.NeighborRadius), 1)
}

func (g *grid) keyFor(p geometry.Vector2D) gridKey {
	// Floor, not truncation: -0.5 and 0.5 belong to different cells.
	return gridKey{
		x: int(math.Floor(p.X / g.cellSize)),
		y: int(math.Floor(p.Y / g.cellSize)),
	}
}

// rebuild indexes the population. Slices are reset to length 0 but keep their
// capacity, so a steady flock stops allocating after a few ticks.
func (g *grid) rebuild(population []behavior.Boid) {
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for i, b := range population {
		key := g.keyFor(b.Pos)
		g.cells[key] = append(g.cells[key], i)
	}
}

// nearby returns the boids in and around the cell of p (3x3 block), in index
// order. Accumulating in index order keeps results bit-identical to the
// exhaustive scan. The returned slice is only valid until the next call.
func (g *grid) nearby(p geometry.Vector2D, population []behavior.Boid) []behavior.Boid {
	center := g.keyFor(p)
	g.indices = g.indices[:0]
	for i := center.x - 1; i <= center.x+1; i++ {
		for j := center.y - 1; j <= center.y+1; j++ {
			if idx, ok := g.cells[gridKey{x: i, y: j}]; ok {
				g.indices = append(g.indices, idx...)
			}
		}
	}
	slices.Sort(g.indices)

	g.candidates = g.candidates[:0]
	for _, i := range g.indices {
		g.candidates = append(g.candidates, population[i])
	}
	return g.candidates
}
