package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRect is wrapped by Rect.Validate for unusable bounds.
var ErrInvalidRect = errors.New("invalid rectangle")

// Rect is an axis-aligned rectangle in world coordinates.
// Bottom is the smaller Y value and Top the larger one. On a y-down screen
// Bottom is therefore the visual top edge; the border rules only care about
// min and max, so both conventions work.
type Rect struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// NewRect returns the rectangle spanning [0,width] x [0,height].
func NewRect(width, height float64) Rect {
	return Rect{Left: 0, Right: width, Bottom: 0, Top: height}
}

// Width of the rectangle.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height of the rectangle.
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// Center returns the middle point.
func (r Rect) Center() Vector2D {
	return Vector2D{X: (r.Left + r.Right) / 2, Y: (r.Bottom + r.Top) / 2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vector2D) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Bottom && p.Y <= r.Top
}

// Validate rejects inverted, empty or non-finite rectangles.
func (r Rect) Validate() error {
	for _, f := range []float64{r.Left, r.Right, r.Bottom, r.Top} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite edge in %+v", ErrInvalidRect, r)
		}
	}
	if r.Left >= r.Right {
		return fmt.Errorf("%w: left %g must be smaller than right %g", ErrInvalidRect, r.Left, r.Right)
	}
	if r.Bottom >= r.Top {
		return fmt.Errorf("%w: bottom %g must be smaller than top %g", ErrInvalidRect, r.Bottom, r.Top)
	}
	return nil
}
