package lasso

import (
	"errors"
	"fmt"

	"seehuhn.de/go/geom/vec"
)

// ============================================================
// Defaults
// ============================================================

const (
	DefaultDedupThreshold = 0.5 // px, per axis
	DefaultEpsilon        = 2.5 // px, RDP tolerance
	DefaultMaxVertices    = 40
	MinSavePoints         = 3
	MaxSurfaceSize        = 4096 // px, per axis
)

var (
	ErrNotEnoughPoints = errors.New("not enough points")
	ErrInvalidSurface  = errors.New("invalid drawing surface size")
)

// ============================================================
// Geometry types
// ============================================================

// Point is a position in drawing-surface pixels, or in unit image
// coordinates once normalized.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) vec() vec.Vec2 {
	return vec.Vec2{X: p.X, Y: p.Y}
}

type BBox struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

type Summary struct {
	BBox     BBox    `json:"bbox"`
	Centroid Point   `json:"centroid"`
	Area     float64 `json:"area"`
}

// Lasso is a finalized region: the simplified polygon in pixels, its
// normalized copy and the summary of the normalized copy.
type Lasso struct {
	Pixels   []Point `json:"-"`
	Vertices []Point `json:"vertices"`
	Summary  Summary `json:"summary"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// checkSurface accepts drawing surfaces up to MaxSurfaceSize on each axis.
func checkSurface(width, height float64) error {
	if !(width > 0 && width <= MaxSurfaceSize) || !(height > 0 && height <= MaxSurfaceSize) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidSurface, width, height)
	}
	return nil
}

func clonePoints(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
