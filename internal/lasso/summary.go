package lasso

import (
	"fmt"
	"math"
)

// Normalize divides every vertex by the surface size so that points on
// the surface map into [0,1] on both axes.
func Normalize(points []Point, width, height float64) ([]Point, error) {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidSurface, width, height)
	}

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: p.X / width, Y: p.Y / height}
	}
	return out, nil
}

// Summarize computes bounding box, vertex-mean centroid and shoelace area.
func Summarize(points []Point) Summary {
	return Summary{
		BBox:     BoundingBox(points),
		Centroid: Centroid(points),
		Area:     Area(points),
	}
}

// BoundingBox returns the componentwise extent, or the zero box for no points.
func BoundingBox(points []Point) BBox {
	if len(points) == 0 {
		return BBox{}
	}

	b := BBox{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// Centroid is the arithmetic mean of the vertices, not the area-weighted
// polygon centroid.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// Area applies the shoelace formula over consecutive pairs without
// wrapping from the last vertex to the first; polygons are stored closed.
func Area(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	var a float64
	for i := 0; i < len(points)-1; i++ {
		a += points[i].X*points[i+1].Y - points[i+1].X*points[i].Y
	}
	return math.Abs(a) / 2
}
