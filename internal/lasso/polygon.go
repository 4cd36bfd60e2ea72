package lasso

import "math"

// Close appends a copy of the first point when the stroke has more than
// two points. Shorter strokes are returned unchanged.
func Close(stroke []Point) []Point {
	out := clonePoints(stroke)
	if len(out) > 2 {
		out = append(out, out[0])
	}
	return out
}

// IsClosed reports whether a polygon of more than two points ends on its
// first point.
func IsClosed(points []Point) bool {
	if len(points) <= 2 {
		return false
	}
	return points[0] == points[len(points)-1]
}

// Dedup drops every point that lies within threshold of the previously
// kept point on both axes. The first point is always kept.
func Dedup(points []Point, threshold float64) []Point {
	if len(points) == 0 {
		return []Point{}
	}

	out := make([]Point, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		last := out[len(out)-1]
		if math.Abs(p.X-last.X) > threshold || math.Abs(p.Y-last.Y) > threshold {
			out = append(out, p)
		}
	}
	return out
}
