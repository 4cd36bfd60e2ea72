package lasso

// ============================================================
// Ramer–Douglas–Peucker
// ============================================================

// Simplify reduces points with the recursive Ramer–Douglas–Peucker
// algorithm. Inputs with fewer than three points are returned unchanged;
// the first and last points are always kept.
func Simplify(points []Point, epsilon float64) []Point {
	if len(points) < 3 {
		return clonePoints(points)
	}
	return rdp(points, epsilon)
}

func rdp(points []Point, epsilon float64) []Point {
	if len(points) < 3 {
		return clonePoints(points)
	}

	end := len(points) - 1
	maxDist := 0.0
	index := -1
	for i := 1; i < end; i++ {
		d := segmentDistance(points[i], points[0], points[end])
		if d > maxDist {
			index = i
			maxDist = d
		}
	}

	if maxDist > epsilon {
		left := rdp(points[:index+1], epsilon)
		right := rdp(points[index:], epsilon)
		// left ends on the split point, right starts on it
		return append(left[:len(left)-1], right...)
	}
	return []Point{points[0], points[end]}
}

// segmentDistance is the distance from p to the segment a-b. The
// projection parameter is clamped to [0,1]; a zero-length segment
// measures the distance to a.
func segmentDistance(p, a, b Point) float64 {
	ap := p.vec().Sub(a.vec())
	ab := b.vec().Sub(a.vec())

	len2 := ab.Dot(ab)
	t := 0.0
	if len2 != 0 {
		t = ap.Dot(ab) / len2
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	proj := a.vec().Add(ab.Mul(t))
	return p.vec().Sub(proj).Length()
}
