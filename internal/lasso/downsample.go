package lasso

// Downsample caps points at maxVertices. The first and last points are
// kept; interior index i survives when i is a multiple of
// ceil((n-2)/(maxVertices-2)). The result may be shorter than
// maxVertices because of the integer stride.
func Downsample(points []Point, maxVertices int) []Point {
	n := len(points)
	if n <= maxVertices {
		return clonePoints(points)
	}
	if maxVertices <= 2 {
		return []Point{points[0], points[n-1]}
	}

	interior := n - 2
	budget := maxVertices - 2
	stride := (interior + budget - 1) / budget

	keep := make([]Point, 0, maxVertices)
	keep = append(keep, points[0])
	for i := 1; i < n-1; i++ {
		if i%stride == 0 {
			keep = append(keep, points[i])
		}
	}
	keep = append(keep, points[n-1])
	return keep
}
