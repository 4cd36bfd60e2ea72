package overlay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"perception-study/internal/lasso"
)

// ============================================================
// Path Parser
// ============================================================

var commandRe = regexp.MustCompile(`([MmLlHhVvZz])([^MmLlHhVvZz]*)`)

// ParsePath reads path data made of M, L, H, V and Z commands (absolute
// and relative) back into points. Z appends the first point of the
// current subpath.
func ParsePath(d string) ([]lasso.Point, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, fmt.Errorf("empty path")
	}

	matches := commandRe.FindAllStringSubmatch(d, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no path commands in %q", d)
	}

	var points []lasso.Point
	var x, y float64
	start := 0

	for _, match := range matches {
		cmd := match[1]
		coords, err := parseCoords(match[2])
		if err != nil {
			return nil, err
		}

		switch cmd {
		case "M", "m", "L", "l":
			if len(coords) < 2 || len(coords)%2 != 0 {
				return nil, fmt.Errorf("%s needs coordinate pairs, got %d values", cmd, len(coords))
			}
			for i := 0; i < len(coords); i += 2 {
				if cmd == "m" || cmd == "l" {
					x += coords[i]
					y += coords[i+1]
				} else {
					x, y = coords[i], coords[i+1]
				}
				// a moveto opens a new subpath; following pairs are linetos
				if i == 0 && (cmd == "M" || cmd == "m") {
					start = len(points)
				}
				points = append(points, lasso.Point{X: x, Y: y})
			}

		case "H", "h":
			if len(coords) == 0 {
				return nil, fmt.Errorf("%s needs a value", cmd)
			}
			for _, v := range coords {
				if cmd == "h" {
					x += v
				} else {
					x = v
				}
				points = append(points, lasso.Point{X: x, Y: y})
			}

		case "V", "v":
			if len(coords) == 0 {
				return nil, fmt.Errorf("%s needs a value", cmd)
			}
			for _, v := range coords {
				if cmd == "v" {
					y += v
				} else {
					y = v
				}
				points = append(points, lasso.Point{X: x, Y: y})
			}

		case "Z", "z":
			if start < len(points) {
				first := points[start]
				points = append(points, first)
				x, y = first.X, first.Y
			}
		}
	}

	return points, nil
}

func parseCoords(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	s = strings.ReplaceAll(s, ",", " ")
	parts := strings.Fields(s)

	coords := make([]float64, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %w", part, err)
		}
		coords = append(coords, val)
	}
	return coords, nil
}
