package overlay

import (
	"fmt"
	"strconv"
	"strings"

	"perception-study/internal/lasso"
)

// ============================================================
// SVG Renderer
// ============================================================

const (
	FillColor   = "rgba(220,20,60,0.22)"
	StrokeColor = "#a10b23"
	StrokeWidth = 2
)

// RenderSVG draws every lasso as a closed path on a width × height canvas.
// Vertices are stored normalized, so they are scaled back to the canvas.
func RenderSVG(width, height float64, lassos ...lasso.Lasso) (string, error) {
	if !(width > 0) || !(height > 0) {
		return "", fmt.Errorf("%w: %gx%g", lasso.ErrInvalidSurface, width, height)
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(width), formatFloat(height), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	for i, l := range lassos {
		d := PathData(scale(l.Vertices, width, height))
		if d == "" {
			continue
		}
		builder.WriteString(fmt.Sprintf(`  <path id="lasso-%d" d="%s" fill="%s" stroke="%s" stroke-width="%d" />`,
			i, d, FillColor, StrokeColor, StrokeWidth))
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// PathData formats points as "M x y L x y ... Z". A trailing copy of the
// first point is folded into the Z.
func PathData(points []lasso.Point) string {
	if len(points) == 0 {
		return ""
	}
	if lasso.IsClosed(points) {
		points = points[:len(points)-1]
	}

	var path strings.Builder
	path.WriteString("M ")
	path.WriteString(formatPoint(points[0]))
	for _, p := range points[1:] {
		path.WriteString(" L ")
		path.WriteString(formatPoint(p))
	}
	path.WriteString(" Z")
	return path.String()
}

func scale(points []lasso.Point, width, height float64) []lasso.Point {
	out := make([]lasso.Point, len(points))
	for i, p := range points {
		out[i] = lasso.Point{X: p.X * width, Y: p.Y * height}
	}
	return out
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p lasso.Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
