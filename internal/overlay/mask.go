package overlay

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/vector"

	"perception-study/internal/lasso"
)

// ============================================================
// Rasterization
// ============================================================

// CoverageThreshold is the alpha at which a mask pixel counts as inside.
const CoverageThreshold = 0x80

// Mask rasterizes the normalized polygon of l onto a width × height alpha
// image. Pixel edges are anti-aliased.
func Mask(l lasso.Lasso, width, height int) (*image.Alpha, error) {
	if !rasterSize(width, height) {
		return nil, fmt.Errorf("%w: %dx%d", lasso.ErrInvalidSurface, width, height)
	}

	dst := image.NewAlpha(image.Rect(0, 0, width, height))
	z := vector.NewRasterizer(width, height)
	if fill(z, l.Vertices, width, height) {
		z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	}
	return dst, nil
}

// Heatmap counts, for every pixel, the share of lassos that cover it and
// scales it to 0..255. With no lassos the result is black.
func Heatmap(lassos []lasso.Lasso, width, height int) (*image.Gray, error) {
	if !rasterSize(width, height) {
		return nil, fmt.Errorf("%w: %dx%d", lasso.ErrInvalidSurface, width, height)
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	if len(lassos) == 0 {
		return out, nil
	}

	counts := make([]int, width*height)
	mask := image.NewAlpha(out.Bounds())
	z := vector.NewRasterizer(width, height)

	for _, l := range lassos {
		clear(mask.Pix)
		z.Reset(width, height)
		if !fill(z, l.Vertices, width, height) {
			continue
		}
		z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if mask.AlphaAt(x, y).A >= CoverageThreshold {
					counts[y*width+x]++
				}
			}
		}
	}

	n := len(lassos)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := counts[y*width+x]
			out.SetGray(x, y, color.Gray{Y: uint8(c * 255 / n)})
		}
	}
	return out, nil
}

func rasterSize(width, height int) bool {
	return width > 0 && height > 0 && width <= lasso.MaxSurfaceSize && height <= lasso.MaxSurfaceSize
}

// fill traces the polygon into z. It reports false when there is nothing
// to draw.
func fill(z *vector.Rasterizer, vertices []lasso.Point, width, height int) bool {
	if len(vertices) < 3 {
		return false
	}

	w, h := float32(width), float32(height)
	z.MoveTo(float32(vertices[0].X)*w, float32(vertices[0].Y)*h)
	for _, p := range vertices[1:] {
		z.LineTo(float32(p.X)*w, float32(p.Y)*h)
	}
	z.ClosePath()
	return true
}
