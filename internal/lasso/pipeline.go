package lasso

import "fmt"

type Options struct {
	DedupThreshold float64
	Epsilon        float64
	MaxVertices    int
}

func DefaultOptions() Options {
	return Options{
		DedupThreshold: DefaultDedupThreshold,
		Epsilon:        DefaultEpsilon,
		MaxVertices:    DefaultMaxVertices,
	}
}

// Finalize turns a raw stroke into a saved lasso: close, dedup, simplify,
// downsample, normalize and summarize. Strokes with fewer than
// MinSavePoints raw points are refused.
func Finalize(raw []Point, width, height float64, opts Options) (Lasso, error) {
	if len(raw) < MinSavePoints {
		return Lasso{}, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPoints, len(raw), MinSavePoints)
	}

	closed := raw
	if !IsClosed(raw) {
		closed = Close(raw)
	}

	filtered := Dedup(closed, opts.DedupThreshold)
	// dedup may swallow the closing point when the stroke ends near its start
	if len(filtered) > 2 && !IsClosed(filtered) {
		filtered = append(filtered, filtered[0])
	}

	simplified := Simplify(filtered, opts.Epsilon)
	final := Downsample(simplified, opts.MaxVertices)

	normalized, err := Normalize(final, width, height)
	if err != nil {
		return Lasso{}, err
	}

	return Lasso{
		Pixels:   final,
		Vertices: normalized,
		Summary:  Summarize(normalized),
		Width:    width,
		Height:   height,
	}, nil
}
