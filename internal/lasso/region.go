package lasso

import (
	"fmt"
	"sync"
	"time"
)

// ============================================================
// Region
// ============================================================

// Region is the lasso state of one question instance: the stroke being
// drawn and the last saved polygon.
type Region struct {
	mu sync.Mutex

	id         RegionID
	owner      string
	chartIndex int
	width      float64
	height     float64
	opts       Options
	createdAt  time.Time

	recorder   *Recorder
	dispatcher *Dispatcher
	saved      *Lasso
}

func newRegion(id RegionID, owner string, chartIndex int, width, height float64, opts Options) *Region {
	r := &Region{
		id:         id,
		owner:      owner,
		chartIndex: chartIndex,
		width:      width,
		height:     height,
		opts:       opts,
		createdAt:  time.Now(),
		recorder:   NewRecorder(),
	}
	r.dispatcher = NewDispatcher(regionPointer{r})
	return r
}

func (r *Region) ID() RegionID         { return r.id }
func (r *Region) Owner() string        { return r.owner }
func (r *Region) ChartIndex() int      { return r.chartIndex }
func (r *Region) CreatedAt() time.Time { return r.createdAt }

// OnChange installs the redraw hook of the underlying recorder. The hook
// runs with the region locked and must not call back into r.
func (r *Region) OnChange(fn func(points []Point, finished bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder.OnChange = fn
}

// Events feeds pointer events in order and returns the current stroke.
func (r *Region) Events(events ...Event) ([]Point, error) {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		r.dispatcher.Dispatch(e)
	}
	return r.recorder.Points(), nil
}

// Stroke returns the current points and whether a drag is in progress.
func (r *Region) Stroke() ([]Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorder.Points(), r.recorder.Active()
}

// Save finalizes the current stroke and stores it. A stroke still being
// drawn is finished first. On error the previous saved state is left
// untouched.
func (r *Region) Save() (Lasso, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recorder.Active() {
		r.recorder.Finish()
	}
	if r.recorder.RawLen() < MinSavePoints {
		return Lasso{}, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPoints, r.recorder.RawLen(), MinSavePoints)
	}

	l, err := Finalize(r.recorder.Points(), r.width, r.height, r.opts)
	if err != nil {
		return Lasso{}, err
	}
	r.saved = &l
	return l, nil
}

// Trace replaces the stroke with one complete drag through points, as if
// a single pointer had drawn it.
func (r *Region) Trace(points []Point) []Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(points) == 0 {
		return r.recorder.Points()
	}

	p := regionPointer{r}
	r.dispatcher = NewDispatcher(p)
	p.Begin(points[0])
	for _, pt := range points[1:] {
		p.Move(pt)
	}
	p.End()
	return r.recorder.Points()
}

// Clear drops the stroke and the saved polygon.
func (r *Region) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recorder.Reset()
	r.dispatcher = NewDispatcher(regionPointer{r})
	r.saved = nil
}

func (r *Region) Saved() (Lasso, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saved == nil {
		return Lasso{}, false
	}
	l := *r.saved
	l.Pixels = clonePoints(l.Pixels)
	l.Vertices = clonePoints(l.Vertices)
	return l, true
}

func (r *Region) HasSaved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved != nil
}

// Resize changes the surface size used by later saves.
func (r *Region) Resize(width, height float64) error {
	if err := checkSurface(width, height); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	return nil
}

func (r *Region) Size() (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// regionPointer runs with r.mu held.
type regionPointer struct{ r *Region }

func (p regionPointer) Begin(pt Point) {
	// redrawing invalidates the saved lasso until it is saved again
	p.r.saved = nil
	p.r.recorder.Begin(pt)
}

func (p regionPointer) Move(pt Point) { p.r.recorder.Move(pt) }
func (p regionPointer) End()          { p.r.recorder.End() }
