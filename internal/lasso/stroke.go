package lasso

// ============================================================
// Stroke Recorder
// ============================================================

// Recorder accumulates the points of one drag. It is not safe for
// concurrent use; Region serializes access to it.
type Recorder struct {
	points   []Point
	rawLen   int
	active   bool
	finished bool

	// OnChange runs after every mutation so an overlay can redraw.
	OnChange func(points []Point, finished bool)
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start resets the stroke to the single point p.
func (r *Recorder) Start(p Point) {
	r.points = []Point{p}
	r.rawLen = 1
	r.active = true
	r.finished = false
	r.changed()
}

// Append adds p while a stroke is active.
func (r *Recorder) Append(p Point) {
	if !r.active {
		return
	}
	r.points = append(r.points, p)
	r.rawLen++
	r.changed()
}

// Finish ends the active stroke and closes it into a polygon.
func (r *Recorder) Finish() {
	if !r.active {
		return
	}
	r.active = false
	r.finished = true
	r.points = Close(r.points)
	r.changed()
}

// Reset discards the stroke, active or finished.
func (r *Recorder) Reset() {
	r.points = nil
	r.rawLen = 0
	r.active = false
	r.finished = false
	r.changed()
}

// Begin, Move and End make a Recorder a PointerSession.
func (r *Recorder) Begin(p Point) { r.Start(p) }
func (r *Recorder) Move(p Point)  { r.Append(p) }
func (r *Recorder) End()          { r.Finish() }

func (r *Recorder) Points() []Point { return clonePoints(r.points) }

// RawLen is the number of captured points, not counting the closing copy.
func (r *Recorder) RawLen() int { return r.rawLen }

func (r *Recorder) Active() bool   { return r.active }
func (r *Recorder) Finished() bool { return r.finished }

func (r *Recorder) changed() {
	if r.OnChange != nil {
		r.OnChange(r.Points(), r.finished)
	}
}
