package lasso

import "fmt"

// PointerSession receives one drag at a time, whatever device produced it.
type PointerSession interface {
	Begin(p Point)
	Move(p Point)
	End()
}

type EventKind string

const (
	EventDown   EventKind = "start"
	EventMove   EventKind = "move"
	EventUp     EventKind = "end"
	EventCancel EventKind = "cancel"
)

// Event is a pointer or touch sample in surface pixels.
type Event struct {
	Kind      EventKind `json:"type"`
	PointerID int       `json:"pointerId"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
}

func (e Event) Point() Point { return Point{X: e.X, Y: e.Y} }

func (e Event) Validate() error {
	switch e.Kind {
	case EventDown, EventMove, EventUp, EventCancel:
		return nil
	}
	return fmt.Errorf("unknown event type %q", e.Kind)
}

// Dispatcher follows the primary pointer only: the first pointer to go
// down owns the drag until it lifts or is cancelled. Other pointers are
// ignored.
type Dispatcher struct {
	session PointerSession
	primary int
	down    bool
}

func NewDispatcher(s PointerSession) *Dispatcher {
	return &Dispatcher{session: s}
}

func (d *Dispatcher) Dispatch(e Event) {
	switch e.Kind {
	case EventDown:
		if d.down {
			if e.PointerID != d.primary {
				return
			}
			// repeated down from the same pointer restarts the drag
		}
		d.down = true
		d.primary = e.PointerID
		d.session.Begin(e.Point())

	case EventMove:
		if !d.down || e.PointerID != d.primary {
			return
		}
		d.session.Move(e.Point())

	case EventUp, EventCancel:
		if !d.down || e.PointerID != d.primary {
			return
		}
		d.down = false
		d.session.End()
	}
}

func (d *Dispatcher) Down() bool { return d.down }
