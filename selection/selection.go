// Package selection implements rectangular marquee selection.
//
// A gesture runs idle → selecting → idle. Every move recomputes the
// intersection against all candidates and replaces the live selection with
// base ∪ intersecting, so shrinking the marquee deselects objects it no
// longer covers.
package selection

import (
	"sync"

	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/model"
)

// Store is the object store the engine selects from.
type Store interface {
	Objects() []*model.Object
	Selection() model.Selection
	SetSelection(model.Selection)
}

// Candidate reports whether o can be picked by a marquee.
func Candidate(o *model.Object) bool {
	if o.Locked {
		return false
	}
	switch o.Kind {
	case model.KindCard, model.KindSticker, model.KindImage:
		return true
	default:
		return false
	}
}

// Engine is the marquee state machine. Store calls are made without
// holding the engine lock.
type Engine struct {
	store Store

	mu       sync.Mutex
	active   bool
	start    geometry.Point
	current  geometry.Point
	base     model.Selection
	moved    bool
	suppress bool
}

// New returns an idle engine over store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// Begin starts a marquee at p (world coordinates). With additive the
// current selection is kept as the base; otherwise it is cleared.
func (e *Engine) Begin(p geometry.Point, additive bool) {
	base := model.Selection{}
	if additive {
		base = e.store.Selection()
	} else {
		e.store.SetSelection(model.Selection{})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = true
	e.start, e.current = p, p
	e.moved = false
	e.suppress = false
	e.base = base
}

// Move extends the marquee to p and updates the live selection.
func (e *Engine) Move(p geometry.Point) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.current = p
	if p != e.start {
		e.moved = true
	}
	rect := geometry.Normalize(e.start, e.current)
	next := e.base.Clone()
	e.mu.Unlock()

	for _, o := range e.store.Objects() {
		if Candidate(o) && o.Bounds().Intersects(rect) {
			next[o.ID] = o.Kind
		}
	}
	if !next.Equal(e.store.Selection()) {
		e.store.SetSelection(next)
	}
}

// End commits the marquee. If it moved, the next plain click is suppressed.
// It reports whether a gesture was active.
func (e *Engine) End() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return false
	}
	e.active = false
	e.suppress = e.moved
	e.base = nil
	return true
}

// Cancel ends the gesture exactly like End.
func (e *Engine) Cancel() bool {
	return e.End()
}

// ConsumeClick reports whether the click following a marquee should be
// ignored, clearing the suppression.
func (e *Engine) ConsumeClick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.suppress
	e.suppress = false
	return s
}

// Active reports whether a marquee is in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Marquee returns the current marquee rectangle while a gesture is active.
func (e *Engine) Marquee() (geometry.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return geometry.Rect{}, false
	}
	return geometry.Normalize(e.start, e.current), true
}
