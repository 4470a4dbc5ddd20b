// Package drag moves groups of objects under a pointer.
//
// A Coordinator owns at most one Session at a time. Moves are throttled to
// one applied update per window with a trailing edge: the latest pending
// move is applied when the window closes and older ones are dropped.
// Positions go straight to the store; a single history entry is recorded
// when the gesture ends with a non-zero net displacement.
package drag

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gogpu/ggboard/clock"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/internal/logging"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/viewport"
)

// Defaults.
const (
	// DefaultThrottle is the minimum interval between applied moves.
	DefaultThrottle = 16 * time.Millisecond

	// AxisLockThreshold is the screen distance after which Shift picks the
	// dominant axis.
	AxisLockThreshold = 2.0
)

// Store is the object store a Coordinator mutates.
type Store interface {
	Get(id string) (*model.Object, bool)
	Objects() []*model.Object
	Selection() model.Selection
	SetSelection(model.Selection)
	Select(id string) bool
	MoveMany(pos map[string][2]float64) []string
}

// PointerCapture routes a pointer's events to the editor while dragging.
type PointerCapture interface {
	Capture(pointerID int) error
	Release(pointerID int)
}

// NoteSync repositions annotation windows attached to moved objects.
type NoteSync interface {
	Reposition(ids []string)
}

// Recorder records one undoable history entry.
type Recorder interface {
	Record(action model.ActionType, description string)
}

// Event is a pointer event in screen coordinates.
type Event struct {
	Pointer  int
	X, Y     float64
	Shift    bool
	Modifier bool // ctrl or meta: add to selection
	// Lost marks an event without a usable position, such as pointercancel.
	Lost bool
}

func (e Event) point() geometry.Point { return geometry.Pt(e.X, e.Y) }

// Axis is the axis a drag is locked to.
type Axis uint8

const (
	AxisNone Axis = iota
	AxisX
	AxisY
)

// Target is an object taking part in a drag and its start position.
type Target struct {
	ID     string
	StartX float64
	StartY float64
}

// Session is the state of one drag gesture.
type Session struct {
	Pointer int
	Targets []Target
	Start   geometry.Point // world
	Primary string
	Axis    Axis
	Delta   geometry.Point // last applied world delta
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used by the throttle.
func WithClock(c clock.Clock) Option {
	return func(d *Coordinator) { d.clock = c }
}

// WithThrottle sets the throttle window. Zero applies every move.
func WithThrottle(t time.Duration) Option {
	return func(d *Coordinator) { d.throttle = t }
}

// WithGrid snaps the drag delta to multiples of size world units.
func WithGrid(size float64) Option {
	return func(d *Coordinator) { d.grid = size }
}

// WithGuides enables alignment guides with the given screen threshold.
func WithGuides(threshold float64) Option {
	return func(d *Coordinator) {
		d.guides = true
		d.guideThreshold = threshold
	}
}

// WithTransform sets the source of the current view transform.
func WithTransform(fn func() viewport.Transform) Option {
	return func(d *Coordinator) { d.transform = fn }
}

// WithCapture sets the pointer capture collaborator.
func WithCapture(pc PointerCapture) Option {
	return func(d *Coordinator) { d.capture = pc }
}

// WithNoteSync sets the annotation sync collaborator.
func WithNoteSync(ns NoteSync) Option {
	return func(d *Coordinator) { d.notes = ns }
}

// WithRecorder sets where the consolidated history entry goes.
func WithRecorder(r Recorder) Option {
	return func(d *Coordinator) { d.recorder = r }
}

// Coordinator runs drag gestures. It is safe for concurrent use; the
// trailing-edge timer fires on another goroutine.
type Coordinator struct {
	store          Store
	clock          clock.Clock
	throttle       time.Duration
	grid           float64
	guides         bool
	guideThreshold float64
	transform      func() viewport.Transform
	capture        PointerCapture
	notes          NoteSync
	recorder       Recorder

	mu        sync.Mutex
	session   *Session
	gen       uint64
	seq       uint64
	pending   *Event
	timer     clock.Timer
	lastApply time.Time
	active    []Guide

	// moveMu orders store writes; committed is the seq of the last one.
	moveMu    sync.Mutex
	committed uint64
}

// step is a computed move waiting to be written to the store.
type step struct {
	seq     uint64
	pos     map[string][2]float64
	pointer int
	dropped bool
}

// New returns a Coordinator over store.
func New(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          store,
		clock:          clock.Real(),
		throttle:       DefaultThrottle,
		guideThreshold: DefaultGuideThreshold,
		transform:      func() viewport.Transform { return viewport.Identity },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin starts dragging seedID. If the seed is selected the whole selection
// moves; with a modifier the seed joins the selection; otherwise the
// selection collapses to the seed. It reports false when no drag started.
func (c *Coordinator) Begin(ev Event, seedID string) bool {
	c.mu.Lock()
	busy := c.session != nil
	c.mu.Unlock()
	if busy {
		return false
	}

	seed, ok := c.store.Get(seedID)
	if !ok || seed.Locked {
		return false
	}

	sel := c.store.Selection()
	var ids []string
	switch {
	case sel.Has(seedID):
		ids = sel.IDs()
	case ev.Modifier:
		c.store.Select(seedID)
		ids = append(sel.IDs(), seedID)
	default:
		c.store.SetSelection(model.Selection{seedID: seed.Kind})
		ids = []string{seedID}
	}

	s := &Session{
		Pointer: ev.Pointer,
		Start:   c.transform().ScreenToWorld(ev.point()),
		Primary: seedID,
	}
	for _, id := range ids {
		o, ok := c.store.Get(id)
		if !ok || o.Locked {
			continue
		}
		s.Targets = append(s.Targets, Target{ID: id, StartX: o.X, StartY: o.Y})
	}

	if c.capture != nil {
		if err := c.capture.Capture(ev.Pointer); err != nil {
			logging.Logger().Warn("drag: pointer capture failed", "pointer", ev.Pointer, "err", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.session = s
	c.pending = nil
	c.lastApply = time.Time{}
	c.active = nil
	return true
}

// Move feeds a pointer move. At most one move is applied per throttle
// window; the latest move of a window is applied when it closes.
func (c *Coordinator) Move(ev Event) {
	c.mu.Lock()
	if c.session == nil || ev.Pointer != c.session.Pointer || ev.Lost {
		c.mu.Unlock()
		return
	}
	e := ev
	c.pending = &e

	now := c.clock.Now()
	elapsed := now.Sub(c.lastApply)
	if c.timer == nil && (c.lastApply.IsZero() || elapsed >= c.throttle) {
		st := c.applyLocked()
		c.mu.Unlock()
		c.commit(st)
		return
	}
	if c.timer == nil {
		gen := c.gen
		c.timer = c.clock.AfterFunc(c.throttle-elapsed, func() { c.flush(gen) })
	}
	c.mu.Unlock()
}

// flush applies the trailing move of a throttle window.
func (c *Coordinator) flush(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	st := c.applyLocked()
	c.mu.Unlock()
	c.commit(st)
}

// commit writes a computed step to the store and tells the collaborators.
// It runs without c.mu so collaborators may call back into the Coordinator.
// A step older than the last written one is skipped.
func (c *Coordinator) commit(st step) {
	if st.dropped {
		if c.capture != nil {
			c.capture.Release(st.pointer)
		}
		return
	}
	if st.pos == nil {
		return
	}
	c.moveMu.Lock()
	if st.seq <= c.committed {
		c.moveMu.Unlock()
		return
	}
	c.committed = st.seq
	moved := c.store.MoveMany(st.pos)
	c.moveMu.Unlock()

	if len(moved) > 0 && c.notes != nil {
		c.notes.Reposition(moved)
	}
}

// End finishes the gesture at ev. Capture is released unconditionally and a
// history entry is recorded iff the objects moved. It reports whether a
// gesture was active.
func (c *Coordinator) End(ev Event) bool {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return false
	}
	if !ev.Lost && ev.Pointer == s.Pointer {
		e := ev
		c.pending = &e
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	st := c.applyLocked()
	delta := s.Delta
	n := len(s.Targets)
	c.resetLocked()
	c.mu.Unlock()

	if !st.dropped {
		c.commit(st)
	}
	if c.capture != nil {
		c.capture.Release(s.Pointer)
	}
	if !st.dropped && !delta.IsZero() && c.recorder != nil {
		c.recorder.Record(model.ActionMove, fmt.Sprintf("Move %d object(s)", n))
	}
	return true
}

// Cancel finishes the gesture like End. ev may be Lost.
func (c *Coordinator) Cancel(ev Event) bool {
	return c.End(ev)
}

// Active reports whether a drag is in progress.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Session returns a copy of the active session.
func (c *Coordinator) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	s := *c.session
	s.Targets = append([]Target(nil), c.session.Targets...)
	return s, true
}

// Guides returns the alignment guides of the last applied move.
func (c *Coordinator) Guides() []Guide {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Guide(nil), c.active...)
}

func (c *Coordinator) resetLocked() {
	c.gen++
	c.session = nil
	c.pending = nil
	c.active = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// applyLocked computes the pending move for commit. The step is marked
// dropped when the gesture was torn down because its primary object
// disappeared.
func (c *Coordinator) applyLocked() step {
	s := c.session
	if _, ok := c.store.Get(s.Primary); !ok {
		logging.Logger().Debug("drag: primary object gone, dropping gesture", "id", s.Primary)
		c.resetLocked()
		return step{pointer: s.Pointer, dropped: true}
	}
	ev := c.pending
	if ev == nil {
		return step{pointer: s.Pointer}
	}
	c.pending = nil
	c.lastApply = c.clock.Now()

	t := c.transform()
	zoom := t.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	world := t.ScreenToWorld(ev.point())
	d := world.Sub(s.Start)

	if !ev.Shift {
		s.Axis = AxisNone
	} else if s.Axis == AxisNone {
		sx, sy := math.Abs(d.X*zoom), math.Abs(d.Y*zoom)
		if math.Max(sx, sy) > AxisLockThreshold && sx != sy {
			if sx > sy {
				s.Axis = AxisX
			} else {
				s.Axis = AxisY
			}
		}
	}
	switch s.Axis {
	case AxisX:
		d.Y = 0
	case AxisY:
		d.X = 0
	}

	if c.grid > 0 {
		d.X = math.Round(d.X/c.grid) * c.grid
		d.Y = math.Round(d.Y/c.grid) * c.grid
	}

	c.active = nil
	if c.guides {
		d = c.snapLocked(s, d, c.guideThreshold/zoom)
	}

	pos := make(map[string][2]float64, len(s.Targets))
	for _, tg := range s.Targets {
		pos[tg.ID] = [2]float64{tg.StartX + d.X, tg.StartY + d.Y}
	}
	s.Delta = d
	c.seq++
	return step{seq: c.seq, pos: pos, pointer: s.Pointer}
}

// snapLocked adjusts d so the primary object aligns with a non-dragged
// object. A locked axis is never snapped.
func (c *Coordinator) snapLocked(s *Session, d geometry.Point, threshold float64) geometry.Point {
	var primary *Target
	dragged := make(map[string]bool, len(s.Targets))
	for i := range s.Targets {
		dragged[s.Targets[i].ID] = true
		if s.Targets[i].ID == s.Primary {
			primary = &s.Targets[i]
		}
	}
	if primary == nil {
		return d
	}
	obj, ok := c.store.Get(primary.ID)
	if !ok {
		return d
	}
	moving := geometry.R(primary.StartX+d.X, primary.StartY+d.Y, obj.W, obj.H)

	var anchors []geometry.Rect
	for _, o := range c.store.Objects() {
		if dragged[o.ID] || o.Kind == model.KindAvatar {
			continue
		}
		anchors = append(anchors, o.Bounds())
	}
	dx, dy, guides := SnapToGuides(moving, anchors, threshold)
	for _, g := range guides {
		switch {
		case g.Orientation == Vertical && s.Axis != AxisY:
			d.X += dx
			c.active = append(c.active, g)
		case g.Orientation == Horizontal && s.Axis != AxisX:
			d.Y += dy
			c.active = append(c.active, g)
		}
	}
	return d
}
