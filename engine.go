package ggboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/ggboard/connect"
	"github.com/gogpu/ggboard/drag"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/history"
	"github.com/gogpu/ggboard/imagecache"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/offscreen"
	"github.com/gogpu/ggboard/render"
	"github.com/gogpu/ggboard/scheduler"
	"github.com/gogpu/ggboard/selection"
	"github.com/gogpu/ggboard/viewport"
)

// ErrNilBoard is returned by New without a board.
var ErrNilBoard = errors.New("ggboard: nil board")

// Engine is the board editor engine. Gesture methods are meant to be
// called from one UI goroutine; frames may run on another.
type Engine struct {
	board   *model.Board
	view    *viewport.Viewport
	images  *imagecache.Cache
	painter *render.Painter
	history *history.Store
	drags   *drag.Coordinator
	marquee *selection.Engine
	router  *connect.Router
	sched   *scheduler.Scheduler
	notes   drag.NoteSync

	target      render.Target
	ownTarget   bool
	ticker      *scheduler.TickerSource
	unsubscribe func()

	paintMu sync.Mutex
	stats   render.Stats

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
	closed    bool
}

// New returns an engine over board and records the initial history state.
func New(board *model.Board, opts ...Option) (*Engine, error) {
	if board == nil {
		return nil, ErrNilBoard
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		board:     board,
		view:      viewport.New(float64(o.width), float64(o.height)),
		observers: make(map[int]func(State)),
		target:    o.target,
		notes:     o.notes,
	}
	e.view.SetOverscan(o.overscan)

	if e.target == nil {
		t, err := render.NewPixmapTarget(o.width, o.height)
		if err != nil {
			return nil, fmt.Errorf("ggboard: default target: %w", err)
		}
		e.target, e.ownTarget = t, true
	}

	var imgOpts []imagecache.Option
	imgOpts = append(imgOpts, imagecache.WithCapacity(o.imageCapacity))
	if o.opener != nil {
		imgOpts = append(imgOpts, imagecache.WithOpener(o.opener))
	}
	e.images = imagecache.New(o.fetcher, imgOpts...)

	src := o.source
	if src == nil {
		e.ticker = scheduler.NewTickerSource(scheduler.DefaultFPS)
		src = e.ticker
	}
	e.sched = scheduler.New(src, e.frame)

	painterOpts := []render.Option{
		render.WithImages(e.images),
		render.WithOffscreen(offscreen.New(o.offscreenCapacity)),
		render.WithInvalidate(e.sched.Invalidate),
		render.WithClock(o.clock),
	}
	if o.theme != nil {
		painterOpts = append(painterOpts, render.WithTheme(*o.theme))
	}
	e.painter = render.NewPainter(painterOpts...)

	e.history = history.New(board,
		history.WithLimit(o.historyLimit),
		history.WithClock(o.clock),
	)

	dragOpts := []drag.Option{
		drag.WithClock(o.clock),
		drag.WithTransform(e.view.Transform),
		drag.WithRecorder(e.history),
		drag.WithGrid(o.grid),
	}
	if o.guides {
		dragOpts = append(dragOpts, drag.WithGuides(o.guideThreshold))
	}
	if o.capture != nil {
		dragOpts = append(dragOpts, drag.WithCapture(o.capture))
	}
	e.drags = drag.New(board, dragOpts...)
	e.marquee = selection.New(board)
	e.router = connect.New(board,
		connect.WithRecorder(e.history),
		connect.WithTransform(e.view.Transform),
	)

	e.unsubscribe = board.Subscribe(e.onChange)
	e.history.Record(model.ActionInitial, "Initial state")
	e.sched.Invalidate()
	return e, nil
}

// onChange runs for every board mutation, outside the board lock. Every
// position change, whether from a drag, an edit or a history restore,
// reaches the note sync collaborator here.
func (e *Engine) onChange(c model.Change) {
	switch c.Kind {
	case model.ChangeRemoved:
		for _, id := range c.IDs {
			e.painter.Offscreen().Invalidate(id)
		}
	case model.ChangeMoved, model.ChangeEdited, model.ChangeRestored:
		if e.notes != nil && len(c.IDs) > 0 {
			e.notes.Reposition(c.IDs)
		}
	}
	e.sched.Invalidate()
}

// frame is the scheduler's draw callback.
func (e *Engine) frame(time.Time) {
	e.Draw()
}

// Draw paints a frame into the target now and presents it. It does
// nothing once the engine is closed.
func (e *Engine) Draw() render.Stats {
	if e.isClosed() {
		return render.Stats{}
	}
	w, h := e.target.Size()
	f := render.Frame{
		Width:       w,
		Height:      h,
		Transform:   e.view.Transform(),
		Overscan:    e.view.Overscan(),
		Objects:     e.board.Objects(),
		Connections: e.board.Connections(),
		Guides:      e.drags.Guides(),
	}
	f.Marquee, f.HasMarquee = e.marquee.Marquee()
	f.Preview, _ = e.router.Preview()

	e.paintMu.Lock()
	dc := e.target.Context()
	if dc == nil {
		e.paintMu.Unlock()
		return render.Stats{}
	}
	st := e.painter.Paint(dc, f)
	if err := e.target.Present(); err != nil {
		Logger().Warn("ggboard: present failed", "err", err)
	}
	e.stats = st
	e.paintMu.Unlock()

	e.notify()
	return st
}

// Board returns the board the engine edits.
func (e *Engine) Board() *model.Board { return e.board }

// Target returns the surface frames are painted into.
func (e *Engine) Target() render.Target { return e.target }

// Viewport returns the engine camera.
func (e *Engine) Viewport() *viewport.Viewport { return e.view }

// Images returns the decoded image cache.
func (e *Engine) Images() *imagecache.Cache { return e.images }

// History returns the undo/redo store.
func (e *Engine) History() *history.Store { return e.history }

// StartDrag begins dragging seedID. It reports false when the object is
// missing or locked, or another drag is running.
func (e *Engine) StartDrag(ev drag.Event, seedID string) bool {
	ok := e.drags.Begin(ev, seedID)
	if ok {
		e.sched.Invalidate()
	}
	return ok
}

// MoveDrag feeds a pointer move to the active drag.
func (e *Engine) MoveDrag(ev drag.Event) {
	e.drags.Move(ev)
}

// EndDrag finishes the drag and records one history entry when anything
// moved.
func (e *Engine) EndDrag(ev drag.Event) bool {
	ok := e.drags.End(ev)
	e.sched.Invalidate()
	return ok
}

// CancelDrag handles pointer-cancel exactly like pointer-up.
func (e *Engine) CancelDrag(ev drag.Event) bool {
	ok := e.drags.Cancel(ev)
	e.sched.Invalidate()
	return ok
}

// StartSelection begins a marquee at a screen point.
func (e *Engine) StartSelection(screen geometry.Point, additive bool) {
	e.marquee.Begin(e.view.Transform().ScreenToWorld(screen), additive)
	e.sched.Invalidate()
}

// MoveSelection extends the marquee to a screen point.
func (e *Engine) MoveSelection(screen geometry.Point) {
	e.marquee.Move(e.view.Transform().ScreenToWorld(screen))
	e.sched.Invalidate()
}

// EndSelection commits the marquee.
func (e *Engine) EndSelection() bool {
	ok := e.marquee.End()
	e.sched.Invalidate()
	return ok
}

// Click handles a plain click on id, or on empty canvas when id is empty.
// The click right after a marquee drag is swallowed.
func (e *Engine) Click(id string, additive bool) {
	if e.marquee.ConsumeClick() {
		return
	}
	switch {
	case id == "":
		if !additive {
			e.board.ClearSelection()
		}
	case additive:
		if e.board.Selection().Has(id) {
			e.board.Deselect(id)
		} else {
			e.board.Select(id)
		}
	default:
		if o, ok := e.board.Get(id); ok && o.Kind.Selectable() {
			e.board.SetSelection(model.Selection{id: o.Kind})
		}
	}
}

// StartDrawingLine begins a connector from the given side of objectID.
func (e *Engine) StartDrawingLine(objectID string, side geometry.Side) bool {
	ok := e.router.Start(objectID, side)
	if ok {
		e.sched.Invalidate()
	}
	return ok
}

// MoveLine moves the free end of the connector preview to a screen point.
func (e *Engine) MoveLine(screen geometry.Point) {
	e.router.Move(screen)
	e.sched.Invalidate()
}

// EndDrawingLine completes the connector on a handle.
func (e *Engine) EndDrawingLine(objectID string, side geometry.Side) (model.Connection, bool) {
	c, ok := e.router.End(objectID, side)
	e.sched.Invalidate()
	return c, ok
}

// ReleaseLine completes the connector magnetically at a screen point that
// missed every handle.
func (e *Engine) ReleaseLine(screen geometry.Point, pt connect.PointerType) (model.Connection, bool) {
	c, ok := e.router.Release(screen, pt)
	e.sched.Invalidate()
	return c, ok
}

// CancelLine abandons the connector gesture.
func (e *Engine) CancelLine() {
	e.router.Cancel()
	e.sched.Invalidate()
}

// Disconnect removes a connection.
func (e *Engine) Disconnect(connectionID string) bool {
	return e.router.Remove(connectionID)
}

// AddObject adds obj to the board and records it.
func (e *Engine) AddObject(obj *model.Object) (*model.Object, error) {
	added, err := e.board.Add(obj)
	if err != nil {
		return nil, err
	}
	e.history.Record(model.ActionCreate, fmt.Sprintf("Add %s", added.Kind))
	return added, nil
}

// DeleteObject removes an object and its connections and records it.
func (e *Engine) DeleteObject(id string) bool {
	if !e.board.Remove(id) {
		return false
	}
	e.history.Record(model.ActionDelete, "Delete object")
	return true
}

// BringToFront raises an object to the top of its layer band.
func (e *Engine) BringToFront(id string) bool {
	if !e.board.BringToFront(id) {
		return false
	}
	e.history.Record(model.ActionReorder, "Bring to front")
	return true
}

// SendToBack lowers an object to the bottom of its layer band.
func (e *Engine) SendToBack(id string) bool {
	if !e.board.SendToBack(id) {
		return false
	}
	e.history.Record(model.ActionReorder, "Send to back")
	return true
}

// Undo restores the previous board state.
func (e *Engine) Undo() bool {
	ok := e.history.Undo()
	if ok {
		e.sched.Invalidate()
	}
	return ok
}

// Redo reapplies the last undone state.
func (e *Engine) Redo() bool {
	ok := e.history.Redo()
	if ok {
		e.sched.Invalidate()
	}
	return ok
}

// ScheduleRender requests a redraw on the next frame.
func (e *Engine) ScheduleRender() {
	e.sched.Invalidate()
}

// InvalidateImageCache drops cached bitmaps for ref, or for every image
// when ref is empty, and redraws.
func (e *Engine) InvalidateImageCache(ref string) {
	bitmaps := e.painter.Offscreen()
	if ref == "" {
		e.images.InvalidateAll()
		bitmaps.Clear()
		e.sched.Invalidate()
		return
	}
	e.images.Invalidate(ref)
	for _, o := range e.board.Objects() {
		if o.Image != nil && (o.Image.Source == ref || o.Image.Preview == ref) {
			bitmaps.Invalidate(o.ID)
		}
	}
	e.sched.Invalidate()
}

// Pan moves the camera by a screen delta.
func (e *Engine) Pan(dx, dy float64) {
	e.view.Pan(dx, dy)
	e.sched.Invalidate()
}

// ZoomAt scales the camera about a screen point and returns the new zoom.
func (e *Engine) ZoomAt(factor float64, screen geometry.Point) float64 {
	z := e.view.ZoomAt(factor, screen)
	e.sched.Invalidate()
	return z
}

// Resize changes the viewport and target size.
func (e *Engine) Resize(width, height int) error {
	e.paintMu.Lock()
	err := e.target.Resize(width, height)
	e.paintMu.Unlock()
	if err != nil {
		return err
	}
	e.view.Resize(float64(width), float64(height))
	e.sched.Invalidate()
	return nil
}

// Close stops frame scheduling, flushes a pending history save and
// releases what the engine owns. Close is idempotent.
func (e *Engine) Close() error {
	e.obsMu.Lock()
	if e.closed {
		e.obsMu.Unlock()
		return nil
	}
	e.closed = true
	e.observers = nil
	e.obsMu.Unlock()

	e.unsubscribe()
	e.sched.Close()
	e.history.Flush()

	var errs []error
	if e.ticker != nil {
		errs = append(errs, e.ticker.Close())
	}
	if e.ownTarget {
		e.paintMu.Lock()
		errs = append(errs, e.target.Close())
		e.paintMu.Unlock()
	}
	return errors.Join(errs...)
}
