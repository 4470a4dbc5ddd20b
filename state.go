package ggboard

import (
	"github.com/gogpu/ggboard/drag"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/imagecache"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/render"
	"github.com/gogpu/ggboard/viewport"
)

// State is the observable engine state a UI layer renders cursors,
// handles and toolbars from.
type State struct {
	Transform viewport.Transform
	Selection model.Selection

	// Drag is the active drag session, if Dragging.
	Drag     drag.Session
	Dragging bool
	Guides   []drag.Guide

	// Marquee is the live selection rectangle in world coordinates.
	Marquee   geometry.Rect
	Selecting bool

	// Preview is the live connector preview in world coordinates.
	Preview     geometry.Path
	DrawingLine bool

	CanUndo bool
	CanRedo bool

	// LastFrame describes the most recently painted frame.
	LastFrame render.Stats
	Frames    uint64
	Images    imagecache.Stats
}

// State returns a snapshot of the observable state.
func (e *Engine) State() State {
	s := State{
		Transform: e.view.Transform(),
		Selection: e.board.Selection(),
		Guides:    e.drags.Guides(),
		CanUndo:   e.history.CanUndo(),
		CanRedo:   e.history.CanRedo(),
		Frames:    e.sched.Frames(),
		Images:    e.images.Stats(),
	}
	s.Drag, s.Dragging = e.drags.Session()
	s.Marquee, s.Selecting = e.marquee.Marquee()
	s.Preview, s.DrawingLine = e.router.Preview()

	e.paintMu.Lock()
	s.LastFrame = e.stats
	e.paintMu.Unlock()
	return s
}

// Subscribe registers fn to receive the state after every painted frame.
// fn runs on the frame goroutine and must not block. The returned function
// removes the subscription.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	if e.closed {
		return func() {}
	}
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		delete(e.observers, id)
	}
}

func (e *Engine) notify() {
	e.obsMu.Lock()
	if len(e.observers) == 0 {
		e.obsMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()

	s := e.State()
	for _, fn := range fns {
		fn(s)
	}
}

func (e *Engine) isClosed() bool {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	return e.closed
}
