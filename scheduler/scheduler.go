// Package scheduler coalesces redraw requests into frames.
//
// Invalidate only marks the scene dirty and asks the frame source for a
// callback; several invalidations before the next frame produce one redraw.
// Drawing never happens synchronously inside Invalidate.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/ggboard/internal/logging"
)

// FrameSource delivers frame callbacks, typically once per display refresh.
type FrameSource interface {
	// RequestFrame schedules fn to run on the next frame. Each call runs fn
	// at most once.
	RequestFrame(fn func(now time.Time))
}

// Scheduler runs a draw function at most once per frame while dirty.
// It is safe for concurrent use.
type Scheduler struct {
	src  FrameSource
	draw func(now time.Time)

	mu      sync.Mutex
	dirty   bool
	pending bool
	closed  bool

	frames atomic.Uint64
}

// New creates a scheduler that calls draw on frames from src.
func New(src FrameSource, draw func(now time.Time)) *Scheduler {
	return &Scheduler{src: src, draw: draw}
}

// Invalidate marks the scene dirty and requests a frame if none is pending.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	s.dirty = true
	if s.pending || s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.mu.Unlock()
	s.src.RequestFrame(s.frame)
}

// frame clears the dirty flag before drawing so an invalidation during the
// draw arms the next frame.
func (s *Scheduler) frame(now time.Time) {
	s.mu.Lock()
	s.pending = false
	if s.closed || !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	s.mu.Unlock()

	start := time.Now()
	if s.draw != nil {
		s.draw(now)
	}
	n := s.frames.Add(1)
	logging.Logger().Debug("scheduler: frame", "n", n, "elapsed", time.Since(start))
}

// Dirty reports whether a redraw is outstanding.
func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Pending reports whether a frame callback has been requested.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Frames returns the number of redraws executed.
func (s *Scheduler) Frames() uint64 {
	return s.frames.Load()
}

// Close stops scheduling. A frame already requested runs as a no-op.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.dirty = false
}
