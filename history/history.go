// Package history keeps a bounded undo/redo stack of full board snapshots.
//
// The top of the undo stack is always the current state. Undo moves it to
// the redo stack and restores the entry below; Redo moves it back. Restores
// replace board state wholesale. Any new save clears the redo stack.
package history

import (
	"sync"
	"time"

	"github.com/gogpu/ggboard/clock"
	"github.com/gogpu/ggboard/internal/logging"
	"github.com/gogpu/ggboard/model"
)

// Defaults.
const (
	DefaultLimit    = 50
	DefaultDebounce = 50 * time.Millisecond
)

// Board captures and restores snapshots.
type Board interface {
	Snapshot(action model.ActionType, description string) (model.Snapshot, error)
	Restore(model.Snapshot) error
}

// Option configures a Store.
type Option func(*Store)

// WithLimit bounds each stack to n entries.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock sets the clock used by SaveStateSoon.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithDebounce sets the SaveStateSoon quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// Store is the undo/redo history of one board. It is safe for concurrent use.
type Store struct {
	board    Board
	limit    int
	clock    clock.Clock
	debounce time.Duration

	mu        sync.Mutex
	undo      []model.Snapshot
	redo      []model.Snapshot
	restoring bool

	timer      clock.Timer
	gen        uint64
	soonAction model.ActionType
	soonDesc   string
}

// New returns an empty history for board.
func New(board Board, opts ...Option) *Store {
	s := &Store{
		board:    board,
		limit:    DefaultLimit,
		clock:    clock.Real(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveState pushes snap, or a capture of the board when snap is nil. Saves
// made while a restore is running are ignored. A save identical to the
// current top is not pushed but still clears the redo stack.
func (s *Store) SaveState(snap *model.Snapshot) error {
	if snap == nil {
		return s.capture(model.ActionEdit, "")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSoonLocked()
	s.pushLocked(*snap)
	return nil
}

// Record captures the board and pushes it with the given label.
func (s *Store) Record(action model.ActionType, description string) {
	if err := s.capture(action, description); err != nil {
		logging.Logger().Warn("history: snapshot failed", "action", action, "err", err)
	}
}

func (s *Store) capture(action model.ActionType, description string) error {
	s.mu.Lock()
	if s.restoring {
		s.mu.Unlock()
		return nil
	}
	s.cancelSoonLocked()
	s.mu.Unlock()

	snap, err := s.board.Snapshot(action, description)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restoring {
		return nil
	}
	s.pushLocked(snap)
	return nil
}

func (s *Store) pushLocked(snap model.Snapshot) {
	if s.restoring {
		return
	}
	// A save is a new mutation even when it matches the current state.
	s.redo = nil
	if n := len(s.undo); n > 0 && s.undo[n-1].SameState(snap) {
		return
	}
	s.undo = appendBounded(s.undo, snap, s.limit)
}

// SaveStateSoon schedules a capture after the debounce period. Calls made
// before it fires restart the period, so a burst yields one snapshot.
func (s *Store) SaveStateSoon(action model.ActionType, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restoring {
		return
	}
	s.soonAction, s.soonDesc = action, description
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(gen) })
}

func (s *Store) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	action, desc := s.soonAction, s.soonDesc
	s.mu.Unlock()
	s.Record(action, desc)
}

// Flush runs a pending SaveStateSoon capture now. It reports whether one
// was pending.
func (s *Store) Flush() bool {
	s.mu.Lock()
	if s.timer == nil {
		s.mu.Unlock()
		return false
	}
	action, desc := s.soonAction, s.soonDesc
	s.cancelSoonLocked()
	s.mu.Unlock()
	s.Record(action, desc)
	return true
}

func (s *Store) cancelSoonLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Undo restores the previous state. It returns false when there is nothing
// to undo or the restore failed.
func (s *Store) Undo() bool {
	s.Flush()

	s.mu.Lock()
	if s.restoring || len(s.undo) < 2 {
		s.mu.Unlock()
		return false
	}
	n := len(s.undo)
	cur, target := s.undo[n-1], s.undo[n-2]
	s.undo = s.undo[:n-1]
	s.redo = appendBounded(s.redo, cur, s.limit)
	s.restoring = true
	s.mu.Unlock()

	err := s.board.Restore(target)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring = false
	if err != nil {
		logging.Logger().Warn("history: undo restore failed", "err", err)
		s.redo = s.redo[:len(s.redo)-1]
		s.undo = append(s.undo, cur)
		return false
	}
	return true
}

// Redo reapplies the last undone state. It returns false when there is
// nothing to redo or the restore failed.
func (s *Store) Redo() bool {
	s.mu.Lock()
	if s.restoring || len(s.redo) == 0 {
		s.mu.Unlock()
		return false
	}
	target := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = appendBounded(s.undo, target, s.limit)
	s.restoring = true
	s.mu.Unlock()

	err := s.board.Restore(target)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring = false
	if err != nil {
		logging.Logger().Warn("history: redo restore failed", "err", err)
		s.undo = s.undo[:len(s.undo)-1]
		s.redo = append(s.redo, target)
		return false
	}
	return true
}

// CanUndo reports whether Undo would restore a state.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) >= 2
}

// CanRedo reports whether Redo would restore a state.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// Len returns the number of undo entries, including the current state.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo)
}

// RedoLen returns the number of redo entries.
func (s *Store) RedoLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo)
}

// Top returns the current state entry.
func (s *Store) Top() (model.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return model.Snapshot{}, false
	}
	return s.undo[len(s.undo)-1], true
}

// Clear empties both stacks and drops any pending capture.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSoonLocked()
	s.undo = nil
	s.redo = nil
}

// appendBounded appends snap and drops the oldest entries beyond limit.
func appendBounded(stack []model.Snapshot, snap model.Snapshot, limit int) []model.Snapshot {
	stack = append(stack, snap)
	if over := len(stack) - limit; over > 0 {
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}
