package history

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/ggboard/clock"
	"github.com/gogpu/ggboard/model"
)

func newBoard(t *testing.T) *model.Board {
	t.Helper()
	b := model.NewBoard()
	if _, err := b.Add(model.Card("A", 0, 0, 100, 60, "a")); err != nil {
		t.Fatal(err)
	}
	return b
}

func xOf(t *testing.T, b *model.Board, id string) float64 {
	t.Helper()
	o, ok := b.Get(id)
	if !ok {
		t.Fatalf("%s missing", id)
	}
	return o.X
}

func TestHistoryBounds(t *testing.T) {
	const limit = 5
	b := newBoard(t)
	h := New(b, WithLimit(limit))

	for i := 0; i <= limit; i++ {
		b.UpdatePosition("A", float64(i), 0)
		h.Record(model.ActionMove, "")
	}
	if h.Len() != limit {
		t.Fatalf("Len() = %d, want %d", h.Len(), limit)
	}
	for h.Undo() {
	}
	// The oldest state (x=0) was discarded; the oldest kept is x=1.
	if x := xOf(t, b, "A"); x != 1 {
		t.Errorf("oldest reachable x = %v, want 1", x)
	}
	if h.RedoLen() != limit-1 {
		t.Errorf("RedoLen() = %d, want %d", h.RedoLen(), limit-1)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	b := newBoard(t)
	h := New(b)

	h.Record(model.ActionInitial, "S1")
	s1, _ := b.Snapshot(model.ActionInitial, "")
	b.UpdatePosition("A", 40, 0)
	h.Record(model.ActionMove, "S2")
	s2, _ := b.Snapshot(model.ActionMove, "")

	if !h.Undo() {
		t.Fatal("Undo() = false")
	}
	if got, _ := b.Snapshot(model.ActionInitial, ""); !got.SameState(s1) {
		t.Error("undo did not restore S1")
	}
	if !h.Redo() {
		t.Fatal("Redo() = false")
	}
	if got, _ := b.Snapshot(model.ActionMove, ""); !got.SameState(s2) {
		t.Error("redo did not restore exactly S2")
	}

	h.Undo()
	b.UpdatePosition("A", 99, 0)
	h.Record(model.ActionMove, "S3")
	if h.CanRedo() {
		t.Error("a new save must clear the redo stack")
	}
	if h.Redo() {
		t.Error("Redo() after new save = true")
	}
	if x := xOf(t, b, "A"); x != 99 {
		t.Errorf("x = %v, want 99", x)
	}
}

func TestUnderflow(t *testing.T) {
	b := newBoard(t)
	h := New(b)
	if h.Undo() || h.Redo() {
		t.Error("empty history must refuse undo and redo")
	}
	h.Record(model.ActionInitial, "")
	if h.CanUndo() || h.Undo() {
		t.Error("the current state alone cannot be undone")
	}
}

func TestSaveStateSkipsDuplicates(t *testing.T) {
	b := newBoard(t)
	h := New(b)
	h.Record(model.ActionInitial, "")
	h.Record(model.ActionEdit, "")
	if err := h.SaveState(nil); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}

	snap := model.NewSnapshot([]byte(`{"objects":[],"connections":[]}`), model.ActionDelete, "")
	if err := h.SaveState(&snap); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 2 {
		t.Errorf("Len() after explicit snapshot = %d, want 2", h.Len())
	}
}

// reentrantBoard records into history from inside Restore.
type reentrantBoard struct {
	*model.Board
	h *Store
}

func (r *reentrantBoard) Restore(s model.Snapshot) error {
	if err := r.Board.Restore(s); err != nil {
		return err
	}
	r.h.Record(model.ActionEdit, "from restore")
	r.h.SaveStateSoon(model.ActionEdit, "from restore")
	return nil
}

func TestRestoreDoesNotRecordItself(t *testing.T) {
	rb := &reentrantBoard{Board: newBoard(t)}
	h := New(rb)
	rb.h = h

	h.Record(model.ActionInitial, "")
	rb.UpdatePosition("A", 10, 0)
	h.Record(model.ActionMove, "")

	if !h.Undo() {
		t.Fatal("Undo() = false")
	}
	if h.Len() != 1 || h.RedoLen() != 1 {
		t.Errorf("Len=%d RedoLen=%d, want 1/1", h.Len(), h.RedoLen())
	}
	if h.Flush() {
		t.Error("debounced save scheduled during restore")
	}
}

type failingBoard struct{ *model.Board }

func (failingBoard) Restore(model.Snapshot) error { return errors.New("restore failed") }

func TestFailedRestoreKeepsStacks(t *testing.T) {
	fb := failingBoard{newBoard(t)}
	h := New(fb)
	h.Record(model.ActionInitial, "")
	fb.UpdatePosition("A", 5, 0)
	h.Record(model.ActionMove, "")
	if h.Undo() {
		t.Fatal("Undo() = true with failing restore")
	}
	if h.Len() != 2 || h.RedoLen() != 0 {
		t.Errorf("Len=%d RedoLen=%d, want 2/0", h.Len(), h.RedoLen())
	}
}

func TestSaveStateSoonDebounces(t *testing.T) {
	b := newBoard(t)
	c := clock.NewFake(time.Unix(0, 0))
	h := New(b, WithClock(c), WithDebounce(50*time.Millisecond))
	h.Record(model.ActionInitial, "")

	for i := 1; i <= 5; i++ {
		b.UpdatePosition("A", float64(i*10), 0)
		h.SaveStateSoon(model.ActionMove, "drag tick")
		c.Advance(16 * time.Millisecond)
	}
	if h.Len() != 1 {
		t.Fatalf("Len() during burst = %d, want 1", h.Len())
	}
	c.Advance(50 * time.Millisecond)
	if h.Len() != 2 {
		t.Fatalf("Len() after burst = %d, want 2", h.Len())
	}
	top, _ := h.Top()
	if top.Action != model.ActionMove || top.Description != "drag tick" {
		t.Errorf("top = %v %q", top.Action, top.Description)
	}

	b.UpdatePosition("A", 500, 0)
	h.SaveStateSoon(model.ActionMove, "")
	if !h.Flush() {
		t.Error("Flush() = false with a pending save")
	}
	if h.Len() != 3 || c.Pending() != 0 {
		t.Errorf("Len=%d pending timers=%d", h.Len(), c.Pending())
	}
}

func TestUndoFlushesPendingSave(t *testing.T) {
	b := newBoard(t)
	c := clock.NewFake(time.Unix(0, 0))
	h := New(b, WithClock(c))
	h.Record(model.ActionInitial, "")
	b.UpdatePosition("A", 70, 0)
	h.SaveStateSoon(model.ActionMove, "")

	if !h.Undo() {
		t.Fatal("Undo() = false")
	}
	if x := xOf(t, b, "A"); x != 0 {
		t.Errorf("x = %v, want 0", x)
	}
	if !h.Redo() || xOf(t, b, "A") != 70 {
		t.Error("redo should bring back the flushed state")
	}
}

func TestClear(t *testing.T) {
	b := newBoard(t)
	h := New(b)
	h.Record(model.ActionInitial, "")
	b.UpdatePosition("A", 1, 0)
	h.Record(model.ActionMove, "")
	h.Undo()
	h.Clear()
	if h.Len() != 0 || h.CanRedo() {
		t.Error("Clear left entries")
	}
}

func TestDuplicateSaveClearsRedo(t *testing.T) {
	b := newBoard(t)
	h := New(b)
	h.Record(model.ActionInitial, "S1")
	s1, _ := b.Snapshot(model.ActionInitial, "S1")
	b.UpdatePosition("A", 40, 0)
	h.Record(model.ActionMove, "S2")

	if !h.Undo() {
		t.Fatal("Undo() = false")
	}
	if err := h.SaveState(&s1); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
	if h.CanRedo() || h.Redo() {
		t.Error("redo to S2 still available after a save")
	}
}
