package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Board errors.
var (
	// ErrDuplicateObject is returned when an object id is already present.
	ErrDuplicateObject = errors.New("model: duplicate object id")

	// ErrUnknownObject is returned when an id does not name a board object.
	ErrUnknownObject = errors.New("model: unknown object")

	// ErrSelfConnection is returned for a connection whose ends are the same object.
	ErrSelfConnection = errors.New("model: connection source equals target")

	// ErrDuplicateConnection is returned when an identical connection exists.
	ErrDuplicateConnection = errors.New("model: duplicate connection")

	// ErrBadSnapshot is returned when snapshot data cannot be decoded.
	ErrBadSnapshot = errors.New("model: malformed snapshot")
)

// ChangeKind classifies a board mutation.
type ChangeKind uint8

// Board change kinds.
const (
	ChangeAdded ChangeKind = iota
	ChangeMoved
	ChangeRemoved
	ChangeSelection
	ChangeConnections
	ChangeReordered
	ChangeRestored
	ChangeEdited
)

// Change describes one board mutation. IDs lists the affected objects or
// connections. For ChangeRestored it lists the objects that moved or
// appeared.
type Change struct {
	Kind ChangeKind
	IDs  []string
}

// Board is the in-memory store of objects and connections.
//
// Board is safe for concurrent use. Accessors return copies; mutations go
// through Board methods so that observers are notified.
type Board struct {
	mu          sync.RWMutex
	objects     map[string]*Object
	connections []Connection

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObs   int
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		objects:   make(map[string]*Object),
		observers: make(map[int]func(Change)),
	}
}

// Subscribe registers fn to be called after every mutation. The returned
// function removes the subscription. Observers run outside the board lock.
func (b *Board) Subscribe(fn func(Change)) (unsubscribe func()) {
	b.obsMu.Lock()
	id := b.nextObs
	b.nextObs++
	b.observers[id] = fn
	b.obsMu.Unlock()

	return func() {
		b.obsMu.Lock()
		delete(b.observers, id)
		b.obsMu.Unlock()
	}
}

func (b *Board) notify(c Change) {
	b.obsMu.Lock()
	fns := make([]func(Change), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.obsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Len returns the number of objects.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// Add inserts an object on top of its layer band. An empty id is replaced
// with a new one. The stored copy is returned.
func (b *Board) Add(obj *Object) (*Object, error) {
	o := obj.Clone()
	if o.ID == "" {
		o.ID = NewID()
	}
	if o.Kind == KindImage && o.Image == nil {
		o.Image = &ImageProps{Opacity: 1}
	}

	b.mu.Lock()
	if _, ok := b.objects[o.ID]; ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateObject, o.ID)
	}
	o.Z = b.topZLocked(o.Band())
	b.objects[o.ID] = o
	out := o.Clone()
	b.mu.Unlock()

	b.notify(Change{Kind: ChangeAdded, IDs: []string{o.ID}})
	return out, nil
}

// topZLocked returns the next free zIndex at the top of band.
// Caller must hold b.mu.
func (b *Board) topZLocked(band Band) int {
	z := band.Base() - 1
	for _, o := range b.objects {
		if o.Band() == band && o.Z > z {
			z = o.Z
		}
	}
	return band.Clamp(z + 1)
}

// bottomZLocked returns the zIndex just below the lowest object of band.
// Caller must hold b.mu.
func (b *Board) bottomZLocked(band Band) int {
	z := band.Max() + 1
	for _, o := range b.objects {
		if o.Band() == band && o.Z < z {
			z = o.Z
		}
	}
	return band.Clamp(z - 1)
}

// Get returns a copy of the object with the given id.
func (b *Board) Get(id string) (*Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.objects[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Has reports whether the board holds an object with the given id.
func (b *Board) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[id]
	return ok
}

// Objects returns copies of all objects ordered by zIndex, then id.
func (b *Board) Objects() []*Object {
	b.mu.RLock()
	out := make([]*Object, 0, len(b.objects))
	for _, o := range b.objects {
		out = append(out, o.Clone())
	}
	b.mu.RUnlock()

	SortByZ(out)
	return out
}

// SortByZ orders objects bottom to top, breaking zIndex ties by id.
func SortByZ(objs []*Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		if objs[i].Z != objs[j].Z {
			return objs[i].Z < objs[j].Z
		}
		return objs[i].ID < objs[j].ID
	})
}

// UpdatePosition moves an object to (x, y). It reports false when the id is
// unknown.
func (b *Board) UpdatePosition(id string, x, y float64) bool {
	b.mu.Lock()
	o, ok := b.objects[id]
	if ok {
		o.X, o.Y = x, y
	}
	b.mu.Unlock()

	if ok {
		b.notify(Change{Kind: ChangeMoved, IDs: []string{id}})
	}
	return ok
}

// MoveMany applies several positions in one critical section and sends a
// single notification. Unknown ids are skipped.
func (b *Board) MoveMany(pos map[string][2]float64) []string {
	b.mu.Lock()
	moved := make([]string, 0, len(pos))
	for id, p := range pos {
		if o, ok := b.objects[id]; ok {
			o.X, o.Y = p[0], p[1]
			moved = append(moved, id)
		}
	}
	b.mu.Unlock()

	if len(moved) > 0 {
		sort.Strings(moved)
		b.notify(Change{Kind: ChangeMoved, IDs: moved})
	}
	return moved
}

// Update applies fn to the stored object and notifies observers. Position
// and zIndex changes made by fn are kept; the band invariant is restored.
func (b *Board) Update(id string, fn func(*Object)) bool {
	b.mu.Lock()
	o, ok := b.objects[id]
	if ok {
		fn(o)
		o.ID = id
		o.Z = o.Band().Clamp(o.Z)
	}
	b.mu.Unlock()

	if ok {
		b.notify(Change{Kind: ChangeEdited, IDs: []string{id}})
	}
	return ok
}

// Select marks an object selected. Avatars cannot be selected.
func (b *Board) Select(id string) bool {
	return b.setSelected(id, true)
}

// Deselect clears an object's selected flag.
func (b *Board) Deselect(id string) bool {
	return b.setSelected(id, false)
}

func (b *Board) setSelected(id string, v bool) bool {
	b.mu.Lock()
	o, ok := b.objects[id]
	selectable := ok && o.Kind.Selectable()
	changed := selectable && o.Selected != v
	if changed {
		o.Selected = v
	}
	b.mu.Unlock()

	if changed {
		b.notify(Change{Kind: ChangeSelection, IDs: []string{id}})
	}
	return selectable
}

// Selection returns the current selection set.
func (b *Board) Selection() Selection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sel := make(Selection)
	for id, o := range b.objects {
		if o.Selected {
			sel[id] = o.Kind
		}
	}
	return sel
}

// SetSelection replaces the selection with exactly the ids in sel that
// exist and are selectable.
func (b *Board) SetSelection(sel Selection) {
	b.mu.Lock()
	changed := false
	for id, o := range b.objects {
		want := sel.Has(id) && o.Kind.Selectable()
		if o.Selected != want {
			o.Selected = want
			changed = true
		}
	}
	b.mu.Unlock()

	if changed {
		b.notify(Change{Kind: ChangeSelection})
	}
}

// ClearSelection deselects everything.
func (b *Board) ClearSelection() {
	b.SetSelection(nil)
}

// Remove deletes an object together with every connection that references
// it. It reports false when the id is unknown.
func (b *Board) Remove(id string) bool {
	b.mu.Lock()
	if _, ok := b.objects[id]; !ok {
		b.mu.Unlock()
		return false
	}
	delete(b.objects, id)
	var dropped []string
	kept := b.connections[:0]
	for _, c := range b.connections {
		if c.References(id) {
			dropped = append(dropped, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	b.connections = kept
	b.mu.Unlock()

	b.notify(Change{Kind: ChangeRemoved, IDs: []string{id}})
	if len(dropped) > 0 {
		b.notify(Change{Kind: ChangeConnections, IDs: dropped})
	}
	return true
}

// BringToFront moves an object to the top of its band.
func (b *Board) BringToFront(id string) bool {
	return b.reorder(id, b.topZLocked)
}

// SendToBack moves an object to the bottom of its band.
func (b *Board) SendToBack(id string) bool {
	return b.reorder(id, b.bottomZLocked)
}

func (b *Board) reorder(id string, pick func(Band) int) bool {
	b.mu.Lock()
	o, ok := b.objects[id]
	if ok {
		o.Z = pick(o.Band())
	}
	b.mu.Unlock()

	if ok {
		b.notify(Change{Kind: ChangeReordered, IDs: []string{id}})
	}
	return ok
}

// AddConnection stores a connector edge. An empty id is assigned.
// Self-loops, unknown endpoints and exact duplicates are rejected.
func (b *Board) AddConnection(c Connection) (Connection, error) {
	if c.FromID == c.ToID {
		return Connection{}, ErrSelfConnection
	}
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.Color == "" {
		c.Color = DefaultConnectionColor
	}
	if c.Thickness <= 0 {
		c.Thickness = DefaultConnectionThickness
	}

	b.mu.Lock()
	for _, id := range []string{c.FromID, c.ToID} {
		if _, ok := b.objects[id]; !ok {
			b.mu.Unlock()
			return Connection{}, fmt.Errorf("%w: %s", ErrUnknownObject, id)
		}
	}
	for _, existing := range b.connections {
		if existing.SameEndpoints(c) {
			b.mu.Unlock()
			return Connection{}, ErrDuplicateConnection
		}
	}
	b.connections = append(b.connections, c)
	b.mu.Unlock()

	b.notify(Change{Kind: ChangeConnections, IDs: []string{c.ID}})
	return c, nil
}

// RemoveConnection deletes a connector edge by id.
func (b *Board) RemoveConnection(id string) bool {
	b.mu.Lock()
	idx := -1
	for i, c := range b.connections {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		b.connections = append(b.connections[:idx], b.connections[idx+1:]...)
	}
	b.mu.Unlock()

	if idx >= 0 {
		b.notify(Change{Kind: ChangeConnections, IDs: []string{id}})
	}
	return idx >= 0
}

// Connections returns a copy of all connector edges.
func (b *Board) Connections() []Connection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Connection, len(b.connections))
	copy(out, b.connections)
	return out
}

// Snapshot serializes the whole board.
func (b *Board) Snapshot(action ActionType, description string) (Snapshot, error) {
	objs := b.Objects()
	conns := b.Connections()
	data, err := encodeState(objs, conns)
	if err != nil {
		return Snapshot{}, fmt.Errorf("model: encode snapshot: %w", err)
	}
	return Snapshot{data: data, Action: action, Description: description}, nil
}

// Restore replaces the whole board with the snapshot's state. Out-of-band
// zIndex values are clamped and dangling connections are dropped.
func (b *Board) Restore(s Snapshot) error {
	objs, conns, err := s.Decode()
	if err != nil {
		return err
	}

	objects := make(map[string]*Object, len(objs))
	for _, o := range objs {
		if o == nil || o.ID == "" {
			continue
		}
		if o.Kind == KindImage && o.Image == nil {
			o.Image = &ImageProps{Opacity: 1}
		}
		o.Z = o.Band().Clamp(o.Z)
		objects[o.ID] = o
	}
	connections := make([]Connection, 0, len(conns))
	for _, c := range conns {
		_, fromOK := objects[c.FromID]
		_, toOK := objects[c.ToID]
		if fromOK && toOK && c.FromID != c.ToID {
			connections = append(connections, c)
		}
	}

	var moved []string
	b.mu.Lock()
	for id, o := range objects {
		if old, ok := b.objects[id]; !ok || old.X != o.X || old.Y != o.Y {
			moved = append(moved, id)
		}
	}
	b.objects = objects
	b.connections = connections
	b.mu.Unlock()

	sort.Strings(moved)
	b.notify(Change{Kind: ChangeRestored, IDs: moved})
	return nil
}
