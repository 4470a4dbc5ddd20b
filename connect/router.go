// Package connect implements the connector drawing gesture.
//
// A gesture runs idle → drawing → idle. While drawing, a preview edge
// follows the pointer. Releasing on a handle completes the edge; releasing
// elsewhere tries magnetic completion against the objects under the pointer.
package connect

import (
	"sync"

	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/internal/logging"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/viewport"
)

// Magnetic margins in screen pixels.
const (
	MouseMargin = 16.0
	TouchMargin = 32.0
)

// PointerType is the input device of a release.
type PointerType uint8

const (
	PointerMouse PointerType = iota
	PointerPen
	PointerTouch
)

// Margin returns the magnetic margin in screen pixels for t.
func (t PointerType) Margin() float64 {
	if t == PointerTouch {
		return TouchMargin
	}
	return MouseMargin
}

// Store is the object and connection store the router edits.
type Store interface {
	Get(id string) (*model.Object, bool)
	Objects() []*model.Object
	AddConnection(model.Connection) (model.Connection, error)
	RemoveConnection(id string) bool
}

// Recorder records one undoable history entry.
type Recorder interface {
	Record(action model.ActionType, description string)
}

// Option configures a Router.
type Option func(*Router)

// WithRecorder sets where created and removed edges are recorded.
func WithRecorder(r Recorder) Option {
	return func(rt *Router) { rt.recorder = r }
}

// WithTransform sets the source of the current view transform.
func WithTransform(fn func() viewport.Transform) Option {
	return func(rt *Router) { rt.transform = fn }
}

// WithStandOff sets the connector stand-off distance.
func WithStandOff(d float64) Option {
	return func(rt *Router) { rt.standOff = d }
}

// WithStyle sets the color and thickness of new connections.
func WithStyle(color string, thickness float64) Option {
	return func(rt *Router) {
		rt.color = color
		rt.thickness = thickness
	}
}

// Router is the connector state machine. Store calls are made without
// holding the router lock.
type Router struct {
	store     Store
	recorder  Recorder
	transform func() viewport.Transform
	standOff  float64
	color     string
	thickness float64

	mu       sync.Mutex
	drawing  bool
	fromID   string
	fromSide geometry.Side
	pointer  geometry.Point // world
}

// New returns an idle router over store.
func New(store Store, opts ...Option) *Router {
	r := &Router{
		store:     store,
		transform: func() viewport.Transform { return viewport.Identity },
		standOff:  geometry.DefaultStandOff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins an edge from the given side of objectID. It reports false
// when the object does not exist or is an avatar.
func (r *Router) Start(objectID string, side geometry.Side) bool {
	o, ok := r.store.Get(objectID)
	if !ok || o.Kind == model.KindAvatar {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drawing = true
	r.fromID = objectID
	r.fromSide = side
	r.pointer = geometry.Anchor(o.Bounds(), side)
	return true
}

// Move updates the free end of the preview edge to a screen point.
func (r *Router) Move(screen geometry.Point) {
	p := r.transform().ScreenToWorld(screen)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.drawing {
		return
	}
	r.pointer = p
}

// End completes the edge on the given side of objectID. Connecting an
// object to itself, or to a missing object, cancels the gesture without
// mutation. It returns the created connection.
func (r *Router) End(objectID string, side geometry.Side) (model.Connection, bool) {
	r.mu.Lock()
	if !r.drawing {
		r.mu.Unlock()
		return model.Connection{}, false
	}
	fromID, fromSide := r.fromID, r.fromSide
	r.resetLocked()
	r.mu.Unlock()

	if objectID == fromID {
		return model.Connection{}, false
	}
	to, ok := r.store.Get(objectID)
	if !ok || to.Kind == model.KindAvatar {
		return model.Connection{}, false
	}
	return r.create(fromID, fromSide, objectID, side)
}

// Release ends the gesture at a screen point that missed every handle.
// The highest object whose bounds, grown by the pointer's margin, contain
// the point is connected on its nearest side. No candidate cancels.
func (r *Router) Release(screen geometry.Point, pt PointerType) (model.Connection, bool) {
	t := r.transform()
	p := t.ScreenToWorld(screen)
	margin := t.ScreenLength(pt.Margin())

	r.mu.Lock()
	if !r.drawing {
		r.mu.Unlock()
		return model.Connection{}, false
	}
	fromID, fromSide := r.fromID, r.fromSide
	r.resetLocked()
	r.mu.Unlock()

	target, ok := MagneticTarget(r.store.Objects(), fromID, p, margin)
	if !ok {
		return model.Connection{}, false
	}
	side := geometry.NearestSide(target.Bounds(), p)
	return r.create(fromID, fromSide, target.ID, side)
}

// Cancel abandons the gesture.
func (r *Router) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// MagneticTarget returns the highest-Z object other than excludeID whose
// bounds expanded by margin contain p. Avatars never match. Equal Z values
// resolve to the smaller id.
func MagneticTarget(objects []*model.Object, excludeID string, p geometry.Point, margin float64) (*model.Object, bool) {
	var best *model.Object
	for _, o := range objects {
		if o.ID == excludeID || o.Kind == model.KindAvatar {
			continue
		}
		if !o.Bounds().Expand(margin).Contains(p) {
			continue
		}
		if best == nil || o.Z > best.Z || (o.Z == best.Z && o.ID < best.ID) {
			best = o
		}
	}
	return best, best != nil
}

func (r *Router) create(fromID string, fromSide geometry.Side, toID string, toSide geometry.Side) (model.Connection, bool) {
	c, err := r.store.AddConnection(model.Connection{
		FromID:    fromID,
		FromSide:  fromSide,
		ToID:      toID,
		ToSide:    toSide,
		Color:     r.color,
		Thickness: r.thickness,
	})
	if err != nil {
		logging.Logger().Debug("connect: edge rejected", "from", fromID, "to", toID, "err", err)
		return model.Connection{}, false
	}
	if r.recorder != nil {
		r.recorder.Record(model.ActionConnect, "Connect objects")
	}
	return c, true
}

// Remove deletes a connection and records it. It reports whether the
// connection existed.
func (r *Router) Remove(connectionID string) bool {
	if !r.store.RemoveConnection(connectionID) {
		return false
	}
	if r.recorder != nil {
		r.recorder.Record(model.ActionDisconnect, "Remove connection")
	}
	return true
}

func (r *Router) resetLocked() {
	r.drawing = false
	r.fromID = ""
}

// Drawing reports whether a gesture is active.
func (r *Router) Drawing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawing
}

// Preview returns the live preview edge in world coordinates. The free end
// approaches the pointer from the side facing the source.
func (r *Router) Preview() (geometry.Path, bool) {
	r.mu.Lock()
	drawing, fromID, fromSide, p := r.drawing, r.fromID, r.fromSide, r.pointer
	r.mu.Unlock()
	if !drawing {
		return nil, false
	}
	o, ok := r.store.Get(fromID)
	if !ok {
		return nil, false
	}
	a := geometry.Anchor(o.Bounds(), fromSide)
	return geometry.RoutePoints(a, fromSide, p, facingSide(a, fromSide, p), r.standOff), true
}

// facingSide is the side of a virtual target at p that faces the source.
func facingSide(a geometry.Point, fromSide geometry.Side, p geometry.Point) geometry.Side {
	if fromSide.Horizontal() {
		if p.X >= a.X {
			return geometry.SideLeft
		}
		return geometry.SideRight
	}
	if p.Y >= a.Y {
		return geometry.SideTop
	}
	return geometry.SideBottom
}
