// Package viewport maps between screen and world coordinates and culls
// objects outside the visible area.
package viewport

import (
	"math"
	"sync"

	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/model"
)

// Zoom limits and the default overscan margin in screen pixels.
const (
	MinZoom         = 0.1
	MaxZoom         = 8.0
	DefaultOverscan = 200.0
)

// Transform is a pan/zoom camera: screen = world*Zoom + Pan.
type Transform struct {
	PanX, PanY float64
	Zoom       float64
}

// Identity is the unscaled, unpanned transform.
var Identity = Transform{Zoom: 1}

func (t Transform) zoom() float64 {
	if t.Zoom <= 0 {
		return 1
	}
	return t.Zoom
}

// WorldToScreen converts a world point to screen pixels.
func (t Transform) WorldToScreen(p geometry.Point) geometry.Point {
	z := t.zoom()
	return geometry.Point{X: p.X*z + t.PanX, Y: p.Y*z + t.PanY}
}

// ScreenToWorld converts a screen point to world coordinates.
func (t Transform) ScreenToWorld(p geometry.Point) geometry.Point {
	z := t.zoom()
	return geometry.Point{X: (p.X - t.PanX) / z, Y: (p.Y - t.PanY) / z}
}

// ScreenLength converts a length in screen pixels to world units.
func (t Transform) ScreenLength(px float64) float64 {
	return px / t.zoom()
}

// VisibleRect returns the world rectangle covered by a container of the
// given size, grown by overscanPx screen pixels on every side.
func VisibleRect(t Transform, containerW, containerH, overscanPx float64) geometry.Rect {
	z := t.zoom()
	topLeft := t.ScreenToWorld(geometry.Point{})
	r := geometry.Rect{X: topLeft.X, Y: topLeft.Y, W: containerW / z, H: containerH / z}
	return r.Expand(overscanPx / z)
}

// IsVisible reports whether obj overlaps rect. Touching edges count.
func IsVisible(obj, rect geometry.Rect) bool {
	return obj.Intersects(rect)
}

// Cull returns the objects whose drawn bounds overlap rect, preserving
// order. The input slice is not modified.
func Cull(objects []*model.Object, rect geometry.Rect) []*model.Object {
	out := make([]*model.Object, 0, len(objects))
	for _, o := range objects {
		if IsVisible(o.DrawBounds(), rect) {
			out = append(out, o)
		}
	}
	return out
}

// Viewport is the mutable camera of an editor session.
// It is safe for concurrent use.
type Viewport struct {
	mu       sync.Mutex
	t        Transform
	w, h     float64
	overscan float64
}

// New returns a viewport of the given container size at identity.
func New(w, h float64) *Viewport {
	return &Viewport{t: Identity, w: w, h: h, overscan: DefaultOverscan}
}

// SetOverscan sets the culling margin in screen pixels.
func (v *Viewport) SetOverscan(px float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overscan = math.Max(0, px)
}

// Overscan returns the culling margin in screen pixels.
func (v *Viewport) Overscan() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.overscan
}

// Transform returns the current transform.
func (v *Viewport) Transform() Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.t
}

// SetTransform replaces the transform, clamping the zoom.
func (v *Viewport) SetTransform(t Transform) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t.Zoom = clampZoom(t.Zoom)
	v.t = t
}

// Size returns the container size in screen pixels.
func (v *Viewport) Size() (w, h float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.w, v.h
}

// Pan shifts the view by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.t.PanX += dx
	v.t.PanY += dy
}

// ZoomAt multiplies the zoom by factor keeping the world point under the
// screen point fixed. It returns the resulting zoom.
func (v *Viewport) ZoomAt(factor float64, screen geometry.Point) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if factor <= 0 {
		return v.t.Zoom
	}
	anchor := v.t.ScreenToWorld(screen)
	v.t.Zoom = clampZoom(v.t.Zoom * factor)
	v.t.PanX = screen.X - anchor.X*v.t.Zoom
	v.t.PanY = screen.Y - anchor.Y*v.t.Zoom
	return v.t.Zoom
}

// Resize sets the container size.
func (v *Viewport) Resize(w, h float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.w, v.h = math.Max(0, w), math.Max(0, h)
}

// Visible returns the overscanned world rectangle of the current view.
func (v *Viewport) Visible() geometry.Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VisibleRect(v.t, v.w, v.h, v.overscan)
}

func clampZoom(z float64) float64 {
	if z <= 0 || math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Fit returns the transform that centers content in a container of the
// given size, leaving padding screen pixels on the tightest axis. The zoom
// is clamped to [MinZoom, MaxZoom].
func Fit(content geometry.Rect, containerW, containerH, padding float64) Transform {
	if content.IsEmpty() || containerW <= 0 || containerH <= 0 {
		return Identity
	}
	availW := math.Max(containerW-2*padding, 1)
	availH := math.Max(containerH-2*padding, 1)
	z := clampZoom(math.Min(availW/content.W, availH/content.H))
	c := content.Center()
	return Transform{
		PanX: containerW/2 - c.X*z,
		PanY: containerH/2 - c.Y*z,
		Zoom: z,
	}
}
