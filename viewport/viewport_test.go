package viewport

import (
	"math"
	"testing"

	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/model"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{PanX: 30, PanY: -12, Zoom: 2.5}
	p := geometry.Pt(17, 42)
	s := tr.WorldToScreen(p)
	if !near(s.X, 17*2.5+30) || !near(s.Y, 42*2.5-12) {
		t.Errorf("WorldToScreen = %v", s)
	}
	back := tr.ScreenToWorld(s)
	if !near(back.X, p.X) || !near(back.Y, p.Y) {
		t.Errorf("ScreenToWorld(WorldToScreen(p)) = %v, want %v", back, p)
	}
}

func TestVisibleRectOverscanIsScreenConstant(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform
		want geometry.Rect
	}{
		{"identity", Transform{Zoom: 1}, geometry.R(-100, -100, 1000, 800)},
		{"zoom 2", Transform{Zoom: 2}, geometry.R(-50, -50, 500, 400)},
		{"panned", Transform{PanX: 100, PanY: 50, Zoom: 1}, geometry.R(-200, -150, 1000, 800)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleRect(tt.tr, 800, 600, 100)
			if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) || !near(got.W, tt.want.W) || !near(got.H, tt.want.H) {
				t.Errorf("VisibleRect = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsVisibleInclusive(t *testing.T) {
	view := geometry.R(0, 0, 100, 100)
	tests := []struct {
		name string
		obj  geometry.Rect
		want bool
	}{
		{"inside", geometry.R(10, 10, 5, 5), true},
		{"touches right edge", geometry.R(100, 10, 5, 5), true},
		{"touches corner", geometry.R(-5, -5, 5, 5), true},
		{"just outside", geometry.R(100.5, 10, 5, 5), false},
		{"covers view", geometry.R(-10, -10, 200, 200), true},
	}
	for _, tt := range tests {
		if got := IsVisible(tt.obj, view); got != tt.want {
			t.Errorf("%s: IsVisible = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCullDoesNotMutate(t *testing.T) {
	objs := []*model.Object{
		model.Card("in", 10, 10, 50, 50, ""),
		model.Card("out", 5000, 5000, 50, 50, ""),
		model.Sticker("edge", 100, 100, 20, ""),
	}
	got := Cull(objs, geometry.R(0, 0, 100, 100))
	if len(got) != 2 || got[0].ID != "in" || got[1].ID != "edge" {
		t.Errorf("Cull = %v", got)
	}
	if len(objs) != 3 || objs[1].ID != "out" {
		t.Error("input slice modified")
	}
}

func TestViewportZoomAtKeepsAnchor(t *testing.T) {
	v := New(800, 600)
	v.Pan(40, 20)
	screen := geometry.Pt(300, 200)
	before := v.Transform().ScreenToWorld(screen)

	if z := v.ZoomAt(2, screen); z != 2 {
		t.Fatalf("zoom = %v, want 2", z)
	}
	after := v.Transform().ScreenToWorld(screen)
	if !near(before.X, after.X) || !near(before.Y, after.Y) {
		t.Errorf("anchor moved from %v to %v", before, after)
	}

	if z := v.ZoomAt(100, screen); z != MaxZoom {
		t.Errorf("zoom = %v, want clamp to %v", z, MaxZoom)
	}
	if z := v.ZoomAt(1e-6, screen); z != MinZoom {
		t.Errorf("zoom = %v, want clamp to %v", z, MinZoom)
	}
}

func TestViewportResizeAndVisible(t *testing.T) {
	v := New(100, 100)
	v.SetOverscan(0)
	v.Resize(400, 300)
	if w, h := v.Size(); w != 400 || h != 300 {
		t.Errorf("Size = %v,%v", w, h)
	}
	if got := v.Visible(); got != geometry.R(0, 0, 400, 300) {
		t.Errorf("Visible = %+v", got)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		content geometry.Rect
		want    Transform
	}{
		{"wide", geometry.R(0, 0, 400, 100), Transform{PanX: 0, PanY: 200, Zoom: 2}},
		{"tall", geometry.R(100, 100, 100, 200), Transform{PanX: -50, PanY: -300, Zoom: 3}},
		{"clamped", geometry.R(0, 0, 1, 1), Transform{PanX: 400 - 0.5*MaxZoom, PanY: 300 - 0.5*MaxZoom, Zoom: MaxZoom}},
		{"empty", geometry.Rect{}, Identity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.content, 800, 600, 0)
			if !near(got.Zoom, tt.want.Zoom) || !near(got.PanX, tt.want.PanX) || !near(got.PanY, tt.want.PanY) {
				t.Errorf("Fit() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCullUsesRotatedImageBounds(t *testing.T) {
	// A 100x20 image centered at (50,10) rotated a quarter turn spans
	// y in [-40,60]; only its rotated corner reaches the view above it.
	img := model.Image("img", 0, 0, 100, 20, "photo")
	img.Image.Rotation = math.Pi / 2
	view := geometry.R(0, -60, 100, 30)

	if IsVisible(img.Bounds(), view) {
		t.Fatal("unrotated bounds already overlap the view")
	}
	if got := Cull([]*model.Object{img}, view); len(got) != 1 {
		t.Errorf("Cull dropped a rotated image whose corner is visible")
	}

	img.Image.Rotation = 0
	if got := Cull([]*model.Object{img}, view); len(got) != 0 {
		t.Errorf("Cull kept an unrotated image outside the view")
	}
}
