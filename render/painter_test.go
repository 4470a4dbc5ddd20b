package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggboard/clock"
	"github.com/gogpu/ggboard/drag"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/imagecache"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/viewport"
)

func newTarget(t *testing.T, w, h int) *PixmapTarget {
	t.Helper()
	tg, err := NewPixmapTarget(w, h)
	if err != nil {
		t.Fatalf("NewPixmapTarget() error = %v", err)
	}
	t.Cleanup(func() { _ = tg.Close() })
	return tg
}

// near reports whether the pixel at (x, y) is within tol of want per channel.
func near(img image.Image, x, y int, want color.Color, tol uint32) bool {
	r, g, b, a := img.At(x, y).RGBA()
	wr, wg, wb, wa := want.RGBA()
	diff := func(p, q uint32) uint32 {
		p, q = p>>8, q>>8
		if p > q {
			return p - q
		}
		return q - p
	}
	return diff(r, wr) <= tol && diff(g, wg) <= tol && diff(b, wb) <= tol && diff(a, wa) <= tol
}

func TestPaintClearsAndDrawsCards(t *testing.T) {
	tg := newTarget(t, 200, 200)
	p := NewPainter()
	card := model.Card("A", 20, 20, 80, 60, "")
	card.Color = "#00aa00"

	st := p.Paint(tg.Context(), Frame{
		Width: 200, Height: 200,
		Transform: viewport.Identity,
		Objects:   []*model.Object{card},
	})
	if st.Objects != 1 || st.Culled != 0 {
		t.Errorf("stats = %+v", st)
	}
	img := tg.Image()
	if !near(img, 60, 50, gg.Hex("#00aa00").Color(), 8) {
		t.Errorf("card center = %v, want green", img.At(60, 50))
	}
	if !near(img, 180, 180, gg.Hex(DefaultTheme().Background).Color(), 2) {
		t.Errorf("background = %v", img.At(180, 180))
	}
}

func TestPaintCullsAndZOrders(t *testing.T) {
	tg := newTarget(t, 200, 200)
	p := NewPainter()

	card := model.Card("card", 50, 50, 100, 100, "")
	card.Z = 2000
	card.Color = "#0000ff"
	sticker := model.Sticker("note", 50, 50, 60, "")
	sticker.Z = 4000
	sticker.Color = "#ff0000"
	far := model.Card("far", 5000, 5000, 10, 10, "")
	far.Z = 2001

	// Stickers come first in the slice but belong above cards.
	st := p.Paint(tg.Context(), Frame{
		Width: 200, Height: 200,
		Transform: viewport.Identity,
		Objects:   []*model.Object{sticker, card, far},
	})
	if st.Culled != 1 || st.Objects != 2 {
		t.Errorf("stats = %+v, want 2 drawn and 1 culled", st)
	}
	img := tg.Image()
	if !near(img, 70, 70, color.RGBA{R: 255, A: 255}, 8) {
		t.Errorf("overlap pixel = %v, want sticker red", img.At(70, 70))
	}
	if !near(img, 130, 130, color.RGBA{B: 255, A: 255}, 8) {
		t.Errorf("card-only pixel = %v, want blue", img.At(130, 130))
	}
}

func TestPaintConnectors(t *testing.T) {
	tg := newTarget(t, 400, 200)
	p := NewPainter()
	a := model.Card("A", 20, 50, 80, 60, "")
	b := model.Card("B", 300, 50, 80, 60, "")
	conns := []model.Connection{
		{ID: "c1", FromID: "A", FromSide: geometry.SideRight, ToID: "B", ToSide: geometry.SideLeft, Color: "#000000", Thickness: 4},
		{ID: "dangling", FromID: "A", FromSide: geometry.SideTop, ToID: "gone", ToSide: geometry.SideTop},
	}
	st := p.Paint(tg.Context(), Frame{
		Width: 400, Height: 200,
		Transform:   viewport.Identity,
		Objects:     []*model.Object{a, b},
		Connections: conns,
	})
	if st.Connections != 1 {
		t.Errorf("connections drawn = %d, want 1", st.Connections)
	}
	if !near(tg.Image(), 200, 80, color.Black, 40) {
		t.Errorf("connector midpoint = %v, want black", tg.Image().At(200, 80))
	}
}

func TestPaintAppliesTransform(t *testing.T) {
	tg := newTarget(t, 200, 200)
	p := NewPainter()
	card := model.Card("A", 0, 0, 20, 20, "")
	card.Color = "#00aa00"
	p.Paint(tg.Context(), Frame{
		Width: 200, Height: 200,
		Transform: viewport.Transform{PanX: 100, PanY: 100, Zoom: 2},
		Objects:   []*model.Object{card},
	})
	img := tg.Image()
	if !near(img, 120, 120, gg.Hex("#00aa00").Color(), 8) {
		t.Errorf("zoomed card pixel = %v", img.At(120, 120))
	}
	if near(img, 10, 10, gg.Hex("#00aa00").Color(), 8) {
		t.Error("card drawn at its untransformed position")
	}
}

func TestPaintDecorations(t *testing.T) {
	tg := newTarget(t, 300, 300)
	p := NewPainter()
	card := model.Card("A", 50, 50, 100, 100, "")
	card.Selected = true
	p.Paint(tg.Context(), Frame{
		Width: 300, Height: 300,
		Transform:  viewport.Identity,
		Objects:    []*model.Object{card},
		Marquee:    geometry.R(200, 200, 60, 60),
		HasMarquee: true,
		Guides: []drag.Guide{{
			Orientation: drag.Vertical, Position: 20,
			From: geometry.Pt(20, 0), To: geometry.Pt(20, 300),
		}},
	})
	img := tg.Image()
	bg := gg.Hex(DefaultTheme().Background).Color()
	for _, pt := range []image.Point{{46, 100}, {230, 230}, {20, 250}} {
		if near(img, pt.X, pt.Y, bg, 2) {
			t.Errorf("decoration missing at %v", pt)
		}
	}
}

func dataURI(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPaintImageLifecycle(t *testing.T) {
	uri := dataURI(t, color.RGBA{R: 255, A: 255})
	fetch := imagecache.FetcherFunc(func(_ context.Context, id string) (string, error) {
		if id == "broken" {
			return "", errors.New("no such image")
		}
		return uri, nil
	})
	images := imagecache.New(fetch)
	loaded := make(chan struct{}, 4)
	p := NewPainter(WithImages(images), WithInvalidate(func() { loaded <- struct{}{} }))

	img := model.Image("I", 10, 10, 80, 80, "photo")
	frame := Frame{Width: 200, Height: 200, Transform: viewport.Identity, Objects: []*model.Object{img}}
	tg := newTarget(t, 200, 200)

	st := p.Paint(tg.Context(), frame)
	if st.Pending != 1 {
		t.Fatalf("first paint stats = %+v, want one pending image", st)
	}
	if !near(tg.Image(), 50, 50, gg.Hex(DefaultTheme().Skeleton).Color(), 2) {
		t.Errorf("pending image pixel = %v, want skeleton", tg.Image().At(50, 50))
	}

	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("load never invalidated the frame")
	}

	st = p.Paint(tg.Context(), frame)
	if st.Pending != 0 || st.Failed != 0 {
		t.Fatalf("second paint stats = %+v", st)
	}
	if !near(tg.Image(), 50, 50, color.RGBA{R: 255, A: 255}, 16) {
		t.Errorf("image pixel = %v, want red", tg.Image().At(50, 50))
	}
	if p.Offscreen().Len() != 1 {
		t.Errorf("offscreen entries = %d, want 1", p.Offscreen().Len())
	}

	broken := model.Image("X", 100, 100, 60, 60, "broken")
	frame.Objects = []*model.Object{broken}
	p.Paint(tg.Context(), frame)
	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("failed load never invalidated the frame")
	}
	st = p.Paint(tg.Context(), frame)
	if st.Failed != 1 {
		t.Errorf("stats after failure = %+v, want one placeholder", st)
	}
}

func TestPixmapTargetSize(t *testing.T) {
	if _, err := NewPixmapTarget(0, 10); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("NewPixmapTarget(0, 10) error = %v, want %v", err, ErrInvalidSize)
	}
	tg := newTarget(t, 10, 10)
	if err := tg.Resize(30, 20); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := tg.Size(); w != 30 || h != 20 {
		t.Errorf("Size() = %d,%d, want 30,20", w, h)
	}
	var buf bytes.Buffer
	if err := tg.EncodePNG(&buf); err != nil || buf.Len() == 0 {
		t.Errorf("EncodePNG() error = %v, %d bytes", err, buf.Len())
	}
}

func TestPaintRetriesFailedImageAfterCooldown(t *testing.T) {
	uri := dataURI(t, color.RGBA{G: 255, A: 255})
	var calls atomic.Int32
	fetch := imagecache.FetcherFunc(func(context.Context, string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("temporarily unavailable")
		}
		return uri, nil
	})
	clk := clock.NewFake(time.Unix(1000, 0))
	settled := make(chan struct{}, 4)
	p := NewPainter(
		WithImages(imagecache.New(fetch)),
		WithClock(clk),
		WithInvalidate(func() { settled <- struct{}{} }),
	)
	frame := Frame{
		Width: 100, Height: 100, Transform: viewport.Identity,
		Objects: []*model.Object{model.Image("I", 0, 0, 50, 50, "photo")},
	}
	tg := newTarget(t, 100, 100)
	wait := func(what string) {
		t.Helper()
		select {
		case <-settled:
		case <-time.After(5 * time.Second):
			t.Fatalf("%s never settled", what)
		}
	}

	p.Paint(tg.Context(), frame)
	wait("first load")
	if st := p.Paint(tg.Context(), frame); st.Failed != 1 {
		t.Fatalf("stats after failure = %+v, want one placeholder", st)
	}

	clk.Advance(DefaultRetryAfter / 2)
	p.Paint(tg.Context(), frame)
	if n := calls.Load(); n != 1 {
		t.Fatalf("fetch calls inside cooldown = %d, want 1", n)
	}

	clk.Advance(DefaultRetryAfter)
	p.Paint(tg.Context(), frame)
	wait("retry")
	st := p.Paint(tg.Context(), frame)
	if st.Failed != 0 || st.Pending != 0 {
		t.Fatalf("stats after retry = %+v", st)
	}
	if calls.Load() != 2 {
		t.Errorf("fetch calls = %d, want 2", calls.Load())
	}
	if !near(tg.Image(), 25, 25, color.RGBA{G: 255, A: 255}, 16) {
		t.Errorf("image pixel = %v, want green", tg.Image().At(25, 25))
	}
}
