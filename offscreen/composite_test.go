package offscreen

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestCompositeScale(t *testing.T) {
	src := solid(4, 4, color.RGBA{G: 255, A: 255})
	e, err := Composite(src, 20, 10, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := e.Bitmap.Bounds(); w != 20 || h != 10 {
		t.Fatalf("bounds = %dx%d, want 20x10", w, h)
	}
	if e.OffsetX != 0 || e.OffsetY != 0 {
		t.Errorf("offset = %v,%v, want 0,0", e.OffsetX, e.OffsetY)
	}
	_, g, _, a := e.Bitmap.GetRGBA(10, 5)
	if g < 250 || a < 250 {
		t.Errorf("center pixel g=%d a=%d", g, a)
	}
}

func TestCompositeRotation(t *testing.T) {
	src := solid(4, 2, color.RGBA{B: 255, A: 255})
	e, err := Composite(src, 40, 20, math.Pi/2, 1)
	if err != nil {
		t.Fatal(err)
	}
	w, h := e.Bitmap.Bounds()
	if w != 20 || h != 40 {
		t.Fatalf("rotated bounds = %dx%d, want 20x40", w, h)
	}
	if e.OffsetX != 10 || e.OffsetY != -10 {
		t.Errorf("offset = %v,%v, want 10,-10", e.OffsetX, e.OffsetY)
	}
	if _, _, b, a := e.Bitmap.GetRGBA(10, 20); b < 250 || a < 250 {
		t.Errorf("center pixel b=%d a=%d", b, a)
	}
}

func TestCompositeOpacity(t *testing.T) {
	src := solid(4, 4, color.RGBA{R: 255, A: 255})
	e, err := Composite(src, 8, 8, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, a := e.Bitmap.GetRGBA(4, 4)
	if a < 120 || a > 136 {
		t.Errorf("alpha = %d, want about 128", a)
	}
}

func TestCompositeEmpty(t *testing.T) {
	if _, err := Composite(nil, 10, 10, 0, 1); !errors.Is(err, ErrEmptySource) {
		t.Errorf("nil source: err = %v", err)
	}
	src := solid(2, 2, color.RGBA{A: 255})
	if _, err := Composite(src, 0, 10, 0, 1); !errors.Is(err, ErrEmptySource) {
		t.Errorf("zero width: err = %v", err)
	}
}
