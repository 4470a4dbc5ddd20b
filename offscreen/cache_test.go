package offscreen

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gg"
)

func solid(w, h int, c color.RGBA) *gg.ImageBuf {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return gg.ImageBufFromImage(img)
}

func TestAcquireReusesUntilFingerprintChanges(t *testing.T) {
	c := New(0)
	src := solid(8, 8, color.RGBA{R: 255, A: 255})
	builds := 0
	build := func(fp Fingerprint) func() (*Entry, error) {
		return func() (*Entry, error) {
			builds++
			return Composite(src, fp.W, fp.H, fp.Rotation, fp.Opacity)
		}
	}

	base := Fingerprint{W: 40, H: 20, Rotation: 0, Opacity: 1, Source: "img-1"}
	first, err := c.Acquire("obj", base, build(base))
	if err != nil {
		t.Fatal(err)
	}
	// Repeated frames at different positions reuse the same bitmap.
	for i := 0; i < 3; i++ {
		got, err := c.Acquire("obj", base, build(base))
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatal("unchanged fingerprint must return the same entry")
		}
	}
	if builds != 1 {
		t.Fatalf("builds = %d, want 1", builds)
	}

	tests := []struct {
		name   string
		mutate func(*Fingerprint)
	}{
		{"rotation", func(f *Fingerprint) { f.Rotation = math.Pi / 6 }},
		{"opacity", func(f *Fingerprint) { f.Opacity = 0.4 }},
		{"size", func(f *Fingerprint) { f.W = 80 }},
		{"source", func(f *Fingerprint) { f.Source = "img-2" }},
		{"content", func(f *Fingerprint) { f.Content = "hash-2" }},
		{"tier", func(f *Fingerprint) { f.Tier = TierPreview }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := base
			tt.mutate(&fp)
			before := builds
			got, err := c.Acquire("obj", fp, build(fp))
			if err != nil {
				t.Fatal(err)
			}
			if builds != before+1 {
				t.Error("changed fingerprint must rebuild")
			}
			if got.Fingerprint() != fp {
				t.Errorf("entry fingerprint = %+v, want %+v", got.Fingerprint(), fp)
			}
		})
	}
}

func TestAcquireBuildFailureDropsStale(t *testing.T) {
	c := New(4)
	fp := Fingerprint{W: 1, H: 1, Opacity: 1}
	if _, err := c.Acquire("a", fp, func() (*Entry, error) { return &Entry{}, nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	fp.W = 2
	if _, err := c.Acquire("a", fp, func() (*Entry, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if _, ok := c.Peek("a"); ok {
		t.Error("stale entry kept after failed rebuild")
	}
	if _, err := c.Acquire("a", fp, func() (*Entry, error) { return nil, nil }); !errors.Is(err, ErrNilEntry) {
		t.Errorf("nil entry: err = %v", err)
	}
}

func TestCacheEviction(t *testing.T) {
	c := New(2)
	fp := Fingerprint{W: 1, H: 1, Opacity: 1}
	mk := func() (*Entry, error) { return &Entry{}, nil }
	for _, id := range []string{"a", "b", "c"} {
		if _, err := c.Acquire(id, fp, mk); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Peek("a"); ok {
		t.Error("least recently used entry not evicted")
	}
	c.Invalidate("b")
	if c.Len() != 1 {
		t.Errorf("Len() after Invalidate = %d", c.Len())
	}
	c.Clear()
	if s := c.Stats(); s.Entries != 0 || s.Evictions != 1 || s.Misses != 3 {
		t.Errorf("stats = %+v", s)
	}
}

func TestTierForZoom(t *testing.T) {
	tests := []struct {
		zoom float64
		want Tier
	}{
		{0.1, TierPreview},
		{0.49, TierPreview},
		{0.5, TierFull},
		{2, TierFull},
	}
	for _, tt := range tests {
		if got := TierForZoom(tt.zoom); got != tt.want {
			t.Errorf("TierForZoom(%v) = %v, want %v", tt.zoom, got, tt.want)
		}
	}
}
