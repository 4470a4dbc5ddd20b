package imagecache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFileOpener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"path", path, "abc"},
		{"file url", "file://" + filepath.ToSlash(path), "abc"},
		{"data base64", "data:text/plain;base64,YWJj", "abc"},
		{"data plain", "data:,a%20b", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := FileOpener{}.Open(context.Background(), tt.ref)
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			got, _ := io.ReadAll(rc)
			if string(got) != tt.want {
				t.Errorf("read %q, want %q", got, tt.want)
			}
		})
	}

	for _, ref := range []string{"https://example.com/x.png", "data:nocomma"} {
		if _, err := (FileOpener{}).Open(context.Background(), ref); !errors.Is(err, ErrUnsupportedRef) {
			t.Errorf("Open(%q) err = %v, want ErrUnsupportedRef", ref, err)
		}
	}
}

func TestDirFetcher(t *testing.T) {
	f := DirFetcher{Dir: "/tmp/images"}
	got, _ := f.GetImageURL(context.Background(), "a.png")
	if want := filepath.Join("/tmp/images", "a.png"); got != want {
		t.Errorf("GetImageURL = %q, want %q", got, want)
	}
	got, _ = f.GetImageURL(context.Background(), "data:,x")
	if got != "data:,x" {
		t.Errorf("data URI rewritten to %q", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	rc, _ := FileOpener{}.Open(context.Background(), "data:,not-an-image")
	if _, err := Decode(rc); err == nil {
		t.Error("expected decode error")
	}
}

func TestPlaceholder(t *testing.T) {
	bmp := Placeholder(120, 80, "missing")
	if w, h := bmp.Bounds(); w != 120 || h != 80 {
		t.Fatalf("bounds = %dx%d", w, h)
	}
	// Interior away from the cross keeps the neutral fill.
	r, g, b, a := bmp.GetRGBA(60, 8)
	if a != 255 || r < 200 || g < 200 || b < 200 {
		t.Errorf("fill pixel = %d,%d,%d,%d", r, g, b, a)
	}

	tiny := Placeholder(0, -3, "")
	if w, h := tiny.Bounds(); w != 1 || h != 1 {
		t.Errorf("tiny bounds = %dx%d, want 1x1", w, h)
	}
}
