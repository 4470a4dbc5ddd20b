package render

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/integration/ggcanvas"
	"github.com/gogpu/gpucontext"
)

// ErrInvalidSize is returned for non-positive target dimensions.
var ErrInvalidSize = errors.New("render: invalid target size")

// Target is a surface a frame can be painted into and presented from.
type Target interface {
	// Context returns the drawing context for the next frame.
	Context() *gg.Context

	// Size returns the target size in pixels.
	Size() (width, height int)

	// Resize changes the target size. Contents are not preserved.
	Resize(width, height int) error

	// Present publishes the painted frame.
	Present() error

	Close() error
}

// PixmapTarget is a CPU-only target backed by a software gg.Context.
type PixmapTarget struct {
	dc *gg.Context
}

// NewPixmapTarget returns a software target of the given size.
func NewPixmapTarget(width, height int) (*PixmapTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &PixmapTarget{dc: gg.NewContext(width, height)}, nil
}

// Context returns the drawing context.
func (t *PixmapTarget) Context() *gg.Context { return t.dc }

// Size returns the target size in pixels.
func (t *PixmapTarget) Size() (width, height int) {
	return t.dc.Width(), t.dc.Height()
}

// Resize changes the target size.
func (t *PixmapTarget) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return t.dc.Resize(width, height)
}

// Present is a no-op; the pixels are read through Image or EncodePNG.
func (t *PixmapTarget) Present() error { return nil }

// Image returns the painted frame.
func (t *PixmapTarget) Image() image.Image { return t.dc.Image() }

// EncodePNG writes the painted frame as PNG.
func (t *PixmapTarget) EncodePNG(w io.Writer) error { return t.dc.EncodePNG(w) }

// Close releases the drawing context.
func (t *PixmapTarget) Close() error { return t.dc.Close() }

// CanvasTarget presents frames on the GPU through a ggcanvas.Canvas. The
// host supplies the device provider and draws the texture with RenderTo.
type CanvasTarget struct {
	canvas *ggcanvas.Canvas
}

// NewCanvasTarget returns a GPU-presented target.
func NewCanvasTarget(provider gpucontext.DeviceProvider, width, height int) (*CanvasTarget, error) {
	c, err := ggcanvas.New(provider, width, height)
	if err != nil {
		return nil, fmt.Errorf("render: canvas target: %w", err)
	}
	return &CanvasTarget{canvas: c}, nil
}

// Context returns the canvas drawing context, or nil once closed.
func (t *CanvasTarget) Context() *gg.Context { return t.canvas.Context() }

// Size returns the target size in pixels.
func (t *CanvasTarget) Size() (width, height int) { return t.canvas.Size() }

// Resize changes the canvas size.
func (t *CanvasTarget) Resize(width, height int) error { return t.canvas.Resize(width, height) }

// Present marks the canvas dirty and uploads it.
func (t *CanvasTarget) Present() error {
	t.canvas.MarkDirty()
	_, err := t.canvas.Flush()
	return err
}

// RenderTo draws the presented frame with the host's texture drawer.
func (t *CanvasTarget) RenderTo(dc gpucontext.TextureDrawer) error {
	return t.canvas.RenderTo(dc)
}

// Canvas returns the underlying canvas.
func (t *CanvasTarget) Canvas() *ggcanvas.Canvas { return t.canvas }

// Close releases the canvas and its textures.
func (t *CanvasTarget) Close() error { return t.canvas.Close() }

var (
	_ Target = (*PixmapTarget)(nil)
	_ Target = (*CanvasTarget)(nil)
)
