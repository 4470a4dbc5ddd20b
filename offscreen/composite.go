package offscreen

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/ggboard/geometry"
)

// ErrEmptySource is returned by Composite for a nil or zero-sized source.
var ErrEmptySource = errors.New("offscreen: empty source bitmap")

// epsilon absorbs trigonometric noise so a quarter turn keeps exact bounds.
const epsilon = 1e-9

// Composite scales src to w×h, rotates it by rotation radians about its
// center and applies opacity. The result is sized to the rotated bounding
// box; its offsets place it relative to the unrotated top-left corner.
func Composite(src *gg.ImageBuf, w, h, rotation, opacity float64) (*Entry, error) {
	if src == nil || src.IsEmpty() {
		return nil, ErrEmptySource
	}
	if w <= 0 || h <= 0 {
		return nil, ErrEmptySource
	}
	opacity = math.Max(0, math.Min(1, opacity))

	bw, bh := geometry.RotatedBounds(w, h, rotation)
	dw, dh := int(math.Ceil(bw-epsilon)), int(math.Ceil(bh-epsilon))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	img := src.ToStdImage()
	sb := img.Bounds()
	sx := w / float64(sb.Dx())
	sy := h / float64(sb.Dy())
	sin, cos := math.Sincos(rotation)

	// Source pixel p maps to R·(S·(p-min) - size/2) + bounds/2.
	a, b := cos*sx, -sin*sy
	d, e := sin*sx, cos*sy
	cx := -cos*w/2 + sin*h/2 + float64(dw)/2
	cy := -sin*w/2 - cos*h/2 + float64(dh)/2
	m := f64.Aff3{
		a, b, cx - a*float64(sb.Min.X) - b*float64(sb.Min.Y),
		d, e, cy - d*float64(sb.Min.X) - e*float64(sb.Min.Y),
	}

	var opts *xdraw.Options
	if opacity < 1 {
		opts = &xdraw.Options{
			SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))}),
		}
	}
	xdraw.BiLinear.Transform(dst, m, img, sb, xdraw.Over, opts)

	return &Entry{
		Bitmap:  gg.ImageBufFromImage(dst),
		OffsetX: (w - float64(dw)) / 2,
		OffsetY: (h - float64(dh)) / 2,
	}, nil
}
