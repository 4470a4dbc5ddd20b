package imagecache

import (
	"github.com/gogpu/gg"

	"github.com/gogpu/ggboard/internal/font"
)

// Placeholder colors.
var (
	placeholderFill   = gg.Hex("#eceff3")
	placeholderStroke = gg.Hex("#b8c0cc")
	placeholderText   = gg.Hex("#6b7380")
)

// Placeholder renders the bitmap drawn in place of an image that failed to
// load: a neutral box with a diagonal cross and an optional label.
func Placeholder(w, h int, label string) *gg.ImageBuf {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dc := gg.NewContext(w, h)
	defer dc.Close()

	dc.ClearWithColor(placeholderFill)

	fw, fh := float64(w), float64(h)
	dc.SetColor(placeholderStroke.Color())
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, fw-1, fh-1)
	_ = dc.Stroke()
	dc.DrawLine(0, 0, fw, fh)
	dc.DrawLine(fw, 0, 0, fh)
	_ = dc.Stroke()

	if label != "" && w >= 32 && h >= 16 {
		size := fh / 6
		if size > 14 {
			size = 14
		}
		if size < 8 {
			size = 8
		}
		if face := font.Face(size); face != nil {
			dc.SetFont(face)
			dc.SetColor(placeholderText.Color())
			dc.DrawStringAnchored(label, fw/2, fh/2, 0.5, 0.5)
		}
	}
	return gg.ImageBufFromImage(dc.Image())
}
