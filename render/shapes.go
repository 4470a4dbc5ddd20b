package render

import (
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggboard/drag"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/internal/font"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/viewport"
)

const (
	cardRadius    = 8.0
	labelSize     = 14.0
	minLabelSize  = 6.0
	maxLabelSize  = 48.0
	selectionPad  = 4.0 // screen pixels
	arrowLength   = 10.0
	arrowHalfBase = 4.0
)

func screenRect(t viewport.Transform, r geometry.Rect) geometry.Rect {
	tl := t.WorldToScreen(geometry.Pt(r.X, r.Y))
	z := zoomOf(t)
	return geometry.Rect{X: tl.X, Y: tl.Y, W: r.W * z, H: r.H * z}
}

func fillOr(c, fallback string) gg.RGBA {
	if c != "" {
		return gg.Hex(c)
	}
	return gg.Hex(fallback)
}

func (p *Painter) drawCard(dc *gg.Context, t viewport.Transform, o *model.Object) {
	r := screenRect(t, o.Bounds())
	rad := math.Min(cardRadius*zoomOf(t), math.Min(r.W, r.H)/2)

	dc.SetColor(fillOr(o.Color, p.theme.CardFill).Color())
	dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, rad)
	_ = dc.Fill()

	dc.SetColor(gg.Hex(p.theme.CardStroke).Color())
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, rad)
	_ = dc.Stroke()

	p.drawLabel(dc, t, r, o.Text)
}

func (p *Painter) drawSticker(dc *gg.Context, t viewport.Transform, o *model.Object) {
	r := screenRect(t, o.Bounds())
	dc.SetColor(fillOr(o.Color, p.theme.Sticker).Color())
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	_ = dc.Fill()
	p.drawLabel(dc, t, r, o.Text)
}

func (p *Painter) drawAvatar(dc *gg.Context, t viewport.Transform, o *model.Object) {
	r := screenRect(t, o.Bounds())
	c := r.Center()
	rad := math.Min(r.W, r.H) / 2

	dc.SetColor(fillOr(o.Color, p.theme.Avatar).Color())
	dc.DrawCircle(c.X, c.Y, rad)
	_ = dc.Fill()

	if ch, _ := utf8.DecodeRuneInString(o.Text); ch != utf8.RuneError {
		face := font.Face(clampLabel(rad))
		if face == nil {
			return
		}
		dc.SetFont(face)
		dc.SetColor(gg.Hex("#ffffff").Color())
		dc.DrawStringAnchored(string(unicode.ToUpper(ch)), c.X, c.Y, 0.5, 0.35)
	}
}

// drawLabel centers text in r when it is large enough to read.
func (p *Painter) drawLabel(dc *gg.Context, t viewport.Transform, r geometry.Rect, s string) {
	if s == "" || r.W < 24 || r.H < 12 {
		return
	}
	face := font.Face(clampLabel(labelSize * zoomOf(t)))
	if face == nil {
		return
	}
	dc.SetFont(face)
	dc.SetColor(gg.Hex(p.theme.Text).Color())
	c := r.Center()
	dc.DrawStringAnchored(s, c.X, c.Y, 0.5, 0.35)
}

func clampLabel(size float64) float64 {
	return math.Max(minLabelSize, math.Min(maxLabelSize, size))
}

func (p *Painter) drawSkeleton(dc *gg.Context, t viewport.Transform, o *model.Object) {
	r := screenRect(t, o.Bounds())
	dc.SetColor(gg.Hex(p.theme.Skeleton).Color())
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	_ = dc.Fill()
}

func (p *Painter) drawConnector(dc *gg.Context, t viewport.Transform, c *model.Connection, path geometry.Path) {
	width := c.Thickness
	if width <= 0 {
		width = model.DefaultConnectionThickness
	}
	dc.SetColor(fillOr(c.Color, model.DefaultConnectionColor).Color())
	dc.SetLineWidth(math.Max(1, width*zoomOf(t)))
	strokePath(dc, t, path)
	drawArrow(dc, t, path)
}

func strokePath(dc *gg.Context, t viewport.Transform, path geometry.Path) {
	for i, wp := range path {
		sp := t.WorldToScreen(wp)
		if i == 0 {
			dc.MoveTo(sp.X, sp.Y)
			continue
		}
		dc.LineTo(sp.X, sp.Y)
	}
	_ = dc.Stroke()
}

// drawArrow fills an arrowhead at the end of path in the current color.
func drawArrow(dc *gg.Context, t viewport.Transform, path geometry.Path) {
	n := len(path)
	if n < 2 {
		return
	}
	tip := t.WorldToScreen(path[n-1])
	prev := t.WorldToScreen(path[n-2])
	d := tip.Dist(prev)
	if d == 0 {
		return
	}
	ux, uy := (tip.X-prev.X)/d, (tip.Y-prev.Y)/d
	bx, by := tip.X-ux*arrowLength, tip.Y-uy*arrowLength
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(bx-uy*arrowHalfBase, by+ux*arrowHalfBase)
	dc.LineTo(bx+uy*arrowHalfBase, by-ux*arrowHalfBase)
	dc.ClosePath()
	_ = dc.Fill()
}

// drawSelection outlines selected objects.
func (p *Painter) drawSelection(dc *gg.Context, t viewport.Transform, objs []*model.Object) {
	dc.SetColor(gg.Hex(p.theme.Selection).Color())
	dc.SetLineWidth(2)
	for _, o := range objs {
		if !o.Selected {
			continue
		}
		r := screenRect(t, o.Bounds()).Expand(selectionPad)
		if o.Kind == model.KindAvatar {
			c := r.Center()
			dc.DrawCircle(c.X, c.Y, math.Min(r.W, r.H)/2)
		} else {
			dc.DrawRectangle(r.X, r.Y, r.W, r.H)
		}
		_ = dc.Stroke()
	}
}

func (p *Painter) drawMarquee(dc *gg.Context, t viewport.Transform, m geometry.Rect) {
	r := screenRect(t, m)
	dc.SetColor(gg.Hex(p.theme.Marquee).Color())
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	_ = dc.Fill()
	dc.SetColor(gg.Hex(p.theme.Selection).Color())
	dc.SetLineWidth(1)
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	_ = dc.Stroke()
}

func (p *Painter) drawPreview(dc *gg.Context, t viewport.Transform, path geometry.Path) {
	dc.SetColor(gg.Hex(p.theme.Preview).Color())
	dc.SetLineWidth(2)
	dc.SetDash(6, 4)
	strokePath(dc, t, path)
	dc.ClearDash()
	drawArrow(dc, t, path)
}

func (p *Painter) drawGuides(dc *gg.Context, t viewport.Transform, f Frame) {
	if len(f.Guides) == 0 {
		return
	}
	dc.SetColor(gg.Hex(p.theme.Guide).Color())
	dc.SetLineWidth(1)
	for _, g := range f.Guides {
		a := t.WorldToScreen(g.From)
		b := t.WorldToScreen(g.To)
		if g.Kind == drag.GuideCenter {
			dc.SetDash(4, 3)
		}
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
		_ = dc.Stroke()
		dc.ClearDash()
	}
}
