package drag

import (
	"math"

	"github.com/gogpu/ggboard/geometry"
)

// DefaultGuideThreshold is the alignment snapping distance in screen pixels.
const DefaultGuideThreshold = 6.0

// Orientation of a guide line.
type Orientation uint8

const (
	// Vertical guides align x coordinates.
	Vertical Orientation = iota
	// Horizontal guides align y coordinates.
	Horizontal
)

// GuideKind says which features aligned.
type GuideKind uint8

const (
	// GuideEdge aligns edges.
	GuideEdge GuideKind = iota
	// GuideCenter aligns centers.
	GuideCenter
)

// Guide is an alignment line shown while dragging, in world coordinates.
type Guide struct {
	Orientation Orientation
	Kind        GuideKind
	Position    float64
	From, To    geometry.Point
}

type candidate struct {
	delta float64
	dist  float64
	guide Guide
	found bool
}

func (c *candidate) consider(delta, threshold float64, g Guide) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	if !c.found || dist < c.dist {
		*c = candidate{delta: delta, dist: dist, guide: g, found: true}
	}
}

// SnapToGuides aligns moving against the anchor rectangles. It returns the
// correction to add to moving's position on each axis and the guides that
// produced it. Axes snap independently; edges snap to edges (including
// abutting) and centers to centers.
func SnapToGuides(moving geometry.Rect, anchors []geometry.Rect, threshold float64) (dx, dy float64, guides []Guide) {
	if threshold <= 0 {
		threshold = DefaultGuideThreshold
	}
	var bx, by candidate
	mc := moving.Center()

	for _, a := range anchors {
		ac := a.Center()

		bx.consider(a.Left()-moving.Left(), threshold, vertical(a.Left(), moving, a, GuideEdge))
		bx.consider(a.Right()-moving.Right(), threshold, vertical(a.Right(), moving, a, GuideEdge))
		bx.consider(a.Right()-moving.Left(), threshold, vertical(a.Right(), moving, a, GuideEdge))
		bx.consider(a.Left()-moving.Right(), threshold, vertical(a.Left(), moving, a, GuideEdge))
		bx.consider(ac.X-mc.X, threshold, vertical(ac.X, moving, a, GuideCenter))

		by.consider(a.Top()-moving.Top(), threshold, horizontal(a.Top(), moving, a, GuideEdge))
		by.consider(a.Bottom()-moving.Bottom(), threshold, horizontal(a.Bottom(), moving, a, GuideEdge))
		by.consider(a.Bottom()-moving.Top(), threshold, horizontal(a.Bottom(), moving, a, GuideEdge))
		by.consider(a.Top()-moving.Bottom(), threshold, horizontal(a.Top(), moving, a, GuideEdge))
		by.consider(ac.Y-mc.Y, threshold, horizontal(ac.Y, moving, a, GuideCenter))
	}

	if bx.found {
		dx = bx.delta
		guides = append(guides, bx.guide)
	}
	if by.found {
		dy = by.delta
		guides = append(guides, by.guide)
	}
	return dx, dy, guides
}

func vertical(x float64, a, b geometry.Rect, kind GuideKind) Guide {
	return Guide{
		Orientation: Vertical,
		Kind:        kind,
		Position:    x,
		From:        geometry.Pt(x, math.Min(a.Top(), b.Top())),
		To:          geometry.Pt(x, math.Max(a.Bottom(), b.Bottom())),
	}
}

func horizontal(y float64, a, b geometry.Rect, kind GuideKind) Guide {
	return Guide{
		Orientation: Horizontal,
		Kind:        kind,
		Position:    y,
		From:        geometry.Pt(math.Min(a.Left(), b.Left()), y),
		To:          geometry.Pt(math.Max(a.Right(), b.Right()), y),
	}
}
