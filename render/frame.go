// Package render paints a board frame into a gg.Context.
//
// A frame is painted in a fixed order: clear, cull to the visible rect,
// sort by zIndex, draw each item, then draw the interaction decorations
// (selection outlines, marquee, connector preview and alignment guides) on
// top. World coordinates are mapped to screen pixels by the frame's
// viewport transform.
package render

import (
	"github.com/gogpu/ggboard/drag"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/viewport"
)

// Frame is everything needed to paint one frame.
type Frame struct {
	// Width and Height of the target in pixels.
	Width, Height int

	Transform viewport.Transform

	// Overscan in screen pixels around the visible rect.
	Overscan float64

	Objects     []*model.Object
	Connections []model.Connection

	// Marquee is the live selection rectangle in world coordinates.
	Marquee    geometry.Rect
	HasMarquee bool

	// Preview is the live connector preview in world coordinates.
	Preview geometry.Path

	Guides []drag.Guide
}

// Stats describes what a Paint call did.
type Stats struct {
	Objects     int // drawn objects
	Connections int // drawn connectors
	Culled      int // objects skipped by the viewport
	Pending     int // images shown as skeletons
	Failed      int // images shown as placeholders
}

// item is one z-ordered drawable.
type item struct {
	z    int
	id   string
	obj  *model.Object
	conn *model.Connection
	path geometry.Path
}
