package ggboard

import (
	"github.com/gogpu/ggboard/clock"
	"github.com/gogpu/ggboard/drag"
	"github.com/gogpu/ggboard/history"
	"github.com/gogpu/ggboard/imagecache"
	"github.com/gogpu/ggboard/offscreen"
	"github.com/gogpu/ggboard/render"
	"github.com/gogpu/ggboard/scheduler"
	"github.com/gogpu/ggboard/viewport"
)

// Engine defaults.
const (
	DefaultWidth  = 1280
	DefaultHeight = 800
)

// Option configures an Engine during creation.
//
// Example:
//
//	eng, err := ggboard.New(board,
//	    ggboard.WithSize(800, 600),
//	    ggboard.WithGrid(10),
//	)
type Option func(*options)

type options struct {
	width, height int
	overscan      float64

	fetcher           imagecache.Fetcher
	opener            imagecache.Opener
	imageCapacity     int
	offscreenCapacity int

	source  scheduler.FrameSource
	target  render.Target
	theme   *render.Theme
	clock   clock.Clock
	capture drag.PointerCapture
	notes   drag.NoteSync

	historyLimit   int
	grid           float64
	guides         bool
	guideThreshold float64
}

func defaultOptions() options {
	return options{
		width:             DefaultWidth,
		height:            DefaultHeight,
		overscan:          viewport.DefaultOverscan,
		imageCapacity:     imagecache.DefaultCapacity,
		offscreenCapacity: offscreen.DefaultCapacity,
		clock:             clock.Real(),
		historyLimit:      history.DefaultLimit,
		guideThreshold:    drag.DefaultGuideThreshold,
	}
}

// WithSize sets the viewport size in pixels. It also sizes the default
// target.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithOverscan sets the culling margin in screen pixels.
func WithOverscan(px float64) Option {
	return func(o *options) { o.overscan = px }
}

// WithFetcher sets the image fetch collaborator. Without one every image
// renders as a placeholder.
func WithFetcher(f imagecache.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithOpener replaces the reader used for fetched image references.
func WithOpener(op imagecache.Opener) Option {
	return func(o *options) { o.opener = op }
}

// WithImageCapacity bounds the decoded image cache.
func WithImageCapacity(n int) Option {
	return func(o *options) { o.imageCapacity = n }
}

// WithOffscreenCapacity bounds the composited bitmap cache.
func WithOffscreenCapacity(n int) Option {
	return func(o *options) { o.offscreenCapacity = n }
}

// WithFrameSource sets where redraws are scheduled. The default is a
// ticker at scheduler.DefaultFPS owned by the Engine.
func WithFrameSource(src scheduler.FrameSource) Option {
	return func(o *options) { o.source = src }
}

// WithTarget sets the surface frames are painted into. The default is a
// render.PixmapTarget of the viewport size owned by the Engine.
func WithTarget(t render.Target) Option {
	return func(o *options) { o.target = t }
}

// WithTheme sets the painter colors.
func WithTheme(t render.Theme) Option {
	return func(o *options) { o.theme = &t }
}

// WithClock sets the clock used by the drag throttle and history debounce.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithPointerCapture sets the pointer capture collaborator used by drags.
func WithPointerCapture(pc drag.PointerCapture) Option {
	return func(o *options) { o.capture = pc }
}

// WithNoteSync sets the collaborator told about moved objects. It is called
// after every position change: drags, edits and undo or redo.
func WithNoteSync(ns drag.NoteSync) Option {
	return func(o *options) { o.notes = ns }
}

// WithHistoryLimit bounds the undo and redo stacks.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithGrid snaps drag deltas to a grid of the given world size.
func WithGrid(size float64) Option {
	return func(o *options) { o.grid = size }
}

// WithGuides enables alignment guides while dragging.
func WithGuides(enabled bool) Option {
	return func(o *options) { o.guides = enabled }
}
