package render

import (
	"sort"
	"sync"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggboard/clock"
	"github.com/gogpu/ggboard/geometry"
	"github.com/gogpu/ggboard/imagecache"
	"github.com/gogpu/ggboard/model"
	"github.com/gogpu/ggboard/offscreen"
	"github.com/gogpu/ggboard/viewport"
)

// DefaultRetryAfter is how long a failed image shows its placeholder before
// the next painted frame resolves it again.
const DefaultRetryAfter = 2 * time.Second

// Theme holds the painter colors as hex strings.
type Theme struct {
	Background string
	CardFill   string
	CardStroke string
	Sticker    string
	Avatar     string
	Text       string
	Selection  string
	Marquee    string
	Preview    string
	Guide      string
	Skeleton   string
}

// DefaultTheme returns the light board theme.
func DefaultTheme() Theme {
	return Theme{
		Background: "#f7f8fa",
		CardFill:   "#ffffff",
		CardStroke: "#d0d5dd",
		Sticker:    "#ffe08a",
		Avatar:     "#7c8cf8",
		Text:       "#1f2430",
		Selection:  "#2f80ed",
		Marquee:    "#2f80ed33",
		Preview:    "#2f80ed",
		Guide:      "#ff2d95",
		Skeleton:   "#e4e7ec",
	}
}

// Option configures a Painter.
type Option func(*Painter)

// WithImages sets the source bitmap cache. Without it images draw as
// placeholders.
func WithImages(c *imagecache.Cache) Option {
	return func(p *Painter) { p.images = c }
}

// WithOffscreen sets the composited bitmap cache.
func WithOffscreen(c *offscreen.Cache) Option {
	return func(p *Painter) { p.bitmaps = c }
}

// WithInvalidate sets the callback run when an image finishes loading.
// It is typically Scheduler.Invalidate.
func WithInvalidate(fn func()) Option {
	return func(p *Painter) { p.invalidate = fn }
}

// WithTheme sets the painter colors.
func WithTheme(t Theme) Option {
	return func(p *Painter) { p.theme = t }
}

// WithClock sets the clock the failed-image cooldown is measured on.
func WithClock(c clock.Clock) Option {
	return func(p *Painter) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithRetryAfter sets the failed-image cooldown.
func WithRetryAfter(d time.Duration) Option {
	return func(p *Painter) { p.retryAfter = d }
}

// Painter draws frames. It is safe for concurrent use, but a gg.Context
// must only be painted by one goroutine at a time.
type Painter struct {
	images     *imagecache.Cache
	bitmaps    *offscreen.Cache
	invalidate func()
	theme      Theme
	clock      clock.Clock
	retryAfter time.Duration

	mu       sync.Mutex
	loading  map[string]struct{}
	failedAt map[string]time.Time
}

// NewPainter returns a painter with the default theme and a private
// offscreen cache.
func NewPainter(opts ...Option) *Painter {
	p := &Painter{
		theme:      DefaultTheme(),
		clock:      clock.Real(),
		retryAfter: DefaultRetryAfter,
		loading:    make(map[string]struct{}),
		failedAt:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bitmaps == nil {
		p.bitmaps = offscreen.New(offscreen.DefaultCapacity)
	}
	return p
}

// Offscreen returns the composited bitmap cache.
func (p *Painter) Offscreen() *offscreen.Cache { return p.bitmaps }

// Paint draws f into dc.
func (p *Painter) Paint(dc *gg.Context, f Frame) Stats {
	var st Stats
	dc.ClearWithColor(gg.Hex(p.theme.Background))

	t := f.Transform
	visible := viewport.VisibleRect(t, float64(f.Width), float64(f.Height), f.Overscan)
	objs := viewport.Cull(f.Objects, visible)
	st.Culled = len(f.Objects) - len(objs)

	items := make([]item, 0, len(objs)+len(f.Connections))
	for _, o := range objs {
		items = append(items, item{z: o.Z, id: o.ID, obj: o})
	}
	items = append(items, p.connectorItems(f, visible)...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].z != items[j].z {
			return items[i].z < items[j].z
		}
		return items[i].id < items[j].id
	})

	for i := range items {
		it := &items[i]
		if it.conn != nil {
			p.drawConnector(dc, t, it.conn, it.path)
			st.Connections++
			continue
		}
		switch it.obj.Kind {
		case model.KindCard:
			p.drawCard(dc, t, it.obj)
		case model.KindSticker:
			p.drawSticker(dc, t, it.obj)
		case model.KindAvatar:
			p.drawAvatar(dc, t, it.obj)
		case model.KindImage:
			p.drawImage(dc, t, it.obj, &st)
		}
		st.Objects++
	}

	p.drawSelection(dc, t, objs)
	if f.HasMarquee {
		p.drawMarquee(dc, t, f.Marquee)
	}
	if len(f.Preview) > 1 {
		p.drawPreview(dc, t, f.Preview)
	}
	p.drawGuides(dc, t, f)
	return st
}

// connectorItems routes every connection whose ends exist and whose path
// touches the visible rect.
func (p *Painter) connectorItems(f Frame, visible geometry.Rect) []item {
	if len(f.Connections) == 0 {
		return nil
	}
	byID := make(map[string]*model.Object, len(f.Objects))
	for _, o := range f.Objects {
		byID[o.ID] = o
	}
	var out []item
	for i := range f.Connections {
		c := &f.Connections[i]
		from, ok1 := byID[c.FromID]
		to, ok2 := byID[c.ToID]
		if !ok1 || !ok2 {
			continue
		}
		path := geometry.Route(from.Bounds(), c.FromSide, to.Bounds(), c.ToSide, geometry.DefaultStandOff)
		if !viewport.IsVisible(path.Bounds(), visible) {
			continue
		}
		out = append(out, item{z: model.ConnectorZ, id: c.ID, conn: c, path: path})
	}
	return out
}

// drawImage draws an image object from the offscreen cache, starting an
// async load on first sight of its source.
func (p *Painter) drawImage(dc *gg.Context, t viewport.Transform, o *model.Object, st *Stats) {
	props := o.Image
	if props == nil {
		props = &model.ImageProps{Opacity: 1}
	}
	tier := offscreen.TierForZoom(zoomOf(t))
	ref := props.Source
	if tier == offscreen.TierPreview && props.Preview != "" {
		ref = props.Preview
	} else {
		tier = offscreen.TierFull
	}

	state := imagecache.StateFailed
	var src *gg.ImageBuf
	if p.images != nil && ref != "" {
		src, state = p.images.Peek(ref)
	}

	switch state {
	case imagecache.StateMissing:
		p.load(ref)
		fallthrough
	case imagecache.StatePending:
		p.drawSkeleton(dc, t, o)
		st.Pending++
		return
	case imagecache.StateFailed:
		if p.images != nil && ref != "" {
			p.retry(ref)
		}
		p.drawPlaceholder(dc, t, o, ref)
		st.Failed++
		return
	}

	fp := offscreen.Fingerprint{
		W: o.W, H: o.H,
		Rotation: props.Rotation,
		Opacity:  props.Opacity,
		Source:   ref,
		Content:  props.Fingerprint,
		Tier:     tier,
	}
	e, err := p.bitmaps.Acquire(o.ID, fp, func() (*offscreen.Entry, error) {
		return offscreen.Composite(src, o.W, o.H, props.Rotation, props.Opacity)
	})
	if err != nil {
		p.drawPlaceholder(dc, t, o, ref)
		st.Failed++
		return
	}
	p.blit(dc, t, e, o)
}

// load starts one async resolve per ref; the frame is invalidated when it
// settles so the next paint picks up the result.
func (p *Painter) load(ref string) {
	p.mu.Lock()
	if _, ok := p.loading[ref]; ok {
		p.mu.Unlock()
		return
	}
	p.loading[ref] = struct{}{}
	p.mu.Unlock()

	p.images.ResolveAsync(ref, func(_ *gg.ImageBuf, err error) {
		p.mu.Lock()
		delete(p.loading, ref)
		if err != nil {
			p.failedAt[ref] = p.clock.Now()
		} else {
			delete(p.failedAt, ref)
		}
		p.mu.Unlock()
		if p.invalidate != nil {
			p.invalidate()
		}
	})
}

// retry resolves a failed ref again once its cooldown has passed. A failure
// the painter did not see start counts from now.
func (p *Painter) retry(ref string) {
	now := p.clock.Now()
	p.mu.Lock()
	at, ok := p.failedAt[ref]
	if !ok {
		p.failedAt[ref] = now
	}
	due := ok && now.Sub(at) >= p.retryAfter
	p.mu.Unlock()
	if due {
		p.load(ref)
	}
}

func (p *Painter) drawPlaceholder(dc *gg.Context, t viewport.Transform, o *model.Object, ref string) {
	fp := offscreen.Fingerprint{W: o.W, H: o.H, Source: ref, Content: "placeholder"}
	e, err := p.bitmaps.Acquire(o.ID, fp, func() (*offscreen.Entry, error) {
		return &offscreen.Entry{Bitmap: imagecache.Placeholder(int(o.W), int(o.H), "image unavailable")}, nil
	})
	if err != nil {
		p.drawSkeleton(dc, t, o)
		return
	}
	p.blit(dc, t, e, o)
}

// blit draws a cached bitmap at the object's position, scaled to screen.
func (p *Painter) blit(dc *gg.Context, t viewport.Transform, e *offscreen.Entry, o *model.Object) {
	bw, bh := e.Bitmap.Bounds()
	at := t.WorldToScreen(geometry.Pt(o.X+e.OffsetX, o.Y+e.OffsetY))
	z := zoomOf(t)
	dc.DrawImageEx(e.Bitmap, gg.DrawImageOptions{
		X:         at.X,
		Y:         at.Y,
		DstWidth:  float64(bw) * z,
		DstHeight: float64(bh) * z,
	})
}

func zoomOf(t viewport.Transform) float64 {
	if t.Zoom <= 0 {
		return 1
	}
	return t.Zoom
}
