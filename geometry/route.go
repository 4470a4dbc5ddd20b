package geometry

import (
	"fmt"
	"math"
)

// Side identifies one edge of an object's bounding box.
type Side uint8

// Connector sides.
const (
	SideTop Side = iota
	SideBottom
	SideLeft
	SideRight
)

// DefaultStandOff is the distance a connector travels straight out of its
// anchor before turning.
const DefaultStandOff = 20.0

// String returns the lowercase side name.
func (s Side) String() string {
	switch s {
	case SideTop:
		return "top"
	case SideBottom:
		return "bottom"
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", s)
	}
}

// ParseSide converts a side name back to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "top":
		return SideTop, nil
	case "bottom":
		return SideBottom, nil
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	}
	return 0, fmt.Errorf("geometry: unknown side %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Horizontal reports whether the side faces along the x axis (left or right).
func (s Side) Horizontal() bool {
	return s == SideLeft || s == SideRight
}

// Normal returns the outward unit vector of the side.
func (s Side) Normal() Point {
	switch s {
	case SideTop:
		return Point{Y: -1}
	case SideBottom:
		return Point{Y: 1}
	case SideLeft:
		return Point{X: -1}
	default:
		return Point{X: 1}
	}
}

// Anchor returns the midpoint of the given side of r.
func Anchor(r Rect, s Side) Point {
	switch s {
	case SideTop:
		return Point{X: r.X + r.W/2, Y: r.Top()}
	case SideBottom:
		return Point{X: r.X + r.W/2, Y: r.Bottom()}
	case SideLeft:
		return Point{X: r.Left(), Y: r.Y + r.H/2}
	default:
		return Point{X: r.Right(), Y: r.Y + r.H/2}
	}
}

// Path is an orthogonal polyline.
type Path []Point

// Segments returns the number of line segments in the path.
func (p Path) Segments() int {
	if len(p) < 2 {
		return 0
	}
	return len(p) - 1
}

// Bounds returns the bounding box of all points.
func (p Path) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{X: p[0].X, Y: p[0].Y}
	for _, pt := range p[1:] {
		r = r.Union(Rect{X: pt.X, Y: pt.Y})
	}
	return r
}

// Route builds the connector path between two object rectangles.
//
// Each anchor is pushed outward along its side by standOff. The two offset
// points are joined by one elbow: when the source side is left or right the
// elbow keeps the source offset's x, otherwise it keeps the source offset's y.
// Consecutive duplicate points are dropped, and interior points lying on a
// straight run are collapsed, so aligned anchors produce a single segment.
func Route(from Rect, fromSide Side, to Rect, toSide Side, standOff float64) Path {
	a := Anchor(from, fromSide)
	b := Anchor(to, toSide)
	return RoutePoints(a, fromSide, b, toSide, standOff)
}

// RoutePoints is Route for explicit anchor points. The preview edge uses it
// with the pointer as the free end.
func RoutePoints(a Point, fromSide Side, b Point, toSide Side, standOff float64) Path {
	aOff := a.Add(fromSide.Normal().Scale(standOff))
	bOff := b.Add(toSide.Normal().Scale(standOff))

	var elbow Point
	if fromSide.Horizontal() {
		elbow = Point{X: aOff.X, Y: bOff.Y}
	} else {
		elbow = Point{X: bOff.X, Y: aOff.Y}
	}

	return simplify(Path{a, aOff, elbow, bOff, b})
}

// simplify removes consecutive duplicates and collinear interior points.
func simplify(in Path) Path {
	out := make(Path, 0, len(in))
	for _, p := range in {
		if n := len(out); n > 0 && samePoint(out[n-1], p) {
			continue
		}
		out = append(out, p)
	}

	if len(out) < 3 {
		return out
	}
	res := make(Path, 1, len(out))
	res[0] = out[0]
	for i := 1; i < len(out)-1; i++ {
		prev, cur, next := res[len(res)-1], out[i], out[i+1]
		if collinear(prev, cur, next) {
			continue
		}
		res = append(res, cur)
	}
	return append(res, out[len(out)-1])
}

const epsilon = 1e-9

func samePoint(p, q Point) bool {
	return math.Abs(p.X-q.X) < epsilon && math.Abs(p.Y-q.Y) < epsilon
}

func collinear(a, b, c Point) bool {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	return math.Abs(cross) < epsilon
}

// NearestSide picks the side of r closest to p.
//
// The axis is chosen first: the smaller of min(left, right) and min(top,
// bottom) edge distances wins. Then the nearer edge on that axis is taken.
// Ties are resolved deterministically: the left/right axis beats top/bottom,
// left beats right and top beats bottom.
func NearestSide(r Rect, p Point) Side {
	dl := math.Abs(p.X - r.Left())
	dr := math.Abs(r.Right() - p.X)
	dt := math.Abs(p.Y - r.Top())
	db := math.Abs(r.Bottom() - p.Y)

	if math.Min(dl, dr) <= math.Min(dt, db) {
		if dl <= dr {
			return SideLeft
		}
		return SideRight
	}
	if dt <= db {
		return SideTop
	}
	return SideBottom
}
