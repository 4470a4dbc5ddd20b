// Package model holds the board's domain state: drawable objects, connector
// edges, the selection set and the Board store that owns them.
package model

import (
	"fmt"

	"github.com/gogpu/ggboard/geometry"
)

// Kind tags the variant of a drawable object.
type Kind uint8

// Drawable kinds.
const (
	KindCard Kind = iota
	KindSticker
	KindImage
	KindAvatar
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindCard:
		return "card"
	case KindSticker:
		return "sticker"
	case KindImage:
		return "image"
	case KindAvatar:
		return "avatar"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "card":
		*k = KindCard
	case "sticker":
		*k = KindSticker
	case "image":
		*k = KindImage
	case "avatar":
		*k = KindAvatar
	default:
		return fmt.Errorf("model: unknown kind %q", b)
	}
	return nil
}

// Selectable reports whether objects of this kind take part in selection.
func (k Kind) Selectable() bool {
	return k != KindAvatar
}

// ImageProps carries the image-only fields of an Object.
type ImageProps struct {
	// Source is the durable id of the full-resolution image.
	Source string `json:"source"`
	// Preview is the durable id of a downscaled variant. Optional.
	Preview string `json:"preview,omitempty"`
	// Rotation in radians, applied about the image center.
	Rotation float64 `json:"rotation,omitempty"`
	// Opacity in [0,1].
	Opacity float64 `json:"opacity"`
	// Fingerprint identifies the image content; a change forces a rebuild
	// of every cached bitmap derived from it.
	Fingerprint string `json:"fingerprint,omitempty"`
	// Background images render below connectors.
	Background bool `json:"background,omitempty"`
}

// Object is a drawable board item. Kind selects the variant; Image is set
// only for KindImage.
type Object struct {
	ID       string      `json:"id"`
	Kind     Kind        `json:"kind"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	W        float64     `json:"w"`
	H        float64     `json:"h"`
	Z        int         `json:"z"`
	Selected bool        `json:"selected,omitempty"`
	Locked   bool        `json:"locked,omitempty"`
	Text     string      `json:"text,omitempty"`
	Color    string      `json:"color,omitempty"`
	Image    *ImageProps `json:"image,omitempty"`
}

// Bounds returns the object's world-space bounding box.
func (o *Object) Bounds() geometry.Rect {
	return geometry.Rect{X: o.X, Y: o.Y, W: o.W, H: o.H}
}

// DrawBounds returns the box the object covers on screen. It equals Bounds
// except for rotated images, which cover their rotated bounding box around
// the same center.
func (o *Object) DrawBounds() geometry.Rect {
	if o.Kind != KindImage || o.Image == nil || o.Image.Rotation == 0 {
		return o.Bounds()
	}
	bw, bh := geometry.RotatedBounds(o.W, o.H, o.Image.Rotation)
	return geometry.Rect{X: o.X + (o.W-bw)/2, Y: o.Y + (o.H-bh)/2, W: bw, H: bh}
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	c := *o
	if o.Image != nil {
		img := *o.Image
		c.Image = &img
	}
	return &c
}

// Band returns the layer band the object belongs to.
func (o *Object) Band() Band {
	switch o.Kind {
	case KindSticker:
		return BandStickers
	case KindImage:
		if o.Image != nil && o.Image.Background {
			return BandBackground
		}
		return BandForeground
	default:
		return BandCards
	}
}

// Card returns a new card object.
func Card(id string, x, y, w, h float64, text string) *Object {
	return &Object{ID: id, Kind: KindCard, X: x, Y: y, W: w, H: h, Text: text}
}

// Sticker returns a new sticker object.
func Sticker(id string, x, y, size float64, text string) *Object {
	return &Object{ID: id, Kind: KindSticker, X: x, Y: y, W: size, H: size, Text: text}
}

// Avatar returns a new avatar object.
func Avatar(id string, x, y, size float64) *Object {
	return &Object{ID: id, Kind: KindAvatar, X: x, Y: y, W: size, H: size}
}

// Image returns a new foreground image object.
func Image(id string, x, y, w, h float64, source string) *Object {
	return &Object{
		ID: id, Kind: KindImage, X: x, Y: y, W: w, H: h,
		Image: &ImageProps{Source: source, Opacity: 1},
	}
}
