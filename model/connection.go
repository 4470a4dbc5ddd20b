package model

import (
	"github.com/oklog/ulid/v2"

	"github.com/gogpu/ggboard/geometry"
)

// Connection is a connector edge between two object sides.
type Connection struct {
	ID        string        `json:"id"`
	FromID    string        `json:"fromId"`
	FromSide  geometry.Side `json:"fromSide"`
	ToID      string        `json:"toId"`
	ToSide    geometry.Side `json:"toSide"`
	Color     string        `json:"color,omitempty"`
	Thickness float64       `json:"thickness,omitempty"`
}

// Default connector styling.
const (
	DefaultConnectionColor     = "#5b6472"
	DefaultConnectionThickness = 2.0
)

// References reports whether the connection touches the object id.
func (c Connection) References(id string) bool {
	return c.FromID == id || c.ToID == id
}

// SameEndpoints reports whether c and o join the same sides of the same objects.
func (c Connection) SameEndpoints(o Connection) bool {
	return c.FromID == o.FromID && c.FromSide == o.FromSide &&
		c.ToID == o.ToID && c.ToSide == o.ToSide
}

// NewID returns a new lexicographically sortable identifier.
func NewID() string {
	return ulid.Make().String()
}
