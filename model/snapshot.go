package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionType names the user action a snapshot was recorded after.
type ActionType string

// Recorded action types.
const (
	ActionInitial    ActionType = "initial"
	ActionMove       ActionType = "move"
	ActionCreate     ActionType = "create"
	ActionDelete     ActionType = "delete"
	ActionConnect    ActionType = "connect"
	ActionDisconnect ActionType = "disconnect"
	ActionReorder    ActionType = "reorder"
	ActionEdit       ActionType = "edit"
)

// boardState is the serialized form of a Board.
type boardState struct {
	Objects     []*Object    `json:"objects"`
	Connections []Connection `json:"connections"`
}

// Snapshot is an immutable serialized copy of the board's mutable state.
type Snapshot struct {
	data        []byte
	Action      ActionType
	Description string
}

// NewSnapshot wraps serialized board data. The data is copied.
func NewSnapshot(data []byte, action ActionType, description string) Snapshot {
	return Snapshot{
		data:        bytes.Clone(data),
		Action:      action,
		Description: description,
	}
}

// Bytes returns a copy of the serialized board state.
func (s Snapshot) Bytes() []byte {
	return bytes.Clone(s.data)
}

// Len returns the serialized size in bytes.
func (s Snapshot) Len() int {
	return len(s.data)
}

// IsZero reports whether the snapshot holds no data.
func (s Snapshot) IsZero() bool {
	return len(s.data) == 0
}

// SameState reports whether s and o serialize identical board state.
func (s Snapshot) SameState(o Snapshot) bool {
	return bytes.Equal(s.data, o.data)
}

// Decode returns the objects and connections held by the snapshot.
func (s Snapshot) Decode() ([]*Object, []Connection, error) {
	var st boardState
	if err := json.Unmarshal(s.data, &st); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return st.Objects, st.Connections, nil
}

func encodeState(objects []*Object, connections []Connection) ([]byte, error) {
	if connections == nil {
		connections = []Connection{}
	}
	return json.Marshal(boardState{Objects: objects, Connections: connections})
}
