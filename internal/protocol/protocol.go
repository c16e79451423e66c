package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/shape"
)

var ErrMalformedMessage = errors.New("malformed message")

type Type string

const (
	// Membership (client -> server)
	TypeJoinRoom  Type = "join_room"
	TypeLeaveRoom Type = "leave_room"

	// Shape edits (both directions)
	TypeDrawStart  Type = "draw_start"
	TypeDrawMove   Type = "draw_move"
	TypeDrawEnd    Type = "draw_end"
	TypeErase      Type = "erase"
	TypeLayerOrder Type = "layer_order"

	// Presence
	TypeCursorMoved   Type = "cursor_moved"
	TypeUserJoined    Type = "user_joined"
	TypeUserLeft      Type = "user_left"
	TypeUserRejoined  Type = "user_rejoined"
	TypePresenceState Type = "presence_state"
)

var knownTypes = map[Type]bool{
	TypeJoinRoom: true, TypeLeaveRoom: true,
	TypeDrawStart: true, TypeDrawMove: true, TypeDrawEnd: true, TypeErase: true, TypeLayerOrder: true,
	TypeCursorMoved: true, TypeUserJoined: true, TypeUserLeft: true, TypeUserRejoined: true, TypePresenceState: true,
}

// Persistent reports whether messages of type t are committed edits that
// belong in the room's edit log.
func (t Type) Persistent() bool {
	return t == TypeDrawEnd || t == TypeErase || t == TypeLayerOrder
}

// ShapeEdit reports whether messages of type t change the shape list.
func (t Type) ShapeEdit() bool {
	switch t {
	case TypeDrawStart, TypeDrawMove, TypeDrawEnd, TypeErase, TypeLayerOrder:
		return true
	}
	return false
}

// Order is the direction of a layer_order move.
type Order string

const (
	OrderFront Order = "front"
	OrderBack  Order = "back"
)

// Message is the single JSON envelope exchanged over the realtime
// transport. Which fields are set depends on Type.
type Message struct {
	Type     Type         `json:"type"`
	RoomID   string       `json:"roomId,omitempty"`
	UserID   string       `json:"userId,omitempty"`
	Shape    *shape.Shape `json:"shape,omitempty"`
	ShapeIDs []string     `json:"shapeIds,omitempty"`
	Order    Order        `json:"order,omitempty"`
	X        float64      `json:"x,omitempty"`
	Y        float64      `json:"y,omitempty"`

	// presence_state only
	Users   []string                  `json:"users,omitempty"`
	Cursors map[string]geometry.Point `json:"cursors,omitempty"`
}

// Decode parses and validates a frame. Every failure wraps
// ErrMalformedMessage.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Validate checks that the fields Type requires are present.
func (m Message) Validate() error {
	if !knownTypes[m.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, m.Type)
	}

	switch m.Type {
	case TypeJoinRoom:
		if m.RoomID == "" {
			return fmt.Errorf("%w: %s without roomId", ErrMalformedMessage, m.Type)
		}
	case TypeDrawStart, TypeDrawMove, TypeDrawEnd:
		if m.Shape == nil {
			return fmt.Errorf("%w: %s without shape", ErrMalformedMessage, m.Type)
		}
		if err := m.Shape.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
	case TypeLayerOrder:
		if len(m.ShapeIDs) == 0 || (m.Order != OrderFront && m.Order != OrderBack) {
			return fmt.Errorf("%w: layer_order needs shapeIds and a front/back order", ErrMalformedMessage)
		}
	}
	return nil
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// --- Constructors ---

func JoinRoom(roomID string) Message { return Message{Type: TypeJoinRoom, RoomID: roomID} }
func LeaveRoom(roomID string) Message { return Message{Type: TypeLeaveRoom, RoomID: roomID} }

func DrawStart(s shape.Shape) Message { return shapeMessage(TypeDrawStart, s) }
func DrawMove(s shape.Shape) Message { return shapeMessage(TypeDrawMove, s) }
func DrawEnd(s shape.Shape) Message { return shapeMessage(TypeDrawEnd, s) }

func shapeMessage(t Type, s shape.Shape) Message {
	c := s.Clone()
	c.Selected = false
	return Message{Type: t, Shape: &c}
}

func Erase(ids ...string) Message {
	return Message{Type: TypeErase, ShapeIDs: ids}
}

func LayerOrder(order Order, ids ...string) Message {
	return Message{Type: TypeLayerOrder, Order: order, ShapeIDs: ids}
}

func CursorMoved(p geometry.Point) Message {
	return Message{Type: TypeCursorMoved, X: p.X, Y: p.Y}
}

// Notice builds a server membership notice such as user_joined.
func Notice(t Type, userID string) Message {
	return Message{Type: t, UserID: userID}
}
