package relay

import (
	"maps"
	"slices"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/protocol"
)

// Room is one drawing session's membership and cursor presence. It is only
// touched by the hub goroutine.
type Room struct {
	id      string
	clients map[string]*Client // clientID -> client
	cursors map[string]geometry.Point
}

func newRoom(id string) *Room {
	return &Room{
		id:      id,
		clients: make(map[string]*Client),
		cursors: make(map[string]geometry.Point),
	}
}

// Users returns the sorted user ids present in the room.
func (r *Room) Users() []string {
	users := make([]string, 0, len(r.clients))
	for _, c := range r.clients {
		users = append(users, c.UserID)
	}
	slices.Sort(users)
	return users
}

func (r *Room) stateMessage() protocol.Message {
	return protocol.Message{
		Type:    protocol.TypePresenceState,
		RoomID:  r.id,
		Users:   r.Users(),
		Cursors: maps.Clone(r.cursors),
	}
}
