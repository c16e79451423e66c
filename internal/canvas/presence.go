package canvas

import (
	"maps"
	"slices"

	"github.com/portrait/portrait/internal/geometry"
)

// Presence tracks the peers in the room and their last cursor positions.
type Presence struct {
	users   map[string]bool
	cursors map[string]geometry.Point
}

func newPresence() *Presence {
	return &Presence{
		users:   make(map[string]bool),
		cursors: make(map[string]geometry.Point),
	}
}

// Users returns the peer ids in sorted order.
func (p *Presence) Users() []string {
	return slices.Sorted(maps.Keys(p.users))
}

// Cursor returns the last known cursor of userID.
func (p *Presence) Cursor(userID string) (geometry.Point, bool) {
	c, ok := p.cursors[userID]
	return c, ok
}

// Cursors returns a copy of every known cursor.
func (p *Presence) Cursors() map[string]geometry.Point {
	return maps.Clone(p.cursors)
}

func (p *Presence) join(userID string) {
	if userID != "" {
		p.users[userID] = true
	}
}

func (p *Presence) leave(userID string) {
	delete(p.users, userID)
	delete(p.cursors, userID)
}

func (p *Presence) move(userID string, at geometry.Point) {
	if userID == "" {
		return
	}
	p.users[userID] = true
	p.cursors[userID] = at
}

func (p *Presence) reset(users []string, cursors map[string]geometry.Point) {
	clear(p.users)
	clear(p.cursors)
	for _, u := range users {
		p.join(u)
	}
	for u, at := range cursors {
		p.move(u, at)
	}
}
