// Package room serves the read side of a room over HTTP: its edit history
// and who is connected.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/portrait/portrait/internal/store"
)

var ErrInvalidRoom = errors.New("invalid room id")

// Presence reports live membership. relay.Hub implements it.
type Presence interface {
	Members(ctx context.Context, roomID string) ([]string, error)
	Rooms(ctx context.Context) (map[string]int, error)
}

type Service struct {
	history  store.Fetcher
	presence Presence
}

func NewService(history store.Fetcher, presence Presence) *Service {
	return &Service{history: history, presence: presence}
}

// Summary is one entry of the room listing.
type Summary struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

func (s *Service) History(ctx context.Context, roomID string) (*store.History, error) {
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	payloads, err := s.history.FetchEditHistory(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if payloads == nil {
		payloads = []json.RawMessage{}
	}
	return &store.History{RoomID: roomID, Payloads: payloads}, nil
}

func (s *Service) Members(ctx context.Context, roomID string) ([]string, error) {
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	users, err := s.presence.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if users == nil {
		users = []string{}
	}
	return users, nil
}

// List returns the active rooms, busiest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	rooms, err := s.presence.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]Summary, 0, len(rooms))
	for id, n := range rooms {
		out = append(out, Summary{ID: id, Members: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Members != out[j].Members {
			return out[i].Members > out[j].Members
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
