package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/store"
)

// ErrNotInRoom marks an edit that arrived before its sender joined a room.
var ErrNotInRoom = errors.New("not in room")

const defaultAppendTimeout = 5 * time.Second

// inbound is one event from a connection. Departures travel on the same
// queue as messages so a connection's last frames are handled before it is
// removed.
type inbound struct {
	client     *Client
	msg        protocol.Message
	disconnect bool
}

type HubOptions struct {
	// Store receives committed edits. Nil disables persistence.
	Store store.Appender
	// AppendTimeout bounds one AppendEditRecord call. Appends run on the hub
	// goroutine so history order matches fan-out order; a slow store stalls
	// every room for at most this long per edit.
	AppendTimeout time.Duration
	Logger        *slog.Logger
}

// Hub owns all rooms. A single goroutine (Run) applies registrations,
// departures and inbound messages one at a time, so a message's fan-out
// never interleaves with another's.
type Hub struct {
	store         store.Appender
	appendTimeout time.Duration
	log           *slog.Logger

	rooms map[string]*Room   // roomID -> room
	users map[string]*Client // userID -> live connection

	register chan *Client
	inbound  chan inbound
	calls    chan func()
	done     chan struct{}
}

func NewHub(opts HubOptions) *Hub {
	h := &Hub{
		store:         opts.Store,
		appendTimeout: opts.AppendTimeout,
		log:           opts.Logger,
		rooms:         make(map[string]*Room),
		users:         make(map[string]*Client),
		register:      make(chan *Client),
		inbound:       make(chan inbound, 256),
		calls:         make(chan func()),
		done:          make(chan struct{}),
	}
	if h.appendTimeout <= 0 {
		h.appendTimeout = defaultAppendTimeout
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

// Run processes hub events until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case in := <-h.inbound:
			if in.disconnect {
				h.removeClient(in.client)
			} else {
				h.handleMessage(in.client, in.msg)
			}
		case fn := <-h.calls:
			fn()
		case <-ctx.Done():
			for _, c := range h.users {
				c.close("server shutting down")
			}
			h.users = map[string]*Client{}
			h.rooms = map[string]*Room{}
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close("server shutting down")
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.inbound <- inbound{client: client, disconnect: true}:
	case <-h.done:
	}
}

// Receive queues msg from client for processing.
func (h *Hub) Receive(client *Client, msg protocol.Message) {
	select {
	case h.inbound <- inbound{client: client, msg: msg}:
	case <-h.done:
	}
}

// do runs fn on the hub goroutine and waits for it.
func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		fn()
	}
	select {
	case h.calls <- call:
	case <-h.done:
		return errors.New("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Members returns the users currently in roomID.
func (h *Hub) Members(ctx context.Context, roomID string) ([]string, error) {
	var users []string
	err := h.do(ctx, func() {
		if room, ok := h.rooms[roomID]; ok {
			users = room.Users()
		}
	})
	return users, err
}

// Rooms returns the ids of rooms with at least one member and their
// member counts.
func (h *Hub) Rooms(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int)
	err := h.do(ctx, func() {
		for id, room := range h.rooms {
			out[id] = len(room.clients)
		}
	})
	return out, err
}

func (h *Hub) addClient(client *Client) {
	prev, ok := h.users[client.UserID]
	h.users[client.UserID] = client
	if !ok {
		h.log.Info("client connected", "user", client.UserID, "client", client.ClientID)
		return
	}

	// Same identity on a new connection: the new one takes over the old
	// one's room, and peers hear about it once.
	roomID := prev.room
	if room, ok := h.rooms[roomID]; ok {
		delete(room.clients, prev.ClientID)
		prev.room = ""
		client.room = roomID
		room.clients[client.ClientID] = client
		client.Send(room.stateMessage())
		h.broadcast(room, protocol.Notice(protocol.TypeUserRejoined, client.UserID), client.ClientID)
	}
	prev.close("replaced by a newer connection")
	h.log.Info("client reconnected", "user", client.UserID, "room", roomID, "client", client.ClientID)
}

func (h *Hub) removeClient(client *Client) {
	if h.users[client.UserID] != client {
		// Already replaced or shut down.
		return
	}
	delete(h.users, client.UserID)
	h.leave(client)
	client.close("")
	h.log.Info("client disconnected", "user", client.UserID, "client", client.ClientID)
}

func (h *Hub) join(client *Client, roomID string) {
	if client.room == roomID {
		return
	}
	if client.room != "" {
		h.leave(client)
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		h.rooms[roomID] = room
	}
	room.clients[client.ClientID] = client
	client.room = roomID

	client.Send(room.stateMessage())
	h.broadcast(room, protocol.Notice(protocol.TypeUserJoined, client.UserID), client.ClientID)

	h.log.Info("client joined", "user", client.UserID, "room", roomID)
}

func (h *Hub) leave(client *Client) {
	room, ok := h.rooms[client.room]
	client.room = ""
	if !ok {
		return
	}

	delete(room.clients, client.ClientID)
	delete(room.cursors, client.UserID)
	if len(room.clients) == 0 {
		delete(h.rooms, room.id)
	}
	h.broadcast(room, protocol.Notice(protocol.TypeUserLeft, client.UserID), "")

	h.log.Info("client left", "user", client.UserID, "room", room.id)
}

func (h *Hub) handleMessage(sender *Client, msg protocol.Message) {
	if h.users[sender.UserID] != sender {
		return
	}

	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.join(sender, msg.RoomID)
		return
	case protocol.TypeLeaveRoom:
		h.leave(sender)
		return
	}

	room, ok := h.rooms[sender.room]
	if !ok {
		h.log.Debug("dropping message", "error", ErrNotInRoom, "type", msg.Type, "user", sender.UserID)
		return
	}

	msg.RoomID = room.id
	msg.UserID = sender.UserID

	switch msg.Type {
	case protocol.TypeDrawStart, protocol.TypeDrawMove:
		h.broadcast(room, msg, sender.ClientID)
	case protocol.TypeDrawEnd, protocol.TypeErase, protocol.TypeLayerOrder:
		h.persist(msg)
		h.broadcast(room, msg, sender.ClientID)
	case protocol.TypeCursorMoved:
		room.cursors[sender.UserID] = geometry.Pt(msg.X, msg.Y)
		h.broadcast(room, msg, sender.ClientID)
	default:
		h.log.Debug("dropping server-only message", "type", msg.Type, "user", sender.UserID)
	}
}

// persist appends msg to the edit log. A failed append is logged and the
// edit is still delivered to the room.
func (h *Hub) persist(msg protocol.Message) {
	if h.store == nil {
		return
	}
	payload, err := msg.Encode()
	if err != nil {
		h.log.Error("encode edit record", "error", err, "room", msg.RoomID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.appendTimeout)
	defer cancel()
	if err := h.store.AppendEditRecord(ctx, msg.RoomID, msg.UserID, json.RawMessage(payload)); err != nil {
		h.log.Error("append edit record", "error", err, "room", msg.RoomID, "user", msg.UserID, "type", msg.Type)
	}
}

func (h *Hub) broadcast(room *Room, msg protocol.Message, excludeClientID string) {
	data, err := msg.Encode()
	if err != nil {
		h.log.Error("marshal message", "error", err, "type", msg.Type)
		return
	}
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.sendRaw(data)
		}
	}
}
