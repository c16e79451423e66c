package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/portrait/portrait/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 512 * 1024
	sendBuffer = 256
)

// Client is one authenticated WebSocket connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	UserID   string
	ClientID string

	// room is owned by the hub goroutine.
	room string

	closeOnce   sync.Once
	closeReason string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, clientID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		UserID:   userID,
		ClientID: clientID,
	}
}

// ReadPump decodes frames and hands them to the hub until the connection
// fails. Malformed frames are dropped and the connection stays open.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow()
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "user", c.UserID)
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			slog.Debug("dropping frame", "error", err, "user", c.UserID)
			continue
		}

		c.hub.Receive(c, msg)
	}
}

// WritePump delivers queued frames and keeps the connection alive with
// pings. It closes the connection when the hub closes the client.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				status := websocket.StatusNormalClosure
				if c.closeReason != "" {
					status = websocket.StatusPolicyViolation
				}
				c.conn.Close(status, c.closeReason)
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "user", c.UserID)
				c.conn.CloseNow()
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				c.conn.CloseNow()
				return
			}

		case <-ctx.Done():
			c.conn.CloseNow()
			return
		}
	}
}

// Send queues msg without blocking. When the buffer is full the message is
// dropped.
func (c *Client) Send(msg protocol.Message) {
	data, err := msg.Encode()
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}
	c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID)
	}
}

// close stops the write pump. Only the hub goroutine calls it.
func (c *Client) close(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.send)
	})
}
