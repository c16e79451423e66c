// Package transport is the client side of the relay connection. Sends are
// queued and never block the caller; inbound frames are decoded and handed
// to a callback on the transport's read goroutine.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/portrait/portrait/internal/protocol"
)

var (
	// ErrClosed is returned by Send once the connection is gone.
	ErrClosed = errors.New("transport closed")
	// ErrBufferFull is returned by Send when the outbound queue is full.
	ErrBufferFull = errors.New("send buffer full")
	// ErrUnauthorized is returned by Dial when the relay rejects the token.
	ErrUnauthorized = errors.New("relay rejected token")
)

const (
	writeWait  = 10 * time.Second
	readWait   = 75 * time.Second
	maxMsgSize = 512 * 1024
	sendBuffer = 256
)

type Options struct {
	Token string

	// OnMessage receives every well-formed inbound message. It runs on the
	// read goroutine; callers that own single-threaded state must hand the
	// message over to their own loop.
	OnMessage func(protocol.Message)

	// OnDisconnect is called once when the connection ends, after the read
	// goroutine has been released, so it may call Close. The cause is
	// ErrClosed after a local Close; the call can land after Close returns.
	OnDisconnect func(error)

	Dialer *websocket.Dialer
	Logger *slog.Logger
}

// Conn is a live relay connection. It implements canvas.Sender.
type Conn struct {
	ws   *websocket.Conn
	opts Options
	log  *slog.Logger

	send chan []byte
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial connects to the relay at url (ws:// or wss://) and starts the pumps.
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial relay: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	c := newConn(ws, opts)
	c.wg.Add(2)
	go c.readPump()
	go c.writePump()
	return c, nil
}

func newConn(ws *websocket.Conn, opts Options) *Conn {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		ws:   ws,
		opts: opts,
		log:  logger,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues msg for delivery. It never blocks.
func (c *Conn) Send(msg protocol.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.log.Warn("send buffer full, dropping message", "type", msg.Type)
		return ErrBufferFull
	}
}

// Connected reports whether the connection is still up.
func (c *Conn) Connected() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, or nil while it is up.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame and waits for both pumps to exit.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	c.wg.Wait()
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Conn) readPump() {
	// OnDisconnect runs after wg.Done so it may call Close.
	defer func() {
		if c.opts.OnDisconnect != nil {
			c.opts.OnDisconnect(c.Err())
		}
	}()
	defer c.wg.Done()

	c.ws.SetReadLimit(maxMsgSize)
	c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPingHandler(func(data string) error {
		c.ws.SetReadDeadline(time.Now().Add(readWait))
		err := c.ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			return err
		}
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("relay connection lost", "error", err)
			}
			c.shutdown(fmt.Errorf("read: %w", err))
			c.ws.Close()
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(readWait))

		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Debug("dropping frame", "error", err)
			continue
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(msg)
		}
	}
}

func (c *Conn) writePump() {
	defer c.wg.Done()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("write error", "error", err)
				c.shutdown(fmt.Errorf("write: %w", err))
				c.ws.Close()
				return
			}

		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			c.ws.Close()
			return
		}
	}
}
