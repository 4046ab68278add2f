package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBufferSize = 256
)

var errClientClosed = errors.New("websocket client closed")

// envelope is the wire format for delivered events: the path the event was
// published on, plus the event payload.
type envelope struct {
	Path  string          `json:"path"`
	Event json.RawMessage `json:"event"`
}

// Client is one user's websocket connection. The connection is push-only;
// clients issue commands through the HTTP API, so inbound frames are used
// solely for keepalive.
// Implements i.Client.
type Client struct {
	userID  uuid.UUID
	gateway *Gateway
	conn    *websocket.Conn

	send      chan envelope
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	paths map[string]struct{}
}

func newClient(g *Gateway, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		userID:  userID,
		gateway: g,
		conn:    conn,
		send:    make(chan envelope, sendBufferSize),
		done:    make(chan struct{}),
		paths:   make(map[string]struct{}),
	}
}

// UserID returns the user this connection is authenticated as.
func (c *Client) UserID() uuid.UUID {
	return c.userID
}

// Subscribe joins the connection to a broadcast path, delivering the initial
// event to this connection only when one is given.
func (c *Client) Subscribe(path string, initial any) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	c.mu.Lock()
	c.paths[path] = struct{}{}
	c.mu.Unlock()
	c.gateway.subscribe(c, path)

	if initial != nil {
		payload, err := json.Marshal(initial)
		if err != nil {
			return err
		}
		c.enqueue(envelope{Path: path, Event: payload})
	}
	return nil
}

// Unsubscribe removes the connection from a broadcast path. Idempotent.
func (c *Client) Unsubscribe(path string) {
	c.mu.Lock()
	delete(c.paths, path)
	c.mu.Unlock()
	c.gateway.unsubscribe(c, path)
}

// Done returns a channel closed when the connection closes.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// enqueue queues an event for delivery. A connection too slow to drain its
// buffer is closed rather than allowed to block broadcasts.
func (c *Client) enqueue(env envelope) {
	select {
	case c.send <- env:
	case <-c.done:
	default:
		c.close()
	}
}

// close tears the connection down exactly once and releases every path
// subscription.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		paths := make([]string, 0, len(c.paths))
		for path := range c.paths {
			paths = append(paths, path)
		}
		c.paths = make(map[string]struct{})
		c.mu.Unlock()

		c.gateway.drop(c, paths)
		_ = c.conn.Close()
	})
}

// readPump consumes inbound frames for keepalive and detects disconnects.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the send buffer onto the wire and keeps the connection
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
