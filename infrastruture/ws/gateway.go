// Package ws exposes loader events to game clients over websockets. Each
// connection subscribes to string-keyed broadcast paths; events published to
// a path (locally or via the Redis broker) are pushed to every subscribed
// connection.
package ws

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/beka-birhanu/gameloader-api/service/i"
	general_i "github.com/beka-birhanu/vinom-interfaces/general"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrActivityClaimed is returned when a user already has a live connection
// claiming their gameplay activity.
var ErrActivityClaimed = errors.New("user already has an active gameplay connection")

// ActivityRegistrar claims the gameplay activity for a connecting user.
type ActivityRegistrar interface {
	Register(userID uuid.UUID, client i.Client) bool
}

// Gateway upgrades HTTP requests to websocket connections and routes
// path-addressed events to the local connections subscribed to them.
type Gateway struct {
	upgrader websocket.Upgrader
	registry ActivityRegistrar
	logger   general_i.Logger

	mu            sync.RWMutex
	subscriptions map[string]map[*Client]struct{}
}

func NewGateway(registry ActivityRegistrar, logger general_i.Logger) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		registry:      registry,
		subscriptions: make(map[string]map[*Client]struct{}),
		logger:        logger,
	}
}

// Attach upgrades the request to a websocket connection owned by the given
// user, claims the user's gameplay activity, and starts the read/write
// pumps. The connection is closed again if the claim is already held.
func (g *Gateway) Attach(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (i.Client, error) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	client := newClient(g, conn, userID)
	go client.writePump()
	go client.readPump()

	if !g.registry.Register(userID, client) {
		client.close()
		return nil, ErrActivityClaimed
	}

	g.logger.Info(fmt.Sprintf("websocket attached for user %s", userID))
	return client, nil
}

// Deliver pushes an already-marshaled event to every local connection
// subscribed to the path. Called by the Redis broker's listen loop.
func (g *Gateway) Deliver(path string, payload []byte) {
	g.mu.RLock()
	clients := make([]*Client, 0, len(g.subscriptions[path]))
	for c := range g.subscriptions[path] {
		clients = append(clients, c)
	}
	g.mu.RUnlock()

	env := envelope{Path: path, Event: payload}
	for _, c := range clients {
		c.enqueue(env)
	}
}

func (g *Gateway) subscribe(c *Client, path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.subscriptions[path] == nil {
		g.subscriptions[path] = make(map[*Client]struct{})
	}
	g.subscriptions[path][c] = struct{}{}
}

func (g *Gateway) unsubscribe(c *Client, path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(c, path)
}

// drop removes a closing connection from every path it subscribed to.
func (g *Gateway) drop(c *Client, paths []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, path := range paths {
		g.removeLocked(c, path)
	}
}

func (g *Gateway) removeLocked(c *Client, path string) {
	subs := g.subscriptions[path]
	if subs == nil {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(g.subscriptions, path)
	}
}
