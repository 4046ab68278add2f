package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beka-birhanu/gameloader-api/service/i"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}

// recordingRegistry is an ActivityRegistrar capturing attached clients.
type recordingRegistry struct {
	mu      sync.Mutex
	allow   bool
	clients map[uuid.UUID]i.Client
}

func newRecordingRegistry(allow bool) *recordingRegistry {
	return &recordingRegistry{
		allow:   allow,
		clients: make(map[uuid.UUID]i.Client),
	}
}

func (r *recordingRegistry) Register(userID uuid.UUID, client i.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.allow {
		return false
	}
	r.clients[userID] = client
	return true
}

func (r *recordingRegistry) clientFor(userID uuid.UUID) i.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[userID]
}

// gatewayFixture serves a Gateway over httptest and dials connections into it.
type gatewayFixture struct {
	gateway  *Gateway
	registry *recordingRegistry
	server   *httptest.Server
}

func newGatewayFixture(t *testing.T, allow bool) *gatewayFixture {
	t.Helper()

	f := &gatewayFixture{registry: newRecordingRegistry(allow)}
	f.gateway = NewGateway(f.registry, nopLogger{})
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = f.gateway.Attach(w, r, userID)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *gatewayFixture) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()

	url := strings.Replace(f.server.URL, "http", "ws", 1) + "?user=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// attached waits for the server side of a dialed connection to land in the
// registry.
func (f *gatewayFixture) attached(t *testing.T, userID uuid.UUID) i.Client {
	t.Helper()

	var client i.Client
	require.Eventually(t, func() bool {
		client = f.registry.clientFor(userID)
		return client != nil
	}, 2*time.Second, 2*time.Millisecond)
	return client
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestGatewayAttach(t *testing.T) {
	t.Run("claims the activity for the user", func(t *testing.T) {
		f := newGatewayFixture(t, true)
		userID := uuid.New()

		f.dial(t, userID)
		client := f.attached(t, userID)
		assert.Equal(t, userID, client.UserID())
	})

	t.Run("closes the connection when the claim is held", func(t *testing.T) {
		f := newGatewayFixture(t, false)
		conn := f.dial(t, uuid.New())

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	})
}

func TestGatewayDelivery(t *testing.T) {
	type testEvent struct {
		Type string `json:"type"`
	}

	t.Run("initial payload reaches only the subscriber", func(t *testing.T) {
		f := newGatewayFixture(t, true)
		userID := uuid.New()
		conn := f.dial(t, userID)
		client := f.attached(t, userID)

		require.NoError(t, client.Subscribe("/game-loader/abc", testEvent{Type: "begin"}))

		env := readEnvelope(t, conn)
		assert.Equal(t, "/game-loader/abc", env.Path)
		assert.JSONEq(t, `{"type":"begin"}`, string(env.Event))
	})

	t.Run("published events reach every subscriber", func(t *testing.T) {
		f := newGatewayFixture(t, true)
		u1, u2 := uuid.New(), uuid.New()
		conn1 := f.dial(t, u1)
		conn2 := f.dial(t, u2)
		c1 := f.attached(t, u1)
		c2 := f.attached(t, u2)

		require.NoError(t, c1.Subscribe("/game-loader/abc", nil))
		require.NoError(t, c2.Subscribe("/game-loader/abc", nil))

		f.gateway.Deliver("/game-loader/abc", []byte(`{"type":"countdown"}`))

		for _, conn := range []*websocket.Conn{conn1, conn2} {
			env := readEnvelope(t, conn)
			assert.Equal(t, "/game-loader/abc", env.Path)
			assert.JSONEq(t, `{"type":"countdown"}`, string(env.Event))
		}
	})

	t.Run("unsubscribed connections receive nothing", func(t *testing.T) {
		f := newGatewayFixture(t, true)
		userID := uuid.New()
		conn := f.dial(t, userID)
		client := f.attached(t, userID)

		require.NoError(t, client.Subscribe("/game-loader/abc", nil))
		client.Unsubscribe("/game-loader/abc")

		f.gateway.Deliver("/game-loader/abc", []byte(`{"type":"progress"}`))
		f.gateway.Deliver("/game-loader/other", []byte(`{"type":"cancel"}`))

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
		var env envelope
		assert.Error(t, conn.ReadJSON(&env))
	})
}

func TestGatewayDisconnect(t *testing.T) {
	f := newGatewayFixture(t, true)
	userID := uuid.New()
	conn := f.dial(t, userID)
	client := f.attached(t, userID)

	require.NoError(t, conn.Close())

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server side never observed the disconnect")
	}

	// Late subscribes on a closed connection must fail.
	assert.Error(t, client.Subscribe("/game-loader/abc", nil))
}
