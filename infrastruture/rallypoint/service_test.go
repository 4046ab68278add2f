package rallypoint

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	id uuid.UUID
}

func (c *stubClient) UserID() uuid.UUID           { return c.id }
func (c *stubClient) Subscribe(string, any) error { return nil }
func (c *stubClient) Unsubscribe(string)          {}
func (c *stubClient) Done() <-chan struct{}       { return nil }

type nopLogger struct{}

func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}

// fakeRallyServer answers create-route requests on a local UDP socket.
func fakeRallyServer(t *testing.T, reply createRouteReply) (domain.RallyPointServer, func()) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		buf := make([]byte, readBufferSize)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			var req createRouteRequest
			if json.Unmarshal(buf[:n], &req) != nil || req.Type != createRouteType {
				continue
			}
			payload, _ := json.Marshal(reply)
			_, _ = conn.WriteTo(payload, addr)
		}
	}()

	host, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	server := domain.RallyPointServer{ID: 1, Description: "local", Hostname: host, Port: port}
	return server, func() { _ = conn.Close() }
}

func TestParseServers(t *testing.T) {
	t.Run("parses the configured list", func(t *testing.T) {
		servers, err := ParseServers("1,us-west,rally1.example.com:14098; 2,eu-central,rally2.example.com:14098")
		require.NoError(t, err)
		require.Len(t, servers, 2)

		assert.Equal(t, 1, servers[0].ID)
		assert.Equal(t, "us-west", servers[0].Description)
		assert.Equal(t, "rally1.example.com", servers[0].Hostname)
		assert.Equal(t, 14098, servers[0].Port)
		assert.Equal(t, 2, servers[1].ID)
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		for _, raw := range []string{"", "us-west", "x,us-west,rally1:14098", "1,us-west,rally1"} {
			_, err := ParseServers(raw)
			assert.Error(t, err, "input %q", raw)
		}
	})
}

func TestPingTracking(t *testing.T) {
	servers := []domain.RallyPointServer{{ID: 1, Description: "a", Hostname: "h1", Port: 1}}
	svc, err := NewService(servers, "secret", nopLogger{})
	require.NoError(t, err)

	t.Run("rejects reports for unknown servers", func(t *testing.T) {
		assert.ErrorIs(t, svc.ReportPing(uuid.New(), 99, 10*time.Millisecond), ErrUnknownServer)
	})

	t.Run("existing ping satisfies the wait immediately", func(t *testing.T) {
		client := &stubClient{id: uuid.New()}
		require.NoError(t, svc.ReportPing(client.id, 1, 10*time.Millisecond))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, svc.WaitForPingResult(ctx, client))
	})

	t.Run("first report wakes a pending wait", func(t *testing.T) {
		client := &stubClient{id: uuid.New()}
		done := make(chan error, 1)
		go func() {
			done <- svc.WaitForPingResult(context.Background(), client)
		}()

		// Give the waiter time to park before reporting.
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, svc.ReportPing(client.id, 1, 25*time.Millisecond))

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("wait never woke up")
		}
	})

	t.Run("cancellation unblocks the wait", func(t *testing.T) {
		client := &stubClient{id: uuid.New()}
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.WaitForPingResult(ctx, client)
		}()
		cancel()

		select {
		case err := <-done:
			assert.Error(t, err)
		case <-time.After(time.Second):
			t.Fatal("wait never woke up")
		}
	})
}

func TestCreateRoute(t *testing.T) {
	reply := createRouteReply{OK: true, RouteID: "route-7", P1Handle: 11, P2Handle: 12}
	server, stop := fakeRallyServer(t, reply)
	defer stop()

	// A second server neither player pinged must never be picked.
	unpinged := domain.RallyPointServer{ID: 2, Description: "far", Hostname: "10.255.255.1", Port: 9}
	svc, err := NewService([]domain.RallyPointServer{server, unpinged}, "secret", nopLogger{})
	require.NoError(t, err)

	c1 := &stubClient{id: uuid.New()}
	c2 := &stubClient{id: uuid.New()}

	t.Run("fails without a common pinged server", func(t *testing.T) {
		_, err := svc.CreateRoute(context.Background(), c1, c2)
		assert.ErrorIs(t, err, ErrNoCommonServer)
	})

	require.NoError(t, svc.ReportPing(c1.id, server.ID, 30*time.Millisecond))
	require.NoError(t, svc.ReportPing(c2.id, server.ID, 50*time.Millisecond))

	t.Run("negotiates on the common server", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		route, err := svc.CreateRoute(ctx, c1, c2)
		require.NoError(t, err)

		assert.Equal(t, c1.id, route.P1)
		assert.Equal(t, c2.id, route.P2)
		assert.Equal(t, server.ID, route.Server.ID)
		assert.Equal(t, "route-7", route.RouteID)
		assert.Equal(t, uint32(11), route.P1Handle)
		assert.Equal(t, uint32(12), route.P2Handle)
		assert.Equal(t, 40*time.Millisecond, route.EstimatedLatency)
	})
}

func TestCreateRouteRejectedByServer(t *testing.T) {
	server, stop := fakeRallyServer(t, createRouteReply{OK: false})
	defer stop()

	svc, err := NewService([]domain.RallyPointServer{server}, "secret", nopLogger{})
	require.NoError(t, err)

	c1 := &stubClient{id: uuid.New()}
	c2 := &stubClient{id: uuid.New()}
	require.NoError(t, svc.ReportPing(c1.id, server.ID, 10*time.Millisecond))
	require.NoError(t, svc.ReportPing(c2.id, server.ID, 10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err = svc.CreateRoute(ctx, c1, c2)
	assert.ErrorIs(t, err, ErrRouteCreateReply)
}
