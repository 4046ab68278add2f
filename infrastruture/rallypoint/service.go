// Package rallypoint tracks client latency reports for the configured relay
// servers and negotiates routes between client pairs by talking to those
// servers over UDP.
package rallypoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/beka-birhanu/gameloader-api/service/i"
	general_i "github.com/beka-birhanu/vinom-interfaces/general"
	"github.com/google/uuid"
)

const (
	readBufferSize  = 2048
	requestTimeout  = 5 * time.Second
	createRouteType = "createRoute"
)

var (
	ErrNoServers        = errors.New("no rally-point servers configured")
	ErrUnknownServer    = errors.New("unknown rally-point server")
	ErrNoCommonServer   = errors.New("no rally-point server pinged by both players")
	ErrRouteCreateReply = errors.New("rally-point server rejected route creation")
)

// Service records per-user latency to each rally-point server and creates
// routes on the server that suits a pair best.
// Implements i.RouteService and i.PingReporter.
type Service struct {
	servers []domain.RallyPointServer
	secret  string
	logger  general_i.Logger

	mu      sync.Mutex
	pings   map[uuid.UUID]map[int]time.Duration
	waiters map[uuid.UUID][]chan struct{}
}

func NewService(servers []domain.RallyPointServer, secret string, logger general_i.Logger) (*Service, error) {
	if len(servers) == 0 {
		return nil, ErrNoServers
	}

	return &Service{
		servers: servers,
		secret:  secret,
		logger:  logger,
		pings:   make(map[uuid.UUID]map[int]time.Duration),
		waiters: make(map[uuid.UUID][]chan struct{}),
	}, nil
}

// ParseServers parses the RALLY_POINT_SERVERS environment value:
// semicolon-separated entries of "id,description,host:port".
func ParseServers(raw string) ([]domain.RallyPointServer, error) {
	var servers []domain.RallyPointServer
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ",", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed rally-point server entry: %q", entry)
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed rally-point server id: %q", parts[0])
		}
		host, portStr, err := net.SplitHostPort(parts[2])
		if err != nil {
			return nil, fmt.Errorf("malformed rally-point server address: %q", parts[2])
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("malformed rally-point server port: %q", portStr)
		}

		servers = append(servers, domain.RallyPointServer{
			ID:          id,
			Description: parts[1],
			Hostname:    host,
			Port:        port,
		})
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

// Servers returns the configured rally-point servers for clients to ping.
func (s *Service) Servers() []domain.RallyPointServer {
	return s.servers
}

// ReportPing records one round-trip measurement from a user to a server and
// wakes any load attempt waiting on that user's first report.
func (s *Service) ReportPing(userID uuid.UUID, serverID int, rtt time.Duration) error {
	if !s.knownServer(serverID) {
		return ErrUnknownServer
	}

	s.mu.Lock()
	if s.pings[userID] == nil {
		s.pings[userID] = make(map[int]time.Duration)
	}
	s.pings[userID][serverID] = rtt
	waiters := s.waiters[userID]
	delete(s.waiters, userID)
	s.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	return nil
}

// WaitForPingResult blocks until the client's user has at least one recorded
// ping, or the context is done.
func (s *Service) WaitForPingResult(ctx context.Context, client i.Client) error {
	userID := client.UserID()

	s.mu.Lock()
	if len(s.pings[userID]) > 0 {
		s.mu.Unlock()
		return nil
	}
	waiter := make(chan struct{})
	s.waiters[userID] = append(s.waiters[userID], waiter)
	s.mu.Unlock()

	select {
	case <-waiter:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// CreateRoute negotiates one route between the two clients on the server
// that minimizes the worse of their reported latencies.
func (s *Service) CreateRoute(ctx context.Context, c1, c2 i.Client) (*domain.NegotiatedRoute, error) {
	u1, u2 := c1.UserID(), c2.UserID()
	server, rtt1, rtt2, err := s.bestServer(u1, u2)
	if err != nil {
		return nil, err
	}

	reply, err := s.requestRoute(ctx, server)
	if err != nil {
		return nil, err
	}

	s.logger.Info(fmt.Sprintf("created route %s for %s and %s on server %d", reply.RouteID, u1, u2, server.ID))
	return &domain.NegotiatedRoute{
		P1:       u1,
		P2:       u2,
		Server:   server,
		RouteID:  reply.RouteID,
		P1Handle: reply.P1Handle,
		P2Handle: reply.P2Handle,
		// One-way estimate between the peers, via the server.
		EstimatedLatency: rtt1/2 + rtt2/2,
	}, nil
}

// bestServer picks the server both users have pinged whose worse-side
// round trip is smallest.
func (s *Service) bestServer(u1, u2 uuid.UUID) (domain.RallyPointServer, time.Duration, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best domain.RallyPointServer
	var bestRTT1, bestRTT2 time.Duration
	found := false
	for _, server := range s.servers {
		rtt1, ok1 := s.pings[u1][server.ID]
		rtt2, ok2 := s.pings[u2][server.ID]
		if !ok1 || !ok2 {
			continue
		}

		if !found || max(rtt1, rtt2) < max(bestRTT1, bestRTT2) {
			best, bestRTT1, bestRTT2 = server, rtt1, rtt2
			found = true
		}
	}
	if !found {
		return domain.RallyPointServer{}, 0, 0, ErrNoCommonServer
	}
	return best, bestRTT1, bestRTT2, nil
}

type createRouteRequest struct {
	Type   string `json:"type"`
	Secret string `json:"secret"`
}

type createRouteReply struct {
	OK       bool   `json:"ok"`
	RouteID  string `json:"routeId"`
	P1Handle uint32 `json:"p1Id"`
	P2Handle uint32 `json:"p2Id"`
}

// requestRoute performs one create-route exchange with a rally-point server
// over UDP.
func (s *Service) requestRoute(ctx context.Context, server domain.RallyPointServer) (*createRouteReply, error) {
	addr := net.JoinHostPort(server.Hostname, strconv.Itoa(server.Port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = conn.Close()
	}()

	deadline := time.Now().Add(requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(createRouteRequest{Type: createRouteType, Secret: s.secret})
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, err
	}

	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}

	var reply createRouteReply
	if err := json.Unmarshal(buf[:n], &reply); err != nil {
		return nil, err
	}
	if !reply.OK {
		return nil, ErrRouteCreateReply
	}
	return &reply, nil
}

func (s *Service) knownServer(serverID int) bool {
	for _, server := range s.servers {
		if server.ID == serverID {
			return true
		}
	}
	return false
}
