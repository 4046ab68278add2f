package i

import (
	"context"
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/google/uuid"
)

// RouteService negotiates rally-point routes between pairs of clients.
type RouteService interface {
	// WaitForPingResult blocks until the client has reported at least one
	// rally-point latency measurement, or the context is done.
	WaitForPingResult(ctx context.Context, client Client) error

	// CreateRoute negotiates one route between the two clients, picking the
	// rally-point server that minimizes the worse of their reported
	// latencies.
	CreateRoute(ctx context.Context, c1, c2 Client) (*domain.NegotiatedRoute, error)
}

// PingReporter records client latency reports for rally-point servers. The
// API layer feeds it; the RouteService consumes it.
type PingReporter interface {
	ReportPing(userID uuid.UUID, serverID int, rtt time.Duration) error
}

// RallyPointDirectory lists the relay servers clients should measure
// latency against.
type RallyPointDirectory interface {
	Servers() []domain.RallyPointServer
}
