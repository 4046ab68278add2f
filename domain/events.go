package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Event type tags carried in the "type" field of every loader event.
const (
	EventBegin     = "begin"
	EventRoutes    = "routes"
	EventProgress  = "progress"
	EventCountdown = "countdown"
	EventComplete  = "complete"
	EventCancel    = "cancel"
)

// LoaderPath is the broadcast channel carrying match-wide loader events
// (progress, countdown, complete, cancel).
func LoaderPath(gameID uuid.UUID) string {
	return fmt.Sprintf("/game-loader/%s", gameID)
}

// LoaderPlayerPath is the participant-private channel carrying the begin and
// routes events for a single user.
func LoaderPlayerPath(gameID, userID uuid.UUID) string {
	return fmt.Sprintf("/game-loader/%s/%s", gameID, userID)
}

// BeginEvent is delivered to each participant when their loader subscription
// opens. Route assignments follow separately in the routes event.
type BeginEvent struct {
	Type       string      `json:"type"`
	ID         uuid.UUID   `json:"id"`
	GameConfig *GameConfig `json:"gameConfig"`
	Users      []User      `json:"userInfos"`
	ResultCode string      `json:"resultCode"`
}

// RoutesEvent carries a participant's outbound route list plus the selected
// turn rate and latency tier. When dynamic turn rate is disabled the rate
// fields are absent and only the worst observed latency is reported.
type RoutesEvent struct {
	Type                  string          `json:"type"`
	ID                    uuid.UUID       `json:"id"`
	Routes                []AssignedRoute `json:"routes"`
	TurnRate              int             `json:"turnRate,omitempty"`
	UserLatency           string          `json:"userLatencyTier,omitempty"`
	MaxEstimatedLatencyMS int64           `json:"maxEstimatedLatencyMs,omitempty"`
}

// ProgressEvent reports the set of participants that have finished loading.
type ProgressEvent struct {
	Type      string      `json:"type"`
	ID        uuid.UUID   `json:"id"`
	Completed []uuid.UUID `json:"completed"`
}

// CountdownEvent signals that all participants loaded and the launch
// countdown has started.
type CountdownEvent struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

// CompleteEvent signals that the match has launched.
type CompleteEvent struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

// CancelEvent signals that the load attempt was aborted and clients should
// tear down any launch state.
type CancelEvent struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}
