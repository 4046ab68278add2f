package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/beka-birhanu/gameloader-api/service/i"
	general_i "github.com/beka-birhanu/vinom-interfaces/general"
	"github.com/google/uuid"
)

// Loader phase deadlines. Every wait goes through the injected clock.
const (
	// PingResultTimeout bounds how long each participant has to report a
	// rally-point latency measurement.
	PingResultTimeout = 20 * time.Second

	// LoadTimeout bounds the whole load barrier, measured from the moment
	// the barrier wait begins.
	LoadTimeout = 60 * time.Second

	// CountdownTime is the fixed delay between the countdown event and the
	// complete event.
	CountdownTime = 5 * time.Second
)

// cleanupTimeout bounds the best-effort record deletion on abort.
const cleanupTimeout = 5 * time.Second

// LoaderConfig wires a GameLoader's collaborators.
type LoaderConfig struct {
	Registry        *ActivityRegistry
	Registrar       i.Registrar
	Users           i.UserRepo
	Games           i.GameRepo
	Routes          i.RouteService
	Publisher       i.Publisher
	Clock           i.Clock
	Logger          general_i.Logger
	DynamicTurnRate bool
}

// GameLoader coordinates match launches. Each LoadGame call runs as one
// independent attempt; concurrent attempts share only the activity registry
// and the live-session table.
type GameLoader struct {
	registry        *ActivityRegistry
	registrar       i.Registrar
	users           i.UserRepo
	games           i.GameRepo
	routes          i.RouteService
	publisher       i.Publisher
	clock           i.Clock
	logger          general_i.Logger
	dynamicTurnRate bool

	mu       sync.RWMutex
	sessions map[uuid.UUID]*loadSession
}

func NewGameLoader(c *LoaderConfig) (*GameLoader, error) {
	return &GameLoader{
		registry:        c.Registry,
		registrar:       c.Registrar,
		users:           c.Users,
		games:           c.Games,
		routes:          c.Routes,
		publisher:       c.Publisher,
		clock:           c.Clock,
		logger:          c.Logger,
		dynamicTurnRate: c.DynamicTurnRate,
		sessions:        make(map[uuid.UUID]*loadSession),
	}, nil
}

// LoadGame validates the roster, registers the match, and drives every human
// participant through subscribe, latency reporting, route negotiation, the
// load barrier and the countdown. It blocks until the match launches or the
// attempt aborts, and returns the typed abort cause on failure.
func (l *GameLoader) LoadGame(ctx context.Context, mapID string, cfg *domain.GameConfig) error {
	humans := cfg.HumanPlayers()
	if len(humans) == 0 {
		return ErrNoHumanPlayers
	}

	playerIDs := make([]uuid.UUID, 0, len(humans))
	for _, p := range humans {
		playerIDs = append(playerIDs, p.ID)
	}

	users, err := l.users.ByIDs(ctx, playerIDs)
	if err != nil {
		return err
	}
	if len(users) != len(playerIDs) {
		return ErrUnknownPlayer
	}
	for _, id := range playerIDs {
		if l.registry.ClientFor(id) == nil {
			return ErrNoActiveClient
		}
	}

	gameID, resultCodes, err := l.registrar.Register(ctx, mapID, cfg, l.clock.Now())
	if err != nil {
		return err
	}

	session := newLoadSession(gameID, playerIDs)
	l.addSession(session)

	var teardowns []func()
	defer func() {
		for _, teardown := range teardowns {
			teardown()
		}
		l.removeSession(gameID)
		session.abort(errSessionClosed)
	}()

	if err := l.run(session, cfg, users, resultCodes, &teardowns); err != nil {
		session.abort(err)
		return l.failLoad(session)
	}

	l.logger.Info(fmt.Sprintf("game %s launched", gameID))
	return nil
}

// RegisterPlayerLoaded marks a pending participant of a live attempt as
// loaded. Reports for unknown or already-terminated attempts are rejected
// with ErrMatchNotFound.
func (l *GameLoader) RegisterPlayerLoaded(gameID, userID uuid.UUID) error {
	session := l.session(gameID)
	if session == nil || !session.has(userID) {
		return ErrMatchNotFound
	}

	session.registerLoaded(userID)
	return nil
}

// RegisterPlayerFailed aborts a live attempt on behalf of one participant.
func (l *GameLoader) RegisterPlayerFailed(gameID, userID uuid.UUID) error {
	session := l.session(gameID)
	if session == nil || !session.has(userID) {
		return ErrMatchNotFound
	}

	session.abort(&PlayerFailedError{UserID: userID})
	return nil
}

// run executes the phases that happen after the session exists. Any error it
// returns becomes the session's abort cause.
func (l *GameLoader) run(session *loadSession, cfg *domain.GameConfig, users []domain.User, resultCodes map[uuid.UUID]string, teardowns *[]func()) error {
	gamePath := domain.LoaderPath(session.id)

	// Subscribing
	clients := make(map[uuid.UUID]i.Client, len(session.players))
	for _, playerID := range session.players {
		code, ok := resultCodes[playerID]
		if !ok {
			return fmt.Errorf("no result code for player %s", playerID)
		}

		client := l.registry.ClientFor(playerID)
		if client == nil {
			return &PlayerFailedError{UserID: playerID}
		}

		if err := client.Subscribe(gamePath, nil); err != nil {
			return &PlayerFailedError{UserID: playerID}
		}
		*teardowns = append(*teardowns, unsubscribe(client, gamePath))

		playerPath := domain.LoaderPlayerPath(session.id, playerID)
		begin := &domain.BeginEvent{
			Type:       domain.EventBegin,
			ID:         session.id,
			GameConfig: cfg,
			Users:      users,
			ResultCode: code,
		}
		if err := client.Subscribe(playerPath, begin); err != nil {
			return &PlayerFailedError{UserID: playerID}
		}
		*teardowns = append(*teardowns, unsubscribe(client, playerPath))

		clients[playerID] = client
		l.watchDisconnect(session, playerID, client)
	}

	// AwaitingPings and NegotiatingRoutes are pointless with a single human.
	var negotiated []*domain.NegotiatedRoute
	if len(session.players) > 1 {
		if err := l.awaitPingResults(session, clients); err != nil {
			return err
		}

		var err error
		negotiated, err = l.negotiateRoutes(session, clients)
		if err != nil {
			return err
		}

		// Broadcasting
		selection := SelectTurnRate(negotiated, l.dynamicTurnRate)
		assigned := assignRoutes(negotiated)
		for _, playerID := range session.players {
			l.publish(domain.LoaderPlayerPath(session.id, playerID), &domain.RoutesEvent{
				Type:                  domain.EventRoutes,
				ID:                    session.id,
				Routes:                assigned[playerID],
				TurnRate:              selection.TurnRate,
				UserLatency:           string(selection.UserLatency),
				MaxEstimatedLatencyMS: selection.MaxEstimatedLatency.Milliseconds(),
			})
		}
	}

	if err := l.awaitLoadBarrier(session, gamePath); err != nil {
		return err
	}

	// Countdown
	if session.aborted() {
		return session.abortCause()
	}
	l.publish(gamePath, &domain.CountdownEvent{Type: domain.EventCountdown, ID: session.id})
	select {
	case <-l.clock.After(CountdownTime):
	case <-session.done():
		return session.abortCause()
	}
	if session.aborted() {
		return session.abortCause()
	}

	l.publish(gamePath, &domain.CompleteEvent{Type: domain.EventComplete, ID: session.id})
	return nil
}

// awaitPingResults waits for every participant to report a rally-point
// latency measurement, bounding each wait with PingResultTimeout.
func (l *GameLoader) awaitPingResults(session *loadSession, clients map[uuid.UUID]i.Client) error {
	results := make(chan error, len(clients))
	for playerID, client := range clients {
		go func(id uuid.UUID, c i.Client) {
			pingCtx, cancel := context.WithCancel(session.ctx)
			defer cancel()

			pinged := make(chan error, 1)
			go func() {
				pinged <- l.routes.WaitForPingResult(pingCtx, c)
			}()

			select {
			case err := <-pinged:
				if err != nil {
					results <- &PlayerFailedError{UserID: id}
				} else {
					results <- nil
				}
			case <-l.clock.After(PingResultTimeout):
				results <- &PlayerFailedError{UserID: id}
			case <-session.done():
				results <- session.abortCause()
			}
		}(playerID, client)
	}

	for range clients {
		if err := <-results; err != nil {
			return err
		}
	}
	return nil
}

// negotiateRoutes requests one route per unordered pair of participants.
func (l *GameLoader) negotiateRoutes(session *loadSession, clients map[uuid.UUID]i.Client) ([]*domain.NegotiatedRoute, error) {
	var negotiated []*domain.NegotiatedRoute
	for idx, p1 := range session.players {
		for _, p2 := range session.players[idx+1:] {
			route, err := l.routes.CreateRoute(session.ctx, clients[p1], clients[p2])
			if err != nil {
				return nil, err
			}
			negotiated = append(negotiated, route)
		}
	}
	return negotiated, nil
}

// awaitLoadBarrier blocks until every participant reports loaded, publishing
// a progress snapshot each time the loaded set grows. The whole barrier
// races against LoadTimeout and the session's cancellation.
func (l *GameLoader) awaitLoadBarrier(session *loadSession, gamePath string) error {
	deadline := l.clock.After(LoadTimeout)
	published := 0
	for {
		loaded := session.loadedPlayers()
		if len(loaded) > published {
			published = len(loaded)
			l.publish(gamePath, &domain.ProgressEvent{
				Type:      domain.EventProgress,
				ID:        session.id,
				Completed: loaded,
			})
		}
		if session.allLoaded() {
			return nil
		}

		select {
		case <-session.changed:
		case <-deadline:
			return &LaunchTimeoutError{Pending: session.pendingPlayers()}
		case <-session.done():
			return session.abortCause()
		}
	}
}

// failLoad publishes the cancellation event, best-effort deletes the
// persisted records, and maps the abort cause onto the loader's error
// taxonomy. Cleanup failures are logged and never mask the cause.
func (l *GameLoader) failLoad(session *loadSession) error {
	l.publish(domain.LoaderPath(session.id), &domain.CancelEvent{Type: domain.EventCancel, ID: session.id})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-l.clock.After(cleanupTimeout):
			cancel()
		case <-ctx.Done():
		}
	}()
	if err := l.games.DeleteGame(ctx, session.id); err != nil {
		l.logger.Error(fmt.Sprintf("removing game record for canceled game %s: %s", session.id, err))
	}
	if err := l.games.DeleteGameUsers(ctx, session.id); err != nil {
		l.logger.Error(fmt.Sprintf("removing game user records for canceled game %s: %s", session.id, err))
	}

	cause := session.abortCause()
	var playerFailed *PlayerFailedError
	var launchTimeout *LaunchTimeoutError
	if errors.As(cause, &playerFailed) || errors.As(cause, &launchTimeout) {
		l.logger.Warning(fmt.Sprintf("game %s load failed: %s", session.id, cause))
		return cause
	}

	l.logger.Error(fmt.Sprintf("game %s load aborted with unexpected cause: %s", session.id, cause))
	return &UnexpectedAbortError{Cause: cause}
}

// watchDisconnect aborts the session if a participant's connection closes
// while the attempt is live.
func (l *GameLoader) watchDisconnect(session *loadSession, playerID uuid.UUID, client i.Client) {
	go func() {
		select {
		case <-client.Done():
			session.abort(&PlayerFailedError{UserID: playerID})
		case <-session.done():
		}
	}()
}

func (l *GameLoader) publish(path string, event any) {
	if err := l.publisher.Publish(context.Background(), path, event); err != nil {
		l.logger.Error(fmt.Sprintf("publishing to %s: %s", path, err))
	}
}

func (l *GameLoader) addSession(session *loadSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[session.id] = session
}

func (l *GameLoader) removeSession(gameID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, gameID)
}

func (l *GameLoader) session(gameID uuid.UUID) *loadSession {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessions[gameID]
}

// assignRoutes converts negotiated pair routes into each participant's view:
// the same route id on both sides, each naming the peer and carrying that
// side's own handle.
func assignRoutes(negotiated []*domain.NegotiatedRoute) map[uuid.UUID][]domain.AssignedRoute {
	assigned := make(map[uuid.UUID][]domain.AssignedRoute)
	for _, route := range negotiated {
		assigned[route.P1] = append(assigned[route.P1], domain.AssignedRoute{
			For:     route.P2,
			Server:  route.Server,
			RouteID: route.RouteID,
			Handle:  route.P1Handle,
		})
		assigned[route.P2] = append(assigned[route.P2], domain.AssignedRoute{
			For:     route.P1,
			Server:  route.Server,
			RouteID: route.RouteID,
			Handle:  route.P2Handle,
		})
	}
	return assigned
}

func unsubscribe(client i.Client, path string) func() {
	return func() {
		client.Unsubscribe(path)
	}
}
