package gameapi

import (
	"errors"
	"net/http"

	"github.com/beka-birhanu/gameloader-api/api/identity"
	"github.com/beka-birhanu/gameloader-api/service"
	"github.com/beka-birhanu/gameloader-api/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LoaderController manages match-launch attempts over HTTP.
type LoaderController struct {
	loader i.GameLoader
}

// NewLoaderController initializes a LoaderController.
func NewLoaderController(loader i.GameLoader) (*LoaderController, error) {
	return &LoaderController{
		loader: loader,
	}, nil
}

// RegisterPublic registers public routes.
func (lc *LoaderController) RegisterPublic(route *gin.RouterGroup) {}

// RegisterProtected registers protected routes.
func (lc *LoaderController) RegisterProtected(route *gin.RouterGroup) {
	games := route.Group("/games")
	{
		games.POST("/", lc.load)
		games.POST("/:ID/loaded", lc.reportLoaded)
		games.POST("/:ID/failed", lc.reportFailed)
	}
}

// load runs one load attempt to completion. The response is sent once the
// match has launched or the attempt aborted; progress reaches clients on
// their websocket connections in the meantime.
func (lc *LoaderController) load(ctx *gin.Context) {
	var request LoadGameRequest
	if err := ctx.ShouldBind(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := lc.loader.LoadGame(ctx.Request.Context(), request.MapID, &request.GameConfig)
	if err == nil {
		ctx.Status(http.StatusOK)
		return
	}

	var playerFailed *service.PlayerFailedError
	var launchTimeout *service.LaunchTimeoutError
	switch {
	case errors.Is(err, service.ErrNoHumanPlayers),
		errors.Is(err, service.ErrUnknownPlayer),
		errors.Is(err, service.ErrNoActiveClient):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &playerFailed):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"failedUserId": playerFailed.UserID,
		})
	case errors.As(err, &launchTimeout):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":          err.Error(),
			"pendingUserIds": launchTimeout.Pending,
		})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "error while loading game"})
	}
}

// reportLoaded marks the authenticated user as loaded in a pending attempt.
func (lc *LoaderController) reportLoaded(ctx *gin.Context) {
	gameID, userID, ok := lc.attemptIDs(ctx)
	if !ok {
		return
	}

	if err := lc.loader.RegisterPlayerLoaded(gameID, userID); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// reportFailed aborts a pending attempt on behalf of the authenticated user.
func (lc *LoaderController) reportFailed(ctx *gin.Context) {
	gameID, userID, ok := lc.attemptIDs(ctx)
	if !ok {
		return
	}

	if err := lc.loader.RegisterPlayerFailed(gameID, userID); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// attemptIDs reads the match id from the path and the user id from the
// access-token claims, writing the error response itself on failure.
func (lc *LoaderController) attemptIDs(ctx *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	gameID, err := uuid.Parse(ctx.Params.ByName("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "id not found"})
		return uuid.Nil, uuid.Nil, false
	}

	userID, err := identity.UserIDFromContext(ctx)
	if err != nil {
		ctx.Status(http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	return gameID, userID, true
}
