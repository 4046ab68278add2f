package gameapi

import (
	"net/http"
	"time"

	"github.com/beka-birhanu/gameloader-api/api/identity"
	"github.com/beka-birhanu/gameloader-api/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gateway attaches an authenticated user's request as a live event
// connection.
type Gateway interface {
	Attach(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (i.Client, error)
}

// ConnectController manages the websocket attach point and the rally-point
// latency endpoints.
type ConnectController struct {
	gateway   Gateway
	pings     i.PingReporter
	directory i.RallyPointDirectory
}

// NewConnectController initializes a ConnectController.
func NewConnectController(gateway Gateway, pings i.PingReporter, directory i.RallyPointDirectory) (*ConnectController, error) {
	return &ConnectController{
		gateway:   gateway,
		pings:     pings,
		directory: directory,
	}, nil
}

// RegisterPublic registers public routes.
func (cc *ConnectController) RegisterPublic(route *gin.RouterGroup) {}

// RegisterProtected registers protected routes.
func (cc *ConnectController) RegisterProtected(route *gin.RouterGroup) {
	route.GET("/connect", cc.connect)

	rallyPoints := route.Group("/rallyPoints")
	{
		rallyPoints.GET("/", cc.servers)
		rallyPoints.POST("/pings", cc.reportPing)
	}
}

// connect upgrades the request to the user's event connection. The user's
// gameplay activity is claimed for the life of the connection.
func (cc *ConnectController) connect(ctx *gin.Context) {
	userID, err := identity.UserIDFromContext(ctx)
	if err != nil {
		ctx.Status(http.StatusUnauthorized)
		return
	}

	// After a successful upgrade the response is owned by the websocket;
	// attach errors before that point are reported by the upgrader itself.
	if _, err := cc.gateway.Attach(ctx.Writer, ctx.Request, userID); err != nil {
		ctx.Abort()
		return
	}
}

// servers lists the rally-point servers the client should ping.
func (cc *ConnectController) servers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, &RallyPointServersResponse{
		Servers: cc.directory.Servers(),
	})
}

// reportPing records one latency measurement for the authenticated user.
func (cc *ConnectController) reportPing(ctx *gin.Context) {
	userID, err := identity.UserIDFromContext(ctx)
	if err != nil {
		ctx.Status(http.StatusUnauthorized)
		return
	}

	var request PingReportRequest
	if err := ctx.ShouldBind(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rtt := time.Duration(request.PingMS) * time.Millisecond
	if err := cc.pings.ReportPing(userID, request.ServerID, rtt); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}
