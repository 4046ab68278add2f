// Package i defines the interface all API controllers implement.
package i

import "github.com/gin-gonic/gin"

// Controller registers HTTP routes on the router's route groups.
type Controller interface {
	// RegisterPublic registers routes reachable without authentication.
	RegisterPublic(route *gin.RouterGroup)

	// RegisterProtected registers routes requiring a valid access token.
	RegisterProtected(route *gin.RouterGroup)
}
