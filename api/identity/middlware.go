// Package identity guards API routes using access tokens issued by the
// identity service.
package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/beka-birhanu/gameloader-api/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextUserClaims is the key used to store user claims in the Gin context.
	ContextUserClaims = "userClaims"

	// claimUserID is the token claim carrying the authenticated user's ID.
	claimUserID = "userID"
)

var errNoUserClaim = errors.New("no user id claim on request")

func Authoriz(ts i.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Retrieve the access token from the Authorization header.
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Status(http.StatusUnauthorized) // No token found in the header.
			c.Abort()
			return
		}

		// Split the "Bearer" prefix from the token.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Status(http.StatusUnauthorized) // Malformed Authorization header.
			c.Abort()
			return
		}

		// Extract the token part.
		token := parts[1]

		// Validate the token.
		claims, err := ts.Decode(token)
		if err != nil {
			c.Status(http.StatusUnauthorized)
			c.Abort()
			return
		}

		// Attach user claims to the request context for further use.
		c.Set(ContextUserClaims, claims)
		c.Next()
	}
}

// UserIDFromContext extracts the authenticated user's ID from the claims
// attached by Authoriz.
func UserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	raw, ok := c.Get(ContextUserClaims)
	if !ok {
		return uuid.Nil, errNoUserClaim
	}
	claims, ok := raw.(map[string]interface{})
	if !ok {
		return uuid.Nil, errNoUserClaim
	}
	idStr, ok := claims[claimUserID].(string)
	if !ok {
		return uuid.Nil, errNoUserClaim
	}
	return uuid.Parse(idStr)
}
