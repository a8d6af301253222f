package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/internal/response"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	KeyUserID    = "userId"
	KeyName      = "name"
	KeyRole      = "role"
	KeyStationID = "stationId"
)

// TokenParser turns a session token into the actor it was issued to.
type TokenParser interface {
	ParseToken(token string) (services.Actor, error)
}

// AuthMiddleware accepts the session token from the configured header,
// an Authorization bearer header, or the token query parameter used by
// websocket clients.
func AuthMiddleware(tokens TokenParser, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c, header)
		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, "Authentication token required", response.CodeUnauthorized)
			return
		}

		actor, err := tokens.ParseToken(tokenString)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Invalid or expired token", response.CodeUnauthorized)
			return
		}

		c.Set(KeyUserID, actor.UserID)
		c.Set(KeyName, actor.Name)
		c.Set(KeyRole, actor.Role)
		c.Set(KeyStationID, actor.StationID)

		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, actor.UserID)
		ctx = context.WithValue(ctx, logger.StationIDKey, actor.StationID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context, header string) string {
	if header != "" {
		if token := strings.TrimSpace(c.GetHeader(header)); token != "" {
			return token
		}
	}

	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}

	return c.Query("token")
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(KeyRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "Insufficient permissions", response.CodeForbidden)
	}
}

// ActorFrom reads the identity AuthMiddleware stored on the context.
func ActorFrom(c *gin.Context) services.Actor {
	role, _ := c.Get(KeyRole)
	r, _ := role.(models.Role)
	return services.Actor{
		UserID:    c.GetUint(KeyUserID),
		Name:      c.GetString(KeyName),
		Role:      r,
		StationID: c.GetUint(KeyStationID),
	}
}
