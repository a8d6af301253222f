package handlers

import (
	"github.com/chachabrian/railparcel-backend/internal/middleware"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler subscribes the connection to its station's notifications.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.ActorFrom(c)
		if err := hub.ServeWS(c.Writer, c.Request, actor.UserID, actor.StationID); err != nil {
			// the upgrader has already written the HTTP error
			logger.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		}
	}
}
