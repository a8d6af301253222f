package handlers

import (
	"net/http"

	"github.com/chachabrian/railparcel-backend/internal/middleware"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// ListMessages serves the message board. The optional scope query narrows
// it relative to the caller's station: all, involving or others.
func ListMessages(messages *services.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, err := services.ParseScope(c.Query("scope"))
		if err != nil {
			respondError(c, err)
			return
		}

		list, err := messages.List(c.Request.Context(), scope, middleware.ActorFrom(c).StationID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func ListStationMessages(messages *services.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stationID, ok := uintParam(c, "stationId")
		if !ok {
			return
		}

		list, err := messages.ListForStation(c.Request.Context(), stationID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func UnreadMessages(messages *services.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stationID, ok := uintParam(c, "stationId")
		if !ok {
			return
		}

		list, err := messages.Unread(c.Request.Context(), stationID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func MarkMessageRead(messages *services.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}

		msg, err := messages.MarkRead(c.Request.Context(), middleware.ActorFrom(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": msg.ID, "read": true})
	}
}

func SendMessage(messages *services.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.SendMessageInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		msg, err := messages.Send(c.Request.Context(), middleware.ActorFrom(c), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}
