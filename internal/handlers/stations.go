package handlers

import (
	"net/http"

	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/gin-gonic/gin"
)

func ListStations(stations *services.StationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := stations.ListStations(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func CreateStation(stations *services.StationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.CreateStationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		station, err := stations.CreateStation(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, station)
	}
}

func ListUsers(stations *services.StationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := stations.ListUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func CreateUser(stations *services.StationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.CreateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		user, err := stations.CreateUser(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}
