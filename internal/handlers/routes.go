package handlers

import (
	"github.com/chachabrian/railparcel-backend/internal/middleware"
	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps is everything the routes need. Hub may be nil, in which case the
// websocket endpoint is not mounted.
type Deps struct {
	DB          *gorm.DB
	AuthHeader  string
	PhoneRegion string
	Auth        *services.AuthService
	Parcels     *services.ParcelService
	Messages    *services.MessageService
	Stations    *services.StationService
	Hub         *services.Hub
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/healthz", Healthz(d.DB))

	authenticate := middleware.AuthMiddleware(d.Auth, d.AuthHeader)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/send-otp", SendOTP(d.Auth, d.PhoneRegion))
			auth.POST("/verify-otp", VerifyOTP(d.Auth, d.PhoneRegion))
			auth.GET("/me", authenticate, Me(d.Auth))
		}

		api.GET("/stations", ListStations(d.Stations))

		if d.Hub != nil {
			api.GET("/ws", authenticate, WebSocketHandler(d.Hub))
		}

		admin := api.Group("/admin")
		{
			admin.POST("/send-otp", AdminSendOTP(d.Auth, d.PhoneRegion))
			admin.POST("/verify-otp", AdminVerifyOTP(d.Auth, d.PhoneRegion))

			managed := admin.Group("")
			managed.Use(authenticate, middleware.RequireRole(models.RoleAdmin, models.RoleMaster))
			{
				managed.GET("/stations", ListStations(d.Stations))
				managed.POST("/stations", CreateStation(d.Stations))
				managed.GET("/users", ListUsers(d.Stations))
				managed.POST("/users", CreateUser(d.Stations))
			}
		}

		protected := api.Group("")
		protected.Use(authenticate)
		{
			parcels := protected.Group("/parcels")
			{
				parcels.GET("", ListParcels(d.Parcels))
				parcels.POST("", CreateParcel(d.Parcels))
				parcels.GET("/station/:stationId", ListStationParcels(d.Parcels))
				parcels.GET("/:id", GetParcel(d.Parcels))
				parcels.PUT("/:id/status", UpdateParcelStatus(d.Parcels))
				parcels.POST("/:id/image", UploadParcelImage(d.Parcels))
				parcels.DELETE("/:id", DeleteParcel(d.Parcels))
			}

			messages := protected.Group("/messages")
			{
				messages.GET("", ListMessages(d.Messages))
				messages.GET("/all", ListMessages(d.Messages))
				messages.GET("/station/:stationId", ListStationMessages(d.Messages))
				messages.GET("/unread/:stationId", UnreadMessages(d.Messages))
				messages.PUT("/:id/read", MarkMessageRead(d.Messages))
				messages.POST("", SendMessage(d.Messages))
			}
		}
	}
}
