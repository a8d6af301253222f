package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/chachabrian/railparcel-backend/internal/middleware"
	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// createParcelRequest accepts JSON or a multipart form. The sender station
// is always the caller's own station.
type createParcelRequest struct {
	ReceiverStationID uint     `json:"receiver_station_id" form:"receiver_station_id"`
	SenderName        string   `json:"sender_name" form:"sender_name"`
	ReceiverName      string   `json:"receiver_name" form:"receiver_name"`
	SenderContact     string   `json:"sender_contact" form:"sender_contact"`
	ReceiverContact   string   `json:"receiver_contact" form:"receiver_contact"`
	Weight            *float64 `json:"weight" form:"weight"`
	Description       string   `json:"description" form:"description"`
	InitialMessage    string   `json:"initial_message" form:"initial_message"`
}

func ListParcels(parcels *services.ParcelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := parcels.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func ListStationParcels(parcels *services.ParcelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stationID, ok := uintParam(c, "stationId")
		if !ok {
			return
		}

		list, err := parcels.ListByStation(c.Request.Context(), stationID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetParcel(parcels *services.ParcelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}

		parcel, err := parcels.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, parcel)
	}
}

// CreateParcel stores the parcel and its notifications. A multipart request
// may carry the parcel photo in the "image" field.
func CreateParcel(parcels *services.ParcelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input createParcelRequest
		if err := c.ShouldBind(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		var image []byte
		var imageName string
		if file, err := c.FormFile("image"); err == nil {
			data, err := readUpload(c, file)
			if err != nil {
				return
			}
			image, imageName = data, file.Filename
		}

		in := services.CreateParcelInput{
			ReceiverStationID: input.ReceiverStationID,
			SenderName:        input.SenderName,
			ReceiverName:      input.ReceiverName,
			SenderContact:     input.SenderContact,
			ReceiverContact:   input.ReceiverContact,
			Weight:            input.Weight,
			Description:       input.Description,
			InitialMessage:    input.InitialMessage,
		}

		actor := middleware.ActorFrom(c)
		var parcel *models.Parcel
		var err error
		if image != nil {
			parcel, err = parcels.CreateWithImage(c.Request.Context(), actor, in, image, imageName)
		} else {
			parcel, err = parcels.Create(c.Request.Context(), actor, in)
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, parcel)
	}
}

func UpdateParcelStatus(parcels *services.ParcelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}

		var input struct {
			Status models.ParcelStatus `json:"status"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
		if !input.Status.Valid() {
			badRequest(c, "Invalid status value")
			return
		}

		parcel, err := parcels.UpdateStatus(c.Request.Context(), middleware.ActorFrom(c), id, input.Status)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":              parcel.ID,
			"tracking_number": parcel.TrackingNumber,
			"status":          parcel.Status,
			"updatedAt":       parcel.UpdatedAt,
		})
	}
}

func UploadParcelImage(parcels *services.ParcelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			badRequest(c, "Parcel image is required")
			return
		}
		data, err := readUpload(c, file)
		if err != nil {
			return
		}

		parcel, err := parcels.AttachImage(c.Request.Context(), id, data, file.Filename)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, parcel)
	}
}

func DeleteParcel(parcels *services.ParcelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}

		if err := parcels.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Parcel deleted successfully"})
	}
}

var errUploadRejected = errors.New("upload rejected")

// readUpload reads at most one byte past the image limit so oversized files
// are rejected without buffering them whole. It writes the error response
// itself.
func readUpload(c *gin.Context, header *multipart.FileHeader) ([]byte, error) {
	if header.Size > services.MaxImageSize {
		badRequest(c, "Image exceeds the 5MB limit")
		return nil, errUploadRejected
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, err)
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, services.MaxImageSize+1))
	if err != nil {
		respondError(c, err)
		return nil, err
	}
	if err := services.ValidateImage(data); err != nil {
		respondError(c, err)
		return nil, err
	}
	return data, nil
}
