package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/chachabrian/railparcel-backend/pkg/utils"
	"github.com/gabriel-vasile/mimetype"
	validation "github.com/go-ozzo/ozzo-validation"
	"gorm.io/gorm"
)

const (
	MaxImageSize        = 5 << 20
	trackingNumberTries = 5
)

var allowedImageTypes = []string{"image/jpeg", "image/png"}

type CreateParcelInput struct {
	ReceiverStationID uint     `json:"receiver_station_id"`
	SenderName        string   `json:"sender_name"`
	ReceiverName      string   `json:"receiver_name"`
	SenderContact     string   `json:"sender_contact"`
	ReceiverContact   string   `json:"receiver_contact"`
	Weight            *float64 `json:"weight"`
	Description       string   `json:"description"`
	InitialMessage    string   `json:"initial_message"`
}

func (in CreateParcelInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ReceiverStationID, validation.Required),
		validation.Field(&in.SenderName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.ReceiverName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.SenderContact, validation.Length(0, 255)),
		validation.Field(&in.ReceiverContact, validation.Length(0, 255)),
		validation.Field(&in.Weight, validation.Min(0.0)),
		validation.Field(&in.InitialMessage, validation.Required, validation.Length(1, 2000)),
	)
}

func (in *CreateParcelInput) trim() {
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.ReceiverName = strings.TrimSpace(in.ReceiverName)
	in.SenderContact = strings.TrimSpace(in.SenderContact)
	in.ReceiverContact = strings.TrimSpace(in.ReceiverContact)
	in.Description = strings.TrimSpace(in.Description)
	in.InitialMessage = strings.TrimSpace(in.InitialMessage)
}

// ParcelService owns parcel state changes. Every change and the messages it
// fans out are written in one transaction; listeners hear about them only
// after commit.
type ParcelService struct {
	db                *gorm.DB
	storage           Storage
	notifier          Notifier
	newTrackingNumber func() (string, error)
}

type ParcelOption func(*ParcelService)

func WithTrackingNumbers(gen func() (string, error)) ParcelOption {
	return func(s *ParcelService) { s.newTrackingNumber = gen }
}

func NewParcelService(db *gorm.DB, storage Storage, notifier Notifier, opts ...ParcelOption) *ParcelService {
	s := &ParcelService{
		db:                db,
		storage:           storage,
		notifier:          notifier,
		newTrackingNumber: utils.GenerateTrackingNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a parcel sent from the actor's station and notifies
// every station.
func (s *ParcelService) Create(ctx context.Context, actor Actor, in CreateParcelInput) (*models.Parcel, error) {
	in.trim()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	return s.create(ctx, actor, in, "")
}

// CreateWithImage stores the photo before the parcel transaction and saves
// its URL with the parcel, so a storage failure creates nothing. The stored
// object is removed again when the parcel cannot be saved.
func (s *ParcelService) CreateWithImage(ctx context.Context, actor Actor, in CreateParcelInput, data []byte, name string) (*models.Parcel, error) {
	in.trim()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	if s.storage == nil {
		return nil, errors.New("image storage is not configured")
	}
	if err := ValidateImage(data); err != nil {
		return nil, err
	}

	imageURL, err := s.storage.Store(ctx, data, name)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	parcel, err := s.create(ctx, actor, in, imageURL)
	if err != nil {
		if derr := s.storage.Delete(ctx, imageURL); derr != nil {
			logger.WarnContext(ctx, "failed to remove orphaned image", "url", imageURL, "error", derr)
		}
		return nil, err
	}
	return parcel, nil
}

func (s *ParcelService) create(ctx context.Context, actor Actor, in CreateParcelInput, imageURL string) (*models.Parcel, error) {
	var (
		parcel   models.Parcel
		messages []models.Message
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sender, receiver models.Station
		if err := tx.First(&sender, actor.StationID).Error; err != nil {
			return stationLookupError(err, "sender station not found")
		}
		if err := tx.First(&receiver, in.ReceiverStationID).Error; err != nil {
			return stationLookupError(err, "receiver station not found")
		}

		trackingNumber, err := s.uniqueTrackingNumber(tx)
		if err != nil {
			return err
		}

		parcel = models.Parcel{
			TrackingNumber:    trackingNumber,
			SenderStationID:   sender.ID,
			ReceiverStationID: receiver.ID,
			Status:            models.ParcelStatusPending,
			Weight:            in.Weight,
			Description:       in.Description,
			SenderName:        in.SenderName,
			ReceiverName:      in.ReceiverName,
			SenderContact:     in.SenderContact,
			ReceiverContact:   in.ReceiverContact,
			ImageURL:          imageURL,
		}
		if err := tx.Create(&parcel).Error; err != nil {
			return fmt.Errorf("failed to create parcel: %w", err)
		}

		var stations []models.Station
		if err := tx.Order("id").Find(&stations).Error; err != nil {
			return err
		}
		messages = PlanCreation(parcel, sender, stations, in.InitialMessage)
		if len(messages) > 0 {
			if err := tx.Create(&messages).Error; err != nil {
				return fmt.Errorf("failed to create messages: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.messagesCreated(ctx, messages)
	logger.InfoContext(ctx, "parcel created",
		"parcel_id", parcel.ID, "tracking_number", parcel.TrackingNumber, "messages", len(messages))

	return s.find(ctx, parcel.ID, false)
}

// UpdateStatus moves the parcel to any status of the closed set.
func (s *ParcelService) UpdateStatus(ctx context.Context, actor Actor, parcelID uint, status models.ParcelStatus) (*models.Parcel, error) {
	if !status.Valid() {
		return nil, invalid(fmt.Errorf("status must be one of %v", models.ParcelStatuses))
	}

	var (
		parcel   models.Parcel
		messages []models.Message
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&parcel, parcelID).Error; err != nil {
			return recordLookupError(err, "parcel")
		}
		if err := tx.Model(&parcel).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update parcel status: %w", err)
		}

		master, err := masterStation(tx)
		if err != nil {
			return err
		}
		messages = PlanStatusChange(parcel, actor.StationID, master)
		if len(messages) > 0 {
			if err := tx.Create(&messages).Error; err != nil {
				return fmt.Errorf("failed to create messages: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.messagesCreated(ctx, messages)
	if s.notifier != nil {
		if err := s.notifier.ParcelUpdated(ctx, parcel); err != nil {
			logger.WarnContext(ctx, "parcel update notification failed", "parcel_id", parcel.ID, "error", err)
		}
	}
	logger.InfoContext(ctx, "parcel status updated",
		"parcel_id", parcel.ID, "status", status, "messages", len(messages))

	return &parcel, nil
}

// Delete removes the parcel with all of its messages. The stored image is
// removed after commit; failures there are only logged.
func (s *ParcelService) Delete(ctx context.Context, actor Actor, parcelID uint) error {
	var parcel models.Parcel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&parcel, parcelID).Error; err != nil {
			return recordLookupError(err, "parcel")
		}
		if err := tx.Where("parcel_id = ?", parcel.ID).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(&parcel).Error; err != nil {
			return fmt.Errorf("failed to delete parcel: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if parcel.ImageURL != "" && s.storage != nil {
		if err := s.storage.Delete(ctx, parcel.ImageURL); err != nil {
			logger.WarnContext(ctx, "failed to delete parcel image", "parcel_id", parcel.ID, "error", err)
		}
	}
	logger.InfoContext(ctx, "parcel deleted", "parcel_id", parcel.ID, "by_station", actor.StationID)
	return nil
}

// Get returns the parcel with its stations and message thread.
func (s *ParcelService) Get(ctx context.Context, parcelID uint) (*models.Parcel, error) {
	return s.find(ctx, parcelID, true)
}

func (s *ParcelService) List(ctx context.Context) ([]models.Parcel, error) {
	var parcels []models.Parcel
	err := s.withStations(s.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Find(&parcels).Error
	return parcels, err
}

// ListByStation returns the parcels the station sends or receives.
func (s *ParcelService) ListByStation(ctx context.Context, stationID uint) ([]models.Parcel, error) {
	db := s.db.WithContext(ctx)
	if err := db.First(&models.Station{}, stationID).Error; err != nil {
		return nil, recordLookupError(err, "station")
	}

	var parcels []models.Parcel
	err := s.withStations(db).
		Where("sender_station_id = ? OR receiver_station_id = ?", stationID, stationID).
		Order("created_at DESC, id DESC").
		Find(&parcels).Error
	return parcels, err
}

// ValidateImage accepts JPEG and PNG payloads up to MaxImageSize.
func ValidateImage(data []byte) error {
	if len(data) == 0 {
		return invalid(errors.New("image is empty"))
	}
	if len(data) > MaxImageSize {
		return invalid(fmt.Errorf("image exceeds %d bytes", MaxImageSize))
	}
	if !mimetype.EqualsAny(mimetype.Detect(data).String(), allowedImageTypes...) {
		return invalid(errors.New("only JPEG and PNG images are allowed"))
	}
	return nil
}

// AttachImage stores the image and points the parcel at it, replacing any
// previous image.
func (s *ParcelService) AttachImage(ctx context.Context, parcelID uint, data []byte, name string) (*models.Parcel, error) {
	if s.storage == nil {
		return nil, errors.New("image storage is not configured")
	}
	if err := ValidateImage(data); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var parcel models.Parcel
	if err := db.First(&parcel, parcelID).Error; err != nil {
		return nil, recordLookupError(err, "parcel")
	}

	imageURL, err := s.storage.Store(ctx, data, name)
	if err != nil {
		return nil, err
	}

	previous := parcel.ImageURL
	if err := db.Model(&parcel).Update("image_url", imageURL).Error; err != nil {
		if derr := s.storage.Delete(ctx, imageURL); derr != nil {
			logger.WarnContext(ctx, "failed to remove orphaned image", "url", imageURL, "error", derr)
		}
		return nil, fmt.Errorf("failed to save image url: %w", err)
	}
	if previous != "" && previous != imageURL {
		if err := s.storage.Delete(ctx, previous); err != nil {
			logger.WarnContext(ctx, "failed to delete previous image", "parcel_id", parcel.ID, "error", err)
		}
	}

	return s.find(ctx, parcel.ID, false)
}

func (s *ParcelService) find(ctx context.Context, parcelID uint, withMessages bool) (*models.Parcel, error) {
	q := s.withStations(s.db.WithContext(ctx))
	if withMessages {
		q = q.Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).Preload("Messages.FromStation").Preload("Messages.ToStation")
	}

	var parcel models.Parcel
	if err := q.First(&parcel, parcelID).Error; err != nil {
		return nil, recordLookupError(err, "parcel")
	}
	return &parcel, nil
}

func (s *ParcelService) withStations(db *gorm.DB) *gorm.DB {
	return db.Preload("SenderStation").Preload("ReceiverStation")
}

func (s *ParcelService) uniqueTrackingNumber(tx *gorm.DB) (string, error) {
	for i := 0; i < trackingNumberTries; i++ {
		candidate, err := s.newTrackingNumber()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Parcel{}).Where("tracking_number = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free tracking number after %d attempts", trackingNumberTries)
}

func (s *ParcelService) messagesCreated(ctx context.Context, messages []models.Message) {
	if s.notifier == nil || len(messages) == 0 {
		return
	}
	if err := s.notifier.MessagesCreated(ctx, messages); err != nil {
		logger.WarnContext(ctx, "message notification failed", "error", err)
	}
}

// masterStation returns the lowest-id master station, or nil when none is
// flagged.
func masterStation(tx *gorm.DB) (*models.Station, error) {
	var master models.Station
	err := tx.Where("is_master = ?", true).Order("id").Limit(1).Find(&master).Error
	if err != nil {
		return nil, err
	}
	if master.ID == 0 {
		return nil, nil
	}
	return &master, nil
}

func recordLookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}

func stationLookupError(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid(errors.New(msg))
	}
	return err
}
