package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	validation "github.com/go-ozzo/ozzo-validation"
	"gorm.io/gorm"
)

// MessageScope filters the message board relative to the viewer's station.
type MessageScope string

const (
	ScopeAll       MessageScope = "all"
	ScopeInvolving MessageScope = "involving"
	ScopeOthers    MessageScope = "others"
)

func ParseScope(s string) (MessageScope, error) {
	switch scope := MessageScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeInvolving, ScopeOthers:
		return scope, nil
	default:
		return "", invalid(fmt.Errorf("unknown scope %q", s))
	}
}

type SendMessageInput struct {
	ParcelID    uint   `json:"parcel_id"`
	ToStationID uint   `json:"to_station"`
	Content     string `json:"content"`
}

func (in SendMessageInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ParcelID, validation.Required),
		validation.Field(&in.ToStationID, validation.Required),
		validation.Field(&in.Content, validation.Required, validation.Length(1, 2000)),
	)
}

type MessageService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewMessageService(db *gorm.DB, notifier Notifier) *MessageService {
	return &MessageService{db: db, notifier: notifier}
}

// List returns the board newest first. Every station may read every
// message; scope only narrows the view.
func (s *MessageService) List(ctx context.Context, scope MessageScope, stationID uint) ([]models.Message, error) {
	q := s.query(ctx)
	switch scope {
	case ScopeInvolving:
		q = q.Where("from_station = ? OR to_station = ?", stationID, stationID)
	case ScopeOthers:
		q = q.Where("from_station <> ? AND to_station <> ?", stationID, stationID)
	}

	var messages []models.Message
	err := q.Find(&messages).Error
	return messages, err
}

func (s *MessageService) ListForStation(ctx context.Context, stationID uint) ([]models.Message, error) {
	if err := s.db.WithContext(ctx).First(&models.Station{}, stationID).Error; err != nil {
		return nil, recordLookupError(err, "station")
	}
	return s.List(ctx, ScopeInvolving, stationID)
}

func (s *MessageService) Unread(ctx context.Context, stationID uint) ([]models.Message, error) {
	var messages []models.Message
	err := s.query(ctx).
		Where(map[string]any{"to_station": stationID, "read": false}).
		Find(&messages).Error
	return messages, err
}

// MarkRead flips the read flag. Only the recipient station may do it.
func (s *MessageService) MarkRead(ctx context.Context, actor Actor, messageID uint) (*models.Message, error) {
	db := s.db.WithContext(ctx)

	var msg models.Message
	if err := db.First(&msg, messageID).Error; err != nil {
		return nil, recordLookupError(err, "message")
	}
	if msg.ToStationID != actor.StationID {
		return nil, fmt.Errorf("%w: only the recipient station can mark a message read", ErrForbidden)
	}
	if !msg.Read {
		if err := db.Model(&msg).Update("read", true).Error; err != nil {
			return nil, err
		}
	}
	return &msg, nil
}

// Send posts a note from the actor's station about a parcel.
func (s *MessageService) Send(ctx context.Context, actor Actor, in SendMessageInput) (*models.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parcel models.Parcel
		if err := tx.First(&parcel, in.ParcelID).Error; err != nil {
			return recordLookupError(err, "parcel")
		}
		var to models.Station
		if err := tx.First(&to, in.ToStationID).Error; err != nil {
			return stationLookupError(err, "recipient station not found")
		}

		msg = PlanDirect(parcel, actor.StationID, to, in.Content)
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.MessagesCreated(ctx, []models.Message{msg}); err != nil {
			logger.WarnContext(ctx, "message notification failed", "message_id", msg.ID, "error", err)
		}
	}
	return &msg, nil
}

func (s *MessageService) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("FromStation").
		Preload("ToStation").
		Order("created_at DESC, id DESC")
}
