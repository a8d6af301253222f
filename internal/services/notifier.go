package services

import (
	"context"
	"errors"

	"github.com/chachabrian/railparcel-backend/internal/models"
)

// Notifier is told about committed changes. It is never called inside a
// database transaction.
type Notifier interface {
	MessagesCreated(ctx context.Context, messages []models.Message) error
	ParcelUpdated(ctx context.Context, parcel models.Parcel) error
}

// MultiNotifier forwards to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) MessagesCreated(ctx context.Context, messages []models.Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.MessagesCreated(ctx, messages); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) ParcelUpdated(ctx context.Context, parcel models.Parcel) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.ParcelUpdated(ctx, parcel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
