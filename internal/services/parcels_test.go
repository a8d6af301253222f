package services

import (
	"context"
	"errors"
	"testing"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func validParcelInput(receiver models.Station) CreateParcelInput {
	weight := 2.5
	return CreateParcelInput{
		ReceiverStationID: receiver.ID,
		SenderName:        "Ada Lovelace",
		ReceiverName:      "Charles Babbage",
		SenderContact:     "ada@example.com",
		Weight:            &weight,
		Description:       "engine drawings",
		InitialMessage:    "handle with care",
	}
}

func TestCreateParcelFansOutToEveryStation(t *testing.T) {
	f := newFixture(t)
	notifier := &fakeNotifier{}
	svc := NewParcelService(f.db, newFakeStorage(), notifier)

	parcel, err := svc.Create(context.Background(), actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)

	assert.True(t, utils.IsTrackingNumber(parcel.TrackingNumber))
	assert.Equal(t, models.ParcelStatusPending, parcel.Status)
	assert.Equal(t, f.A.ID, parcel.SenderStationID)
	require.NotNil(t, parcel.SenderStation)
	require.NotNil(t, parcel.ReceiverStation)
	assert.Equal(t, "Bravo", parcel.ReceiverStation.Name)

	var msgs []models.Message
	require.NoError(t, f.db.Where("parcel_id = ?", parcel.ID).Order("to_station").Find(&msgs).Error)
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		assert.Equal(t, f.A.ID, m.FromStationID)
		assert.False(t, m.Read)
		if m.ToStationID == f.A.ID {
			assert.Contains(t, m.Content, "Ada Lovelace")
		} else {
			assert.NotContains(t, m.Content, "Ada Lovelace")
		}
		assert.Equal(t, m.ToStationID == f.M.ID, m.IsMasterCopied)
	}

	require.Len(t, notifier.messages, 1)
	assert.Len(t, notifier.messages[0], 4)
}

func TestCreateParcelValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewParcelService(f.db, nil, nil)
	ctx := context.Background()

	in := validParcelInput(f.B)
	in.InitialMessage = "   "
	_, err := svc.Create(ctx, actorAt(f.A), in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validParcelInput(f.B)
	in.SenderName = ""
	_, err = svc.Create(ctx, actorAt(f.A), in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validParcelInput(f.B)
	negative := -1.0
	in.Weight = &negative
	_, err = svc.Create(ctx, actorAt(f.A), in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validParcelInput(models.Station{ID: 999})
	_, err = svc.Create(ctx, actorAt(f.A), in)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, Actor{StationID: 999}, validParcelInput(f.B))
	assert.ErrorIs(t, err, ErrValidation)

	var count int64
	require.NoError(t, f.db.Model(&models.Parcel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateParcelRetriesTakenTrackingNumber(t *testing.T) {
	f := newFixture(t)
	candidates := []string{"PMS-AAAAAAAA", "PMS-AAAAAAAA", "PMS-BBBBBBBB"}
	next := 0
	gen := func() (string, error) {
		tn := candidates[next]
		next++
		return tn, nil
	}
	svc := NewParcelService(f.db, nil, nil, WithTrackingNumbers(gen))
	ctx := context.Background()

	first, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)
	second, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.C))
	require.NoError(t, err)

	assert.Equal(t, "PMS-AAAAAAAA", first.TrackingNumber)
	assert.Equal(t, "PMS-BBBBBBBB", second.TrackingNumber)
}

func TestCreateParcelRollsBackWhenFanOutFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_messages", func(tx *gorm.DB) {
		if tx.Statement.Table == "messages" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))
	notifier := &fakeNotifier{}
	svc := NewParcelService(f.db, nil, notifier)

	_, err := svc.Create(context.Background(), actorAt(f.A), validParcelInput(f.B))
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.Parcel{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, notifier.messages)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	notifier := &fakeNotifier{}
	svc := NewParcelService(f.db, nil, notifier)
	ctx := context.Background()

	parcel, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)
	notifier.messages = nil

	updated, err := svc.UpdateStatus(ctx, actorAt(f.C), parcel.ID, models.ParcelStatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, models.ParcelStatusInTransit, updated.Status)

	var msgs []models.Message
	require.NoError(t, f.db.Where("parcel_id = ? AND content = ?", parcel.ID, "Parcel status updated to: in_transit").
		Order("id").Find(&msgs).Error)
	require.Len(t, msgs, 3)
	assert.Equal(t, []uint{f.B.ID, f.A.ID, f.M.ID}, []uint{msgs[0].ToStationID, msgs[1].ToStationID, msgs[2].ToStationID})
	for _, m := range msgs {
		assert.Equal(t, f.C.ID, m.FromStationID)
		assert.True(t, m.IsMasterCopied)
	}

	require.Len(t, notifier.messages, 1)
	require.Len(t, notifier.parcels, 1)
	assert.Equal(t, models.ParcelStatusInTransit, notifier.parcels[0].Status)

	// Any status may follow any other.
	updated, err = svc.UpdateStatus(ctx, actorAt(f.A), parcel.ID, models.ParcelStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.ParcelStatusPending, updated.Status)
}

func TestUpdateStatusByReceiverNotifiesAllParties(t *testing.T) {
	f := newFixture(t)
	svc := NewParcelService(f.db, nil, nil)
	ctx := context.Background()

	parcel, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, actorAt(f.B), parcel.ID, models.ParcelStatusDelivered)
	require.NoError(t, err)

	var msgs []models.Message
	require.NoError(t, f.db.Where("parcel_id = ? AND content = ?", parcel.ID, "Parcel status updated to: delivered").
		Order("id").Find(&msgs).Error)
	require.Len(t, msgs, 3)
	assert.Equal(t, []uint{f.B.ID, f.A.ID, f.M.ID}, []uint{msgs[0].ToStationID, msgs[1].ToStationID, msgs[2].ToStationID})
	for _, m := range msgs {
		assert.Equal(t, f.B.ID, m.FromStationID)
	}
}

func TestUpdateStatusSelfShipmentOnlyNotifiesMaster(t *testing.T) {
	f := newFixture(t)
	svc := NewParcelService(f.db, nil, nil)
	ctx := context.Background()

	parcel, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.A))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, actorAt(f.A), parcel.ID, models.ParcelStatusDelivered)
	require.NoError(t, err)

	var msgs []models.Message
	require.NoError(t, f.db.Where("parcel_id = ? AND content = ?", parcel.ID, "Parcel status updated to: delivered").Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, f.M.ID, msgs[0].ToStationID)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newFixture(t)
	svc := NewParcelService(f.db, nil, nil)
	ctx := context.Background()

	parcel, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, actorAt(f.A), parcel.ID, models.ParcelStatus("teleported"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(ctx, actorAt(f.A), 9999, models.ParcelStatusLost)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParcelStatusPending, got.Status)
}

func TestDeleteParcelCascadesMessagesAndImage(t *testing.T) {
	f := newFixture(t)
	storage := newFakeStorage()
	svc := NewParcelService(f.db, storage, nil)
	ctx := context.Background()

	parcel, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)
	parcel, err = svc.AttachImage(ctx, parcel.ID, pngBytes, "box.png")
	require.NoError(t, err)
	require.NotEmpty(t, parcel.ImageURL)

	require.NoError(t, svc.Delete(ctx, actorAt(f.A), parcel.ID))

	var msgs []models.Message
	require.NoError(t, f.db.Where("parcel_id = ?", parcel.ID).Find(&msgs).Error)
	assert.Empty(t, msgs)

	_, err = svc.Get(ctx, parcel.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{parcel.ImageURL}, storage.deleted)

	err = svc.Delete(ctx, actorAt(f.A), parcel.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetIncludesMessageThread(t *testing.T) {
	f := newFixture(t)
	svc := NewParcelService(f.db, nil, nil)
	ctx := context.Background()

	parcel, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)

	got, err := svc.Get(ctx, parcel.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)
	for _, m := range got.Messages {
		require.NotNil(t, m.FromStation)
		require.NotNil(t, m.ToStation)
	}
}

func TestListByStation(t *testing.T) {
	f := newFixture(t)
	svc := NewParcelService(f.db, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)
	_, err = svc.Create(ctx, actorAt(f.B), validParcelInput(f.C))
	require.NoError(t, err)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forB, err := svc.ListByStation(ctx, f.B.ID)
	require.NoError(t, err)
	assert.Len(t, forB, 2)

	forA, err := svc.ListByStation(ctx, f.A.ID)
	require.NoError(t, err)
	assert.Len(t, forA, 1)

	forM, err := svc.ListByStation(ctx, f.M.ID)
	require.NoError(t, err)
	assert.Empty(t, forM)

	_, err = svc.ListByStation(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachImage(t *testing.T) {
	f := newFixture(t)
	storage := newFakeStorage()
	svc := NewParcelService(f.db, storage, nil)
	ctx := context.Background()

	parcel, err := svc.Create(ctx, actorAt(f.A), validParcelInput(f.B))
	require.NoError(t, err)

	_, err = svc.AttachImage(ctx, parcel.ID, []byte("plain text, not an image"), "notes.txt")
	assert.ErrorIs(t, err, ErrValidation)

	first, err := svc.AttachImage(ctx, parcel.ID, pngBytes, "a.png")
	require.NoError(t, err)
	second, err := svc.AttachImage(ctx, parcel.ID, jpegBytes, "b.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first.ImageURL, second.ImageURL)
	assert.Equal(t, []string{first.ImageURL}, storage.deleted)

	_, err = svc.AttachImage(ctx, 999, pngBytes, "a.png")
	assert.ErrorIs(t, err, ErrNotFound)

	storage.failPut = true
	_, err = svc.AttachImage(ctx, parcel.ID, pngBytes, "c.png")
	assert.Error(t, err)
}

func TestCreateWithImage(t *testing.T) {
	f := newFixture(t)
	storage := newFakeStorage()
	svc := NewParcelService(f.db, storage, nil)
	ctx := context.Background()

	parcel, err := svc.CreateWithImage(ctx, actorAt(f.A), validParcelInput(f.B), pngBytes, "box.png")
	require.NoError(t, err)
	assert.NotEmpty(t, parcel.ImageURL)
	assert.Contains(t, storage.objects, parcel.ImageURL)

	var count int64
	require.NoError(t, f.db.Model(&models.Parcel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateWithImageStorageFailureCreatesNothing(t *testing.T) {
	f := newFixture(t)
	storage := newFakeStorage()
	storage.failPut = true
	svc := NewParcelService(f.db, storage, nil)

	_, err := svc.CreateWithImage(context.Background(), actorAt(f.A), validParcelInput(f.B), pngBytes, "box.png")
	require.Error(t, err)

	var parcels, messages int64
	require.NoError(t, f.db.Model(&models.Parcel{}).Count(&parcels).Error)
	require.NoError(t, f.db.Model(&models.Message{}).Count(&messages).Error)
	assert.Zero(t, parcels)
	assert.Zero(t, messages)
}

func TestCreateWithImageRemovesImageWhenCreateFails(t *testing.T) {
	f := newFixture(t)
	storage := newFakeStorage()
	svc := NewParcelService(f.db, storage, nil)

	in := validParcelInput(f.B)
	in.ReceiverStationID = 999
	_, err := svc.CreateWithImage(context.Background(), actorAt(f.A), in, pngBytes, "box.png")
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, storage.deleted, 1)
	assert.Empty(t, storage.objects)
}

func TestValidateImageSize(t *testing.T) {
	big := make([]byte, MaxImageSize+1)
	copy(big, pngBytes)
	assert.ErrorIs(t, ValidateImage(big), ErrValidation)
	assert.ErrorIs(t, ValidateImage(nil), ErrValidation)
	assert.NoError(t, ValidateImage(pngBytes))
	assert.NoError(t, ValidateImage(jpegBytes))
}
