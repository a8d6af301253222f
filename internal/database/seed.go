package database

import (
	"fmt"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"gorm.io/gorm"
)

type seedUser struct {
	name    string
	email   string
	phone   string
	role    models.Role
	station string
}

type seedParcel struct {
	trackingNumber  string
	from, to        string
	status          models.ParcelStatus
	weight          float64
	description     string
	senderName      string
	receiverName    string
	senderContact   string
	receiverContact string
}

type seedMessage struct {
	parcel   string
	from, to string
	content  string
	read     bool
}

var seedStations = []models.Station{
	{Name: "Head Office", Code: "HQ001", Location: "New York", IsMaster: true},
	{Name: "Downtown Branch", Code: "NYC01", Location: "New York"},
	{Name: "Westside Station", Code: "CHI01", Location: "Chicago"},
	{Name: "Central Hub", Code: "LA001", Location: "Los Angeles"},
}

var seedUsers = []seedUser{
	{name: "Admin User", email: "admin@example.com", phone: "+11234567890", role: models.RoleMaster, station: "HQ001"},
	{name: "Downtown Manager", email: "downtown@example.com", phone: "+12234567890", role: models.RoleUser, station: "NYC01"},
	{name: "Chicago Manager", email: "chicago@example.com", phone: "+13234567890", role: models.RoleUser, station: "CHI01"},
	{name: "LA Manager", email: "la@example.com", phone: "+14234567890", role: models.RoleUser, station: "LA001"},
}

var seedParcels = []seedParcel{
	{
		trackingNumber: "PMS-12345678", from: "NYC01", to: "CHI01", status: models.ParcelStatusInTransit,
		weight: 2.5, description: "Fragile electronics item",
		senderName: "John Doe", receiverName: "Jane Smith",
		senderContact: "5551234567", receiverContact: "5559876543",
	},
	{
		trackingNumber: "PMS-87654321", from: "CHI01", to: "LA001", status: models.ParcelStatusPending,
		weight: 1.2, description: "Documents",
		senderName: "Mike Johnson", receiverName: "Sarah Wilson",
		senderContact: "5551112222", receiverContact: "5553334444",
	},
	{
		trackingNumber: "PMS-ABCDEFGH", from: "LA001", to: "NYC01", status: models.ParcelStatusDelivered,
		weight: 5.0, description: "Books",
		senderName: "Alex Brown", receiverName: "Chris Green",
		senderContact: "5555556666", receiverContact: "5557778888",
	},
}

var seedMessages = []seedMessage{
	{parcel: "PMS-12345678", from: "NYC01", to: "CHI01", content: "Package has been dispatched from Downtown Branch.", read: true},
	{parcel: "PMS-12345678", from: "CHI01", to: "NYC01", content: "Package received at Westside Station. Will deliver tomorrow."},
	{parcel: "PMS-87654321", from: "CHI01", to: "LA001", content: "Please confirm delivery address for this package."},
}

// Seed loads demo stations, users and parcels into an empty database. It is
// a no-op when any station exists.
func Seed(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&models.Station{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		stations := make([]models.Station, len(seedStations))
		copy(stations, seedStations)
		if err := tx.Create(&stations).Error; err != nil {
			return fmt.Errorf("seed stations: %w", err)
		}
		byCode := make(map[string]models.Station, len(stations))
		for _, st := range stations {
			byCode[st.Code] = st
		}

		for _, su := range seedUsers {
			email, phone := su.email, su.phone
			user := models.User{
				Name:      su.name,
				Email:     &email,
				Phone:     &phone,
				Role:      su.role,
				StationID: byCode[su.station].ID,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", su.email, err)
			}
		}

		parcels := make(map[string]uint, len(seedParcels))
		for _, sp := range seedParcels {
			weight := sp.weight
			parcel := models.Parcel{
				TrackingNumber:    sp.trackingNumber,
				SenderStationID:   byCode[sp.from].ID,
				ReceiverStationID: byCode[sp.to].ID,
				Status:            sp.status,
				Weight:            &weight,
				Description:       sp.description,
				SenderName:        sp.senderName,
				ReceiverName:      sp.receiverName,
				SenderContact:     sp.senderContact,
				ReceiverContact:   sp.receiverContact,
			}
			if err := tx.Create(&parcel).Error; err != nil {
				return fmt.Errorf("seed parcel %s: %w", sp.trackingNumber, err)
			}
			parcels[sp.trackingNumber] = parcel.ID
		}

		for _, sm := range seedMessages {
			msg := models.Message{
				FromStationID:  byCode[sm.from].ID,
				ToStationID:    byCode[sm.to].ID,
				ParcelID:       parcels[sm.parcel],
				Content:        sm.content,
				Read:           sm.read,
				IsMasterCopied: true,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("seed message for %s: %w", sm.parcel, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
