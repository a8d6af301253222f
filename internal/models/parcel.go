package models

import (
	"encoding/json"
	"time"
)

type ParcelStatus string

const (
	ParcelStatusPending   ParcelStatus = "pending"
	ParcelStatusInTransit ParcelStatus = "in_transit"
	ParcelStatusDelivered ParcelStatus = "delivered"
	ParcelStatusReturned  ParcelStatus = "returned"
	ParcelStatusLost      ParcelStatus = "lost"
)

// ParcelStatuses is the closed set of statuses. Any status may follow any other.
var ParcelStatuses = []ParcelStatus{
	ParcelStatusPending,
	ParcelStatusInTransit,
	ParcelStatusDelivered,
	ParcelStatusReturned,
	ParcelStatusLost,
}

func (s ParcelStatus) Valid() bool {
	for _, v := range ParcelStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Parcel struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	TrackingNumber    string       `gorm:"uniqueIndex;size:12;not null" json:"tracking_number"`
	SenderStationID   uint         `gorm:"not null;index" json:"sender_station_id"`
	ReceiverStationID uint         `gorm:"not null;index" json:"receiver_station_id"`
	SenderStation     *Station     `gorm:"foreignKey:SenderStationID" json:"senderStation,omitempty"`
	ReceiverStation   *Station     `gorm:"foreignKey:ReceiverStationID" json:"receiverStation,omitempty"`
	Status            ParcelStatus `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	Weight            *float64     `json:"weight"`
	Description       string       `json:"description"`
	SenderName        string       `gorm:"not null" json:"sender_name"`
	ReceiverName      string       `gorm:"not null" json:"receiver_name"`
	SenderContact     string       `json:"sender_contact"`
	ReceiverContact   string       `json:"receiver_contact"`
	ImageURL          string       `gorm:"column:image_url" json:"image_url"`
	Messages          []Message    `gorm:"foreignKey:ParcelID" json:"messages,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

func (Parcel) TableName() string {
	return "parcels"
}

// MarshalJSON replaces the preloaded stations with their summaries.
func (p Parcel) MarshalJSON() ([]byte, error) {
	type parcel Parcel
	return json.Marshal(struct {
		parcel
		SenderStation   *StationSummary `json:"senderStation,omitempty"`
		ReceiverStation *StationSummary `json:"receiverStation,omitempty"`
	}{
		parcel:          parcel(p),
		SenderStation:   summaryOf(p.SenderStation),
		ReceiverStation: summaryOf(p.ReceiverStation),
	})
}
