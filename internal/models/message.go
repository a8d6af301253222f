package models

import (
	"encoding/json"
	"time"
)

// Message is a notification from one station to another about a parcel.
// Only Read changes after creation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FromStationID  uint      `gorm:"column:from_station;not null;index" json:"from_station"`
	ToStationID    uint      `gorm:"column:to_station;not null;index" json:"to_station"`
	ParcelID       uint      `gorm:"not null;index" json:"parcel_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Read           bool      `gorm:"not null;default:false" json:"read"`
	IsMasterCopied bool      `gorm:"column:is_master_copied;not null;default:false" json:"is_master_copied"`
	FromStation    *Station  `gorm:"foreignKey:FromStationID" json:"sender,omitempty"`
	ToStation      *Station  `gorm:"foreignKey:ToStationID" json:"receiver,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Message) TableName() string {
	return "messages"
}

func (m Message) MarshalJSON() ([]byte, error) {
	type message Message
	return json.Marshal(struct {
		message
		FromStation *StationSummary `json:"sender,omitempty"`
		ToStation   *StationSummary `json:"receiver,omitempty"`
	}{
		message:     message(m),
		FromStation: summaryOf(m.FromStation),
		ToStation:   summaryOf(m.ToStation),
	})
}
