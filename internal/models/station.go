package models

import "time"

// Station is a railway location. Users, parcels and messages reference it.
type Station struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	Location  string    `json:"location"`
	IsMaster  bool      `gorm:"column:is_master;not null;default:false" json:"is_master"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Station) TableName() string {
	return "stations"
}

// StationSummary is the short form embedded in parcel and message payloads.
type StationSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func (s Station) Summary() StationSummary {
	return StationSummary{ID: s.ID, Name: s.Name, Code: s.Code}
}

// summaryOf is nil for a relation that was not preloaded.
func summaryOf(s *Station) *StationSummary {
	if s == nil || s.ID == 0 {
		return nil
	}
	summary := s.Summary()
	return &summary
}
