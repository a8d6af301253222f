package models

import (
	"time"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleMaster Role = "master"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMaster, RoleAdmin:
		return true
	}
	return false
}

// IsAdministrative reports whether the role may use the admin surface.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleMaster
}

// User is a station operator. LastOTP and OTPExpiresAt hold the pending
// one-time code and are either both nil or both set.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Email        *string    `gorm:"uniqueIndex" json:"email"`
	Phone        *string    `gorm:"uniqueIndex" json:"phone"`
	Role         Role       `gorm:"type:varchar(16);not null;default:user" json:"role"`
	StationID    uint       `gorm:"not null;index" json:"station_id"`
	Station      *Station   `gorm:"foreignKey:StationID" json:"station,omitempty"`
	LastOTP      *string    `gorm:"column:last_otp" json:"-"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at" json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Profile is what the API returns for the authenticated user.
type Profile struct {
	ID      uint           `json:"id"`
	Name    string         `json:"name"`
	Email   *string        `json:"email"`
	Phone   *string        `json:"phone"`
	Role    Role           `json:"role"`
	Station ProfileStation `json:"station"`
}

type ProfileStation struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	IsMaster bool   `json:"is_master"`
}

// Profile requires the station to be loaded; ok is false otherwise.
func (u *User) Profile() (Profile, bool) {
	if u.Station == nil || u.Station.ID == 0 {
		return Profile{}, false
	}
	return Profile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
		Role:  u.Role,
		Station: ProfileStation{
			ID:       u.Station.ID,
			Name:     u.Station.Name,
			Code:     u.Station.Code,
			IsMaster: u.Station.IsMaster,
		},
	}, true
}
