package services

import "github.com/chachabrian/railparcel-backend/internal/models"

// Actor is the authenticated station user behind a request.
type Actor struct {
	UserID    uint
	Name      string
	Role      models.Role
	StationID uint
}
