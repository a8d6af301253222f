package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/chachabrian/railparcel-backend/internal/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"gorm.io/gorm"
)

var stationCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,16}$`)

type CreateStationInput struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Location string `json:"location"`
	IsMaster bool   `json:"is_master"`
}

func (in CreateStationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Code, validation.Required, validation.Match(stationCodePattern)),
		validation.Field(&in.Location, validation.Length(0, 255)),
	)
}

type CreateUserInput struct {
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Role      models.Role `json:"role"`
	StationID uint        `json:"station_id"`
}

func (in CreateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, is.Email),
		validation.Field(&in.Phone, validation.By(func(interface{}) error {
			if in.Email == "" && in.Phone == "" {
				return errors.New("email or phone is required")
			}
			return nil
		})),
		validation.Field(&in.Role, validation.In(models.RoleUser, models.RoleMaster, models.RoleAdmin)),
		validation.Field(&in.StationID, validation.Required),
	)
}

// StationService is the admin-side directory of stations and their users.
type StationService struct {
	db          *gorm.DB
	phoneRegion string
}

func NewStationService(db *gorm.DB, phoneRegion string) *StationService {
	return &StationService{db: db, phoneRegion: phoneRegion}
}

func (s *StationService) ListStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	err := s.db.WithContext(ctx).Order("id").Find(&stations).Error
	return stations, err
}

func (s *StationService) CreateStation(ctx context.Context, in CreateStationInput) (*models.Station, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Location = strings.TrimSpace(in.Location)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	station := models.Station{Name: in.Name, Code: in.Code, Location: in.Location, IsMaster: in.IsMaster}
	if err := s.db.WithContext(ctx).Create(&station).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: station code %s", ErrConflict, in.Code)
		}
		return nil, err
	}
	return &station, nil
}

func (s *StationService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Preload("Station").Order("id").Find(&users).Error
	return users, err
}

// CreateUser adds an operator to a station. Contacts are stored normalised
// so OTP lookups match however the user types them.
func (s *StationService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	user := models.User{Name: in.Name, Role: in.Role, StationID: in.StationID}
	if in.Email != "" {
		email := models.EmailContact(in.Email).Value
		user.Email = &email
	}
	if in.Phone != "" {
		phone, err := models.NormalizePhone(in.Phone, s.phoneRegion)
		if err != nil {
			return nil, invalid(err)
		}
		user.Phone = &phone
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Station{}, in.StationID).Error; err != nil {
			return stationLookupError(err, "station not found")
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: a user with this email or phone", ErrConflict)
			}
			return err
		}
		return tx.Preload("Station").First(&user, user.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
