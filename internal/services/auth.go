package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/railparcel-backend/internal/config"
	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/chachabrian/railparcel-backend/pkg/utils"
	"gorm.io/gorm"
)

// OTPIssued is returned to the client after a code was generated.
type OTPIssued struct {
	ExpiresAt time.Time
	Channel   string
}

// Session is the result of a successful verification.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      models.Profile
}

// AuthService runs the OTP login flow. Pending codes live on the user row,
// so any API replica can verify a code another one issued.
type AuthService struct {
	db        *gorm.DB
	tokens    *utils.TokenIssuer
	delivery  *DeliveryChain
	limiter   *RateLimiter
	otpLength int
	otpTTL    time.Duration
	now       func() time.Time
	generate  func(length int) (string, error)
}

type AuthOption func(*AuthService)

func WithRateLimiter(l *RateLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func WithCodeGenerator(gen func(length int) (string, error)) AuthOption {
	return func(s *AuthService) { s.generate = gen }
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenIssuer, delivery *DeliveryChain, cfg config.OTPConfig, opts ...AuthOption) *AuthService {
	s := &AuthService{
		db:        db,
		tokens:    tokens,
		delivery:  delivery,
		otpLength: cfg.Length,
		otpTTL:    cfg.TTL,
		now:       time.Now,
		generate:  utils.GenerateOTP,
	}
	if s.otpLength <= 0 {
		s.otpLength = utils.DefaultOTPLength
	}
	if s.otpTTL <= 0 {
		s.otpTTL = utils.OTPExpiration
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestOTP issues a fresh code for the user behind contact. A previous
// pending code is overwritten. Delivery problems never fail the request.
func (s *AuthService) RequestOTP(ctx context.Context, contact models.Contact) (*OTPIssued, error) {
	return s.issue(ctx, contact, false)
}

// RequestAdminOTP is RequestOTP restricted to admin and master users.
func (s *AuthService) RequestAdminOTP(ctx context.Context, contact models.Contact) (*OTPIssued, error) {
	return s.issue(ctx, contact, true)
}

func (s *AuthService) VerifyOTP(ctx context.Context, contact models.Contact, code string) (*Session, error) {
	return s.verify(ctx, contact, code, false)
}

func (s *AuthService) VerifyAdminOTP(ctx context.Context, contact models.Contact, code string) (*Session, error) {
	return s.verify(ctx, contact, code, true)
}

func (s *AuthService) issue(ctx context.Context, contact models.Contact, admin bool) (*OTPIssued, error) {
	if err := s.limiter.Allow(ctx, contact.Value); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, contact, false)
	if err != nil {
		return nil, err
	}
	if admin && !user.Role.IsAdministrative() {
		return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
	}

	code, err := s.generate(s.otpLength)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.otpTTL)
	user.SetOTP(code, expiresAt)

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(user.OTPColumns()).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	result := s.delivery.Deliver(ctx, contact, code, expiresAt)
	logger.InfoContext(ctx, "otp issued",
		"user_id", user.ID, "contact_kind", contact.Kind.String(), "channel", result.Channel, "fallback", result.Fallback)

	return &OTPIssued{ExpiresAt: expiresAt, Channel: result.Channel}, nil
}

func (s *AuthService) verify(ctx context.Context, contact models.Contact, code string, admin bool) (*Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid(errors.New("OTP is required"))
	}

	user, err := s.findUser(ctx, contact, true)
	if err != nil {
		return nil, err
	}
	if admin && !user.Role.IsAdministrative() {
		return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	if !user.OTPMatches(code, s.now()) {
		return nil, ErrInvalidOrExpired
	}

	profile, ok := user.Profile()
	if !ok {
		return nil, notFound("station")
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Name, string(user.Role), user.StationID)
	if err != nil {
		return nil, err
	}

	// Consume the code only if nobody else did in the meantime.
	user.ClearOTP()
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND last_otp = ?", user.ID, code).
		Updates(user.OTPColumns())
	if res.Error != nil {
		return nil, fmt.Errorf("failed to clear otp: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidOrExpired
	}

	logger.InfoContext(ctx, "otp verified", "user_id", user.ID, "station_id", user.StationID)
	return &Session{Token: token, ExpiresAt: expiresAt, User: profile}, nil
}

// CurrentUser loads the profile behind a session token.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*models.Profile, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Station").First(&user, userID).Error; err != nil {
		return nil, recordLookupError(err, "user")
	}
	profile, ok := user.Profile()
	if !ok {
		return nil, notFound("station")
	}
	return &profile, nil
}

// ParseToken validates a session token and returns the actor it names.
func (s *AuthService) ParseToken(token string) (Actor, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return Actor{
		UserID:    claims.ID,
		Name:      claims.Name,
		Role:      models.Role(claims.Role),
		StationID: claims.StationID,
	}, nil
}

func (s *AuthService) findUser(ctx context.Context, contact models.Contact, withStation bool) (*models.User, error) {
	if contact.Value == "" {
		return nil, invalid(models.ErrContactMissing)
	}

	q := s.db.WithContext(ctx)
	if withStation {
		q = q.Preload("Station")
	}

	var user models.User
	if err := q.Where(contact.Column()+" = ?", contact.Value).First(&user).Error; err != nil {
		return nil, recordLookupError(err, "user")
	}
	return &user, nil
}
