package models

import (
	"time"
)

// SetOTP stores a freshly issued code together with its expiry.
func (u *User) SetOTP(code string, expiresAt time.Time) {
	u.LastOTP = &code
	u.OTPExpiresAt = &expiresAt
}

// ClearOTP drops the pending code so it cannot be replayed.
func (u *User) ClearOTP() {
	u.LastOTP = nil
	u.OTPExpiresAt = nil
}

// HasPendingOTP reports whether a code has been issued and not yet consumed.
func (u *User) HasPendingOTP() bool {
	return u.LastOTP != nil && u.OTPExpiresAt != nil
}

// OTPMatches checks a submitted code at the given instant. Expired and wrong
// codes are indistinguishable to the caller.
func (u *User) OTPMatches(code string, now time.Time) bool {
	if !u.HasPendingOTP() {
		return false
	}
	if now.After(*u.OTPExpiresAt) {
		return false
	}
	return *u.LastOTP == code
}

// OTPColumns returns the column values for persisting the OTP state in a
// single update. Nil pointers become SQL NULL.
func (u *User) OTPColumns() map[string]any {
	return map[string]any{
		"last_otp":       u.LastOTP,
		"otp_expires_at": u.OTPExpiresAt,
	}
}
