package models

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

type ContactKind int

const (
	ContactEmail ContactKind = iota + 1
	ContactPhone
)

func (k ContactKind) String() string {
	switch k {
	case ContactEmail:
		return "email"
	case ContactPhone:
		return "phone"
	default:
		return "unknown"
	}
}

// Contact identifies a user by email or by phone. Values are normalised:
// emails lower-cased, phones in E.164.
type Contact struct {
	Kind  ContactKind
	Value string
}

var (
	ErrContactMissing = errors.New("email or phone is required")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrInvalidPhone   = errors.New("invalid phone number")
)

func EmailContact(email string) Contact {
	return Contact{Kind: ContactEmail, Value: strings.ToLower(strings.TrimSpace(email))}
}

// ParseContact resolves the request identifier once. Email wins when both are
// given. Phone numbers without a country prefix are read in defaultRegion.
func ParseContact(email, phone, defaultRegion string) (Contact, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	switch {
	case email != "":
		c := EmailContact(email)
		if err := validation.Validate(c.Value, is.Email); err != nil {
			return Contact{}, ErrInvalidEmail
		}
		return c, nil
	case phone != "":
		normalized, err := NormalizePhone(phone, defaultRegion)
		if err != nil {
			return Contact{}, err
		}
		return Contact{Kind: ContactPhone, Value: normalized}, nil
	default:
		return Contact{}, ErrContactMissing
	}
}

// NormalizePhone formats a phone number as E.164.
func NormalizePhone(phone, defaultRegion string) (string, error) {
	num, err := phonenumbers.Parse(phone, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (c Contact) IsEmail() bool {
	return c.Kind == ContactEmail
}

// Column is the users column this contact is looked up by.
func (c Contact) Column() string {
	if c.Kind == ContactPhone {
		return "phone"
	}
	return "email"
}

func (c Contact) String() string {
	return c.Value
}
