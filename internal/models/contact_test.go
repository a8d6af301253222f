package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContact(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		phone   string
		want    Contact
		wantErr error
	}{
		{name: "email normalised", email: "  User@Example.COM ", want: Contact{Kind: ContactEmail, Value: "user@example.com"}},
		{name: "email wins over phone", email: "a@b.io", phone: "+14155552671", want: Contact{Kind: ContactEmail, Value: "a@b.io"}},
		{name: "international phone", phone: "+44 20 7946 0958", want: Contact{Kind: ContactPhone, Value: "+442079460958"}},
		{name: "national phone uses region", phone: "(415) 555-2671", want: Contact{Kind: ContactPhone, Value: "+14155552671"}},
		{name: "missing", wantErr: ErrContactMissing},
		{name: "bad email", email: "not-an-email", wantErr: ErrInvalidEmail},
		{name: "bad phone", phone: "12", wantErr: ErrInvalidPhone},
		{name: "letters", phone: "call me", wantErr: ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContact(tt.email, tt.phone, "US")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContactColumn(t *testing.T) {
	assert.Equal(t, "email", EmailContact("x@y.z").Column())
	assert.Equal(t, "phone", Contact{Kind: ContactPhone, Value: "+1"}.Column())
	assert.True(t, EmailContact("x@y.z").IsEmail())
	assert.Equal(t, "phone", ContactPhone.String())
}
