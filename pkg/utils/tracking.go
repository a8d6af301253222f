package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	TrackingPrefix   = "PMS-"
	trackingLength   = 8
	trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var trackingPattern = regexp.MustCompile(`^PMS-[A-Z0-9]{8}$`)

// GenerateTrackingNumber returns PMS- followed by 8 uppercase alphanumerics.
func GenerateTrackingNumber() (string, error) {
	buf := make([]byte, trackingLength)
	max := big.NewInt(int64(len(trackingAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate tracking number: %w", err)
		}
		buf[i] = trackingAlphabet[n.Int64()]
	}
	return TrackingPrefix + string(buf), nil
}

func IsTrackingNumber(s string) bool {
	return trackingPattern.MatchString(s)
}
