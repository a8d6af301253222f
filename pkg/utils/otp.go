package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	DefaultOTPLength = 6
	OTPExpiration    = 10 * time.Minute
)

// GenerateOTP draws a code uniformly from [10^(n-1), 10^n - 1], so the
// leading digit is never zero and the string always has length n.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = DefaultOTPLength
	}
	if length > 18 {
		return "", fmt.Errorf("otp length %d too large", length)
	}

	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	high := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	span := new(big.Int).Sub(high, low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return n.Add(n, low).String(), nil
}
