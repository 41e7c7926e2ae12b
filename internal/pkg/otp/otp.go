// Package otp generates the short numeric codes mailed for email
// verification and password reset.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	codeMin = 100000
	codeMax = 999999

	// DefaultTTL is how long a mailed code stays valid.
	DefaultTTL = 10 * time.Minute
)

// New returns a 6-digit code drawn uniformly from [100000, 999999] using crypto/rand.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// Expiry returns the instant a code issued at now stops being accepted.
func Expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl)
}
