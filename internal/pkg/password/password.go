// Package password hashes and checks account credentials with bcrypt.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for every new hash.
const Cost = 10

// MaxBytes is the longest plaintext bcrypt accepts.
const MaxBytes = 72

var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hash returns a salted bcrypt hash of plaintext. The salt is embedded in the result.
// Plaintexts longer than MaxBytes are refused with ErrTooLong.
func Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxBytes {
		return "", ErrTooLong
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plaintext matches hashed. A malformed hash yields false.
func Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// Hasher adapts the package functions to the services' hasher interfaces.
type Hasher struct{}

func (Hasher) Hash(plaintext string) (string, error) { return Hash(plaintext) }
func (Hasher) Verify(plaintext, hashed string) bool  { return Verify(plaintext, hashed) }
