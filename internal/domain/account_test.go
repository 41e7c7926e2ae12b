package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerificationCodeValid(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	code := "123456"
	exp := now.Add(10 * time.Minute)
	a := &Account{EmailVerificationCode: &code, EmailVerificationExpiresAt: &exp}

	assert.True(t, a.VerificationCodeValid("123456", now))
	assert.True(t, a.VerificationCodeValid("123456", exp), "accepted exactly at expiry")
	assert.False(t, a.VerificationCodeValid("123456", exp.Add(time.Second)))
	assert.False(t, a.VerificationCodeValid("654321", now))
	assert.False(t, a.VerificationCodeValid("", now))
}

func TestResetCodeValid_NoPendingCode(t *testing.T) {
	a := &Account{}
	assert.False(t, a.ResetCodeValid("123456", time.Now()))

	code := "123456"
	a.PasswordResetCode = &code
	assert.False(t, a.ResetCodeValid("123456", time.Now()), "code without expiry is never valid")
}

func TestProfile(t *testing.T) {
	a := &Account{Name: "Ann", Email: "ann@x.com", IsVerified: true, PasswordHash: "h"}
	assert.Equal(t, Profile{Name: "Ann", Email: "ann@x.com", IsVerified: true}, a.Profile())
}
