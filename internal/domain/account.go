package domain

import (
	"crypto/subtle"
	"time"
)

// Account is a registered user of the listing site.
// Each code field is set together with its expiry and cleared together with it.
type Account struct {
	AccountID                  string     `json:"id" dynamodbav:"account_id"`
	Name                       string     `json:"name" dynamodbav:"name"`
	Email                      string     `json:"email" dynamodbav:"email"`
	PasswordHash               string     `json:"-" dynamodbav:"password_hash"`
	IsVerified                 bool       `json:"isVerified" dynamodbav:"is_verified"`
	EmailVerificationCode      *string    `json:"-" dynamodbav:"email_verification_code,omitempty"`
	EmailVerificationExpiresAt *time.Time `json:"-" dynamodbav:"email_verification_expires_at,omitempty"`
	PasswordResetCode          *string    `json:"-" dynamodbav:"password_reset_code,omitempty"`
	PasswordResetExpiresAt     *time.Time `json:"-" dynamodbav:"password_reset_expires_at,omitempty"`
	CreatedAt                  time.Time  `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt                  time.Time  `json:"updatedAt" dynamodbav:"updated_at"`
}

// Profile is the public view of an Account returned to clients.
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

func (a *Account) Profile() Profile {
	return Profile{Name: a.Name, Email: a.Email, IsVerified: a.IsVerified}
}

// VerificationCodeValid reports whether code matches the pending email
// verification code and now is not past its expiry.
func (a *Account) VerificationCodeValid(code string, now time.Time) bool {
	return codeValid(a.EmailVerificationCode, a.EmailVerificationExpiresAt, code, now)
}

// ResetCodeValid reports whether code matches the pending password reset
// code and now is not past its expiry.
func (a *Account) ResetCodeValid(code string, now time.Time) bool {
	return codeValid(a.PasswordResetCode, a.PasswordResetExpiresAt, code, now)
}

func codeValid(stored *string, expiresAt *time.Time, code string, now time.Time) bool {
	if stored == nil || expiresAt == nil || code == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(code)) != 1 {
		return false
	}
	return !now.After(*expiresAt)
}
