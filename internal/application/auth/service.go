package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emerald-haven/api/internal/domain"
	"github.com/emerald-haven/api/internal/pkg/id"
	"github.com/emerald-haven/api/internal/pkg/otp"
	"github.com/emerald-haven/api/internal/pkg/password"
	"github.com/emerald-haven/api/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldIsVerified                 = "is_verified"
	fieldPasswordHash               = "password_hash"
	fieldEmailVerificationCode      = "email_verification_code"
	fieldEmailVerificationExpiresAt = "email_verification_expires_at"
	fieldPasswordResetCode          = "password_reset_code"
	fieldPasswordResetExpiresAt     = "password_reset_expires_at"
)

const minPasswordLen = 6

// dummyHash is compared against when a login names an unknown email, so both
// failure paths pay the same bcrypt cost.
var dummyHash, _ = password.Hash("not-a-real-password")

type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"token" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required"`
	Code            string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// Session is a freshly issued session token and the account it speaks for.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// VerifyResult reports the outcome of VerifyEmail. Session is nil when the
// account had already been verified.
type VerifyResult struct {
	AlreadyVerified bool
	Account         *domain.Account
	Session         *Session
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*VerifyResult, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	ChangePassword(ctx context.Context, accountID string, req ChangePasswordRequest) error
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, set map[string]interface{}, remove ...string) error
	ConsumeCode(ctx context.Context, accountID, codeField, code string, set map[string]interface{}, remove ...string) error
}

type mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type tokenIssuer interface {
	Sign(accountID, email string) (string, error)
	Expiry() time.Duration
}

type hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

type service struct {
	accounts accountStore
	mailer   mailer
	tokens   tokenIssuer
	hasher   hasher
	codeTTL  time.Duration
	now      func() time.Time
}

type ServiceDeps struct {
	AccountRepo accountStore
	Mailer      mailer
	Tokens      tokenIssuer
	Hasher      hasher
	CodeTTL     time.Duration
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ttl := deps.CodeTTL
	if ttl <= 0 {
		ttl = otp.DefaultTTL
	}
	return &service{
		accounts: deps.AccountRepo,
		mailer:   deps.Mailer,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		codeTTL:  ttl,
		now:      now,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*domain.Account, error) {
	if err := requireAll(&req); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("passwords do not match: %w", domain.ErrValidation)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters long: %w", minPasswordLen, domain.ErrValidation)
	}
	if err := checkMaxLen(req.Password); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	code, err := otp.New()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expires := otp.Expiry(now, s.codeTTL)
	a := &domain.Account{
		AccountID:                  id.NewAt(now),
		Name:                       req.Name,
		Email:                      req.Email,
		PasswordHash:               hash,
		EmailVerificationCode:      &code,
		EmailVerificationExpiresAt: &expires,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	// The store's uniqueness claim settles races between concurrent registrations.
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
		}
		return nil, err
	}
	slog.Info("account registered", "account_id", a.AccountID)

	if err := s.mailer.SendEmail(a.Email, subjectVerify, verificationEmail(code, s.codeTTL)); err != nil {
		slog.Error("verification email not delivered", "account_id", a.AccountID, "err", err)
		return a, fmt.Errorf("failed to send verification email: %w", domain.ErrDelivery)
	}
	return a, nil
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*VerifyResult, error) {
	if err := requireAll(&req); err != nil {
		return nil, err
	}
	a, err := s.findByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if a.IsVerified {
		return &VerifyResult{AlreadyVerified: true, Account: a}, nil
	}
	if !a.VerificationCodeValid(req.Code, s.now()) {
		return nil, fmt.Errorf("incorrect or expired token: %w", domain.ErrValidation)
	}

	err = s.accounts.ConsumeCode(ctx, a.AccountID, fieldEmailVerificationCode, req.Code,
		map[string]interface{}{fieldIsVerified: true},
		fieldEmailVerificationCode, fieldEmailVerificationExpiresAt,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCode) {
			return nil, fmt.Errorf("incorrect or expired token: %w", domain.ErrValidation)
		}
		return nil, err
	}
	a.IsVerified = true
	a.EmailVerificationCode = nil
	a.EmailVerificationExpiresAt = nil
	slog.Info("email verified", "account_id", a.AccountID)

	sess, err := s.issue(a)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Account: a, Session: sess}, nil
}

// Login accepts unverified accounts. Unknown email and wrong password return
// the same error so callers cannot probe which addresses are registered.
func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := requireAll(&req); err != nil {
		return nil, err
	}
	a, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.hasher.Verify(req.Password, dummyHash)
		return nil, errInvalidCredentials
	}
	if !s.hasher.Verify(req.Password, a.PasswordHash) {
		return nil, errInvalidCredentials
	}
	return s.issue(a)
}

var errInvalidCredentials = fmt.Errorf("incorrect credentials: %w", domain.ErrUnauthorized)

// ForgotPassword reveals whether the email exists (NotFound); Login does not.
// The mismatch is kept on purpose pending a product decision.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := requireAll(&req); err != nil {
		return err
	}
	a, err := s.findByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	code, err := otp.New()
	if err != nil {
		return err
	}
	expires := otp.Expiry(s.now().UTC(), s.codeTTL)
	err = s.accounts.Update(ctx, a.AccountID, map[string]interface{}{
		fieldPasswordResetCode:      code,
		fieldPasswordResetExpiresAt: expires,
	})
	if err != nil {
		return err
	}

	if err := s.mailer.SendEmail(a.Email, subjectReset, resetEmail(code, s.codeTTL)); err != nil {
		slog.Error("reset email not delivered", "account_id", a.AccountID, "err", err)
		return fmt.Errorf("failed to send reset email: %w", domain.ErrDelivery)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := requireAll(&req); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("passwords do not match: %w", domain.ErrValidation)
	}
	if err := checkMaxLen(req.NewPassword); err != nil {
		return err
	}
	a, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("invalid or expired token: %w", domain.ErrInvalidCode)
		}
		return err
	}
	if !a.ResetCodeValid(req.Code, s.now()) {
		return fmt.Errorf("invalid or expired token: %w", domain.ErrInvalidCode)
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	err = s.accounts.ConsumeCode(ctx, a.AccountID, fieldPasswordResetCode, req.Code,
		map[string]interface{}{fieldPasswordHash: hash},
		fieldPasswordResetCode, fieldPasswordResetExpiresAt,
	)
	if err != nil {
		return err
	}
	slog.Info("password reset", "account_id", a.AccountID)
	return nil
}

func (s *service) ChangePassword(ctx context.Context, accountID string, req ChangePasswordRequest) error {
	if accountID == "" {
		return fmt.Errorf("no user id found in token: %w", domain.ErrUnauthorized)
	}
	if err := requireAll(&req); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("passwords do not match: %w", domain.ErrValidation)
	}
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return err
	}
	if !s.hasher.Verify(req.CurrentPassword, a.PasswordHash) {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	if err := checkMaxLen(req.NewPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.Update(ctx, accountID, map[string]interface{}{fieldPasswordHash: hash}); err != nil {
		return err
	}
	slog.Info("password changed", "account_id", accountID)
	return nil
}

func (s *service) findByEmail(ctx context.Context, email string) (*domain.Account, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return a, nil
}

func (s *service) issue(a *domain.Account) (*Session, error) {
	token, err := s.tokens.Sign(a.AccountID, a.Email)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: s.now().Add(s.tokens.Expiry()),
		Account:   a,
	}, nil
}

// checkMaxLen rejects passwords bcrypt would refuse to hash.
func checkMaxLen(pw string) error {
	if len(pw) > password.MaxBytes {
		return fmt.Errorf("password must be at most %d bytes long: %w", password.MaxBytes, domain.ErrValidation)
	}
	return nil
}

func requireAll(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if validate.Missing(req) {
			return fmt.Errorf("all fields are required: %w", domain.ErrValidation)
		}
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}
	return nil
}
