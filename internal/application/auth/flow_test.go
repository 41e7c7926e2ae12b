package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/emerald-haven/api/internal/domain"
	"github.com/emerald-haven/api/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory accountStore that applies partial updates the way
// the DynamoDB repository does.
type memStore struct {
	mu     sync.Mutex
	byID   map[string]*domain.Account
	emails map[string]string
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*domain.Account{}, emails: map[string]string{}}
}

func (m *memStore) Create(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[a.Email]; ok {
		return domain.ErrConflict
	}
	cp := *a
	m.byID[a.AccountID] = &cp
	m.emails[a.Email] = a.AccountID
	return nil
}

func (m *memStore) Get(_ context.Context, accountID string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	accountID, ok := m.emails[email]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.Get(ctx, accountID)
}

func (m *memStore) Update(_ context.Context, accountID string, set map[string]interface{}, remove ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	applyUpdate(a, set, remove)
	return nil
}

// ConsumeCode checks the stored code and writes under one lock, like the
// conditional write in the DynamoDB repository.
func (m *memStore) ConsumeCode(_ context.Context, accountID, codeField, code string, set map[string]interface{}, remove ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return domain.ErrInvalidCode
	}
	stored := a.EmailVerificationCode
	if codeField == fieldPasswordResetCode {
		stored = a.PasswordResetCode
	}
	if stored == nil || *stored != code {
		return domain.ErrInvalidCode
	}
	applyUpdate(a, set, remove)
	return nil
}

func applyUpdate(a *domain.Account, set map[string]interface{}, remove []string) {
	for k, v := range set {
		switch k {
		case fieldIsVerified:
			a.IsVerified = v.(bool)
		case fieldPasswordHash:
			a.PasswordHash = v.(string)
		case fieldPasswordResetCode:
			c := v.(string)
			a.PasswordResetCode = &c
		case fieldPasswordResetExpiresAt:
			t := v.(time.Time)
			a.PasswordResetExpiresAt = &t
		}
	}
	for _, k := range remove {
		switch k {
		case fieldEmailVerificationCode:
			a.EmailVerificationCode = nil
		case fieldEmailVerificationExpiresAt:
			a.EmailVerificationExpiresAt = nil
		case fieldPasswordResetCode:
			a.PasswordResetCode = nil
		case fieldPasswordResetExpiresAt:
			a.PasswordResetExpiresAt = nil
		}
	}
}

// outbox records every message and returns the last code it saw.
type outbox struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

var codeInBody = regexp.MustCompile(`<h3>(\d{6})</h3>`)

func (o *outbox) SendEmail(_, _, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return errors.New("relay refused")
	}
	o.sent = append(o.sent, body)
	return nil
}

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	m := codeInBody.FindStringSubmatch(o.sent[len(o.sent)-1])
	require.Len(t, m, 2)
	return m[1]
}

type stubTokens struct{}

func (stubTokens) Sign(accountID, _ string) (string, error) { return "tok-" + accountID, nil }
func (stubTokens) Expiry() time.Duration                    { return 7 * 24 * time.Hour }

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFlow() (Service, *memStore, *outbox, *clock) {
	store := newMemStore()
	box := &outbox{}
	clk := &clock{t: t0}
	svc := NewService(ServiceDeps{
		AccountRepo: store,
		Mailer:      box,
		Tokens:      stubTokens{},
		Hasher:      password.Hasher{},
		CodeTTL:     10 * time.Minute,
		Now:         clk.now,
	})
	return svc, store, box, clk
}

func register(t *testing.T, svc Service, email string) *domain.Account {
	t.Helper()
	a, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Ann", Email: email, Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	return a
}

func TestFlow_RegisterThenVerify(t *testing.T) {
	svc, store, box, _ := newFlow()
	ctx := context.Background()
	a := register(t, svc, "a@x.com")

	_, err := svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", Code: "000000"})
	require.True(t, errors.Is(err, domain.ErrValidation))

	res, err := svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", Code: box.lastCode(t)})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "tok-"+a.AccountID, res.Session.Token)

	stored, err := store.Get(ctx, a.AccountID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.EmailVerificationCode)
	assert.Nil(t, stored.EmailVerificationExpiresAt)

	again, err := svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", Code: "whatever"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyVerified)
	assert.Nil(t, again.Session)
}

func TestFlow_DuplicateRegistration(t *testing.T) {
	svc, _, _, _ := newFlow()
	register(t, svc, "a@x.com")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Other", Email: "a@x.com", Password: "another", ConfirmPassword: "another",
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestFlow_ConcurrentRegistrationSingleWinner(t *testing.T) {
	svc, store, _, _ := newFlow()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), RegisterRequest{
				Name: "Ann", Email: "race@x.com", Password: "secret1", ConfirmPassword: "secret1",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict))
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, store.byID, 1)
}

func TestFlow_ResetCodeExpiresAndIsSingleUse(t *testing.T) {
	svc, _, box, clk := newFlow()
	ctx := context.Background()
	register(t, svc, "a@x.com")

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "a@x.com"}))
	code := box.lastCode(t)

	clk.advance(11 * time.Minute)
	err := svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Code: code, NewPassword: "fresh1", ConfirmPassword: "fresh1"})
	require.True(t, errors.Is(err, domain.ErrInvalidCode))

	_, err = svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err, "original password still works after a failed reset")

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "a@x.com"}))
	code = box.lastCode(t)
	require.NoError(t, svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Code: code, NewPassword: "fresh1", ConfirmPassword: "fresh1"}))

	err = svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Code: code, NewPassword: "fresh2", ConfirmPassword: "fresh2"})
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))

	_, err = svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret1"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "fresh1"})
	assert.NoError(t, err)
}

func TestFlow_ConcurrentResetSingleWinner(t *testing.T) {
	svc, _, box, _ := newFlow()
	ctx := context.Background()
	register(t, svc, "a@x.com")
	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "a@x.com"}))
	code := box.lastCode(t)

	passwords := []string{"fresh-0", "fresh-1", "fresh-2", "fresh-3", "fresh-4", "fresh-5"}
	errs := make([]error, len(passwords))
	var wg sync.WaitGroup
	for i, pw := range passwords {
		wg.Add(1)
		go func(i int, pw string) {
			defer wg.Done()
			errs[i] = svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Code: code, NewPassword: pw, ConfirmPassword: pw})
		}(i, pw)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "code redeemed more than once")
			winner = i
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	}
	require.NotEqual(t, -1, winner)

	_, err := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: passwords[winner]})
	assert.NoError(t, err)
}

func TestFlow_ChangePassword(t *testing.T) {
	svc, _, _, _ := newFlow()
	ctx := context.Background()
	a := register(t, svc, "a@x.com")

	err := svc.ChangePassword(ctx, a.AccountID, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "n", ConfirmPassword: "n"})
	require.True(t, errors.Is(err, domain.ErrUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, a.AccountID, ChangePasswordRequest{
		CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2",
	}))
	_, err = svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret2"})
	assert.NoError(t, err)
}

func TestFlow_RegisterDeliveryFailureLeavesUsableAccount(t *testing.T) {
	svc, store, box, _ := newFlow()
	box.fail = true

	a, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Ann", Email: "a@x.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.True(t, errors.Is(err, domain.ErrDelivery))
	require.NotNil(t, a)

	stored, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
	assert.NotNil(t, stored.EmailVerificationCode)
}
