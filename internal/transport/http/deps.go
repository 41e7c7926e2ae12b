package http

import (
	"context"
	"io"
	"time"

	"github.com/emerald-haven/api/internal/domain"
	jwtinfra "github.com/emerald-haven/api/internal/infrastructure/jwt"
)

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Update applies SET for every entry in set and REMOVE for every name in
	// remove within one conditional write.
	Update(ctx context.Context, accountID string, set map[string]interface{}, remove ...string) error
	// ConsumeCode is Update that only succeeds while codeField still holds code.
	ConsumeCode(ctx context.Context, accountID, codeField, code string, set map[string]interface{}, remove ...string) error
}

// PropertyRepository is the minimal interface the router requires from a property store.
type PropertyRepository interface {
	Put(ctx context.Context, p *domain.Property) error
	Get(ctx context.Context, propertyID string) (*domain.Property, error)
	Delete(ctx context.Context, propertyID string) error
	ListAll(ctx context.Context) ([]domain.Property, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Property, error)
}

// ObjectStore is the minimal interface the router requires from an image storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Mailer delivers HTML email.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

// TokenProvider issues and verifies session tokens.
type TokenProvider interface {
	Sign(accountID, email string) (string, error)
	Verify(tokenStr string) (*jwtinfra.Claims, error)
	Expiry() time.Duration
}
