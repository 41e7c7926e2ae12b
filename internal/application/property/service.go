package property

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/emerald-haven/api/internal/domain"
	"github.com/emerald-haven/api/internal/pkg/id"
	"github.com/emerald-haven/api/internal/pkg/validate"
)

// Owner identifies the signed-in account acting on a listing.
type Owner struct {
	AccountID string
	Email     string
}

type Service interface {
	ListAll(ctx context.Context) ([]domain.Property, error)
	ListMine(ctx context.Context, ownerID string) ([]domain.Property, error)
	Get(ctx context.Context, propertyID string) (*domain.Property, error)
	Create(ctx context.Context, owner Owner, in domain.PropertyInput, images []domain.Image) (*domain.Property, error)
	Update(ctx context.Context, owner Owner, propertyID string, in domain.PropertyInput, images []domain.Image) (*domain.Property, error)
	Delete(ctx context.Context, owner Owner, propertyID string) error
}

type propertyStore interface {
	Put(ctx context.Context, p *domain.Property) error
	Get(ctx context.Context, propertyID string) (*domain.Property, error)
	Delete(ctx context.Context, propertyID string) error
	ListAll(ctx context.Context) ([]domain.Property, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Property, error)
}

type imageStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type service struct {
	properties propertyStore
	images     imageStore
	maxBytes   int64
	now        func() time.Time
}

type ServiceDeps struct {
	PropertyRepo  propertyStore
	ImageStore    imageStore
	MaxImageBytes int64
	Now           func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		properties: deps.PropertyRepo,
		images:     deps.ImageStore,
		maxBytes:   deps.MaxImageBytes,
		now:        now,
	}
}

func (s *service) ListAll(ctx context.Context) ([]domain.Property, error) {
	return s.properties.ListAll(ctx)
}

func (s *service) ListMine(ctx context.Context, ownerID string) ([]domain.Property, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("no user id found in token: %w", domain.ErrUnauthorized)
	}
	return s.properties.ListByOwner(ctx, ownerID)
}

func (s *service) Get(ctx context.Context, propertyID string) (*domain.Property, error) {
	return s.properties.Get(ctx, propertyID)
}

func (s *service) Create(ctx context.Context, owner Owner, in domain.PropertyInput, images []domain.Image) (*domain.Property, error) {
	if owner.AccountID == "" || owner.Email == "" {
		return nil, fmt.Errorf("user email not found: %w", domain.ErrUnauthorized)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	urls, err := s.upload(ctx, owner.AccountID, images)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &domain.Property{
		PropertyID: id.NewAt(now),
		OwnerID:    owner.AccountID,
		OwnerEmail: owner.Email,
		Images:     urls,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	apply(p, in)
	if err := s.properties.Put(ctx, p); err != nil {
		s.discard(urls)
		return nil, err
	}
	slog.Info("property created", "property_id", p.PropertyID, "owner_id", p.OwnerID, "images", len(urls))
	return p, nil
}

// Update replaces the editable fields. Stored images are swapped only when
// new ones are supplied; the old objects are then removed.
func (s *service) Update(ctx context.Context, owner Owner, propertyID string, in domain.PropertyInput, images []domain.Image) (*domain.Property, error) {
	p, err := s.owned(ctx, owner, propertyID, "update")
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var stale []string
	if len(images) > 0 {
		urls, err := s.upload(ctx, owner.AccountID, images)
		if err != nil {
			return nil, err
		}
		stale, p.Images = p.Images, urls
	}
	apply(p, in)
	p.UpdatedAt = s.now().UTC()
	if err := s.properties.Put(ctx, p); err != nil {
		if len(images) > 0 {
			s.discard(p.Images)
		}
		return nil, err
	}
	s.discard(stale)
	return p, nil
}

func (s *service) Delete(ctx context.Context, owner Owner, propertyID string) error {
	p, err := s.owned(ctx, owner, propertyID, "delete")
	if err != nil {
		return err
	}
	if err := s.properties.Delete(ctx, propertyID); err != nil {
		return err
	}
	s.discard(p.Images)
	slog.Info("property deleted", "property_id", propertyID, "owner_id", owner.AccountID)
	return nil
}

func (s *service) owned(ctx context.Context, owner Owner, propertyID, action string) (*domain.Property, error) {
	p, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != owner.AccountID {
		return nil, fmt.Errorf("unauthorized to %s this property: %w", action, domain.ErrForbidden)
	}
	return p, nil
}

// upload checks every image before storing any, then stores them in parallel
// and returns their URLs in input order.
func (s *service) upload(ctx context.Context, ownerID string, images []domain.Image) ([]string, error) {
	types := make([]string, len(images))
	for i, img := range images {
		ct, err := s.checkImage(img)
		if err != nil {
			return nil, err
		}
		types[i] = ct
	}

	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			key := fmt.Sprintf("properties/%s/%s-%s", ownerID, id.New(), sanitizeFilename(img.Filename))
			url, err := s.images.Upload(gctx, key, bytes.NewReader(img.Data), types[i])
			if err != nil {
				return fmt.Errorf("upload %s: %w", img.Filename, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(urls)
		return nil, err
	}
	return urls, nil
}

func (s *service) checkImage(img domain.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("image %q is empty: %w", img.Filename, domain.ErrValidation)
	}
	if s.maxBytes > 0 && int64(len(img.Data)) > s.maxBytes {
		return "", fmt.Errorf("image %q exceeds %d bytes: %w", img.Filename, s.maxBytes, domain.ErrValidation)
	}
	mt := mimetype.Detect(img.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("file %q is not an image: %w", img.Filename, domain.ErrValidation)
	}
	return mt.String(), nil
}

// discard removes stored images, logging failures. Empty entries are skipped.
func (s *service) discard(urls []string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := s.images.Delete(context.Background(), u); err != nil {
			slog.Warn("image cleanup failed", "url", u, "err", err)
		}
	}
}

func validateInput(in domain.PropertyInput) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}
	return nil
}

func apply(p *domain.Property, in domain.PropertyInput) {
	p.Title = in.Title
	p.Location = in.Location
	p.Price = in.Price
	p.Type = in.Type
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.Size = in.Size
	p.Description = in.Description
	p.Amenities = in.Amenities
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

// sanitizeFilename strips directory components and keeps only alphanumerics,
// dot, dash and underscore so the name is safe inside an object key.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." && result != ".." {
		return result
	}
	return "image"
}
