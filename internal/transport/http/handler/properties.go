package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/emerald-haven/api/internal/application/property"
	"github.com/emerald-haven/api/internal/domain"
	"github.com/emerald-haven/api/internal/pkg/id"
	"github.com/emerald-haven/api/internal/transport/http/middleware"
)

// maxImages caps the number of files accepted per create or update request.
const maxImages = 10

// PropertyHandler handles the /properties endpoints.
type PropertyHandler struct {
	svc           property.Service
	maxImageBytes int64
}

func NewPropertyHandler(svc property.Service, maxImageBytes int64) *PropertyHandler {
	return &PropertyHandler{svc: svc, maxImageBytes: maxImageBytes}
}

func (h *PropertyHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	props, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch properties")
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (h *PropertyHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	props, err := h.svc.ListMine(r.Context(), owner.AccountID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch your properties")
		return
	}
	writeJSON(w, http.StatusOK, PropertiesEnvelope{Properties: props})
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := propertyIDFrom(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), propertyID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch property")
		return
	}
	writeJSON(w, http.StatusOK, PropertyEnvelope{Property: p})
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	in, images, err := h.parseForm(w, r)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create property")
		return
	}
	p, err := h.svc.Create(r.Context(), owner, in, images)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create property")
		return
	}
	writeJSON(w, http.StatusCreated, PropertyEnvelope{Property: p})
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	propertyID, ok := propertyIDFrom(w, r)
	if !ok {
		return
	}
	in, images, err := h.parseForm(w, r)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update property")
		return
	}
	p, err := h.svc.Update(r.Context(), owner, propertyID, in, images)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update property")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	propertyID, ok := propertyIDFrom(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), owner, propertyID); err != nil {
		writeServiceError(w, r, err, "Failed to delete property")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Property deleted successfully"})
}

// parseForm reads the multipart listing fields and the `images` files.
func (h *PropertyHandler) parseForm(w http.ResponseWriter, r *http.Request) (domain.PropertyInput, []domain.Image, error) {
	var in domain.PropertyInput
	r.Body = http.MaxBytesReader(w, r.Body, maxImages*h.maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return in, nil, fmt.Errorf("request body too large: %w", domain.ErrValidation)
		}
		return in, nil, fmt.Errorf("invalid multipart form: %w", domain.ErrValidation)
	}
	defer r.MultipartForm.RemoveAll()

	var err error
	in.Title = strings.TrimSpace(r.FormValue("title"))
	in.Location = strings.TrimSpace(r.FormValue("location"))
	in.Type = strings.TrimSpace(r.FormValue("type"))
	in.Size = r.FormValue("size")
	in.Description = r.FormValue("description")
	if in.Price, err = parseFloatField(r, "price"); err != nil {
		return in, nil, err
	}
	if in.Bedrooms, err = parseIntField(r, "bedrooms"); err != nil {
		return in, nil, err
	}
	if in.Bathrooms, err = parseIntField(r, "bathrooms"); err != nil {
		return in, nil, err
	}
	in.Amenities = []string{}
	if raw := strings.TrimSpace(r.FormValue("amenities")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Amenities); err != nil {
			return in, nil, fmt.Errorf("amenities must be a JSON array of strings: %w", domain.ErrValidation)
		}
	}

	files := r.MultipartForm.File["images"]
	if len(files) > maxImages {
		return in, nil, fmt.Errorf("at most %d images are allowed: %w", maxImages, domain.ErrValidation)
	}
	images := make([]domain.Image, 0, len(files))
	for _, fh := range files {
		img, err := h.readImage(fh)
		if err != nil {
			return in, nil, err
		}
		images = append(images, img)
	}
	return in, images, nil
}

func (h *PropertyHandler) readImage(fh *multipart.FileHeader) (domain.Image, error) {
	if fh.Size > h.maxImageBytes {
		return domain.Image{}, fmt.Errorf("image %q exceeds %d bytes: %w", fh.Filename, h.maxImageBytes, domain.ErrValidation)
	}
	f, err := fh.Open()
	if err != nil {
		return domain.Image{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		return domain.Image{}, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return domain.Image{Filename: fh.Filename, Data: data}, nil
}

func parseFloatField(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%s must be a number: %w", name, domain.ErrValidation)
	}
	return v, nil
}

func parseIntField(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number: %w", name, domain.ErrValidation)
	}
	return v, nil
}

func ownerFrom(w http.ResponseWriter, r *http.Request) (property.Owner, bool) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return property.Owner{}, false
	}
	return property.Owner{AccountID: ident.AccountID, Email: ident.Email}, true
}

func propertyIDFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	propertyID := chi.URLParam(r, "id")
	if !id.Valid(propertyID) {
		writeError(w, http.StatusBadRequest, "Invalid property ID")
		return "", false
	}
	return propertyID, true
}
