package handler

import (
	"encoding/json"
	"net/http"

	"github.com/emerald-haven/api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// RegisterEnvelope reports a registration awaiting email verification.
type RegisterEnvelope struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Email   string `json:"email"`
}

// AuthEnvelope wraps verify-email and login responses.
type AuthEnvelope struct {
	Message string          `json:"message"`
	Token   string          `json:"token,omitempty"`
	User    *domain.Profile `json:"user,omitempty"`
}

type PropertyEnvelope struct {
	Property *domain.Property `json:"property"`
}

type PropertiesEnvelope struct {
	Properties []domain.Property `json:"properties"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Message: msg})
}
