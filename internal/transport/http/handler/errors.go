package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/emerald-haven/api/internal/domain"
)

const msgServerError = "Server error"

var sentinels = []error{
	domain.ErrInvalidCode,
	domain.ErrValidation,
	domain.ErrConflict,
	domain.ErrUnauthorized,
	domain.ErrForbidden,
	domain.ErrNotFound,
	domain.ErrDelivery,
}

// statusFor maps a service error onto an HTTP status. ErrInvalidCode wraps
// ErrUnauthorized, so it is checked first.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDelivery):
		return http.StatusInternalServerError
	default:
		return 0
	}
}

// writeServiceError answers err with its mapped status and public message.
// Errors outside the domain taxonomy are logged and answered with fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	if status == 0 {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, fallback)
		return
	}
	writeError(w, status, publicMessage(err))
}

// publicMessage drops the sentinel suffixes a service error was wrapped with
// and capitalises what remains.
func publicMessage(err error) string {
	msg := err.Error()
	for trimmed := true; trimmed; {
		trimmed = false
		for _, s := range sentinels {
			if cut, ok := strings.CutSuffix(msg, ": "+s.Error()); ok {
				msg, trimmed = cut, true
			}
		}
	}
	if msg == "" {
		return msgServerError
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
