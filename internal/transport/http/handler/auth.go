package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/emerald-haven/api/internal/application/auth"
	"github.com/emerald-haven/api/internal/domain"
	"github.com/emerald-haven/api/internal/transport/http/middleware"
)

// CookieOptions controls the session cookie written on verify-email and login.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	svc    auth.Service
	cookie CookieOptions
}

func NewAuthHandler(svc auth.Service, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Register(r.Context(), req); err != nil {
		if errors.Is(err, domain.ErrDelivery) {
			writeJSON(w, http.StatusInternalServerError, RegisterEnvelope{
				Message: publicMessage(err),
				Status:  "pending",
				Email:   req.Email,
			})
			return
		}
		writeServiceError(w, r, err, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, RegisterEnvelope{
		Message: "User created. Verification code sent.",
		Status:  "pending",
		Email:   req.Email,
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyEmail(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, msgServerError)
		return
	}
	if res.AlreadyVerified {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "User already verified"})
		return
	}
	h.setSessionCookie(w, res.Session.Token)
	profile := res.Account.Profile()
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "Email verified successfully", User: &profile})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, msgServerError)
		return
	}
	h.setSessionCookie(w, sess.Token)
	profile := sess.Account.Profile()
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "Login successful", Token: sess.Token, User: &profile})
}

// Logout clears the session cookie. It needs no session and always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.baseCookie("", -1))
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Logged out successfully"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		writeServiceError(w, r, err, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Reset code sent to email"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		writeServiceError(w, r, err, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Password reset successful"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No user ID found in token.")
		return
	}
	var req auth.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), id.AccountID, req); err != nil {
		writeServiceError(w, r, err, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Password changed successfully"})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, h.baseCookie(token, int(h.cookie.MaxAge.Seconds())))
}

func (h *AuthHandler) baseCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// decode reads a JSON body into dst, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
