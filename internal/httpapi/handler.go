// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package httpapi exposes the account service over HTTP with JSON bodies and
// a session cookie.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/knpvt5/auth/internal/auth"
)

// CookieName is the session cookie set on login.
const CookieName = "accessToken"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Accounts is the account service as the HTTP layer uses it.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.PublicUser, error)
	FindByEmail(ctx context.Context, email string) (*auth.UserSummary, error)
	Authenticate(ctx context.Context, email, password string) (*auth.Session, error)
	ResolveSession(ctx context.Context, token string) (*auth.PublicUser, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// Options configures the routes.
type Options struct {
	// SecureCookies marks the session cookie Secure with SameSite=None, for
	// cross-site HTTPS clients. Otherwise SameSite=Lax.
	SecureCookies bool
	// EmailLookup exposes POST /auth/verify-email. It lets anyone probe
	// whether an email is registered.
	EmailLookup bool
	Logger      *slog.Logger
	Now         func() time.Time
}

// Handler serves the auth routes.
type Handler struct {
	accounts Accounts
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(accounts Accounts, opts Options) *Handler {
	h := &Handler{accounts: accounts, opts: opts, logger: opts.Logger, now: opts.Now}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "http")
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Router returns the routes wrapped in request id, recovery, access log and
// metrics middleware.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.respond(w, req, http.StatusNotFound, "Not Found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.respond(w, req, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
	})

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	// The legacy client posts to /verify-email/ with a trailing slash.
	if h.opts.EmailLookup {
		a.HandleFunc("/verify-email", h.verifyEmail).Methods(http.MethodPost)
		a.HandleFunc("/verify-email/", h.verifyEmail).Methods(http.MethodPost)
	}
	a.HandleFunc("/register", h.register).Methods(http.MethodPost)
	a.HandleFunc("/login", h.login).Methods(http.MethodPost)
	a.HandleFunc("/user-data", h.userData).Methods(http.MethodGet)
	a.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	a.HandleFunc("/reset-password", h.resetPassword).Methods(http.MethodPost)

	return requestID(h.accessLog(r, h.recoverer(r)))
}

type emailRequest struct {
	Email string `json:"email"`
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), h.logger, w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.accounts.FindByEmail(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err, notFoundAsNotFound)
		return
	}
	h.respond(w, r, http.StatusOK, "User Already Exists", summary)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Register(r.Context(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.fail(w, r, err, notFoundAsNotFound)
		return
	}
	h.respond(w, r, http.StatusCreated, "User registered successfully", user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, notFoundAsBadLogin)
		return
	}
	http.SetCookie(w, h.sessionCookie(session.Token, session.ExpiresAt))
	h.respond(w, r, http.StatusOK, "Login successful", session)
}

func (h *Handler) userData(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.ResolveSession(r.Context(), sessionToken(r))
	if err != nil {
		h.fail(w, r, err, notFoundAsBadToken)
		return
	}
	h.respond(w, r, http.StatusOK, "User data retrieved successfully", user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.clearedCookie())
	h.respond(w, r, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		h.fail(w, r, err, notFoundAsNotFound)
		return
	}
	h.respond(w, r, http.StatusOK, "Password reset successfully", nil)
}

// decode reads a JSON body into dst, answering 400 or 413 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.respond(w, r, http.StatusRequestEntityTooLarge, "Request body too large", nil)
	case errors.Is(err, io.EOF):
		h.respond(w, r, http.StatusBadRequest, "Request body is required", nil)
	default:
		h.respond(w, r, http.StatusBadRequest, msgInvalidBody, nil)
	}
	return false
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func (h *Handler) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	c := h.baseCookie()
	c.Value = token
	c.Expires = expiresAt
	c.MaxAge = int(expiresAt.Sub(h.now()).Seconds())
	if c.MaxAge <= 0 {
		c.MaxAge = -1
	}
	return c
}

func (h *Handler) clearedCookie() *http.Cookie {
	c := h.baseCookie()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func (h *Handler) baseCookie() *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.opts.SecureCookies {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}
