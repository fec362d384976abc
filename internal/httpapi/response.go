// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/knpvt5/auth/internal/auth"
)

// Response is the envelope every API route answers with.
type Response struct {
	StatusCode int    `json:"statusCode"`
	IsSuccess  bool   `json:"IsSuccess"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// Response messages.
const (
	msgInternal           = "Internal Server Error"
	msgInvalidBody        = "Invalid request body"
	msgEmailTaken         = "Email already registered"
	msgUserNotFound       = "User not found"
	msgInvalidCredentials = "Invalid credentials"
	msgTokenRequired      = "Access token is required"
	msgTokenExpired       = "Token expired"
	msgTokenInvalid       = "Invalid token"
)

func writeJSON(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.DebugContext(ctx, "write response failed", "error", err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	writeJSON(r.Context(), h.logger, w, status, Response{
		StatusCode: status,
		IsSuccess:  status < http.StatusBadRequest,
		Message:    message,
		Data:       data,
	})
}

// notFoundAs overrides how AUTH_NOT_FOUND is reported on a route.
type notFoundAs struct {
	status  int
	message string
}

var (
	notFoundAsNotFound = notFoundAs{http.StatusNotFound, msgUserNotFound}
	// Login must not reveal whether the email exists.
	notFoundAsBadLogin = notFoundAs{http.StatusUnauthorized, msgInvalidCredentials}
	// A valid token for a deleted account is no longer a valid session.
	notFoundAsBadToken = notFoundAs{http.StatusUnauthorized, msgTokenInvalid}
)

// statusFor maps an account error to its HTTP status and public message.
func statusFor(err error, nf notFoundAs) (int, string) {
	switch auth.ErrorCode(err) {
	case auth.CodeInvalidArgument:
		return http.StatusBadRequest, publicMessage(err)
	case auth.CodeEmailTaken:
		return http.StatusConflict, msgEmailTaken
	case auth.CodeNotFound:
		return nf.status, nf.message
	case auth.CodeInvalidCredentials:
		return http.StatusUnauthorized, msgInvalidCredentials
	case auth.CodeTokenMissing:
		return http.StatusUnauthorized, msgTokenRequired
	case auth.CodeTokenExpired:
		return http.StatusUnauthorized, msgTokenExpired
	case auth.CodeTokenInvalid:
		return http.StatusUnauthorized, msgTokenInvalid
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// publicMessage returns the message of a caller error. Invalid-argument
// errors are built from fixed strings, so they are safe to echo.
func publicMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Invalid request"
	}
	return msg
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, nf notFoundAs) {
	status, message := statusFor(err, nf)
	h.respond(w, r, status, message, nil)
}
