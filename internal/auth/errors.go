// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Error codes attached to every error returned by this package and its stores.
const (
	CodeInvalidArgument    = "AUTH_INVALID_ARGUMENT"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeNotFound           = "AUTH_NOT_FOUND"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeMissingSecret      = "CONFIG_MISSING_SECRET"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeInvalidHash        = "AUTH_INVALID_HASH"
	CodeEmptyPassword      = "AUTH_EMPTY_PASSWORD"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Uniqueness violations reported by CheckUnique.
var (
	ErrDuplicateID    = errors.New("duplicate user id")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// ErrorCode returns the oops code carried by err, or "" when there is none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// StoreUnavailable wraps a storage failure with the STORE_UNAVAILABLE code.
// Store implementations use it so the code sits on the innermost oops error.
func StoreUnavailable(operation string, err error) error {
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		Wrap(err)
}
