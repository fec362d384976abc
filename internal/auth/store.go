// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import "context"

// CredentialStore persists the complete set of user records.
//
// Implementations must make ReplaceAll all-or-nothing: after a failed call
// the previous set is still what LoadAll returns. Failures carry the
// STORE_UNAVAILABLE code.
type CredentialStore interface {
	// LoadAll returns every persisted record. An uninitialized store yields
	// an empty slice.
	LoadAll(ctx context.Context) ([]User, error)

	// ReplaceAll atomically replaces the persisted set.
	ReplaceAll(ctx context.Context, users []User) error
}
