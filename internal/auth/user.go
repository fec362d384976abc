// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is a persisted account record. PasswordHash never leaves the core;
// callers receive a PublicUser or UserSummary instead.
type User struct {
	ID           ulid.ULID `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the hash-free view of a User.
type PublicUser struct {
	ID        ulid.ULID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSummary is returned by email lookups.
type UserSummary struct {
	ID        ulid.ULID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

// Public returns the record without its password hash.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Summary returns the lookup projection of the record.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// All comparisons and persisted emails use this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Timestamp truncates t to microseconds in UTC so it survives both the JSON
// file and a TIMESTAMPTZ column unchanged.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// CheckUnique verifies no two records share an id or a normalized email.
// The returned error carries no code; callers decide what a duplicate means.
func CheckUnique(users []User) error {
	ids := make(map[ulid.ULID]struct{}, len(users))
	emails := make(map[string]struct{}, len(users))
	for i := range users {
		if _, dup := ids[users[i].ID]; dup {
			return oops.With("user_id", users[i].ID.String()).Wrap(ErrDuplicateID)
		}
		ids[users[i].ID] = struct{}{}

		email := NormalizeEmail(users[i].Email)
		if _, dup := emails[email]; dup {
			return oops.With("email", email).Wrap(ErrDuplicateEmail)
		}
		emails[email] = struct{}{}
	}
	return nil
}

// findByEmail returns the index of the record with the given normalized
// email, or -1.
func findByEmail(users []User, email string) int {
	for i := range users {
		if NormalizeEmail(users[i].Email) == email {
			return i
		}
	}
	return -1
}

// findByID returns the index of the record with the given id, or -1.
func findByID(users []User, id ulid.ULID) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}
