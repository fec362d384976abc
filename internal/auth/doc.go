// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package auth implements account registration, password verification and
// signed session tokens.
//
// # Services
//
//   - AccountService - register, lookup, login, session resolution and
//     password reset over a CredentialStore
//   - TokenService - issues and verifies HS256 session tokens
//   - PasswordHasher - bcrypt and argon2id implementations
//
// # Stores
//
// A CredentialStore persists the whole user collection as a snapshot. The
// filestore and postgres subpackages implement it. AccountService serializes
// every read-modify-write sequence behind a single write lock, so a store
// only has to make each ReplaceAll atomic.
//
// Every error carries one of the Code* constants; use ErrorCode or IsCode to
// inspect it.
package auth
