// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/knpvt5/auth/pkg/errutil"
)

// invalidLoginMessage is shared by unknown-email and wrong-password failures.
const invalidLoginMessage = "invalid email or password"

// fallbackDummyHash is a well-formed argon2id hash that matches no password.
// Used only when the configured hasher cannot produce a dummy hash.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const fallbackDummyHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterInput holds the fields of a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Session is the result of a successful authentication.
type Session struct {
	User      *PublicUser `json:"user"`
	Token     string      `json:"accessToken"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// AccountOption configures an AccountService.
type AccountOption func(*AccountService)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) AccountOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) AccountOption {
	return func(s *AccountService) {
		if now != nil {
			s.now = now
		}
	}
}

// AccountService coordinates registration, login, session resolution and
// password resets on top of a CredentialStore.
//
// Every mutation runs load, modify and replace while holding writeMu, so two
// writers never overwrite each other's snapshot. Reads take no lock and may
// observe a snapshot that is being superseded.
type AccountService struct {
	store  CredentialStore
	hasher PasswordHasher
	tokens *TokenService
	logger *slog.Logger
	now    func() time.Time

	writeMu sync.Mutex

	dummyOnce sync.Once
	dummy     string
}

// NewAccountService creates a new AccountService.
func NewAccountService(store CredentialStore, hasher PasswordHasher, tokens *TokenService, opts ...AccountOption) (*AccountService, error) {
	if store == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code(CodeConfigInvalid).Errorf("token service is required")
	}

	s := &AccountService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "account")
	return s, nil
}

// Register creates a new account and returns it without the password hash.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (user *PublicUser, err error) {
	defer func(start time.Time) { err = s.finish(ctx, OpRegister, start, err) }(time.Now())

	email := NormalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	if email == "" || in.Password == "" || firstName == "" {
		return nil, oops.Code(CodeInvalidArgument).
			Errorf("first name, email and password are required")
	}

	// Cheap rejection before paying for the hash. Repeated under the lock.
	users, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if findByEmail(users, email) >= 0 {
		return nil, emailTaken(email)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, hashError(err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	users, err = s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if findByEmail(users, email) >= 0 {
		return nil, emailTaken(email)
	}

	now := Timestamp(s.now())
	record := User{
		ID:           ulid.Make(),
		FirstName:    firstName,
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.ReplaceAll(ctx, append(users, record)); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", record.ID.String())
	return record.Public(), nil
}

// FindByEmail returns the public summary of the account with that email.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (summary *UserSummary, err error) {
	defer func(start time.Time) { err = s.finish(ctx, OpFindByEmail, start, err) }(time.Now())

	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code(CodeInvalidArgument).Errorf("email is required")
	}

	users, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := findByEmail(users, email)
	if idx < 0 {
		return nil, oops.Code(CodeNotFound).With("email", email).Wrap(ErrNotFound)
	}
	return users[idx].Summary(), nil
}

// Authenticate verifies credentials and issues a session token.
// Unknown emails and wrong passwords produce the same message and take the
// same time; only the code differs.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (session *Session, err error) {
	defer func(start time.Time) { err = s.finish(ctx, OpAuthenticate, start, err) }(time.Now())

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, oops.Code(CodeInvalidArgument).Errorf("email and password are required")
	}

	users, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	idx := findByEmail(users, email)
	if idx < 0 {
		//nolint:errcheck // result is discarded, the call only equalizes timing
		_, _ = s.hasher.Verify(password, s.dummyHash())
		return nil, oops.Code(CodeNotFound).Errorf(invalidLoginMessage)
	}
	user := users[idx]

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		errutil.LogWarnContext(ctx, s.logger.With("user_id", user.ID.String()), "stored password hash is unreadable", err)
		return nil, oops.Code(CodeInvalidCredentials).Errorf(invalidLoginMessage)
	}
	if !valid {
		return nil, oops.Code(CodeInvalidCredentials).Errorf(invalidLoginMessage)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, oops.With("operation", "issue token").Wrap(err)
	}

	s.logger.InfoContext(ctx, "user authenticated", "user_id", user.ID.String())
	return &Session{User: user.Public(), Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveSession verifies a token and returns the account it was issued to.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (user *PublicUser, err error) {
	defer func(start time.Time) { err = s.finish(ctx, OpResolveSession, start, err) }(time.Now())

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	users, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := findByID(users, claims.UserID)
	if idx < 0 {
		return nil, oops.Code(CodeNotFound).
			With("user_id", claims.UserID.String()).
			Wrap(ErrNotFound)
	}
	if NormalizeEmail(users[idx].Email) != NormalizeEmail(claims.Email) {
		return nil, oops.Code(CodeTokenInvalid).
			With("user_id", claims.UserID.String()).
			Errorf("session token does not match account")
	}
	return users[idx].Public(), nil
}

// ResetPassword replaces the password of the account with that email.
// The caller is trusted to have verified the requester's identity.
func (s *AccountService) ResetPassword(ctx context.Context, email, newPassword string) (err error) {
	defer func(start time.Time) { err = s.finish(ctx, OpResetPassword, start, err) }(time.Now())

	email = NormalizeEmail(email)
	if email == "" || newPassword == "" {
		return oops.Code(CodeInvalidArgument).Errorf("email and new password are required")
	}

	users, err := s.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	if findByEmail(users, email) < 0 {
		return oops.Code(CodeNotFound).With("email", email).Wrap(ErrNotFound)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return hashError(err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	users, err = s.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	idx := findByEmail(users, email)
	if idx < 0 {
		return oops.Code(CodeNotFound).With("email", email).Wrap(ErrNotFound)
	}

	users[idx].PasswordHash = hash
	users[idx].UpdatedAt = s.nextUpdatedAt(users[idx].UpdatedAt)

	if err := s.store.ReplaceAll(ctx, users); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", users[idx].ID.String())
	return nil
}

// upgradeHash rehashes the password with current parameters. Failures are
// logged and otherwise ignored; the login already succeeded.
func (s *AccountService) upgradeHash(ctx context.Context, verified User, password string) {
	logger := s.logger.With("user_id", verified.ID.String())
	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogWarnContext(ctx, logger, "password rehash failed", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	users, err := s.store.LoadAll(ctx)
	if err != nil {
		errutil.LogWarnContext(ctx, logger, "password rehash skipped", err)
		return
	}
	idx := findByID(users, verified.ID)
	if idx < 0 || users[idx].PasswordHash != verified.PasswordHash {
		// Changed concurrently; keep the newer record.
		return
	}
	users[idx].PasswordHash = hash
	if err := s.store.ReplaceAll(ctx, users); err != nil {
		errutil.LogWarnContext(ctx, logger, "password rehash not persisted", err)
		return
	}
	logger.DebugContext(ctx, "password hash upgraded")
}

// nextUpdatedAt returns the current time, moved past prev if the clock has
// not advanced since the last write.
func (s *AccountService) nextUpdatedAt(prev time.Time) time.Time {
	now := Timestamp(s.now())
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *AccountService) dummyHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("authd-dummy-password")
		if err != nil {
			hash = fallbackDummyHash
		}
		s.dummy = hash
	})
	return s.dummy
}

// finish records metrics and logs a failed operation. Infrastructure
// failures are logged as errors; everything else is a routine caller outcome.
func (s *AccountService) finish(ctx context.Context, operation string, start time.Time, err error) error {
	recordOperation(operation, start, err)
	if err == nil {
		return nil
	}
	code := ErrorCode(err)
	switch code {
	case CodeInvalidArgument, CodeEmailTaken, CodeNotFound, CodeInvalidCredentials,
		CodeTokenMissing, CodeTokenInvalid, CodeTokenExpired:
		s.logger.DebugContext(ctx, "account operation rejected", "operation", operation, "code", code)
	case CodeStoreUnavailable:
		errutil.LogErrorContext(ctx, s.logger, "credential store unavailable", oops.With("operation", operation).Wrap(err))
	default:
		errutil.LogErrorContext(ctx, s.logger, "account operation failed", oops.With("operation", operation).Wrap(err))
	}
	return err
}

func emailTaken(email string) error {
	return oops.Code(CodeEmailTaken).
		With("email", email).
		Errorf("email is already registered")
}

// hashError maps hasher input errors to AUTH_INVALID_ARGUMENT.
func hashError(err error) error {
	switch ErrorCode(err) {
	case CodeEmptyPassword, CodeInvalidArgument:
		return oops.Code(CodeInvalidArgument).Errorf("%s", err.Error())
	default:
		return oops.With("operation", "hash password").Wrap(err)
	}
}
