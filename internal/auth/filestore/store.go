// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package filestore implements auth.CredentialStore on a single JSON file.
//
// The file holds a JSON array of user records. Writes go to a temporary file
// in the same directory which is synced and renamed over the target, so a
// reader sees either the previous or the new set, never a partial one.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/knpvt5/auth/internal/auth"
	"github.com/knpvt5/auth/internal/xdg"
)

// DefaultFileName is the name of the users file inside the data directory.
const DefaultFileName = "users.json"

const filePerm = 0o600

// Store is a file-backed credential store.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store for the file at path. The file and its directory are
// created on the first write.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, oops.Code(auth.CodeConfigInvalid).Errorf("store path is required")
	}
	return &Store{path: filepath.Clean(path)}, nil
}

// DefaultPath returns the users file location under the XDG data directory.
func DefaultPath() string {
	return filepath.Join(xdg.DataDir(), DefaultFileName)
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// LoadAll reads every record. A missing or empty file is an empty set.
func (s *Store) LoadAll(ctx context.Context) ([]auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, auth.StoreUnavailable("load users", err)
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []auth.User{}, nil
	}
	if err != nil {
		return nil, oops.Code(auth.CodeStoreUnavailable).
			With("operation", "read users file").
			With("path", s.path).
			Wrap(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []auth.User{}, nil
	}

	var users []auth.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, oops.Code(auth.CodeStoreUnavailable).
			With("operation", "decode users file").
			With("path", s.path).
			Wrap(err)
	}
	if users == nil {
		users = []auth.User{}
	}
	if err := auth.CheckUnique(users); err != nil {
		return nil, oops.Code(auth.CodeStoreUnavailable).
			With("operation", "validate users file").
			With("path", s.path).
			Wrap(err)
	}
	return users, nil
}

// ReplaceAll atomically replaces the file contents with users.
func (s *Store) ReplaceAll(ctx context.Context, users []auth.User) error {
	if err := ctx.Err(); err != nil {
		return auth.StoreUnavailable("replace users", err)
	}
	if err := auth.CheckUnique(users); err != nil {
		code := auth.CodeInvalidArgument
		if errors.Is(err, auth.ErrDuplicateEmail) {
			code = auth.CodeEmailTaken
		}
		return oops.Code(code).With("operation", "replace users").Wrap(err)
	}
	if users == nil {
		users = []auth.User{}
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return auth.StoreUnavailable("encode users", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.path, data); err != nil {
		return oops.Code(auth.CodeStoreUnavailable).
			With("operation", "write users file").
			With("path", s.path).
			Wrap(err)
	}
	return nil
}

// writeAtomic writes data to a temp file next to path, syncs it and renames
// it over path. On any failure the temp file is removed and path is untouched.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return oops.With("step", "create temp file").Wrap(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()         //nolint:errcheck // already failing
			_ = os.Remove(tmpName) //nolint:errcheck // already failing
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return oops.With("step", "write temp file").Wrap(err)
	}
	if err = tmp.Sync(); err != nil {
		return oops.With("step", "sync temp file").Wrap(err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		return oops.With("step", "chmod temp file").Wrap(err)
	}
	if err = tmp.Close(); err != nil {
		return oops.With("step", "close temp file").Wrap(err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return oops.With("step", "rename temp file").Wrap(err)
	}

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry of a completed rename.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // dir is derived from the configured store path
	if err != nil {
		return
	}
	_ = d.Sync()  //nolint:errcheck // not supported on every filesystem; rename already happened
	_ = d.Close() //nolint:errcheck // read-only handle
}
