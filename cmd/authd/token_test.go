// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knpvt5/auth/internal/auth"
	"github.com/knpvt5/auth/pkg/errutil"
)

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-owned temp file
	require.NoError(t, err)
	return string(data)
}

func TestTokenCommand_IssueAndVerify(t *testing.T) {
	setTestEnv(t)
	user := addUser(t, "grace@example.com", "pw")

	before := time.Now()
	out, err := execute(t, "pw\n", "token", "issue", "GRACE@example.com", "--password-stdin")
	require.NoError(t, err)

	var issued issuedToken
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	require.NotEmpty(t, issued.AccessToken)
	assert.WithinDuration(t, before.Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	out, err = execute(t, "", "token", "verify", issued.AccessToken)
	require.NoError(t, err)

	var verified verifiedToken
	require.NoError(t, json.Unmarshal([]byte(out), &verified))
	require.NotNil(t, verified.User)
	assert.Equal(t, user.ID, verified.User.ID)
	assert.Equal(t, "grace@example.com", verified.User.Email)
	assert.Equal(t, time.Hour, verified.ExpiresAt.Sub(verified.IssuedAt))
}

func TestTokenCommand_TTLFlag(t *testing.T) {
	setTestEnv(t)
	addUser(t, "ttl@example.com", "pw")

	before := time.Now()
	out, err := execute(t, "pw\n", "--token-ttl", "5m", "token", "issue", "ttl@example.com", "--password-stdin")
	require.NoError(t, err)

	var issued issuedToken
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	assert.WithinDuration(t, before.Add(5*time.Minute), issued.ExpiresAt, 5*time.Second)
}

func TestTokenCommand_VerifyRejects(t *testing.T) {
	setTestEnv(t)
	addUser(t, "sig@example.com", "pw")
	out, err := execute(t, "pw\n", "token", "issue", "sig@example.com", "--password-stdin")
	require.NoError(t, err)
	var issued issuedToken
	require.NoError(t, json.Unmarshal([]byte(out), &issued))

	t.Run("garbage", func(t *testing.T) {
		_, err := execute(t, "", "token", "verify", "not-a-token")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("other secret", func(t *testing.T) {
		t.Setenv("AUTHD_TOKEN_SECRET", "a-different-secret")
		_, err := execute(t, "", "token", "verify", issued.AccessToken)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})
}

func TestTokenCommand_IssueUnknownEmail(t *testing.T) {
	setTestEnv(t)
	_, err := execute(t, "pw\n", "token", "issue", "ghost@example.com", "--password-stdin")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeNotFound)
}
