// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		assert.Equal(t, "/custom/config/authd", ConfigDir())
	})

	t.Run("falls back to HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/testuser")
		assert.Equal(t, "/home/testuser/.config/authd", ConfigDir())
	})
}

func TestDataDir(t *testing.T) {
	t.Run("uses XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/custom/data")
		assert.Equal(t, "/custom/data/authd", DataDir())
	})

	t.Run("falls back to HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		t.Setenv("HOME", "/home/testuser")
		assert.Equal(t, "/home/testuser/.local/share/authd", DataDir())
	})
}

func TestEnsureDir(t *testing.T) {
	t.Run("creates nested directories with 0700", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b")
		require.NoError(t, EnsureDir(path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	})

	t.Run("existing directory is fine", func(t *testing.T) {
		require.NoError(t, EnsureDir(t.TempDir()))
	})

	t.Run("fails below a regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		err := EnsureDir(filepath.Join(file, "sub"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create directory")
	})
}
