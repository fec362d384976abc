// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package httpapi_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knpvt5/auth/internal/httpapi"
	"github.com/knpvt5/auth/internal/httpapi/mocks"
	"github.com/knpvt5/auth/internal/logging"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		out = append(out, entry)
	}
	return out
}

func TestRequestID_GeneratedWhenAbsent(t *testing.T) {
	h := newRouter(mocks.NewMockAccounts(t), httpapi.Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	id := rec.Header().Get(httpapi.RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "generated id %q should be a UUID", id)
}

func TestRequestID_IncomingUUIDIsKept(t *testing.T) {
	h := newRouter(mocks.NewMockAccounts(t), httpapi.Options{})
	want := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set(httpapi.RequestIDHeader, want)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, want, rec.Header().Get(httpapi.RequestIDHeader))
}

func TestRequestID_MalformedIncomingIsReplaced(t *testing.T) {
	h := newRouter(mocks.NewMockAccounts(t), httpapi.Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set(httpapi.RequestIDHeader, "<script>")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	got := rec.Header().Get(httpapi.RequestIDHeader)
	assert.NotEqual(t, "<script>", got)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("authd", "test", "json", slog.LevelInfo, &buf)
	h := newRouter(mocks.NewMockAccounts(t), httpapi.Options{Logger: logger})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", http.NoBody))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "/auth/logout", entry["route"])
	assert.Equal(t, "POST", entry["method"])
	assert.InDelta(t, 200, entry["status"], 0)
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, rec.Header().Get(httpapi.RequestIDHeader), entry["request_id"])
}

func TestAccessLog_UnmatchedRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("authd", "test", "json", slog.LevelInfo, &buf)
	h := newRouter(mocks.NewMockAccounts(t), httpapi.Options{Logger: logger})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "unmatched", lines[0]["route"])
	assert.InDelta(t, 404, lines[0]["status"], 0)
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("authd", "test", "json", slog.LevelInfo, &buf)
	accounts := mocks.NewMockAccounts(t)
	accounts.On("ResolveSession", mock.Anything, "").
		Run(func(mock.Arguments) { panic("boom") }).
		Return(nil, nil)
	h := newRouter(accounts, httpapi.Options{Logger: logger})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/user-data", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env httpapi.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Internal Server Error", env.Message)

	var sawPanic, sawAccess bool
	for _, entry := range logLines(t, &buf) {
		switch entry["msg"] {
		case "recovered from panic":
			sawPanic = true
			assert.Equal(t, "ERROR", entry["level"])
			assert.Equal(t, "HTTP_HANDLER_PANIC", entry["code"])
		case "http request":
			sawAccess = true
			assert.InDelta(t, 500, entry["status"], 0)
		}
	}
	assert.True(t, sawPanic, "panic should be logged")
	assert.True(t, sawAccess, "request should still be access-logged")
}
