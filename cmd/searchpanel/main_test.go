package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"user":{"id":"u1","email":"a@b.com","name":"Ada","role":"admin"},"token":"tok1","expires_in":3600}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func memoryEnv(t *testing.T, apiURL string) {
	t.Helper()
	t.Setenv("SEARCHPANEL_API_URL", apiURL)
	t.Setenv("SEARCHPANEL_STORE", "memory")
	t.Setenv("SEARCHPANEL_LOG_LEVEL", "error")
}

func TestLoginCommand_PasswordFromStdin(t *testing.T) {
	srv := newFakeAuthServer(t)
	memoryEnv(t, srv.URL)

	out, err := runCommand(t, "secret123\n", "login", "--email", "a@b.com")

	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada <a@b.com>")
	assert.Contains(t, out, "Role: admin")
	assert.Contains(t, out, "Credential expires")
}

func TestLoginCommand_ValidationError(t *testing.T) {
	srv := newFakeAuthServer(t)
	memoryEnv(t, srv.URL)

	_, err := runCommand(t, "", "login", "--email", "a@b.com", "--password", "abc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
}

func TestStatusCommand_NotSignedIn(t *testing.T) {
	srv := newFakeAuthServer(t)
	memoryEnv(t, srv.URL)

	out, err := runCommand(t, "", "status")

	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", out)
}

func TestLogoutCommand(t *testing.T) {
	srv := newFakeAuthServer(t)
	memoryEnv(t, srv.URL)

	out, err := runCommand(t, "", "logout")

	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)
}

func TestCommands_RequireAPIURL(t *testing.T) {
	t.Setenv("SEARCHPANEL_API_URL", "")

	_, err := runCommand(t, "", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEARCHPANEL_API_URL")
}
