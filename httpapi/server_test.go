package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdb.evalgo.org/server"
	"graphdb.evalgo.org/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := session.OpenInMemory(session.Options{})
	require.NoError(t, err)
	svc := server.NewGraphService(db, server.Config{
		DefaultUsername: "root",
		DefaultPassword: "root",
	}, nil)
	t.Cleanup(func() {
		svc.Close()
		_ = db.Close()
	})
	return NewServer(svc, DefaultServerConfig(), nil)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginAndSessions(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/auth/login", `{"username":"root","password":"root"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)

	rec = doJSON(t, s, http.MethodGet, "/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), resp.SessionID)

	rec = doJSON(t, s, http.MethodGet, "/sessions/"+resp.SessionID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/auth/logout", `{"session_id":"`+resp.SessionID+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/sessions/"+resp.SessionID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginFailure(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/auth/login", `{"username":"root","password":"wrong"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "PermissionDenied")

	rec = doJSON(t, s, http.MethodPost, "/auth/login", `{"username":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryTransactionControl(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/auth/login", `{"username":"root","password":"root"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = doJSON(t, s, http.MethodPost, "/query", `{"session_id":"`+resp.SessionID+`","statement":"BEGIN"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/query", `{"session_id":"`+resp.SessionID+`","statement":"COMMIT"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// COMMIT without a transaction maps to 422
	rec = doJSON(t, s, http.MethodPost, "/query", `{"session_id":"`+resp.SessionID+`","statement":"COMMIT"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "TransactionFailed")

	rec = doJSON(t, s, http.MethodPost, "/query", `{"session_id":"unknown","statement":"BEGIN"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
