package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-nfc/nfc-bridge-core/session"
)

type stubController struct{}

func (stubController) InitAsTarget(context.Context, []byte) (bool, error) { return true, nil }
func (stubController) WaitForTag(context.Context, time.Duration) (bool, error) {
	return true, nil
}
func (stubController) Reinitialize(context.Context) error { return nil }

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(stubController{}, session.Config{
		SessionTimeout:      2 * time.Second,
		TaggingTimeout:      200 * time.Millisecond,
		ReaperInterval:      time.Second,
		ReinitializeTimeout: time.Second,
	})
	t.Cleanup(mgr.Shutdown)
	return NewServer(mgr), mgr
}

func TestServer_CreateSession(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	body, err := json.Marshal(createSessionRequest{OrderID: "order-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/nfc/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp createSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "pending", resp.Status)
}

func TestServer_CreateSession_MissingOrderID(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/nfc/sessions", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateSession_BadJSON(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/nfc/sessions", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetSession(t *testing.T) {
	t.Parallel()
	srv, mgr := newTestServer(t)

	sess, err := mgr.CreateSession("order-2", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/nfc/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp sessionStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sess.ID, resp.SessionID)
}

func TestServer_GetSession_NotFound(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nfc/sessions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListSessions(t *testing.T) {
	t.Parallel()
	srv, mgr := newTestServer(t)

	_, err := mgr.CreateSession("order-3", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/nfc/sessions", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp listSessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestServer_UnknownPath(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/nfc/sessions", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
