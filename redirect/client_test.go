package redirect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostRedirect(t *testing.T) {
	t.Parallel()
	var gotKey string
	var gotBody PostRedirectRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/redirect", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	err := c.PostRedirect(context.Background(), "order-1", "https://example.com/r/abc")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "order-1", gotBody.OrderID)
	assert.Equal(t, "https://example.com/r/abc", gotBody.ReceiptURL)
}

func TestClient_PostScanComplete(t *testing.T) {
	t.Parallel()
	var gotBody ScanCompleteRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/scan-complete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	err := c.PostScanComplete(context.Background(), "order-2")
	require.NoError(t, err)
	assert.Equal(t, "order-2", gotBody.OrderID)
}

func TestClient_GetSessionStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/session-status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(SessionStatus{
			OrderID:    "order-3",
			ReceiptURL: "https://example.com/r/xyz",
			Status:     "scanned",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	status, err := c.GetSessionStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "order-3", status.OrderID)
	assert.Equal(t, "scanned", status.Status)
}

func TestClient_ErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	err := c.PostRedirect(context.Background(), "order-4", "https://example.com/r/err")
	assert.Error(t, err)
}
