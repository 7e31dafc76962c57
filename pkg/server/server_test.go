package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/service"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/storage"
)

func testServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	return New(service.New(nil, store)).Handler()
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBadRequests(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"invalid race id", http.MethodGet, "/api/races/not-a-uuid", ""},
		{
			"invalid lap number", http.MethodGet,
			"/api/races/8b29b0e5-3f54-4b1a-9a52-1d6e5b0a9f00/laps/abc", "",
		},
		{
			"missing comparison params", http.MethodGet,
			"/api/races/8b29b0e5-3f54-4b1a-9a52-1d6e5b0a9f00/comparison", "",
		},
		{
			"missing fuel lap", http.MethodGet,
			"/api/races/8b29b0e5-3f54-4b1a-9a52-1d6e5b0a9f00/fuel", "",
		},
		{"malformed upload body", http.MethodPost, "/api/races", "{not json"},
		{"invalid base64", http.MethodPost, "/api/races", `{"name":"x","data":"%%%"}`},
		{"empty payload", http.MethodPost, "/api/races", `{"name":"x","data":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/races", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000",
		rec.Header().Get("Access-Control-Allow-Origin"))
}
