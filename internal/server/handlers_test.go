package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline-tools/redline/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.DataDir = t.TempDir()
	cfg.Server.RateLimitPerMin = 0

	srv, err := NewServer(Config{
		Server:   cfg.Server,
		Engine:   cfg.Engine,
		Render:   cfg.Render,
		Verifier: cfg.Verifier,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func newTestMux(t *testing.T) (*Server, *http.ServeMux) {
	t.Helper()
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	return srv, mux
}

func TestHealthHandler(t *testing.T) {
	_, mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthHandlerRejectsPost(t *testing.T) {
	_, mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUploadMissingFile(t *testing.T) {
	_, mux := newTestMux(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("session_id", ""))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/ref", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missing_file", resp.Error)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	_, mux := newTestMux(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text, not a document"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/ref", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_document", resp.Error)
}

func TestCompareUnknownSession(t *testing.T) {
	_, mux := newTestMux(t)

	for _, path := range []string{"/api/compare/images", "/api/compare/annotations", "/api/compare/words"} {
		req := httptest.NewRequest(http.MethodPost, path+"?session_id=missing", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestCompareIncompleteSession(t *testing.T) {
	srv, mux := newTestMux(t)

	sess, err := srv.sessions.SaveUpload("", "ref", strings.NewReader("ref only"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/compare/words?session_id="+sess.ID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "incomplete_session", resp.Error)
}

func TestDownloadValidation(t *testing.T) {
	srv, mux := newTestMux(t)
	sess := srv.sessions.Create()

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantErr  string
	}{
		{"unknown session", "session_id=missing&mode=words&page=0", http.StatusNotFound, "unknown_session"},
		{"bad page", "session_id=" + sess.ID + "&mode=words&page=minusone", http.StatusBadRequest, "invalid_page"},
		{"bad side", "session_id=" + sess.ID + "&mode=words&side=upside&page=0", http.StatusBadRequest, "invalid_side"},
		{"no document", "session_id=" + sess.ID + "&mode=words&page=0", http.StatusBadRequest, "missing_document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/download?"+tt.query, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	_, mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimitMiddlewareRejects(t *testing.T) {
	srv := newTestServer(t)
	srv.rateLimiter = NewRateLimiter(1, 0, 0, 0)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/compare/words?session_id=x", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	// First request passes rate limiting (session lookup fails, which is fine).
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "minute", rec.Header().Get("X-RateLimit-Type"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*http.Request)
		expect string
	}{
		{
			"forwarded chain",
			func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1") },
			"203.0.113.7",
		},
		{
			"real ip",
			func(r *http.Request) { r.Header.Set("X-Real-IP", "198.51.100.2") },
			"198.51.100.2",
		},
		{
			"remote addr",
			func(r *http.Request) { r.RemoteAddr = "192.0.2.9:1234" },
			"192.0.2.9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.expect, getClientIP(req))
		})
	}
}

func TestProgressHubFanOut(t *testing.T) {
	hub := NewProgressHub()

	ch := hub.Subscribe("sess-1")
	other := hub.Subscribe("sess-2")

	hub.Publish("sess-1", Progress{Stage: "comparing", Mode: "words"})

	select {
	case p := <-ch:
		assert.Equal(t, "comparing", p.Stage)
		assert.Equal(t, "words", p.Mode)
	case <-time.After(time.Second):
		t.Fatal("no progress update delivered")
	}
	select {
	case <-other:
		t.Fatal("update leaked to another session")
	default:
	}

	hub.Unsubscribe("sess-1", ch)
	hub.Publish("sess-1", Progress{Stage: "done"})
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unsubscribed channel still receives")
		}
	default:
	}
}

func TestProgressHubNonBlocking(t *testing.T) {
	hub := NewProgressHub()
	ch := hub.Subscribe("sess-1")

	// Flood well past the channel buffer; Publish must never block.
	for i := 0; i < 100; i++ {
		hub.Publish("sess-1", Progress{Stage: "comparing"})
	}
	assert.NotEmpty(t, ch)
}
