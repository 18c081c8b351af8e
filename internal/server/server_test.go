package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/formdrop/formdrop/internal/config"
	"github.com/formdrop/formdrop/internal/history"
	"github.com/formdrop/formdrop/internal/metrics"
	"github.com/formdrop/formdrop/internal/storage"
)

func init() {
	// Register metrics once for the entire test binary so that tests
	// checking /metrics output see the expected collectors.
	metrics.Register()
}

// newTestServer creates a Server for testing with a temp-dir uploads store
// and an in-memory ledger. Observability is enabled by default.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30,
		},
		Upload: config.UploadConfig{
			MaxFileSize:    5 << 20,
			MaxRequestSize: 32 << 20,
			AllowedTypes:   config.DefaultAllowedTypes,
		},
		Observability: config.ObservabilityConfig{
			Metrics: true,
		},
	}

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	srv, err := New(cfg, WithStore(store), WithLedger(history.NewMemoryStore()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv
}

// pngUpload builds a single-file multipart request body with a valid PNG
// signature.
func pngUpload(filename string) (body, contentType string) {
	payload := string([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) + strings.Repeat("x", 100)
	body = fmt.Sprintf("--frontier\r\n"+
		"Content-Disposition: form-data; name=\"files\"; filename=\"%s\"\r\n"+
		"Content-Type: image/png\r\n\r\n"+
		"%s\r\n"+
		"--frontier--\r\n", filename, payload)
	return body, "multipart/form-data; boundary=frontier"
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health HealthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
}

func TestHealthHead(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodHead, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCommonHeaders(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing")
	}
	if rec.Header().Get("Server") != "FormDrop" {
		t.Errorf("Server header = %q, want FormDrop", rec.Header().Get("Server"))
	}
	if rec.Header().Get("Date") == "" {
		t.Error("Date header missing")
	}
}

func TestUploadFormServed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `enctype="multipart/form-data"`) {
		t.Error("upload form missing from response")
	}
}

func TestUploadRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := pngUpload("photo.png")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	var results []struct {
		Filename string `json:"filename"`
		Type     string `json:"type"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decoding results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d entries, want 1", len(results))
	}
	if results[0].Type != "image/png" || results[0].Status != "Uploaded successfully" {
		t.Errorf("results[0] = %+v", results[0])
	}

	// The ledger endpoint reflects the upload.
	req = httptest.NewRequest(http.MethodGet, "/uploads", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/uploads status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	var uploads UploadsBody
	if err := json.Unmarshal(rec.Body.Bytes(), &uploads); err != nil {
		t.Fatalf("decoding uploads body: %v", err)
	}
	if len(uploads.Uploads) != 1 {
		t.Fatalf("uploads = %d entries, want 1", len(uploads.Uploads))
	}
	if uploads.Uploads[0].StoredName != "photo.png" || uploads.Uploads[0].Status != history.StatusUploaded {
		t.Errorf("uploads[0] = %+v", uploads.Uploads[0])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s / status = %d, want 405", method, rec.Code)
		}
	}
}

func TestUploadMissingBoundaryStatus(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("data"))
	req.Header.Set("Content-Type", "multipart/form-data")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var errBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Error("error body missing message")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	// Generate some traffic first.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	metricsOut, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	for _, want := range []string{"formdrop_http_requests_total", "formdrop_upload_requests_total"} {
		if !strings.Contains(string(metricsOut), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxFileSize:    5 << 20,
			MaxRequestSize: 32 << 20,
			AllowedTypes:   config.DefaultAllowedTypes,
		},
		Observability: config.ObservabilityConfig{Metrics: false},
	}
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	srv, err := New(cfg, WithStore(store))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when metrics are disabled", rec.Code)
	}
}

func TestOpenAPIServed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "FormDrop Upload API") {
		t.Error("OpenAPI document missing API title")
	}
}
