// Package server implements the FormDrop HTTP server and route multiplexer.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/formdrop/formdrop/internal/config"
	uperr "github.com/formdrop/formdrop/internal/errors"
	"github.com/formdrop/formdrop/internal/handlers"
	"github.com/formdrop/formdrop/internal/history"
	"github.com/formdrop/formdrop/internal/storage"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the FormDrop HTTP server. It owns the router, the upload
// handler, and the system endpoints (health, metrics, docs, upload ledger).
type Server struct {
	cfg        *config.Config
	router     chi.Router
	api        huma.API
	store      *storage.LocalStore
	ledger     history.Store
	upload     *handlers.UploadHandler
	httpServer *http.Server
}

// HealthBody is the JSON body returned by the health check endpoint.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthOutput is the Huma output struct for the health check endpoint.
type HealthOutput struct {
	Body HealthBody
}

// UploadEntry is one ledger record as exposed by the uploads listing endpoint.
type UploadEntry struct {
	ID          string    `json:"id" doc:"Ledger record ID"`
	Filename    string    `json:"filename" doc:"Original client filename"`
	StoredName  string    `json:"stored_name,omitempty" doc:"Resolved name in the uploads directory"`
	ContentType string    `json:"content_type,omitempty" doc:"Sniffed MIME type"`
	SizeBytes   int64     `json:"size_bytes,omitempty" doc:"File size in bytes"`
	Status      string    `json:"status" enum:"uploaded,rejected" doc:"Outcome"`
	Error       string    `json:"error,omitempty" doc:"Rejection reason"`
	CreatedAt   time.Time `json:"created_at" doc:"Record timestamp"`
}

// UploadsBody is the JSON body returned by the uploads listing endpoint.
type UploadsBody struct {
	Uploads []UploadEntry `json:"uploads"`
}

// UploadsOutput is the Huma output struct for the uploads listing endpoint.
type UploadsOutput struct {
	Body UploadsBody
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLedger sets the upload ledger for the server.
func WithLedger(ledger history.Store) ServerOption {
	return func(s *Server) {
		s.ledger = ledger
	}
}

// WithStore sets the uploads store for the server.
func WithStore(store *storage.LocalStore) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// New creates a new Server with the given configuration and wires up all
// routes on the Chi router with Huma API. Use ServerOption functions to
// provide the ledger and the uploads store; when absent, the store is opened
// from config and the ledger falls back to an in-memory implementation.
func New(cfg *config.Config, opts ...ServerOption) (*Server, error) {
	router := chi.NewMux()

	humaConfig := huma.DefaultConfig("FormDrop Upload API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.OpenAPIPath = "/openapi"
	api := humachi.New(router, humaConfig)

	s := &Server{
		cfg:    cfg,
		router: router,
		api:    api,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		store, err := storage.NewLocalStore(cfg.Storage.UploadsDir)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	if s.ledger == nil {
		s.ledger = history.NewMemoryStore()
	}

	s.upload = handlers.NewUploadHandler(
		s.store,
		s.ledger,
		cfg.Upload.MaxFileSize,
		cfg.Upload.MaxRequestSize,
		cfg.Upload.AllowedTypes,
	)

	s.registerRoutes()
	return s, nil
}

// ListenAndServe starts the HTTP server on the given address.
// The returned http.Server is stored so it can be shut down gracefully.
// Middleware chain: metricsMiddleware -> commonHeaders -> router.
func (s *Server) ListenAndServe(addr string) error {
	var handler http.Handler = s.router
	handler = commonHeaders(handler)
	handler = metricsMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wired route handler for tests.
func (s *Server) Handler() http.Handler {
	return metricsMiddleware(commonHeaders(s.router))
}

// registerRoutes configures all routes on the Chi router.
// Huma routes (/health, /uploads, /docs, /openapi.json) and /metrics are
// registered alongside the upload form and upload endpoint on "/".
// Any other method on a known path gets a 405 per upload API contract.
func (s *Server) registerRoutes() {
	// Register /health via Huma for auto-OpenAPI documentation.
	huma.Register(s.api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the FormDrop server.",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		if err := s.store.HealthCheck(ctx); err != nil {
			return nil, huma.Error503ServiceUnavailable("uploads directory unavailable")
		}
		return &HealthOutput{Body: HealthBody{Status: "ok"}}, nil
	})

	// Register HEAD /health separately (Huma only does one method per registration).
	s.router.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})

	// Register /uploads via Huma: recent ledger records, newest first.
	huma.Register(s.api, huma.Operation{
		OperationID: "list-uploads",
		Method:      http.MethodGet,
		Path:        "/uploads",
		Summary:     "List recent uploads",
		Description: "Returns the most recent upload ledger records, newest first.",
		Tags:        []string{"Uploads"},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum records to return"`
	}) (*UploadsOutput, error) {
		records, err := s.ledger.ListUploads(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("listing uploads failed")
		}
		entries := make([]UploadEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, UploadEntry{
				ID:          rec.ID,
				Filename:    rec.Filename,
				StoredName:  rec.StoredName,
				ContentType: rec.ContentType,
				SizeBytes:   rec.SizeBytes,
				Status:      rec.Status,
				Error:       rec.ErrorMessage,
				CreatedAt:   rec.CreatedAt,
			})
		}
		return &UploadsOutput{Body: UploadsBody{Uploads: entries}}, nil
	})

	// Register /metrics via promhttp.Handler() when enabled.
	if s.cfg.Observability.Metrics {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	// The upload surface: GET / serves the form, POST / ingests files.
	s.router.Get("/", s.upload.Form)
	s.router.Post("/", s.upload.Upload)

	// Methods other than GET/POST get a 405.
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, uperr.ErrMethodNotAllowed)
	})
}
