// Package server provides the HTTP API for async publish operations.
//
// Endpoints:
//
//	POST /publishes        enqueue a new publish; returns operation ID immediately
//	GET  /publishes/{id}   poll operation status, progress and result, including
//	                       the published updates once complete
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/operation"
	"github.com/tomasbasham/assetpub/internal/publish"
)

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	store     operation.Store
	publisher operation.Publisher
	logger    *slog.Logger
	mux       *http.ServeMux

	// baseCtx outlives individual requests so a publish is not cancelled
	// when the HTTP connection that started it closes.
	baseCtx context.Context

	// defaultRequest supplies any field a request leaves empty.
	defaultRequest publish.Request
}

// New creates a Server wired to the given store and publisher. Publishes run
// until ctx is cancelled.
func New(ctx context.Context, store operation.Store, publisher operation.Publisher, defaults publish.Request, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:          store,
		publisher:      publisher,
		logger:         logger,
		baseCtx:        ctx,
		defaultRequest: defaults,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /publishes", s.handleCreatePublish)
	s.mux.HandleFunc("GET /publishes/{id}", s.handleGetPublish)

	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address and shuts it
// down when the server's context is cancelled.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-s.baseCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// createPublishRequest is the JSON body for POST /publishes.
type createPublishRequest struct {
	InputDir       string   `json:"input_dir,omitempty"`
	Platforms      []string `json:"platforms,omitempty"`
	ProjectID      string   `json:"project_id,omitempty"`
	Branch         string   `json:"branch,omitempty"`
	Message        string   `json:"message,omitempty"`
	RuntimeVersion string   `json:"runtime_version,omitempty"`
}

// createPublishResponse is returned immediately from POST /publishes.
type createPublishResponse struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
}

func (s *Server) handleCreatePublish(w http.ResponseWriter, r *http.Request) {
	var body createPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req := s.defaultRequest
	if body.InputDir != "" {
		req.InputDir = body.InputDir
	}
	if body.ProjectID != "" {
		req.ProjectID = body.ProjectID
	}
	if body.Branch != "" {
		req.Branch = body.Branch
	}
	if body.RuntimeVersion != "" {
		req.RuntimeVersion = body.RuntimeVersion
	}
	req.Message = body.Message
	if len(body.Platforms) > 0 {
		req.Platforms = make([]asset.Platform, len(body.Platforms))
		for i, p := range body.Platforms {
			req.Platforms[i] = asset.Platform(p)
		}
	}

	if req.InputDir == "" {
		writeError(w, http.StatusBadRequest, "input_dir is required")
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	op, err := s.store.Create(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create operation: "+err.Error())
		return
	}

	go operation.Run(s.baseCtx, operation.WorkerOptions{
		Request:     req,
		OperationID: op.ID,
		Store:       s.store,
		Publisher:   s.publisher,
		Logger:      s.logger,
	})

	writeJSON(w, http.StatusAccepted, createPublishResponse{
		OperationID: op.ID,
		Status:      string(operation.StatusPending),
	})
}

func (s *Server) handleGetPublish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "operation id is required")
		return
	}

	op, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("operation %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, op)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
