/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api serves the aggregated fleet state over a read-only HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	srHttp "github.com/carverauto/fleetradar/pkg/http"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/version"
	"github.com/gorilla/mux"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 45 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	shutdownTimeout     = 5 * time.Second
)

var errMachineNotFound = errors.New("machine not found")

// StateSource produces the current fleet state.
type StateSource interface {
	Aggregate(ctx context.Context) (*models.FleetState, error)
}

// SnapshotLister lists retained snapshot IDs, oldest first.
type SnapshotLister interface {
	List(ctx context.Context) ([]string, error)
}

// APIServer exposes the fleet state. It never writes snapshots.
type APIServer struct {
	router     *mux.Router
	state      StateSource
	snapshots  SnapshotLister
	corsConfig srHttp.CORSConfig
	apiKey     string
	logger     logger.Logger
}

// NewAPIServer creates a server over the given state source.
func NewAPIServer(state StateSource, log logger.Logger, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router: mux.NewRouter(),
		state:  state,
		logger: log,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithSnapshotLister enables GET /api/snapshots.
func WithSnapshotLister(l SnapshotLister) func(*APIServer) {
	return func(server *APIServer) {
		server.snapshots = l
	}
}

// WithCORS sets the allowed browser origins.
func WithCORS(origins []string) func(*APIServer) {
	return func(server *APIServer) {
		server.corsConfig = srHttp.CORSConfig{AllowedOrigins: origins}
	}
}

// WithAPIKey requires the key on every route except /health.
func WithAPIKey(key string) func(*APIServer) {
	return func(server *APIServer) {
		server.apiKey = key
	}
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})
	s.router.Use(srHttp.APIKeyMiddlewareWithOptions(srHttp.APIKeyOptions{
		APIKey:          s.apiKey,
		ExcludePaths:    []string{"/health"},
		LogUnauthorized: true,
		Logger:          s.logger,
	}))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/machines", s.getMachines).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/machines/{identity}", s.getMachine).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/snapshots", s.getSnapshots).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/state", s.getState).Methods(http.MethodGet, http.MethodOptions)
}

// ServeHTTP makes the server usable as a plain handler.
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}

func (*APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, map[string]string{
		"status":  "ok",
		"version": version.GetFullVersion(),
	})
}

func (s *APIServer) aggregate(w http.ResponseWriter, r *http.Request) (*models.FleetState, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultTimeout)
	defer cancel()

	state, err := s.state.Aggregate(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to aggregate fleet state")
		writeError(w, "failed to aggregate fleet state", http.StatusInternalServerError)

		return nil, false
	}

	return state, true
}

func (s *APIServer) getState(w http.ResponseWriter, r *http.Request) {
	state, ok := s.aggregate(w, r)
	if !ok {
		return
	}

	writeJSONResponse(w, state)
}

func (s *APIServer) getMachines(w http.ResponseWriter, r *http.Request) {
	state, ok := s.aggregate(w, r)
	if !ok {
		return
	}

	writeJSONResponse(w, state.Sorted())
}

// getMachine matches the identity exactly first, then case-insensitively.
func (s *APIServer) getMachine(w http.ResponseWriter, r *http.Request) {
	identity := mux.Vars(r)["identity"]

	state, ok := s.aggregate(w, r)
	if !ok {
		return
	}

	if h, found := state.Hosts[identity]; found {
		writeJSONResponse(w, h)
		return
	}

	for id, h := range state.Hosts {
		if strings.EqualFold(id, identity) {
			writeJSONResponse(w, h)
			return
		}
	}

	writeError(w, errMachineNotFound.Error(), http.StatusNotFound)
}

func (s *APIServer) getSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, "snapshot listing not configured", http.StatusNotImplemented)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultTimeout)
	defer cancel()

	ids, err := s.snapshots.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list snapshots")
		writeError(w, "failed to list snapshots", http.StatusInternalServerError)

		return
	}

	if ids == nil {
		ids = []string{}
	}

	writeJSONResponse(w, ids)
}

func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
