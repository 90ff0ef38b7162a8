// Package health exposes the prediction service's probe endpoints:
// liveness, a status summary and a readiness check covering the
// database and the serving model artifact.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/models"
)

// Pinger reports whether the backing database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelSource reports the artifact currently promoted for serving.
// It is satisfied by the artifact repository.
type ModelSource interface {
	GetLatest(ctx context.Context) (*models.TrainedModelArtifact, error)
}

// StatusResponse is the JSON body for /health and /live
type StatusResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse is the JSON body for /ready. Checks carries one entry
// per dependency; ModelVersion names the artifact that predictions
// would be served from.
type ReadyResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	ModelVersion string            `json:"model_version,omitempty"`
	Checks       map[string]string `json:"checks,omitempty"`
	Duration     string            `json:"duration,omitempty"`
}

// Server answers orchestrator probes for the prediction daemon
type Server struct {
	serviceName string
	version     string
	commit      string
	port        string
	server      *http.Server
	logger      *logrus.Logger
	db          Pinger
	models      ModelSource
	mu          sync.RWMutex
	ready       bool
}

// Config wires the probe server's dependencies
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	Logger      *logrus.Logger
	DB          Pinger
	Models      ModelSource
}

// NewServer builds a probe server. The port falls back to HEALTH_PORT
// and then 8080; the server starts not ready until the daemon flips it.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = os.Getenv("HEALTH_PORT")
	}
	if port == "" {
		port = "8080"
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		logger:      cfg.Logger,
		db:          cfg.DB,
		models:      cfg.Models,
	}
}

// SetReady flips the readiness gate
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady reports the readiness gate
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Start serves the probe endpoints in the background until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleStatus)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)

	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"port":    s.port,
				"service": s.serviceName,
			}).Info("Health probe server starting")
		}
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.WithError(err).Error("Health probe server error")
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown drains the probe server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Health probe server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleStatus reports build identity without touching dependencies
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

// handleLive answers liveness probes as long as the process runs
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady verifies the service can actually serve predictions:
// the readiness gate is open, the database answers a ping and the
// serving artifact is reported when one is promoted. A service with
// no trained model is still ready; it reports model "not_trained"
// so operators can tell an untrained deployment from a broken one.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	ready := true

	if s.IsReady() {
		checks["service"] = "ok"
	} else {
		ready = false
		checks["service"] = "not_ready"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			ready = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	var modelVersion string
	if s.models != nil {
		artifact, err := s.models.GetLatest(ctx)
		switch {
		case errors.Is(err, models.ErrModelNotTrained):
			checks["model"] = "not_trained"
		case err != nil:
			ready = false
			checks["model"] = fmt.Sprintf("error: %v", err)
		default:
			modelVersion = artifact.ModelVersion
			checks["model"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:      s.serviceName,
		ModelVersion: modelVersion,
		Checks:       checks,
		Duration:     time.Since(start).String(),
	}
	if ready {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
