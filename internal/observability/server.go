package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"weatherbot/pkg/logx"
)

type ServerConfig struct {
	Addr string // default "127.0.0.1:9090"
}

// Server is the ops HTTP endpoint: health and metrics only, no bot
// functionality.
type Server struct {
	log logx.Logger
	srv *http.Server

	runMu   sync.Mutex
	running bool
	started time.Time
}

func NewServer(cfg ServerConfig, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:9090"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", MetricsHandler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// Start begins serving in the background. Idempotent.
func (s *Server) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()

	go func() {
		s.log.Info("ops server listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("ops server failed", logx.Err(err))
		}
	}()
}

// Stop shuts the server down gracefully, bounded by ctx.
func (s *Server) Stop(ctx context.Context) {
	s.runMu.Lock()
	wasRunning := s.running
	s.running = false
	s.runMu.Unlock()
	if !wasRunning {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("ops server shutdown", logx.Err(err))
	}
}
