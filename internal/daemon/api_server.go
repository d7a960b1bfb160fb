package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
)

// healthResponse is the JSON body served by the health endpoint.
type healthResponse struct {
	Status        string `json:"status"`
	ActiveJobs    int64  `json:"activeJobs"`
	MaxConcurrent int    `json:"maxConcurrent"`
	Uptime        string `json:"uptime"`
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Daemon.BindAddress),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleHealth)
	mux.HandleFunc("/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("health listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server error", logging.Error(err))
		}
	}()

	s.logger.Info("health endpoint listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr reports the bound listener address, useful when the config asked for
// port 0.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// The root pattern matches every unregistered path; only the two real
	// health paths answer.
	if r.URL.Path != "/" && r.URL.Path != "/health" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := healthResponse{
		Status:        "healthy",
		ActiveJobs:    s.daemon.ActiveJobs(),
		MaxConcurrent: s.daemon.cfg.Pipeline.MaxConcurrent,
		Uptime:        s.daemon.Uptime().Round(time.Second).String(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write health response", logging.Error(err))
	}
}
