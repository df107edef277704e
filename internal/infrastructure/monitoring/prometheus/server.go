package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ServerConfig holds the exposition endpoint parameters.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Server exposes the metrics registry over HTTP.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

// NewServer builds the exposition server; call Start to begin serving.
func NewServer(cfg ServerConfig, collector MetricsCollector, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":9090"
	}
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.Named("metrics_server"),
	}
}

// Start serves until Shutdown is called. It blocks, so run it in a
// goroutine.
func (s *Server) Start() error {
	s.logger.Info("metrics endpoint listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.ErrCodeInternal, "metrics server failed")
	}
	return nil
}

// Shutdown drains in-flight scrapes and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
