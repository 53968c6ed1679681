package server

import (
	"context"
	"net/http"
	"time"

	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
)

// Server owns the HTTP listener and the route table.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             logging.Logger
}

// New builds the server with the route table and middleware chain.
func New(addr string, imports *ImportHandler, forecasts *ForecastHandler, shutdownTimeout time.Duration, log logging.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /bank-statements/analyze", imports.Analyze)
	mux.HandleFunc("GET /bank-statements/{sessionId}", imports.Session)
	mux.HandleFunc("POST /bank-statements/{sessionId}/mapping", imports.UpdateMapping)
	mux.HandleFunc("POST /bank-statements/{sessionId}/preview", imports.Preview)
	mux.HandleFunc("POST /bank-statements/{sessionId}/commit", imports.Commit)

	mux.HandleFunc("GET /finance/forecast", forecasts.Forecast)
	mux.HandleFunc("GET /finance/anomalies", forecasts.Anomalies)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var handler http.Handler = mux
	handler = RequestLogger(log)(handler)
	handler = Recovery(log)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logging.F("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
