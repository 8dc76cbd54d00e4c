package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/autopeer-io/blurcam/internal/blurcam/command"
	"github.com/autopeer-io/blurcam/internal/blurcam/dispatch"
	"github.com/autopeer-io/blurcam/internal/blurcam/preview"
	"github.com/autopeer-io/blurcam/internal/pkg/metrics"
	httpmw "github.com/autopeer-io/blurcam/internal/pkg/middleware/http"
	"github.com/autopeer-io/blurcam/pkg/log"
	"github.com/autopeer-io/blurcam/pkg/options"
)

// Dispatcher is the part of the dispatcher the control channel needs.
type Dispatcher interface {
	Dispatch(cmd *command.Command) dispatch.Outcome
	Closed() bool
}

// Server is the HTTP control channel: command execution, live preview
// streaming, probes and metrics.
type Server struct {
	server     *http.Server
	options    *options.HttpOptions
	dispatcher Dispatcher
	frames     *preview.Buffer
	upgrader   websocket.Upgrader
	log        log.Logger

	// shutdown is closed when the server shuts down, ending hijacked stream connections.
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewServer(opts *options.HttpOptions, metricsOpts *options.MetricsOptions, d Dispatcher, frames *preview.Buffer) *Server {
	s := &Server{
		options:    opts,
		dispatcher: d,
		frames:     frames,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:      log.WithName("http"),
		shutdown: make(chan struct{}),
	}

	s.server = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.routes(metricsOpts),
		ReadTimeout: opts.ReadTimeout,
	}
	s.server.RegisterOnShutdown(s.closeStreams)
	return s
}

func (s *Server) closeStreams() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes(metricsOpts *options.MetricsOptions) http.Handler {
	r := mux.NewRouter()
	r.Use(httpmw.Recover(s.log), httpmw.Logging(s.log))

	r.HandleFunc("/osc/commands/execute", s.handleExecute).Methods(http.MethodPost)
	r.HandleFunc("/osc/preview/stream", s.handleStream).Methods(http.MethodGet)

	probes := r.NewRoute().Subrouter()
	probes.Use(httpmw.Timeout(httpmw.DefaultRequestTimeout))
	probes.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	probes.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.dispatcher.Closed() {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if metricsOpts != nil && metricsOpts.Enabled {
		probes.Handle(metricsOpts.Path, metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
