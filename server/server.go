package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/pasc/cache"
)

// PascServer serves CompileService over Connect on one HTTP port.
type PascServer struct {
	worker *CompileWorker
	mux    *http.ServeMux
	log    commonlog.Logger
}

// ServerOption configures a PascServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	store   *cache.Store
	timeout time.Duration
	workers int
}

// WithCache makes the compile service consult and fill store.
func WithCache(store *cache.Store) ServerOption {
	return func(c *serverConfig) { c.store = store }
}

// WithTimeout sets the deadline for each compile request.
func WithTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.timeout = d }
}

// WithWorkers sets how many compiles may run at once.
func WithWorkers(n int) ServerOption {
	return func(c *serverConfig) { c.workers = n }
}

// New creates a PascServer.
func New(opts ...ServerOption) *PascServer {
	cfg := &serverConfig{
		timeout: 5 * time.Second,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewCompileWorker(cfg.workers)
	s := &PascServer{
		worker: worker,
		mux:    http.NewServeMux(),
		log:    commonlog.GetLogger("pasc.server"),
	}

	compileSvc := NewCompileService(worker, cfg.store, cfg.timeout)
	compilePath, compileHandler := NewCompileServiceHandler(compileSvc)
	s.mux.Handle(compilePath, compileHandler)

	return s
}

// Handler returns the HTTP handler serving every registered service.
func (s *PascServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *PascServer) ListenAndServe(addr string) error {
	s.log.Infof("pasc compile server listening on %s", addr)
	s.log.Infof("  Connect (CBOR): http://%s%s", addr, CompileProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server's workers.
func (s *PascServer) Stop() {
	s.worker.Stop()
}
