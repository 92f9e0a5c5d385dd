// Package server exposes image hosts over a JSON HTTP API.
//
// Every host in a [registry.Registry] gets a set of routes under
// /api/v1/hosts/{id}. Mutating requests run under the host's lock, and the
// host's state is written to the session store after each one so that
// [Server.Restore] can bring the views back after a restart. [Server.Serve]
// also drives each host's transitions from a ticker.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dynsvg/pkg/host"
	"github.com/matzehuels/dynsvg/pkg/observability"
	"github.com/matzehuels/dynsvg/pkg/registry"
	"github.com/matzehuels/dynsvg/pkg/session"
)

// DefaultTick is the transition frame interval.
const DefaultTick = 16 * time.Millisecond

// Options configures a Server.
type Options struct {
	Registry *registry.Registry
	// Sessions persists host state. Nil keeps state in memory.
	Sessions   session.Store
	SessionTTL time.Duration
	// HostOptions is the template for hosts created through the API.
	HostOptions host.Options
	// Container sizes hosts created without an explicit size.
	Container host.Container
	Tick      time.Duration
	Logger    *log.Logger
	// Metrics is served at /metrics when set.
	Metrics *observability.Counters
}

// Server serves the host API.
type Server struct {
	reg      *registry.Registry
	sessions session.Store
	ttl      time.Duration
	hostOpts host.Options
	defSize  host.Container
	tick     time.Duration
	logger   *log.Logger
	metrics  *observability.Counters
	router   chi.Router

	// mu guards the transition loops. group is nil unless Serve runs.
	mu    sync.Mutex
	group *errgroup.Group
	ctx   context.Context
	loops map[string]*loop
}

// New creates a server. A nil registry is replaced by an empty one.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Registry == nil {
		opts.Registry = registry.New(opts.Logger)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Container.Width <= 0 || opts.Container.Height <= 0 {
		opts.Container.Width, opts.Container.Height = registry.DefaultWidth, registry.DefaultHeight
	}
	if opts.HostOptions.Logger == nil {
		opts.HostOptions.Logger = opts.Logger
	}
	s := &Server{
		reg:      opts.Registry,
		sessions: opts.Sessions,
		ttl:      opts.SessionTTL,
		hostOpts: opts.HostOptions,
		defSize:  opts.Container,
		tick:     opts.Tick,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		loops:    make(map[string]*loop),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the served registry.
func (s *Server) Registry() *registry.Registry { return s.reg }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.metrics.Snapshot())
		})
	}

	r.Route("/api/v1/hosts", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleDetail)
			r.Delete("/", s.handleDelete)
			r.Get("/svg", s.handleSVG)
			r.Post("/zoom", s.handleZoom)
			r.Post("/fit", s.handleFit)
			r.Post("/reset", s.handleReset)
			r.Post("/push-zoom", s.handlePushZoom)
			r.Post("/pop-zoom", s.handlePopZoom)
			r.Post("/gesture", s.handleGesture)
			r.Post("/show", s.handleShow)
			r.Post("/hide", s.handleHide)
			r.Post("/highlight", s.handleHighlight)
			r.Post("/undo", s.handleUndo)
			r.Post("/click", s.handleClick)
			r.Post("/hover", s.handleHover)
		})
	})
	return r
}

// Restore applies stored sessions to every loaded host whose content URL
// still matches. Hosts without a session are left as loaded.
func (s *Server) Restore(ctx context.Context) error {
	var errs []error
	for _, h := range s.reg.Hosts() {
		sess, err := s.sessions.Get(ctx, h.ID())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if sess == nil || sess.URL != h.URL() {
			continue
		}
		err = h.Do(func(h *host.Host) error {
			if !h.Loaded() {
				return nil
			}
			return h.Restore(sess.State)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("session restored", "host", h.ID(), "depth", len(sess.State.View.Navigation))
	}
	return errors.Join(errs...)
}

// persist stores the state of h. The caller holds h's lock.
func (s *Server) persist(ctx context.Context, h *host.Host) {
	if err := s.sessions.Set(ctx, session.New(h, s.ttl)); err != nil {
		s.logger.Warn("session write failed", "host", h.ID(), "err", err)
	}
}

// Serve listens on addr and drives host transitions until ctx is done, then
// shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.group, s.ctx = g, ctx
	for _, h := range s.reg.Hosts() {
		s.startLocked(h)
	}
	s.mu.Unlock()

	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String(), "hosts", s.reg.Len())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.mu.Lock()
		s.group, s.ctx = nil, nil
		s.mu.Unlock()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.persistAll(shutdownCtx)
		return err
	})
	return g.Wait()
}

// loop is a running transition loop. done is closed when it has returned.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startHost runs the transition loop of h if Serve is running. Hosts added
// before Serve are started by Serve itself.
func (s *Server) startHost(h *host.Host) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		s.startLocked(h)
	}
}

func (s *Server) startLocked(h *host.Host) {
	if _, ok := s.loops[h.ID()]; ok {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	s.loops[h.ID()] = l
	s.group.Go(func() error {
		defer close(l.done)
		if err := h.Run(ctx, s.tick); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("transition loop stopped", "host", h.ID(), "err", err)
		}
		s.mu.Lock()
		if s.loops[h.ID()] == l {
			delete(s.loops, h.ID())
		}
		s.mu.Unlock()
		return nil
	})
}

// stopHost cancels the transition loop of the host with id. The returned
// channel is closed once the loop has returned; it is nil when no loop ran.
func (s *Server) stopHost(id string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loops[id]
	if !ok {
		return nil
	}
	delete(s.loops, id)
	l.cancel()
	return l.done
}

func (s *Server) running(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[id]
	return ok
}
