// Package webui serves the studio page: the form, the upload slot, the
// Generate trigger and the live output region.
package webui

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"img2img/form"
	"img2img/logging"
	"img2img/metrics"
	"img2img/shutdown"
	"img2img/studio"
	"img2img/webui/auth"
	"img2img/webui/static"
)

// ServerConfig holds listener and request limits.
type ServerConfig struct {
	Host string
	Port int

	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxUploadBytes bounds POST /upload.
	MaxUploadBytes int64

	Variant string
	Version string
}

// DefaultServerConfig listens on localhost:3000. There is no write timeout:
// POST /generate holds the connection until the pipeline returns.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "localhost",
		Port:            3000,
		ReadTimeout:     60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxUploadBytes:  20 << 20,
		Variant:         "preview",
		Version:         "dev",
	}
}

// StateReporter exposes the orchestrator state.
type StateReporter interface {
	State() studio.State
	Busy() bool
}

// Deps are the collaborators the server drives.
type Deps struct {
	Form    *form.Controller
	Trigger studio.Trigger
	Status  StateReporter
	Surface *studio.Surface

	// History backs /health and /api/history. Optional.
	History *metrics.Store
	// Metrics serves /metrics. Optional.
	Metrics http.Handler
	// Broadcaster pushes updates over /ws. One is created if nil.
	Broadcaster *Broadcaster
	// Guard requires a login when set.
	Guard *auth.Guard
	// Tracker lets shutdown wait for a running generation. Optional.
	Tracker *shutdown.Tracker

	Logger *logging.Logger
}

// Server is the web UI.
type Server struct {
	cfg  ServerConfig
	deps Deps

	logger     *logging.Logger
	page       *template.Template
	httpServer *http.Server
	handler    http.Handler
	started    time.Time
}

// NewServer wires the routes.
func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	if deps.Form == nil || deps.Trigger == nil || deps.Surface == nil {
		return nil, errors.New("webui: form, trigger and surface are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = NewBroadcaster(DefaultBroadcasterConfig(), deps.Logger)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}

	src, err := static.PageTemplate()
	if err != nil {
		return nil, fmt.Errorf("webui: reading page template: %w", err)
	}
	page, err := template.New("index").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("webui: parsing page template: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger.Named("webui"),
		page:    page,
		started: time.Now(),
	}
	deps.Broadcaster.SetGreeting(s.greeting)
	s.handler = s.routes()

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleIndex)
	app.HandleFunc("GET /fields", s.handleGetFields)
	app.HandleFunc("POST /fields", s.handleSetFields)
	app.HandleFunc("POST /upload", s.handleUpload)
	app.HandleFunc("POST /generate", s.handleGenerate)
	app.HandleFunc("GET /output", s.handleOutput)
	app.HandleFunc("GET /output/{name}", s.handleOutputImage)
	app.HandleFunc("GET /api/history", s.handleHistory)
	app.HandleFunc("GET /ws", s.deps.Broadcaster.HandleConnection)
	if s.deps.Metrics != nil {
		app.Handle("GET /metrics", s.deps.Metrics)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.Handle("GET /static/", http.StripPrefix("/static/", staticHandler(static.Assets())))
	if g := s.deps.Guard; g != nil {
		root.HandleFunc(auth.LoginPath, g.LoginHandler())
		root.HandleFunc(auth.LogoutPath, g.LogoutHandler())
		root.Handle("/", g.Middleware(app))
	} else {
		root.Handle("/", app)
	}

	return NewLoggingMiddleware(s.deps.Logger, "/health", "/metrics").Handler(root)
}

func staticHandler(fsys fs.FS) http.Handler {
	files := http.FileServer(http.FS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start pushes surface updates to websocket clients and serves HTTP until
// Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	go s.forwardSurface(ctx)

	s.logger.Info("web UI listening",
		zap.String("addr", s.httpServer.Addr),
		zap.Bool("auth", s.deps.Guard != nil))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.deps.Broadcaster.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("web UI stopped")
	return nil
}

// forwardSurface relays every output replacement to websocket clients.
func (s *Server) forwardSurface(ctx context.Context) {
	updates, cancel := s.deps.Surface.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-updates:
			if !ok {
				return
			}
			s.deps.Broadcaster.Broadcast(NewOutputMessage(newOutputView(c)))
		}
	}
}

func (s *Server) greeting() []WSMessage {
	msgs := []WSMessage{NewOutputMessage(newOutputView(s.deps.Surface.Current()))}
	if st := s.deps.Status; st != nil {
		msgs = append(msgs, NewStateMessage(StateData{State: st.State().String(), Busy: st.Busy()}))
	}
	return msgs
}
