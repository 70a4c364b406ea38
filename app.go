package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"img2img/core"
	"img2img/core/validation"
	"img2img/form"
	"img2img/logging"
	"img2img/metrics"
	"img2img/pipeline"
	"img2img/shutdown"
	"img2img/studio"
	"img2img/webui"
	"img2img/webui/auth"
)

// priorityGenerations aborts presses still running after the tracker wait,
// before the HTTP server goes away.
const priorityGenerations = 5

// ServeCmd runs the web UI in the foreground, or under the service manager
// when started by one.
type ServeCmd struct {
	SkipChecks bool `name:"skip-checks" help:"Start without running the startup checks."`
}

func (c *ServeCmd) Run() error {
	if !isInteractive() {
		return runService(c)
	}
	app, err := newApp(c, appOptions{handleSignals: true, output: color.Output})
	if err != nil {
		return err
	}
	return app.Run()
}

type appOptions struct {
	// handleSignals installs SIGINT/SIGTERM handling. The service manager
	// delivers stop requests itself.
	handleSignals bool
	output        io.Writer
}

// App is one fully wired server.
type App struct {
	cfg     *core.Config
	opts    appOptions
	logger  *logging.Logger
	manager *shutdown.Manager
	server  *webui.Server
}

func newApp(cmd *ServeCmd, opts appOptions) (*App, error) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, &exitError{code: core.ExitCodeConfig, err: err}
	}

	logger, err := logging.NewLogger(logging.Config{
		Development: cfg.DevMode,
		Level:       cfg.LogLevel,
		FilePath:    cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	app, err := build(cmd, cfg, logger, opts)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		logger.Sync()
		return nil, err
	}
	return app, nil
}

func build(cmd *ServeCmd, cfg *core.Config, logger *logging.Logger, opts appOptions) (*App, error) {
	pc := cfg.PipelineConfig()
	pipe, err := pipeline.New(pc)
	if err != nil {
		return nil, &exitError{code: core.ExitCodeConfig, err: err}
	}
	caps := pipe.Capabilities()

	if !cmd.SkipChecks {
		res := validation.NewSuite("img2img startup checks",
			validation.Startup(cfg, form.DefaultSpecs(caps), pc.HTTPClient)...).
			WithOutput(opts.output).
			Run(context.Background())
		logger.Info("startup checks finished",
			zap.Int("passed", res.Passed),
			zap.Int("failed", res.Failed),
			zap.Int("warnings", res.Warnings),
			zap.Duration("duration", res.Duration))
		if !res.Success() {
			return nil, &exitError{code: core.ExitCodeConfig, err: res.Err()}
		}
	}

	specs := form.DefaultSpecs(caps)
	if cfg.FormConfigPath != "" {
		ov, err := form.LoadOverrides(cfg.FormConfigPath)
		if err == nil {
			specs, err = ov.Apply(specs)
		}
		if err != nil {
			return nil, &exitError{code: core.ExitCodeConfig, err: core.ErrFormConfigInvalid(cfg.FormConfigPath, err.Error())}
		}
	}
	fc, err := form.NewController(specs)
	if err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}

	manager := shutdown.NewManager(logger)
	surface := studio.NewSurface()
	broadcaster := webui.NewBroadcaster(webui.DefaultBroadcasterConfig(), logger)

	history := metrics.NewStore(metrics.StoreConfig{HistoryCapacity: 50, Version: core.Version}, time.Now())
	prom := metrics.NewPrometheus(cfg.PipelineVariant)

	var store *studio.OutputStore
	if cfg.SaveOutputs {
		store = studio.NewOutputStore(cfg.OutputDir)
	}

	// Generations outlive the request that started them; this context is
	// only cancelled during shutdown.
	genCtx, abortGenerations := context.WithCancel(context.Background())

	orch, err := studio.NewOrchestrator(studio.Config{
		Pipeline:       pipe,
		Form:           fc,
		Surface:        surface,
		Store:          store,
		Recorder:       metrics.Multi{history, prom},
		Logger:         logger,
		BaseContext:    genCtx,
		Timeout:        cfg.PipelineTimeout,
		MaxImagePixels: int64(cfg.MaxImagePixels),
		OnState: func(s studio.State) {
			busy := s == studio.StateValidating || s == studio.StateGenerating
			broadcaster.BroadcastState(s.String(), busy)
		},
	})
	if err != nil {
		abortGenerations()
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}

	var guard *auth.Guard
	if cfg.AuthEnabled() {
		guard, err = auth.NewGuard(cfg.WebUIPassword, auth.DefaultConfig(), logger)
		if err != nil {
			abortGenerations()
			return nil, fmt.Errorf("configuring login: %w", err)
		}
		guard.StartJanitor(manager.Context(), time.Minute)
	}

	scfg := webui.DefaultServerConfig()
	scfg.Host = cfg.WebUIHost
	scfg.Port = cfg.WebUIPort
	scfg.MaxUploadBytes = cfg.MaxUploadBytes()
	scfg.Variant = cfg.PipelineVariant
	scfg.Version = core.Version

	server, err := webui.NewServer(scfg, webui.Deps{
		Form:        fc,
		Trigger:     orch,
		Status:      orch,
		Surface:     surface,
		History:     history,
		Metrics:     prom.Handler(),
		Broadcaster: broadcaster,
		Guard:       guard,
		Tracker:     manager.Tracker(),
		Logger:      logger,
	})
	if err != nil {
		abortGenerations()
		return nil, err
	}

	manager.Register("generations", priorityGenerations, func(context.Context) error {
		abortGenerations()
		return nil
	})
	manager.Register("webui", shutdown.PriorityServer, server.Shutdown)
	manager.Register("pipeline", shutdown.PriorityPipeline, func(context.Context) error {
		return pipe.Close()
	})
	manager.Register("logger", shutdown.PriorityLogger, func(context.Context) error {
		// Syncing a console writer fails on some platforms; nothing to do.
		logger.Sync()
		return nil
	})

	logger.Info("configuration loaded",
		zap.String("variant", cfg.PipelineVariant),
		zap.String("pipeline_url", cfg.PipelineURL),
		zap.String("model", cfg.PipelineModel),
		zap.Bool("strength", caps.Strength),
		zap.Bool("guidance", caps.Guidance),
		zap.String("output_dir", cfg.OutputDir),
		zap.Bool("save_outputs", cfg.SaveOutputs),
		zap.Bool("auth", cfg.AuthEnabled()),
		zap.String("version", core.Version))

	return &App{cfg: cfg, opts: opts, logger: logger, manager: manager, server: server}, nil
}

// Run serves until shutdown is requested or the listener fails, then runs
// the shutdown sequence.
func (a *App) Run() error {
	if a.opts.handleSignals {
		a.manager.Start()
	}
	printBanner(a.opts.output, a.cfg)

	ctx := a.manager.Context()
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start(ctx) }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if serveErr != nil {
			a.logger.Error("web UI stopped unexpectedly", zap.Error(serveErr))
		}
	}

	if err := a.manager.Shutdown(); err != nil && serveErr == nil {
		serveErr = err
	}
	if serveErr != nil {
		return serveErr
	}
	if code := core.ExitCodeForSignal(a.manager.Signal()); code != core.ExitCodeSuccess {
		return &exitError{code: code}
	}
	return nil
}

// Stop requests shutdown without a signal.
func (a *App) Stop() {
	a.manager.Trigger()
}

func printBanner(w io.Writer, cfg *core.Config) {
	if w == nil {
		return
	}
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	title.Fprintf(w, "  img2img %s\n", core.Version)
	fmt.Fprintf(w, "  Open http://%s in your browser\n", cfg.Addr())
	dim.Fprintf(w, "  pipeline %s, uploads up to %s", cfg.PipelineVariant, core.FormatBytes(cfg.MaxUploadBytes()))
	if cfg.AuthEnabled() {
		dim.Fprint(w, ", password protected")
	}
	fmt.Fprintln(w)
	dim.Fprintln(w, "  Press Ctrl+C to stop")
	fmt.Fprintln(w)
}
