package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aretw0/sieve"
	filestore "github.com/aretw0/sieve/internal/adapters/file"
	redisstore "github.com/aretw0/sieve/internal/adapters/redis"
	"github.com/aretw0/sieve/internal/config"
	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/internal/presentation/diagram"
	"github.com/aretw0/sieve/internal/presentation/tui"
	"github.com/aretw0/sieve/pkg/adapters/memory"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/observability"
	"github.com/aretw0/sieve/pkg/persistence/middleware"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	EnvFile    string
	Debug      bool

	// Stdout receives progress lines and the summary. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives log output. Defaults to os.Stderr.
	Stderr io.Writer
}

// App is a configured engine together with the resources it owns.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *sieve.Engine
	Store    ports.ReportStore
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	stdout  io.Writer
	closers []func() error

	traceMu sync.Mutex
	traces  map[string]*domain.RunEvent
}

// NewApp loads the configuration and wires the engine, its report store
// and its metrics. Callers must Close the returned App.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg.Log, opts.Debug, opts.Stderr)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		stdout:   opts.Stdout,
		traces:   make(map[string]*domain.RunEvent),
	}
	app.Metrics = observability.NewMetrics(app.Registry)

	store, closer, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	app.Store = store
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	engineOpts := []sieve.Option{
		sieve.WithLogger(logger),
		sieve.WithOutput(opts.Stdout, opts.Stdout),
		sieve.WithDetailedSummary(cfg.Summary.Detailed),
		sieve.WithLifecycleHooks(observability.Combine(
			app.Metrics.Hooks(),
			observability.LoggingHooks(logger),
			domain.LifecycleHooks{OnRunFinish: app.collectTrace},
		)),
	}
	if store != nil {
		engineOpts = append(engineOpts, sieve.WithReportStore(store))
	}
	if cfg.Clean.Outliers {
		engineOpts = append(engineOpts, sieve.WithOutlierRemoval(cfg.Clean.IQRFactor))
	}
	if f, ok := opts.Stdout.(*os.File); ok && tui.IsTerminal(f) {
		engineOpts = append(engineOpts, sieve.WithSummaryRenderer(tui.NewSummaryRenderer()))
	}

	engine, err := sieve.New(engineOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Engine = engine

	return app, nil
}

// Close releases the report store connection, if any.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run saves the diagram when enabled and then executes the pipeline once
// over source. An empty source falls back to the configured one.
func (a *App) Run(ctx context.Context, source string) error {
	if source == "" {
		source = a.Config.Source
	}

	if a.Config.Diagram.Enabled {
		// A missing diagram never fails the run.
		_ = a.SaveDiagram(ctx, a.Config.Diagram.Path)
	}

	fmt.Fprint(a.stdout, "Running workflow...\n\n")
	_, err := a.Engine.Run(ctx, source)
	return err
}

// TraceRun executes the pipeline once over source and returns the Mermaid
// diagram with the visited steps and the failing step highlighted. The
// diagram is returned even when the run fails.
func (a *App) TraceRun(ctx context.Context, source string) (string, error) {
	if source == "" {
		source = a.Config.Source
	}
	runID := uuid.NewString()
	ctx = domain.ContextWithRunID(ctx, runID)

	a.traceMu.Lock()
	a.traces[runID] = nil
	a.traceMu.Unlock()

	_, runErr := a.Engine.Run(ctx, source)

	a.traceMu.Lock()
	ev := a.traces[runID]
	delete(a.traces, runID)
	a.traceMu.Unlock()

	overlay := &diagram.Overlay{}
	if ev != nil {
		overlay.VisitedSteps = ev.Visited
		overlay.FailedStep = ev.FailedStep
	}
	return diagram.GenerateMermaidWithOverlay(a.Engine.Inspect(), overlay), runErr
}

// collectTrace keeps the run event of runs started by TraceRun.
func (a *App) collectTrace(_ context.Context, e *domain.RunEvent) {
	a.traceMu.Lock()
	defer a.traceMu.Unlock()
	if _, ok := a.traces[e.RunID]; ok {
		a.traces[e.RunID] = e
	}
}

// SaveDiagram writes the pipeline diagram to path and reports the outcome
// on stdout.
func (a *App) SaveDiagram(ctx context.Context, path string) error {
	return a.WriteDiagram(ctx, path, a.Engine.Mermaid())
}

// WriteDiagram writes the Mermaid source src to path, rendering .png and
// .svg targets, and reports the outcome on stdout.
func (a *App) WriteDiagram(ctx context.Context, path, src string) error {
	renderer := diagram.NewRenderer(a.Config.Diagram.RendererURL)
	if err := diagram.Save(ctx, path, src, renderer); err != nil {
		a.Logger.Warn("diagram not saved", "path", path, "error", err)
		fmt.Fprintf(a.stdout, "Could not generate graph visualization: %v\n", err)
		return err
	}
	fmt.Fprintf(a.stdout, "%s\n", tui.Success("Workflow graph saved to "+path))
	return nil
}

// OpenStore opens the report store selected by the configuration. The
// "none" backend yields a nil store. The returned closer may be nil.
// A configured encryption key wraps the backend in the encryption middleware.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (ports.ReportStore, func() error, error) {
	store, closer, err := openBackend(ctx, cfg)
	if err != nil || store == nil || cfg.EncryptionKey == "" {
		return store, closer, err
	}

	key, err := middleware.ParseKey(cfg.EncryptionKey)
	if err == nil {
		var mw middleware.Middleware
		if mw, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}); err == nil {
			return middleware.Chain(store, mw), closer, nil
		}
	}
	if closer != nil {
		closer()
	}
	return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (ports.ReportStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendNone, "":
		return nil, nil, nil
	case config.BackendMemory:
		return memory.NewStore(), nil, nil
	case config.BackendFile:
		return filestore.New(cfg.Dir), nil, nil
	case config.BackendRedis:
		store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(cfg.Redis.TTL),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// createLogger configures the application logger. Debug mode overrides the
// configured level.
func createLogger(cfg config.LogConfig, debug bool, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithWriter(w, level, cfg.Format), nil
}
