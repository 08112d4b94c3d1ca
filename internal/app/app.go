// Package app wires the engine together: logger, node type registry,
// notifier, scheduler and batch controller, plus workflow loading.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/notify"
	"github.com/vk/mediaflowgo/internal/registry"
)

// Config holds everything an App needs for one invocation.
type Config struct {
	// GraphPath points at a workflow file: .hcl, or .json in the editor
	// exchange format.
	GraphPath string
	// TargetNode, when set, runs only that node plus its stale upstream
	// closure instead of the whole graph.
	TargetNode string
	// LogFormat is "text" or "json"; LogLevel is debug/info/warn/error.
	LogFormat string
	LogLevel  string
	// MaxConcurrent bounds the concurrent node group within a level.
	MaxConcurrent int
	// BatchDelay spaces batch iterations; zero selects the default,
	// negative disables the pause.
	BatchDelay time.Duration
	// CircuitThreshold is the consecutive-failure count that halts a batch.
	CircuitThreshold int
	// NotifierURL, when set, streams live progress to a socket.io endpoint.
	NotifierURL string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, fmt.Errorf("a workflow path is required")
	}
	if cfg.MaxConcurrent < 0 {
		return nil, fmt.Errorf("max-concurrent cannot be negative")
	}
	if cfg.CircuitThreshold < 0 {
		return nil, fmt.Errorf("circuit-threshold cannot be negative")
	}
	return &cfg, nil
}

// App encapsulates the engine's dependencies and lifecycle for one process.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	notifier notify.Notifier
	config   *Config
}

// New constructs an App with an isolated logger and a registry populated
// from the given modules (the core set when none are passed). Registry
// validation failures are wiring bugs between modules and the engine, so
// they panic rather than return.
func New(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(parseLevel(cfg.LogLevel), cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules()
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Node modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		panic(err)
	}

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		notifier: notify.NewSlog(logger),
		config:   cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
