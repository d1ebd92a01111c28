package weft

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Engine is the main entry point: a configured module pipeline plus the
// render API. Use New to create one.
type Engine struct {
	config   *Config
	logger   zerolog.Logger
	pipeline *Pipeline
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStrict toggles strict mode.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.config.Strict = strict
	}
}

// WithStrictScope selects unit-fatal or invocation-fatal strict
// behavior.
func WithStrictScope(scope StrictScope) Option {
	return func(e *Engine) {
		e.config.StrictScope = scope
	}
}

// WithConcurrency bounds parallel content-unit rendering.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.config.Concurrency = n
		}
	}
}

// WithEmbedder installs the collaborator handle for asset embedding.
func WithEmbedder(embedder AssetEmbedder) Option {
	return func(e *Engine) {
		e.pipeline.SetEmbedder(embedder)
	}
}

// New creates an engine with environment-derived configuration, applies
// the options, and wires the pipeline.
func New(opts ...Option) *Engine {
	level, _ := zerolog.ParseLevel(ConfigFromEnvironment().LogLevel)
	e := &Engine{
		config: ConfigFromEnvironment(),
		logger: zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(),
	}
	e.pipeline = NewPipeline(e.config, e.logger)
	for _, opt := range opts {
		opt(e)
	}
	// Options may have swapped the config or logger; rebuild the
	// pipeline against the final state, keeping any embedder installed
	// by an option.
	embedder := e.pipeline.embedder
	e.pipeline = NewPipeline(e.config, e.logger)
	e.pipeline.SetEmbedder(embedder)
	return e
}

// Register adds a module to the engine's pipeline.
func (e *Engine) Register(m Module) error {
	return e.pipeline.Register(m)
}

// Unregister removes a module by name.
func (e *Engine) Unregister(name string) bool {
	return e.pipeline.Unregister(name)
}

// Modules returns registered module names in execution order.
func (e *Engine) Modules() []string {
	return e.pipeline.ModuleNames()
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Render processes every content unit against the shared data snapshot
// and returns rendered texts, structural hints, and the full diagnostic
// list.
func (e *Engine) Render(ctx context.Context, units []ContentUnit, data TemplateData) (*RenderResult, error) {
	if err := e.config.Validate(); err != nil {
		return nil, errors.Errorf("invalid engine configuration: %w", err)
	}
	return e.pipeline.Run(ctx, units, data)
}

// RenderText renders a single anonymous text unit and returns its
// output. Diagnostics and hints are available on the returned result.
func (e *Engine) RenderText(ctx context.Context, text string, data TemplateData) (string, *RenderResult, error) {
	units := []ContentUnit{{ID: "inline", FileType: "text", RawText: text}}
	result, err := e.Render(ctx, units, data)
	if err != nil {
		return "", result, err
	}
	return result.Units[0].Text, result, nil
}
