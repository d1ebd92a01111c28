package weft

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// ContentUnit is one independently renderable text blob supplied by the
// container collaborator. Immutable input to one pipeline pass.
type ContentUnit struct {
	ID       string
	FileType string
	RawText  string
}

// RenderedUnit is the output for one content unit.
type RenderedUnit struct {
	ID   string
	Text string
}

// RenderResult is everything one render invocation produced: the
// rendered units, the structural hints for the format collaborator, and
// the full diagnostic list regardless of mode.
type RenderResult struct {
	Units  []RenderedUnit
	Hints  []StructuralHint
	Errors []ErrorRecord
}

// registeredModule pairs a module with its registration sequence number,
// the tie-breaker for equal priorities.
type registeredModule struct {
	module Module
	desc   Descriptor
	seq    int
}

// Pipeline holds the priority-ordered module registry and drives every
// registered module through the four phases for each content unit.
// Register and Unregister must not run concurrently with Run; the caller
// serializes registry mutation externally.
type Pipeline struct {
	mu        sync.Mutex
	modules   []registeredModule
	nextSeq   int
	config    *Config
	logger    zerolog.Logger
	embedder  AssetEmbedder
	collector *ErrorCollector
}

// NewPipeline creates a pipeline with the given configuration. A nil
// config falls back to defaults.
func NewPipeline(config *Config, logger zerolog.Logger) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pipeline{
		config:    config,
		logger:    logger,
		collector: NewErrorCollector(),
	}
}

// SetEmbedder installs the collaborator handle for asset embedding.
func (p *Pipeline) SetEmbedder(embedder AssetEmbedder) {
	p.embedder = embedder
}

// Register adds a module. The descriptor name must be non-empty and
// unique within this pipeline. The registry order is recomputed as a
// stable sort by (priority, registration order).
func (p *Pipeline) Register(m Module) error {
	desc := m.Descriptor()
	if desc.Name == "" {
		return errors.New("module name must not be empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rm := range p.modules {
		if rm.desc.Name == desc.Name {
			return errors.Errorf("module %q is already registered", desc.Name)
		}
	}
	p.modules = append(p.modules, registeredModule{module: m, desc: desc, seq: p.nextSeq})
	p.nextSeq++
	p.sortLocked()
	return nil
}

// Unregister removes a module by name and reports whether it was
// present.
func (p *Pipeline) Unregister(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, rm := range p.modules {
		if rm.desc.Name == name {
			p.modules = append(p.modules[:i], p.modules[i+1:]...)
			p.sortLocked()
			return true
		}
	}
	return false
}

func (p *Pipeline) sortLocked() {
	sort.SliceStable(p.modules, func(i, j int) bool {
		if p.modules[i].desc.Priority != p.modules[j].desc.Priority {
			return p.modules[i].desc.Priority < p.modules[j].desc.Priority
		}
		return p.modules[i].seq < p.modules[j].seq
	})
}

// ModuleNames returns the registered module names in execution order.
func (p *Pipeline) ModuleNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.modules))
	for i, rm := range p.modules {
		names[i] = rm.desc.Name
	}
	return names
}

func (p *Pipeline) ordered() []registeredModule {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]registeredModule, len(p.modules))
	copy(out, p.modules)
	return out
}

// Collector exposes the pipeline's error collector.
func (p *Pipeline) Collector() *ErrorCollector {
	return p.collector
}

// Run renders every content unit against the shared data snapshot.
// Units are independent and render concurrently, bounded by the
// configured concurrency limit. The returned RenderResult always carries
// the full diagnostic list; the returned error is non-nil only when the
// invocation aborted (strict-mode fatal or cancellation). Units already
// completed retain their rendered text in the result.
func (p *Pipeline) Run(ctx context.Context, units []ContentUnit, data TemplateData) (*RenderResult, error) {
	invocation := uuid.NewString()
	logger := p.logger.With().Str("invocation", invocation).Logger()
	ctx = logger.WithContext(ctx)

	p.collector.Reset()
	assets := newAssetAllocator(p.embedder, invocation)

	results := make([]RenderedUnit, len(units))
	for i, unit := range units {
		results[i].ID = unit.ID
	}

	var hintsMu sync.Mutex
	var hints []StructuralHint

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			text, unitHints, err := p.renderUnit(gctx, unit, data, assets)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				p.collector.AddError(err, unit.ID, SeverityFatal)

				// Syntax errors abort the whole invocation under strict
				// mode; other fatal kinds honor the configured scope.
				var syntaxErr *SyntaxError
				if p.config.StrictScope == StrictScopeUnit && !errors.As(err, &syntaxErr) {
					logger.Warn().Str("unit", unit.ID).Err(err).Msg("content unit aborted")
					return nil
				}
				return err
			}

			results[i].Text = text
			hintsMu.Lock()
			hints = append(hints, unitHints...)
			hintsMu.Unlock()
			return nil
		})
	}

	runErr := g.Wait()

	result := &RenderResult{
		Units:  results,
		Hints:  hints,
		Errors: p.collector.All(),
	}
	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// renderUnit runs the full phase sequence for one content unit:
// preparse chain, tokenize, tokenTransform chain, tree build, core
// render, module render chain, postrender chain. A non-nil error means
// the unit (or, for syntax errors under strict mode, the invocation)
// must abort.
func (p *Pipeline) renderUnit(ctx context.Context, unit ContentUnit, data TemplateData, assets *AssetAllocator) (string, []StructuralHint, error) {
	logger := zerolog.Ctx(ctx)
	mods := p.ordered()
	text := unit.RawText

	// Phase 1: preparse.
	for _, rm := range mods {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		if !rm.module.ShouldProcess(text, unit.FileType) {
			continue
		}
		out, err := runModulePhase(rm.desc.Name, PhasePreparse, func() (string, error) {
			return rm.module.Preparse(ctx, text, unit.FileType)
		})
		if err != nil {
			if p.config.Strict {
				return "", nil, err
			}
			p.collector.AddError(err, unit.ID, SeverityRecoverable)
			continue
		}
		text = out
	}

	// Phase 2: tokenize once, then let modules rewrite the stream.
	tokens := Tokenize(text)
	for _, rm := range mods {
		if !rm.module.ShouldProcess(text, unit.FileType) {
			continue
		}
		out, err := runModulePhase(rm.desc.Name, PhaseTokenTransform, func() ([]Token, error) {
			return rm.module.TokenTransform(ctx, tokens, unit.FileType)
		})
		if err != nil {
			if p.config.Strict {
				return "", nil, err
			}
			p.collector.AddError(err, unit.ID, SeverityRecoverable)
			continue
		}
		tokens = out
	}

	// Build the tree exactly once per unit. A malformed structure is
	// fatal for the unit: lenient mode records it and passes the unit
	// through unmodified, strict mode aborts.
	nodes, err := BuildTree(tokens)
	if err != nil {
		if p.config.Strict {
			return "", nil, err
		}
		p.collector.AddError(err, unit.ID, SeverityFatal)
		logger.Debug().Str("unit", unit.ID).Err(err).Msg("malformed template, passing unit through")
		return unit.RawText, nil, nil
	}

	// Phase 3: core render. Module tags stay literal.
	rendered, hints, err := RenderNodes(nodes, data, RenderOptions{
		Strict:     p.config.Strict,
		NullGetter: p.config.nullGetter(),
		UnitID:     unit.ID,
		Collector:  p.collector,
	})
	if err != nil {
		return "", hints, err
	}
	text = rendered

	// Phase 4: module render. Each module finds and replaces its own
	// declared tags; output feeds the next module in priority order.
	rc := &RenderContext{Data: data, Assets: assets, UnitID: unit.ID}
	for _, rm := range mods {
		if err := ctx.Err(); err != nil {
			return "", hints, err
		}
		if !rm.module.ShouldProcess(text, unit.FileType) {
			continue
		}
		out, err := runModulePhase(rm.desc.Name, PhaseRender, func() (string, error) {
			return rm.module.Render(ctx, text, rc, unit.FileType)
		})
		if err != nil {
			if p.config.Strict {
				return "", hints, err
			}
			p.collector.AddError(err, unit.ID, SeverityRecoverable)
			continue
		}
		text = out
	}

	// Phase 5: postrender.
	for _, rm := range mods {
		if !rm.module.ShouldProcess(text, unit.FileType) {
			continue
		}
		out, err := runModulePhase(rm.desc.Name, PhasePostrender, func() (string, error) {
			return rm.module.Postrender(ctx, text, unit.FileType)
		})
		if err != nil {
			if p.config.Strict {
				return "", hints, err
			}
			p.collector.AddError(err, unit.ID, SeverityRecoverable)
			continue
		}
		text = out
	}

	return text, hints, nil
}

// runModulePhase invokes one module phase, converting returned errors
// and recovered panics into *ModuleError so a misbehaving module never
// takes down the pipeline.
func runModulePhase[T any](name, phase string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ModuleError{Module: name, Phase: phase, Cause: errors.Errorf("panic: %v", r)}
		}
	}()

	out, ferr := fn()
	if ferr != nil {
		var moduleErr *ModuleError
		if errors.As(ferr, &moduleErr) {
			return out, ferr
		}
		return out, &ModuleError{Module: name, Phase: phase, Cause: ferr}
	}
	return out, nil
}
