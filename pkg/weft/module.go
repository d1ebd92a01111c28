package weft

import (
	"context"
	"regexp"
	"sync"
)

// Phase names used in module error reports.
const (
	PhasePreparse       = "preparse"
	PhaseTokenTransform = "tokenTransform"
	PhaseRender         = "render"
	PhasePostrender     = "postrender"
)

// Descriptor is a module's static metadata. Name must be unique within
// one pipeline. Priority orders execution (lower runs earlier, ties
// broken by registration order). An empty SupportedFileTypes set means
// the module applies to every file type; an empty Tags set waives the
// tag-presence test.
type Descriptor struct {
	Name               string
	Tags               []string
	SupportedFileTypes []string
	Priority           int
}

// Module is one pluggable transformation unit. Every phase takes a
// context so I/O-performing modules stay cancellable and never block the
// pipeline for other units. BaseModule provides identity defaults for
// all phases.
type Module interface {
	Descriptor() Descriptor

	// ShouldProcess gates the module for one content unit, re-evaluated
	// against the unit's current text at each phase.
	ShouldProcess(text, fileType string) bool

	// Preparse transforms raw text before tokenization.
	Preparse(ctx context.Context, text, fileType string) (string, error)

	// TokenTransform rewrites the token stream before the tree is built.
	TokenTransform(ctx context.Context, tokens []Token, fileType string) ([]Token, error)

	// Render substitutes the module's own tags in the rendered text. The
	// RenderContext exposes the data snapshot and invocation-scoped
	// asset services.
	Render(ctx context.Context, text string, rc *RenderContext, fileType string) (string, error)

	// Postrender transforms the final text after all render phases.
	Postrender(ctx context.Context, text, fileType string) (string, error)
}

// RenderContext is the per-invocation state handed to module render
// phases. Data is the shared read-only context snapshot; Assets
// allocates sequential asset identifiers and embeds binary assets
// through the collaborator handle.
type RenderContext struct {
	Data   TemplateData
	Assets *AssetAllocator
	UnitID string
}

// BaseModule implements every Module phase as identity and the default
// applicability test. Embed it and override what the module needs.
type BaseModule struct {
	Desc Descriptor
}

func (m *BaseModule) Descriptor() Descriptor {
	return m.Desc
}

// ShouldProcess applies the default gate: the unit's file type must be
// supported and, when the module declares tags, at least one of them
// must occur in the text.
func (m *BaseModule) ShouldProcess(text, fileType string) bool {
	return DescriptorApplies(m.Desc, text, fileType)
}

func (m *BaseModule) Preparse(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

func (m *BaseModule) TokenTransform(_ context.Context, tokens []Token, _ string) ([]Token, error) {
	return tokens, nil
}

func (m *BaseModule) Render(_ context.Context, text string, _ *RenderContext, _ string) (string, error) {
	return text, nil
}

func (m *BaseModule) Postrender(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

// DescriptorApplies implements the default applicability test for a
// descriptor: file-type membership plus tag presence.
func DescriptorApplies(desc Descriptor, text, fileType string) bool {
	if len(desc.SupportedFileTypes) > 0 {
		supported := false
		for _, ft := range desc.SupportedFileTypes {
			if ft == fileType {
				supported = true
				break
			}
		}
		if !supported {
			return false
		}
	}

	if len(desc.Tags) == 0 {
		return true
	}
	for _, tag := range desc.Tags {
		if TagPattern(tag).MatchString(text) {
			return true
		}
	}
	return false
}

var (
	tagPatternMu    sync.Mutex
	tagPatternCache = map[string]*regexp.Regexp{}
)

// TagPattern returns the compiled pattern matching a module tag with the
// given name, e.g. {% image logo %} for "image". Patterns are cached;
// modules use them both for applicability tests and for substitution.
func TagPattern(name string) *regexp.Regexp {
	tagPatternMu.Lock()
	defer tagPatternMu.Unlock()
	if re, ok := tagPatternCache[name]; ok {
		return re
	}
	re := regexp.MustCompile(`\{%\s*` + regexp.QuoteMeta(name) + `(?:\s+([^%]*?))?\s*%\}`)
	tagPatternCache[name] = re
	return re
}
