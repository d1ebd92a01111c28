package weft

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithConfig(DefaultConfig()),
		WithLogger(zerolog.Nop()),
		WithConcurrency(1),
	}
	return New(append(base, opts...)...)
}

func TestEngineRenderText(t *testing.T) {
	e := newTestEngine()

	out, result, err := e.RenderText(context.Background(),
		"Hello {{name}}!", TemplateData{"name": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", out)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Units, 1)
	assert.Equal(t, "inline", result.Units[0].ID)
}

func TestEngineRenderTextCollectsDiagnostics(t *testing.T) {
	e := newTestEngine()

	out, result, err := e.RenderText(context.Background(),
		"a={{a}} b={{b}}", TemplateData{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "a=1 b=", out)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrKindResolution, result.Errors[0].Kind)
	assert.Equal(t, "inline", result.Errors[0].UnitID)
}

func TestEngineStrictOption(t *testing.T) {
	e := newTestEngine(WithStrict(true))
	require.True(t, e.Config().Strict)

	_, _, err := e.RenderText(context.Background(), "{{missing}}", TemplateData{})
	require.Error(t, err)
	var resolutionErr *ResolutionError
	assert.ErrorAs(t, err, &resolutionErr)
}

func TestEngineOptionOrder(t *testing.T) {
	// WithConfig replaces the whole configuration, so later toggles must
	// apply on top of it.
	config := DefaultConfig()
	e := New(WithConfig(config), WithLogger(zerolog.Nop()),
		WithStrict(true), WithStrictScope(StrictScopeUnit), WithConcurrency(2))

	assert.True(t, e.Config().Strict)
	assert.Equal(t, StrictScopeUnit, e.Config().StrictScope)
	assert.Equal(t, 2, e.Config().Concurrency)
}

func TestEngineConcurrencyOptionRejectsNonPositive(t *testing.T) {
	e := newTestEngine(WithConcurrency(0), WithConcurrency(-3))
	assert.Equal(t, 1, e.Config().Concurrency)
}

func TestEngineRenderValidatesConfig(t *testing.T) {
	config := DefaultConfig()
	config.LogLevel = "bogus"
	e := New(WithConfig(config), WithLogger(zerolog.Nop()))

	_, err := e.Render(context.Background(), nil, TemplateData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid engine configuration")
}

func TestEngineModuleRegistry(t *testing.T) {
	e := newTestEngine()

	require.NoError(t, e.Register(newFakeModule("late", 10)))
	require.NoError(t, e.Register(newFakeModule("early", 1)))
	assert.Equal(t, []string{"early", "late"}, e.Modules())

	assert.True(t, e.Unregister("late"))
	assert.Equal(t, []string{"early"}, e.Modules())
}

type captureEmbedder struct {
	names []string
}

func (c *captureEmbedder) Embed(_ context.Context, name string, _ []byte) (string, error) {
	c.names = append(c.names, name)
	return "ref:" + name, nil
}

// The embedder installed through an option must survive the pipeline
// rebuild that New performs after applying options.
func TestEngineWithEmbedder(t *testing.T) {
	embedder := &captureEmbedder{}
	e := newTestEngine(WithEmbedder(embedder))

	m := newFakeModule("blob", 1, "blob")
	m.render = func(ctx context.Context, text string, rc *RenderContext, _ string) (string, error) {
		return TagPattern("blob").ReplaceAllStringFunc(text, func(string) string {
			require.True(t, rc.Assets.HasEmbedder())
			ref, err := rc.Assets.Embed(ctx, "blob.bin", []byte{1, 2})
			require.NoError(t, err)
			return ref
		}), nil
	}
	require.NoError(t, e.Register(m))

	out, _, err := e.RenderText(context.Background(), "x {% blob %}", TemplateData{})
	require.NoError(t, err)
	assert.Equal(t, "x ref:blob.bin", out)
	assert.Equal(t, []string{"blob.bin"}, embedder.names)
}
