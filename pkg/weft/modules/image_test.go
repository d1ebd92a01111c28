package modules

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/weft"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

type fakeEmbedder struct {
	names []string
	data  [][]byte
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	f.data = append(f.data, data)
	return "embedded", nil
}

func imageEngine(embedder weft.AssetEmbedder) *weft.Engine {
	return weft.New(
		weft.WithConfig(weft.DefaultConfig()),
		weft.WithLogger(zerolog.Nop()),
		weft.WithConcurrency(1),
		weft.WithEmbedder(embedder),
	)
}

func TestDecodeImageValue(t *testing.T) {
	t.Run("raw bytes", func(t *testing.T) {
		mimeType, data, err := decodeImageValue(pngBytes)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mimeType)
		assert.Equal(t, pngBytes, data)
	})

	t.Run("bare base64", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString(pngBytes)
		_, data, err := decodeImageValue(encoded)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, data)
	})

	t.Run("data URI carries its mime type", func(t *testing.T) {
		uri := "data:image/gif;base64," + base64.StdEncoding.EncodeToString(pngBytes)
		mimeType, data, err := decodeImageValue(uri)
		require.NoError(t, err)
		assert.Equal(t, "image/gif", mimeType)
		assert.Equal(t, pngBytes, data)
	})

	t.Run("invalid shapes", func(t *testing.T) {
		for _, value := range []any{42, true, "not base64!!", "data:image/png;base64", "data:text/plain,abc"} {
			_, _, err := decodeImageValue(value)
			assert.Error(t, err, "%v", value)
		}
	})
}

func TestImageModuleRender(t *testing.T) {
	embedder := &fakeEmbedder{}
	e := imageEngine(embedder)
	require.NoError(t, e.Register(NewImageModule()))

	data := weft.TemplateData{
		"logo": base64.StdEncoding.EncodeToString(pngBytes),
		"icon": "data:image/gif;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	}

	out, result, err := e.RenderText(context.Background(),
		"a {% image logo %} b {% image icon %}", data)
	require.NoError(t, err)
	assert.Equal(t, "a embedded b embedded", out)
	assert.Empty(t, result.Errors)

	require.Len(t, embedder.names, 2)
	assert.True(t, strings.HasSuffix(embedder.names[0], ".png"))
	assert.True(t, strings.HasSuffix(embedder.names[1], ".gif"))
	assert.Equal(t, pngBytes, embedder.data[0])
}

func TestImageModuleMissingData(t *testing.T) {
	e := imageEngine(&fakeEmbedder{})
	require.NoError(t, e.Register(NewImageModule()))

	out, result, err := e.RenderText(context.Background(),
		"[{% image nope %}]", weft.TemplateData{})
	require.NoError(t, err)

	// Missing image data degrades to an empty substitution, no error.
	assert.Equal(t, "[]", out)
	assert.Empty(t, result.Errors)
}

func TestImageModuleEmbedFailure(t *testing.T) {
	// No embedder configured: the phase fails, the pipeline records it
	// and keeps the pre-phase text with the tag intact.
	e := weft.New(
		weft.WithConfig(weft.DefaultConfig()),
		weft.WithLogger(zerolog.Nop()),
		weft.WithConcurrency(1),
	)
	require.NoError(t, e.Register(NewImageModule()))

	out, result, err := e.RenderText(context.Background(),
		"x {% image logo %}", weft.TemplateData{
			"logo": base64.StdEncoding.EncodeToString(pngBytes),
		})
	require.NoError(t, err)
	assert.Equal(t, "x {% image logo %}", out)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, weft.ErrKindModule, result.Errors[0].Kind)
	assert.Equal(t, weft.SeverityRecoverable, result.Errors[0].Severity)
}

func TestImageModulePrioritiesWithDateModule(t *testing.T) {
	e := imageEngine(&fakeEmbedder{})
	require.NoError(t, e.Register(NewImageModule()))
	require.NoError(t, e.Register(NewDateModule()))

	// Date runs first (priority 10 vs 20); both substitute their own
	// tags independently.
	assert.Equal(t, []string{"date", "image"}, e.Modules())
}
