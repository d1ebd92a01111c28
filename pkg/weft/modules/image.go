// Package modules provides the built-in pipeline modules shipped with
// weft: image embedding and timestamp substitution. They double as
// reference implementations for writing custom modules.
package modules

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/weftlabs/weft/pkg/weft"
)

// mime type → file extension for embedded image names.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

// ImageModule replaces {% image path %} tags with opaque references to
// embedded image assets. The tag's path is resolved against the context
// and must yield raw bytes, a base64 string, or a data URI; the bytes go
// to the collaborator embedder under a sequential invocation-scoped
// asset name.
type ImageModule struct {
	weft.BaseModule
}

// NewImageModule creates the image module.
func NewImageModule() *ImageModule {
	return &ImageModule{
		BaseModule: weft.BaseModule{
			Desc: weft.Descriptor{
				Name:     "image",
				Tags:     []string{"image"},
				Priority: 20,
			},
		},
	}
}

// Render substitutes every image tag in the text.
func (m *ImageModule) Render(ctx context.Context, text string, rc *weft.RenderContext, _ string) (string, error) {
	logger := zerolog.Ctx(ctx)
	pattern := weft.TagPattern("image")

	var embedErr error
	out := pattern.ReplaceAllStringFunc(text, func(tag string) string {
		if embedErr != nil {
			return tag
		}

		groups := pattern.FindStringSubmatch(tag)
		path := strings.TrimSpace(groups[1])
		if path == "" {
			return ""
		}

		value, ok := weft.Resolve(rc.Data, path)
		if !ok {
			logger.Warn().Str("path", path).Msg("image data not found in context")
			return ""
		}

		mimeType, data, err := decodeImageValue(value)
		if err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("unusable image data")
			return ""
		}

		name := imageName(rc.Assets, mimeType)
		ref, err := rc.Assets.Embed(ctx, name, data)
		if err != nil {
			embedErr = err
			return tag
		}
		return ref
	})

	if embedErr != nil {
		return text, embedErr
	}
	return out, nil
}

func imageName(assets *weft.AssetAllocator, mimeType string) string {
	ext, ok := imageExtensions[mimeType]
	if !ok {
		ext = ".bin"
	}
	return assets.DefaultName(ext)
}

// decodeImageValue extracts image bytes from the supported context value
// shapes: raw bytes, a data URI, or bare base64.
func decodeImageValue(value any) (string, []byte, error) {
	switch v := value.(type) {
	case []byte:
		return "image/png", v, nil
	case string:
		if strings.HasPrefix(v, "data:") {
			return parseDataURI(v)
		}
		data, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return "", nil, errors.Errorf("image value is neither a data URI nor base64: %w", err)
		}
		return "image/png", data, nil
	}
	return "", nil, errors.New("image value must be bytes or a string")
}

// parseDataURI splits a data:<mime>;base64,<payload> URI.
func parseDataURI(uri string) (string, []byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, errors.New("malformed data URI")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.New("only base64 data URIs are supported")
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Errorf("invalid base64 payload: %w", err)
	}
	return mimeType, data, nil
}
