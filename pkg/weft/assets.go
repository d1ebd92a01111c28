package weft

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
)

// AssetEmbedder is the collaborator handle for embedding binary assets
// into the host document container. It accepts the asset bytes and a
// desired name and returns an opaque reference usable inside rendered
// markup. Implementations live in the container layer; the core never
// touches archives or relationship bookkeeping.
type AssetEmbedder interface {
	Embed(ctx context.Context, name string, data []byte) (string, error)
}

// AssetAllocator issues sequential asset identifiers for one render
// invocation and forwards embedding to the collaborator handle. The
// counter is scoped to the invocation and atomically incremented, so
// concurrently rendered content units never receive duplicate IDs.
type AssetAllocator struct {
	counter    atomic.Int64
	embedder   AssetEmbedder
	invocation string
}

func newAssetAllocator(embedder AssetEmbedder, invocation string) *AssetAllocator {
	return &AssetAllocator{embedder: embedder, invocation: invocation}
}

// NextID returns the next sequential asset identifier, starting at 1.
func (a *AssetAllocator) NextID() int64 {
	return a.counter.Add(1)
}

// DefaultName builds a collision-free asset name from the invocation and
// a fresh sequential id.
func (a *AssetAllocator) DefaultName(ext string) string {
	short := a.invocation
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		short = uuid.NewString()[:8]
	}
	return fmt.Sprintf("asset-%s-%d%s", short, a.NextID(), ext)
}

// Embed forwards to the collaborator handle.
func (a *AssetAllocator) Embed(ctx context.Context, name string, data []byte) (string, error) {
	if a.embedder == nil {
		return "", errors.New("no asset embedder configured")
	}
	ref, err := a.embedder.Embed(ctx, name, data)
	if err != nil {
		return "", errors.Errorf("failed to embed asset %q: %w", name, err)
	}
	return ref, nil
}

// HasEmbedder reports whether a collaborator handle is configured.
func (a *AssetAllocator) HasEmbedder() bool {
	return a.embedder != nil
}
