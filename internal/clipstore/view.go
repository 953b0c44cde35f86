package clipstore

import (
	"context"

	"slipclip/internal/clip"
)

// View is a filtered, read-only window onto a store. It satisfies the batch
// generator's source contract.
type View struct {
	Store  Store
	Filter Filter
}

// Keys lists the keys of clips matching the view's filter.
func (v View) Keys(ctx context.Context) ([]string, error) {
	return v.Store.Keys(ctx, v.Filter)
}

// Load reads clips by key.
func (v View) Load(ctx context.Context, keys []string) ([]clip.Clip, error) {
	return v.Store.Load(ctx, keys)
}
