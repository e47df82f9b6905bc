package source

import (
	"context"

	"github.com/alanbriolat/audio-archiver/catalog"
)

// A Source yields the user's catalog as (title, format, url) items. Items are already authenticated and
// HTML-decoded; a Source that cannot produce a catalog at all returns an error and the run stops.
type Source interface {
	Catalog(ctx context.Context) ([]catalog.Item, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context) ([]catalog.Item, error)

func (f Func) Catalog(ctx context.Context) ([]catalog.Item, error) {
	return f(ctx)
}
