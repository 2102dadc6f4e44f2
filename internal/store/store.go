package store

import (
	"context"

	"dealgraph/internal/graph"
)

// Store persists graph snapshots between sessions. SaveSnapshot replaces
// whatever was saved before.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	SaveSnapshot(ctx context.Context, snap *graph.Snapshot) error
	LoadSnapshot(ctx context.Context) (*graph.Snapshot, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
}
