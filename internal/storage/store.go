// Package storage is the save-state collaborator. Stores hold opaque JSON
// blobs; the engine decides what goes in them. A missing entry loads as
// (nil, nil), never as an error.
package storage

import "context"

type Store interface {
	// SaveState writes the full game snapshot, all or nothing.
	SaveState(ctx context.Context, id string, data []byte) error
	LoadState(ctx context.Context, id string) ([]byte, error)

	// SaveConfig keeps the last-used new-game options.
	SaveConfig(ctx context.Context, data []byte) error
	LoadConfig(ctx context.Context) ([]byte, error)

	// Clear drops both save and config.
	Clear(ctx context.Context) error
}
