package domain

import "context"

// RoomStore persists the registry's room table. Durability is best-effort:
// a failed save is logged by the implementation and never surfaced to the
// caller, since live in-memory state stays authoritative.
type RoomStore interface {
	// Load returns the persisted rooms with already-expired records pruned.
	Load(ctx context.Context) ([]Room, error)
	// Save enqueues a snapshot for writing. It must not block.
	Save(rooms []Room)
}
