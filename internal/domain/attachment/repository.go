package attachment

import (
	"context"
	"io"
	"time"
)

// Repository is the durable attachment catalog; the source of truth
// for existence. Create is the only creation path and is called after
// the storage write succeeds, never before.
type Repository interface {
	Create(ctx context.Context, att *Attachment) error
	// GetByID returns (nil, nil) for an unknown id.
	GetByID(ctx context.Context, id string) (*Attachment, error)
	ListByOwner(ctx context.Context, ownerType OwnerType, ownerID string) ([]Attachment, error)
	// Delete reports whether a record was removed; deleting an unknown
	// id is not an error.
	Delete(ctx context.Context, id string) (bool, error)
	ScanOlderThan(ctx context.Context, cutoff time.Time) ([]Attachment, error)
	// StorageKeys lists every key the registry knows about, for orphan
	// reconciliation.
	StorageKeys(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (UsageStats, error)
}

// Storage persists attachment bytes under hierarchical keys.
type Storage interface {
	// Write streams r to key, enforcing limit as a hard ceiling. The
	// write is atomic: either the full stream lands at key or nothing
	// does.
	Write(ctx context.Context, key string, r io.Reader, limit int64) (int64, error)
	// Read opens key for streaming and returns its size.
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// Delete is idempotent; removing an absent key returns false, nil.
	Delete(ctx context.Context, key string) (bool, error)
	// PurgeOwner removes every object under ownerType/ownerID.
	PurgeOwner(ctx context.Context, ownerType OwnerType, ownerID string) error
	// KeysOlderThan lists stored keys last modified before cutoff, for
	// orphan reconciliation. An upload has bytes on disk before its
	// registry row exists; the cutoff keeps those in-flight objects out
	// of the listing.
	KeysOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}
