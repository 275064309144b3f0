package attachment

import (
	"context"
	"encoding/json"
)

// OwnerDirectory is the collaborator interface onto the external task
// and subtask record stores. The attachment subsystem never reads
// those records directly; it only needs assignment and ownership facts.
type OwnerDirectory interface {
	// GetAssignees returns the user ids assigned to the owning record.
	GetAssignees(ctx context.Context, ownerType OwnerType, ownerID string) ([]string, error)
	// GetOwnerCustomer returns the customer id the owning record belongs
	// to, or ErrOwnerNotFound.
	GetOwnerCustomer(ctx context.Context, ownerType OwnerType, ownerID string) (string, error)
	// ApplyUpdate forwards a record update payload to the owning store.
	ApplyUpdate(ctx context.Context, ownerType OwnerType, ownerID string, payload json.RawMessage) error
}
