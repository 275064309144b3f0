package ownerdir

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
)

type ownerKey struct {
	ownerType domain.OwnerType
	ownerID   string
}

type ownerRecord struct {
	customerID string
	assignees  []string
}

// StaticDirectory is an in-process owner directory for development and
// tests. Records are seeded up front or via Put.
type StaticDirectory struct {
	mu     sync.RWMutex
	owners map[ownerKey]ownerRecord
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{owners: make(map[ownerKey]ownerRecord)}
}

// Put registers or replaces one owning record.
func (d *StaticDirectory) Put(ownerType domain.OwnerType, ownerID, customerID string, assignees ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.owners[ownerKey{ownerType, ownerID}] = ownerRecord{
		customerID: customerID,
		assignees:  assignees,
	}
}

// Remove drops one owning record.
func (d *StaticDirectory) Remove(ownerType domain.OwnerType, ownerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.owners, ownerKey{ownerType, ownerID})
}

func (d *StaticDirectory) GetAssignees(ctx context.Context, ownerType domain.OwnerType, ownerID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.owners[ownerKey{ownerType, ownerID}]
	if !ok {
		return nil, domain.ErrOwnerNotFound
	}
	return append([]string(nil), record.assignees...), nil
}

func (d *StaticDirectory) GetOwnerCustomer(ctx context.Context, ownerType domain.OwnerType, ownerID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.owners[ownerKey{ownerType, ownerID}]
	if !ok {
		return "", domain.ErrOwnerNotFound
	}
	return record.customerID, nil
}

func (d *StaticDirectory) ApplyUpdate(ctx context.Context, ownerType domain.OwnerType, ownerID string, payload json.RawMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.owners[ownerKey{ownerType, ownerID}]; !ok {
		return domain.ErrOwnerNotFound
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return fmt.Errorf("invalid owner update payload")
	}
	return nil
}
