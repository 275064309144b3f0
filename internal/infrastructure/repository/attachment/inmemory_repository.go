package attachment

import (
	"context"
	"sync"
	"time"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
)

// InMemoryRepository is a thread-safe registry for development and
// tests; it implements the same contract as the Postgres repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Attachment
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]domain.Attachment),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, att *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[att.ID] = *att
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if att, ok := r.records[id]; ok {
		copy := att
		return &copy, nil
	}
	return nil, nil
}

func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) ([]domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Attachment
	for _, att := range r.records {
		if att.OwnerType == ownerType && att.OwnerID == ownerID {
			result = append(result, att)
		}
	}
	return result, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *InMemoryRepository) ScanOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Attachment
	for _, att := range r.records {
		if att.UploadedAt.Before(cutoff) {
			result = append(result, att)
		}
	}
	return result, nil
}

func (r *InMemoryRepository) StorageKeys(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.records))
	for _, att := range r.records {
		keys = append(keys, att.StorageKey)
	}
	return keys, nil
}

func (r *InMemoryRepository) Stats(ctx context.Context) (domain.UsageStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := domain.NewUsageStats()
	for _, att := range r.records {
		stats.Add(att.Category, att.SizeBytes)
	}
	return stats, nil
}
