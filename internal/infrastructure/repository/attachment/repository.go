package attachment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/database/entities"
	"github.com/taskpilot/file-api/internal/utils/platformerrors"
)

// Repository handles attachment persistence on Postgres.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, att *domain.Attachment) error {
	entity := mapDomain(att)
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create attachment record",
			err,
			"3f6a1c8e-9d2b-4e7f-8a1c-5b4d3e2f1a0c",
		)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	var entity entities.Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get attachment by id",
			err,
			"b9e4d7a2-1f3c-4b8d-9e6a-7c5f4a3b2d1e",
		)
	}
	att := mapEntity(entity)
	return &att, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID string) ([]domain.Attachment, error) {
	var records []entities.Attachment
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", string(ownerType), ownerID).
		Order("uploaded_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list attachments by owner",
			err,
			"6c2e9f4b-8a7d-4c1e-b3f5-0d9e8a7b6c5d",
		)
	}
	result := make([]domain.Attachment, 0, len(records))
	for _, entity := range records {
		result = append(result, mapEntity(entity))
	}
	return result, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Attachment{})
	if res.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete attachment record",
			res.Error,
			"a1d8c5b2-4e9f-4a6b-8c3d-2f1e0a9b8c7d",
		)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) ScanOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Attachment, error) {
	var records []entities.Attachment
	err := r.db.WithContext(ctx).
		Where("uploaded_at < ?", cutoff).
		Order("uploaded_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to scan attachments by age",
			err,
			"e7b3a9d1-5c4f-4d2e-a8b6-9f0c1d2e3a4b",
		)
	}
	result := make([]domain.Attachment, 0, len(records))
	for _, entity := range records {
		result = append(result, mapEntity(entity))
	}
	return result, nil
}

func (r *Repository) StorageKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&entities.Attachment{}).
		Pluck("storage_key", &keys).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list storage keys",
			err,
			"0f9e8d7c-6b5a-4c3d-9e2f-1a0b9c8d7e6f",
		)
	}
	return keys, nil
}

func (r *Repository) Stats(ctx context.Context) (domain.UsageStats, error) {
	var rows []struct {
		Category   string
		Count      int64
		TotalBytes int64
	}
	err := r.db.WithContext(ctx).
		Model(&entities.Attachment{}).
		Select("category, COUNT(*) AS count, COALESCE(SUM(size_bytes), 0) AS total_bytes").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return domain.UsageStats{}, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to aggregate usage stats",
			err,
			"4d3c2b1a-0e9f-4a8b-b7c6-5d4e3f2a1b0c",
		)
	}

	stats := domain.NewUsageStats()
	for _, row := range rows {
		usage := stats.PerCategory[domain.Category(row.Category)]
		usage.Count = row.Count
		usage.TotalBytes = row.TotalBytes
		stats.PerCategory[domain.Category(row.Category)] = usage
		stats.TotalCount += row.Count
		stats.TotalBytes += row.TotalBytes
	}
	return stats, nil
}

func mapDomain(att *domain.Attachment) entities.Attachment {
	return entities.Attachment{
		ID:           att.ID,
		OwnerType:    string(att.OwnerType),
		OwnerID:      att.OwnerID,
		CustomerID:   att.CustomerID,
		StorageKey:   att.StorageKey,
		OriginalName: att.OriginalName,
		DeclaredMime: att.DeclaredMime,
		DetectedMime: att.DetectedMime,
		Category:     string(att.Category),
		SizeBytes:    att.SizeBytes,
		UploadedBy:   att.UploadedBy,
		UploadedAt:   att.UploadedAt,
	}
}

func mapEntity(entity entities.Attachment) domain.Attachment {
	return domain.Attachment{
		ID:           entity.ID,
		OwnerType:    domain.OwnerType(entity.OwnerType),
		OwnerID:      entity.OwnerID,
		CustomerID:   entity.CustomerID,
		StorageKey:   entity.StorageKey,
		OriginalName: entity.OriginalName,
		DeclaredMime: entity.DeclaredMime,
		DetectedMime: entity.DetectedMime,
		Category:     domain.Category(entity.Category),
		SizeBytes:    entity.SizeBytes,
		UploadedBy:   entity.UploadedBy,
		UploadedAt:   entity.UploadedAt,
	}
}
