package entities

import "time"

// Attachment represents the persisted attachment metadata.
type Attachment struct {
	ID           string    `gorm:"type:varchar(40);primaryKey"`
	OwnerType    string    `gorm:"type:varchar(16);not null;index:idx_attachments_owner"`
	OwnerID      string    `gorm:"type:varchar(64);not null;index:idx_attachments_owner"`
	CustomerID   string    `gorm:"type:varchar(64);not null;index"`
	StorageKey   string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	OriginalName string    `gorm:"type:varchar(255);not null"`
	DeclaredMime string    `gorm:"type:varchar(64);not null"`
	DetectedMime string    `gorm:"type:varchar(64);not null"`
	Category     string    `gorm:"type:varchar(16);not null;index"`
	SizeBytes    int64     `gorm:"not null"`
	UploadedBy   string    `gorm:"type:varchar(64)"`
	UploadedAt   time.Time `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Attachment) TableName() string {
	return "attachments"
}
