package responses

import (
	"time"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
)

// AttachmentResponse is one attachment's metadata.
type AttachmentResponse struct {
	ID           string    `json:"id"`
	OwnerType    string    `json:"owner_type"`
	OwnerID      string    `json:"owner_id"`
	CustomerID   string    `json:"customer_id"`
	OriginalName string    `json:"original_name"`
	Mime         string    `json:"mime"`
	Category     string    `json:"category"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedBy   string    `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// BuildAttachmentResponse maps a domain attachment.
func BuildAttachmentResponse(att *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           att.ID,
		OwnerType:    string(att.OwnerType),
		OwnerID:      att.OwnerID,
		CustomerID:   att.CustomerID,
		OriginalName: att.OriginalName,
		Mime:         att.DetectedMime,
		Category:     string(att.Category),
		SizeBytes:    att.SizeBytes,
		UploadedBy:   att.UploadedBy,
		UploadedAt:   att.UploadedAt,
	}
}

// UpdateResponse is the result of a task/subtask update with file parts.
type UpdateResponse struct {
	OwnerType   string               `json:"owner_type"`
	OwnerID     string               `json:"owner_id"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// StatsResponse is the usage report.
type StatsResponse struct {
	PerCategory map[string]domain.CategoryUsage `json:"per_category"`
	TotalCount  int64                           `json:"total_count"`
	TotalBytes  int64                           `json:"total_bytes"`
}

// BuildStatsResponse maps domain usage stats.
func BuildStatsResponse(stats domain.UsageStats) StatsResponse {
	perCategory := make(map[string]domain.CategoryUsage, len(stats.PerCategory))
	for category, usage := range stats.PerCategory {
		perCategory[string(category)] = usage
	}
	return StatsResponse{
		PerCategory: perCategory,
		TotalCount:  stats.TotalCount,
		TotalBytes:  stats.TotalBytes,
	}
}
