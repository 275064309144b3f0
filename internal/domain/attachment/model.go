package attachment

import "time"

// OwnerType identifies the kind of record an attachment belongs to.
type OwnerType string

const (
	OwnerTask    OwnerType = "task"
	OwnerSubtask OwnerType = "subtask"
)

// ParseOwnerType validates a string owner type.
func ParseOwnerType(value string) (OwnerType, bool) {
	switch OwnerType(value) {
	case OwnerTask, OwnerSubtask:
		return OwnerType(value), true
	}
	return "", false
}

// Category classifies an attachment by file type. Each category has its
// own MIME allowlist and size ceiling.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryArchive  Category = "archive"
	CategoryText     Category = "text"
)

// Categories lists all known categories in stable order.
func Categories() []Category {
	return []Category{
		CategoryImage,
		CategoryDocument,
		CategoryVideo,
		CategoryAudio,
		CategoryArchive,
		CategoryText,
	}
}

// Role is a caller's role in the project-management application.
type Role string

const (
	RolePM       Role = "pm"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

// Principal is the authenticated caller, resolved from the bearer
// credential by the auth layer.
type Principal struct {
	ID         string
	Role       Role
	CustomerID string
}

// OwnerRef identifies the owning task or subtask of an attachment,
// with the customer id denormalized for access scoping.
type OwnerRef struct {
	Type       OwnerType
	ID         string
	CustomerID string
}

// Attachment is one registry record per stored file.
type Attachment struct {
	ID           string    `json:"id"`
	OwnerType    OwnerType `json:"owner_type"`
	OwnerID      string    `json:"owner_id"`
	CustomerID   string    `json:"customer_id"`
	StorageKey   string    `json:"storage_key"`
	OriginalName string    `json:"original_name"`
	DeclaredMime string    `json:"declared_mime"`
	DetectedMime string    `json:"detected_mime"`
	Category     Category  `json:"category"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedBy   string    `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// OwnerRef returns the owner reference recorded on the attachment.
func (a *Attachment) OwnerRef() OwnerRef {
	return OwnerRef{Type: a.OwnerType, ID: a.OwnerID, CustomerID: a.CustomerID}
}
