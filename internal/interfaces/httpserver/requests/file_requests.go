package requests

// CleanupRequest triggers a synchronous retention sweep.
type CleanupRequest struct {
	MaxAgeInDays int `json:"maxAgeInDays" binding:"required,min=1"`
}

// OwnerDeletedEvent announces that a task or subtask record was
// removed from its store.
type OwnerDeletedEvent struct {
	OwnerType string `json:"ownerType" binding:"required"`
	OwnerID   string `json:"ownerId" binding:"required"`
}
