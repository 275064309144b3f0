package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/auth"
	"github.com/taskpilot/file-api/internal/infrastructure/metrics"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver/responses"
	"github.com/taskpilot/file-api/internal/utils/platformerrors"
)

// AttachmentHandler exposes upload, download and metadata endpoints.
type AttachmentHandler struct {
	service *domain.Service
	log     zerolog.Logger
}

func NewAttachmentHandler(service *domain.Service, log zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		service: service,
		log:     log.With().Str("component", "attachment-handler").Logger(),
	}
}

// UpdateTask godoc
// @Summary      Update a task with attachments
// @Description  Multipart body with a taskData JSON field and 0..n attachments file parts.
// @Tags         attachments
// @Accept       multipart/form-data
// @Produce      json
// @Param        taskId      path      string  true  "Task ID"
// @Param        customerId  path      string  true  "Customer ID"
// @Success      200  {object}  responses.UpdateResponse
// @Failure      400  {object}  platformerrors.HTTPErrorResponse
// @Failure      403  {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /tasks/{taskId}/customer/{customerId} [put]
func (h *AttachmentHandler) UpdateTask(c *gin.Context) {
	h.update(c, domain.OwnerTask, c.Param("taskId"))
}

// UpdateSubtask handles the same multipart shape for subtasks.
func (h *AttachmentHandler) UpdateSubtask(c *gin.Context) {
	h.update(c, domain.OwnerSubtask, c.Param("subtaskId"))
}

func (h *AttachmentHandler) update(c *gin.Context, ownerType domain.OwnerType, ownerID string) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing credentials")
		return
	}

	owner := domain.OwnerRef{
		Type:       ownerType,
		ID:         ownerID,
		CustomerID: c.Param("customerId"),
	}

	form, err := c.MultipartForm()
	if err != nil {
		platformerrors.WriteValidationError(c, "invalid multipart form", "")
		return
	}

	var payload json.RawMessage
	if values := form.Value["taskData"]; len(values) > 0 {
		payload = json.RawMessage(values[0])
		if !json.Valid(payload) {
			platformerrors.WriteValidationError(c, "taskData is not valid JSON", "")
			return
		}
	}

	// The owner update also performs the guard and owner-existence
	// checks, so a zero-file request still gets proper 403/404s.
	if err := h.service.UpdateOwner(c.Request.Context(), principal, owner, payload); err != nil {
		h.writeDomainError(c, err)
		return
	}

	stored := make([]responses.AttachmentResponse, 0, len(form.File["attachments"]))
	var persisted []*domain.Attachment
	for _, header := range form.File["attachments"] {
		att, err := h.storeOne(c, principal, owner, header)
		if err != nil {
			// The request lands all-or-nothing: parts stored before the
			// failing one are removed again so the caller can simply
			// retry the whole request.
			h.rollback(c, principal, persisted)
			h.writeDomainError(c, err)
			return
		}
		persisted = append(persisted, att)
		metrics.RecordUpload(string(att.Category), "success", att.SizeBytes)
		stored = append(stored, responses.BuildAttachmentResponse(att))
	}

	c.JSON(http.StatusOK, responses.UpdateResponse{
		OwnerType:   string(ownerType),
		OwnerID:     ownerID,
		Attachments: stored,
	})
}

// rollback removes attachments stored earlier in a request whose later
// part failed.
func (h *AttachmentHandler) rollback(c *gin.Context, principal domain.Principal, stored []*domain.Attachment) {
	for _, att := range stored {
		if err := h.service.Delete(c.Request.Context(), principal, att.ID); err != nil {
			h.log.Error().Err(err).Str("attachment_id", att.ID).Msg("rollback of stored part failed")
		}
	}
}

func (h *AttachmentHandler) storeOne(c *gin.Context, principal domain.Principal, owner domain.OwnerRef, header *multipart.FileHeader) (*domain.Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Key: header.Filename, Err: err}
	}
	defer file.Close()

	return h.service.Upload(c.Request.Context(), principal, domain.UploadInput{
		Owner:        owner,
		OriginalName: header.Filename,
		DeclaredMime: header.Header.Get("Content-Type"),
		SizeBytes:    header.Size,
		Body:         file,
	})
}

// DownloadTaskAttachment godoc
// @Summary      Download a task attachment
// @Produce      octet-stream
// @Param        taskId        path  string  true  "Task ID"
// @Param        customerId    path  string  true  "Customer ID"
// @Param        attachmentId  path  string  true  "Attachment ID"
// @Success      200  "binary data"
// @Failure      403  {object}  platformerrors.HTTPErrorResponse
// @Failure      404  {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /files/task/{taskId}/customer/{customerId}/attachment/{attachmentId}/download [get]
func (h *AttachmentHandler) DownloadTaskAttachment(c *gin.Context) {
	h.download(c, domain.OwnerTask, c.Param("taskId"))
}

// DownloadSubtaskAttachment streams a subtask attachment.
func (h *AttachmentHandler) DownloadSubtaskAttachment(c *gin.Context) {
	h.download(c, domain.OwnerSubtask, c.Param("subtaskId"))
}

func (h *AttachmentHandler) download(c *gin.Context, ownerType domain.OwnerType, ownerID string) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing credentials")
		return
	}

	owner := domain.OwnerRef{
		Type:       ownerType,
		ID:         ownerID,
		CustomerID: c.Param("customerId"),
	}

	att, reader, err := h.service.Download(c.Request.Context(), principal, owner, c.Param("attachmentId"))
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		h.writeDomainError(c, err)
		return
	}
	defer reader.Close()

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	c.DataFromReader(http.StatusOK, att.SizeBytes, att.DetectedMime, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", att.OriginalName),
	})
}

// Info godoc
// @Summary      Attachment metadata
// @Produce      json
// @Param        key  path  string  true  "Attachment ID"
// @Success      200  {object}  responses.AttachmentResponse
// @Failure      404  {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /files/info/{key} [get]
func (h *AttachmentHandler) Info(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing credentials")
		return
	}

	att, err := h.service.Info(c.Request.Context(), principal, c.Param("key"))
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.BuildAttachmentResponse(att))
}

// writeDomainError maps domain errors onto the response taxonomy.
func (h *AttachmentHandler) writeDomainError(c *gin.Context, err error) {
	switch {
	case domain.AsValidationError(err) != nil:
		verr := domain.AsValidationError(err)
		metrics.RecordValidationReject(string(verr.Reason))
		platformerrors.WriteValidationError(c, verr.Error(), string(verr.Reason))
	case domain.AsAuthorizationError(err) != nil:
		platformerrors.WriteForbidden(c, "access denied")
	case errors.Is(err, domain.ErrNotFound):
		platformerrors.WriteNotFound(c, "attachment not found")
	case errors.Is(err, domain.ErrOwnerNotFound):
		platformerrors.WriteNotFound(c, "owner not found")
	default:
		h.log.Error().Err(err).Msg("request failed")
		platformerrors.WriteError(c, err)
	}
}
