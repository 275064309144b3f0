package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/taskpilot/file-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates route registration for the attachment surface.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches the attachment routes.
func (r *Routes) Register(router gin.IRouter) {
	router.PUT("/tasks/:taskId/customer/:customerId", r.handlers.Attachments.UpdateTask)
	router.PUT("/subtasks/:subtaskId/customer/:customerId", r.handlers.Attachments.UpdateSubtask)

	files := router.Group("/files")
	files.GET("/task/:taskId/customer/:customerId/attachment/:attachmentId/download", r.handlers.Attachments.DownloadTaskAttachment)
	files.GET("/subtask/:subtaskId/customer/:customerId/attachment/:attachmentId/download", r.handlers.Attachments.DownloadSubtaskAttachment)
	files.GET("/info/:key", r.handlers.Attachments.Info)
	files.POST("/cleanup", r.handlers.Maintenance.Cleanup)
	files.GET("/stats", r.handlers.Maintenance.Stats)

	events := router.Group("/events")
	events.POST("/owner-deleted", r.handlers.Events.OwnerDeleted)
}
