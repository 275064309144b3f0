package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver/requests"
	"github.com/taskpilot/file-api/internal/utils/platformerrors"
)

// EventHandler ingests lifecycle notifications from the task and
// subtask services and publishes them on the in-process event bus.
type EventHandler struct {
	bus *domain.OwnerEventBus
	log zerolog.Logger
}

func NewEventHandler(bus *domain.OwnerEventBus, log zerolog.Logger) *EventHandler {
	return &EventHandler{
		bus: bus,
		log: log.With().Str("component", "event-handler").Logger(),
	}
}

// OwnerDeleted godoc
// @Summary      Owner deleted notification
// @Description  Announces a removed task or subtask; its attachments are cleaned up before the call returns.
// @Accept       json
// @Produce      json
// @Param        request  body  requests.OwnerDeletedEvent  true  "Deleted owner"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /events/owner-deleted [post]
func (h *EventHandler) OwnerDeleted(c *gin.Context) {
	var req requests.OwnerDeletedEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "ownerType and ownerId are required", "")
		return
	}

	ownerType, ok := domain.ParseOwnerType(req.OwnerType)
	if !ok {
		platformerrors.WriteValidationError(c, "ownerType must be task or subtask", "")
		return
	}

	// Dispatch is synchronous: cascade cleanup has completed when the
	// response goes out.
	h.bus.Publish(c.Request.Context(), domain.OwnerDeleted{Type: ownerType, ID: req.OwnerID})

	h.log.Info().
		Str("owner_type", req.OwnerType).
		Str("owner_id", req.OwnerID).
		Msg("owner deleted event processed")

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
