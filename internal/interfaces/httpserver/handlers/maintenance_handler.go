package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/metrics"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver/requests"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver/responses"
	"github.com/taskpilot/file-api/internal/utils/platformerrors"
)

// MaintenanceHandler exposes the on-demand sweep and usage stats.
type MaintenanceHandler struct {
	service *domain.Service
	sweeper *domain.Sweeper
	log     zerolog.Logger
}

func NewMaintenanceHandler(service *domain.Service, sweeper *domain.Sweeper, log zerolog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		service: service,
		sweeper: sweeper,
		log:     log.With().Str("component", "maintenance-handler").Logger(),
	}
}

// Cleanup godoc
// @Summary      Run a retention sweep
// @Accept       json
// @Produce      json
// @Param        request  body      requests.CleanupRequest  true  "Sweep parameters"
// @Success      200      {object}  domain.SweepResult
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /files/cleanup [post]
func (h *MaintenanceHandler) Cleanup(c *gin.Context) {
	var req requests.CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "maxAgeInDays must be a positive number", "")
		return
	}

	result := h.sweeper.RunOnce(c.Request.Context(), req.MaxAgeInDays)
	metrics.RecordSweep(result.Deleted, len(result.Failures))

	h.log.Info().
		Int("max_age_days", req.MaxAgeInDays).
		Int("deleted", result.Deleted).
		Int("failures", len(result.Failures)).
		Msg("on-demand sweep finished")

	c.JSON(http.StatusOK, result)
}

// Stats godoc
// @Summary      Usage statistics
// @Produce      json
// @Success      200  {object}  responses.StatsResponse
// @Security     BearerAuth
// @Router       /files/stats [get]
func (h *MaintenanceHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		platformerrors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.BuildStatsResponse(stats))
}
