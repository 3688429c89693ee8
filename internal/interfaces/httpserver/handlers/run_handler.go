package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/interfaces/httpserver/responses"
	"brainstorm-api/internal/utils/platformerrors"
)

// RunHandler exposes background workflow runs.
type RunHandler struct {
	service ConversationService
	log     zerolog.Logger
}

// NewRunHandler constructs the handler.
func NewRunHandler(service ConversationService, log zerolog.Logger) *RunHandler {
	return &RunHandler{
		service: service,
		log:     log.With().Str("handler", "run").Logger(),
	}
}

// Get handles GET /v1/runs/:run_id
// @Summary Get a workflow run
// @Description Returns the status of the background workflow queued for a message
// @Tags Runs
// @Produce json
// @Param run_id path string true "Run ID"
// @Success 200 {object} responses.RunResponse
// @Failure 403 {object} platformerrors.HTTPErrorResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Router /v1/runs/{run_id} [get]
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if !ownedByCaller(c, run.UserID) {
		platformerrors.WriteForbidden(c, "run belongs to another user")
		return
	}
	c.JSON(http.StatusOK, responses.FromRun(run))
}
