package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/infrastructure/auth"
	"brainstorm-api/internal/interfaces/httpserver/requests"
	"brainstorm-api/internal/interfaces/httpserver/responses"
	"brainstorm-api/internal/utils/platformerrors"
)

// ConversationHandler exposes the conversation entrypoint.
type ConversationHandler struct {
	service ConversationService
	log     zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service ConversationService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// Create handles POST /conversation
// @Summary Send a message
// @Description Stores the message, returns a conversational reply and queues the background workflow
// @Tags Conversation
// @Accept json
// @Produce json
// @Param request body requests.ConversationRequest true "Conversation request"
// @Success 200 {object} responses.ConversationResponse
// @Failure 400 {object} platformerrors.HTTPErrorResponse
// @Failure 403 {object} platformerrors.HTTPErrorResponse
// @Failure 500 {object} platformerrors.HTTPErrorResponse
// @Router /conversation [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req requests.ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" || strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		platformerrors.WriteValidationError(c, "projectId, userId and message are required")
		return
	}
	if subject, ok := auth.Subject(c); ok && subject != strings.TrimSpace(req.UserID) {
		platformerrors.WriteForbidden(c, "userId does not match the authenticated user")
		return
	}

	reply, err := h.service.ProcessMessage(c.Request.Context(), coordination.Request{
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Message:   req.Message,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.writePhaseOneError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.FromReply(reply))
}

// writePhaseOneError keeps client errors as they are and reports every server side failure as 500.
func (h *ConversationHandler) writePhaseOneError(c *gin.Context, err error) {
	perr := platformerrors.GetPlatformError(err)
	if perr == nil || platformerrors.ErrorTypeToHTTPStatus(perr.Type) < http.StatusInternalServerError {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	platformerrors.LogError(h.log, perr)
	c.AbortWithStatusJSON(http.StatusInternalServerError, platformerrors.HTTPErrorResponse{
		Error: &platformerrors.HTTPErrorDetail{
			Message:   perr.Message,
			Type:      "internal_error",
			Code:      perr.UUID,
			RequestID: perr.RequestID,
		},
	})
}
