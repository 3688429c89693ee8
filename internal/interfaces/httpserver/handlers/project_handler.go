package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/infrastructure/auth"
	"brainstorm-api/internal/interfaces/httpserver/requests"
	"brainstorm-api/internal/interfaces/httpserver/responses"
	"brainstorm-api/internal/utils/platformerrors"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
	streamKeepAlive    = 15 * time.Second
)

// ProjectHandler exposes projects, their messages and their update feed.
type ProjectHandler struct {
	service ConversationService
	feed    UpdateFeed
	log     zerolog.Logger
}

// NewProjectHandler constructs the handler.
func NewProjectHandler(service ConversationService, feed UpdateFeed, log zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		feed:    feed,
		log:     log.With().Str("handler", "project").Logger(),
	}
}

// Get handles GET /v1/projects/:project_id
// @Summary Get a project
// @Description Returns the project with its tracked items
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Success 200 {object} responses.ProjectResponse
// @Failure 403 {object} platformerrors.HTTPErrorResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Router /v1/projects/{project_id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.service.GetProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if !ownedByCaller(c, p.UserID) {
		platformerrors.WriteForbidden(c, "project belongs to another user")
		return
	}
	c.JSON(http.StatusOK, responses.FromProject(p))
}

// ListMessages handles GET /v1/projects/:project_id/messages
// @Summary List conversation messages
// @Description Returns a page of the conversation in creation order. Offset counts back from the newest message.
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Messages to skip from the newest end"
// @Success 200 {object} responses.MessageListResponse
// @Failure 400 {object} platformerrors.HTTPErrorResponse
// @Failure 403 {object} platformerrors.HTTPErrorResponse
// @Router /v1/projects/{project_id}/messages [get]
func (h *ProjectHandler) ListMessages(c *gin.Context) {
	if !h.authorize(c, c.Param("project_id")) {
		return
	}
	var q requests.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.Limit < 0 || q.Offset < 0 {
		platformerrors.WriteValidationError(c, "limit and offset must be non-negative integers")
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultMessagePage
	}
	if q.Limit > maxMessagePage {
		q.Limit = maxMessagePage
	}

	msgs, err := h.service.ListMessages(c.Request.Context(), c.Param("project_id"), conversation.ListOptions{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	c.JSON(http.StatusOK, responses.MessageListResponse{Object: "list", Data: msgs, Limit: q.Limit, Offset: q.Offset})
}

// DrainUpdates handles GET /v1/projects/:project_id/updates
// @Summary Poll project updates
// @Description Returns and removes the pending background updates of a project
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Success 200 {object} responses.UpdateListResponse
// @Failure 403 {object} platformerrors.HTTPErrorResponse
// @Router /v1/projects/{project_id}/updates [get]
func (h *ProjectHandler) DrainUpdates(c *gin.Context) {
	if !h.authorize(c, c.Param("project_id")) {
		return
	}
	c.JSON(http.StatusOK, responses.UpdateListResponse{Object: "list", Data: h.feed.Drain(c.Param("project_id"))})
}

// StreamUpdates handles GET /v1/projects/:project_id/updates/stream
// @Summary Stream project updates
// @Description Server-Sent Events feed of background updates; pending updates are sent first
// @Tags Projects
// @Produce text/event-stream
// @Param project_id path string true "Project ID"
// @Success 200 {string} string "event stream"
// @Failure 403 {object} platformerrors.HTTPErrorResponse
// @Router /v1/projects/{project_id}/updates/stream [get]
func (h *ProjectHandler) StreamUpdates(c *gin.Context) {
	projectID := c.Param("project_id")
	if !h.authorize(c, projectID) {
		return
	}
	sub := h.feed.Subscribe(projectID)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	h.log.Debug().Str("project_id", projectID).Msg("update stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case u, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(string(u.Event), u)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})
	h.log.Debug().Str("project_id", projectID).Msg("update stream closed")
}

// authorize writes an error response and returns false unless the caller owns the project.
// Without an authenticated subject there is nothing to check.
func (h *ProjectHandler) authorize(c *gin.Context, projectID string) bool {
	if _, ok := auth.Subject(c); !ok {
		return true
	}
	p, err := h.service.GetProject(c.Request.Context(), projectID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return false
	}
	if !ownedByCaller(c, p.UserID) {
		platformerrors.WriteForbidden(c, "project belongs to another user")
		return false
	}
	return true
}

func ownedByCaller(c *gin.Context, userID string) bool {
	subject, ok := auth.Subject(c)
	return !ok || subject == userID
}
