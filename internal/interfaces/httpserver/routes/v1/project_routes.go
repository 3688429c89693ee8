package v1

import (
	"github.com/gin-gonic/gin"

	"brainstorm-api/internal/interfaces/httpserver/handlers"
)

func registerProjectRoutes(router gin.IRoutes, handler *handlers.ProjectHandler) {
	router.GET("/projects/:project_id", handler.Get)
	router.GET("/projects/:project_id/messages", handler.ListMessages)
	router.GET("/projects/:project_id/updates", handler.DrainUpdates)
	router.GET("/projects/:project_id/updates/stream", handler.StreamUpdates)
}
