package v1

import (
	"github.com/gin-gonic/gin"

	"brainstorm-api/internal/interfaces/httpserver/handlers"
)

func registerRunRoutes(router gin.IRoutes, handler *handlers.RunHandler) {
	router.GET("/runs/:run_id", handler.Get)
}
