package v1

import (
	"github.com/gin-gonic/gin"

	"brainstorm-api/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.POST("/conversation", handler.Create)
}
