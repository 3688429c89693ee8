package routes

import (
	"github.com/gin-gonic/gin"

	"brainstorm-api/internal/interfaces/httpserver/handlers"
	v1 "brainstorm-api/internal/interfaces/httpserver/routes/v1"
)

// Provider coordinates all route registrations.
type Provider struct {
	handlers *handlers.Provider
	V1       *v1.Routes
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{
		handlers: handlerProvider,
		V1:       v1.NewRoutes(handlerProvider),
	}
}

// Register attaches all available routes to the router. The unversioned POST /conversation is kept
// alongside /v1/conversation.
func (p *Provider) Register(router gin.IRouter) {
	router.POST("/conversation", p.handlers.Conversation.Create)
	p.V1.Register(router)
}
