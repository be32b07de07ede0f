package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	// Notifications (SSE) stay outside the request timeout
	api.GET("/notifications/stream", h.AuthMiddleware(), h.NotificationStream)

	// OAuth routes
	api.GET("/oauth/authorize", h.OAuthAuthorize)
	api.GET("/oauth/callback", h.OAuthCallback)
	api.POST("/oauth/logout", h.OAuthLogout)

	timed := api.Group("", RequestTimeout(h.server.Config().RequestTimeout))

	// Users and password sessions
	timed.POST("/users", h.Register)
	timed.POST("/auth/login", h.Login)
	timed.POST("/auth/logout", h.Logout)

	protected := timed.Group("", h.AuthMiddleware())
	protected.GET("/auth/me", h.Me)

	// Todos. Static paths are registered before :id.
	protected.GET("/todos", h.ListTodos)
	protected.POST("/todos", h.CreateTodo)
	protected.POST("/todos/order", h.ReorderTodos)
	protected.PUT("/todos/positions", h.ReassignPositions)
	protected.POST("/todos/move-completed-to-bottom", h.MoveCompletedToBottom)
	protected.DELETE("/todos/completed", h.ClearCompleted)
	protected.PUT("/todos/:id", h.UpdateTodo)
	protected.DELETE("/todos/:id", h.DeleteTodo)

	// Settings
	protected.GET("/settings", h.GetSettings)
	protected.PUT("/settings", h.UpdateSettings)
}
