// Package router sets up all HTTP routes for the API.
package router

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/handlers"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/middleware"
)

// Setup creates and configures the Gin router with all routes.
//
// Only trustedProxies may set the client IP through X-Forwarded-For; with
// none, the rate limiter keys on the connection's peer address.
func Setup(h *handlers.Handler, rateLimiter *middleware.RateLimiter, allowedOrigins, trustedProxies []string) *gin.Engine {
	r := gin.Default()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		log.Printf("⚠️  Ignoring invalid trusted proxies %v: %v", trustedProxies, err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.CORS(allowedOrigins))

	// --- Public Routes ---
	r.GET("/", h.ServeViewer)
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	api := r.Group("/api/v1")
	api.Use(rateLimiter.RateLimit())
	{
		api.POST("/sessions", h.CreateSession)
		api.POST("/search", h.SearchDocument)
	}

	// --- Session Routes (bearer token bound to :id) ---
	sessions := api.Group("/sessions/:id")
	sessions.Use(middleware.SessionAuth(h.JWTSecret))
	{
		sessions.GET("", h.GetSession)
		sessions.DELETE("", h.DeleteSession)

		sessions.PUT("/document", h.SetDocument)
		sessions.DELETE("/document", h.ClearDocument)
		sessions.POST("/document/toggle", h.ToggleDocument)

		sessions.PUT("/search", h.SetSearch)
		sessions.DELETE("/search", h.ResetSearch)
		sessions.GET("/sidebar", h.GetSidebar)

		sessions.GET("/highlights", h.ListHighlights)
		sessions.POST("/highlights", h.AddHighlight)
		sessions.PATCH("/highlights/:hid", h.UpdateHighlight)
		sessions.DELETE("/highlights", h.ResetHighlights)

		sessions.POST("/navigate", h.Navigate)
		sessions.DELETE("/navigate", h.ClearNavigation)

		sessions.GET("/documents/recent", h.ListRecentDocuments)
	}

	return r
}
