// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// We group related handlers into a struct (Handler) that holds shared dependencies.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/database"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/viewer"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/worker"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Tests build a Handler
// with whatever subset they need.
type Handler struct {
	Sessions  *viewer.Manager
	Worker    *worker.Pool
	Extractor *pdf.Extractor
	DB        *database.DB // nil when load history is disabled

	JWTSecret  string
	MaxPDFSize int64
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(sessions *viewer.Manager, wp *worker.Pool, ex *pdf.Extractor, db *database.DB, jwtSecret string, maxPDFSize int64) *Handler {
	return &Handler{
		Sessions:   sessions,
		Worker:     wp,
		Extractor:  ex,
		DB:         db,
		JWTSecret:  jwtSecret,
		MaxPDFSize: maxPDFSize,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	if h.DB != nil {
		dbStatus = "healthy"
		if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}
	}

	resp := models.HealthResponse{
		Status:   "ok",
		Version:  Version,
		Database: dbStatus,
	}
	if h.Worker != nil {
		resp.Workers = h.Worker.WorkerCount()
		resp.QueuedJobs = h.Worker.QueueSize()
	}
	if h.Sessions != nil {
		resp.Sessions = h.Sessions.Count()
	}
	c.JSON(http.StatusOK, resp)
}

// abort writes the standard error body.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
