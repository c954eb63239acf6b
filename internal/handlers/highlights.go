// highlights.go handles highlights a user draws on the document.
//
// GET    /api/v1/sessions/:id/highlights       — rendered set (user, then search)
// POST   /api/v1/sessions/:id/highlights       — add a selection
// PATCH  /api/v1/sessions/:id/highlights/:hid  — update position and/or content
// DELETE /api/v1/sessions/:id/highlights       — remove user highlights
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/viewer"
)

// ListHighlights returns every highlight the viewer would draw.
func (h *Handler) ListHighlights(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	highlights := ctrl.Highlights()
	c.JSON(http.StatusOK, gin.H{"highlights": highlights, "count": len(highlights)})
}

// AddHighlight stores a selection reported by the highlight widget.
func (h *Handler) AddHighlight(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req models.NewHighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Position.PageNumber < 1 {
		abort(c, http.StatusBadRequest, "invalid_position", "position.pageNumber must be 1 or greater")
		return
	}

	c.JSON(http.StatusCreated, ctrl.AddHighlight(req))
}

// UpdateHighlight merges a partial update into an existing highlight.
func (h *Handler) UpdateHighlight(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req models.UpdateHighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Position == nil && req.Content == nil {
		abort(c, http.StatusBadRequest, "invalid_request", "Provide 'position' and/or 'content'")
		return
	}

	updated, err := ctrl.UpdateHighlight(c.Param("hid"), req.Position, req.Content)
	if err != nil {
		if errors.Is(err, viewer.ErrHighlightNotFound) {
			abort(c, http.StatusNotFound, "not_found", "Highlight not found")
			return
		}
		abort(c, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ResetHighlights removes the highlights the user drew. Search highlights
// stay; they follow the query.
func (h *Handler) ResetHighlights(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	ctrl.ResetHighlights()
	c.Status(http.StatusNoContent)
}
