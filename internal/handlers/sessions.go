// sessions.go handles the viewer session endpoints.
//
// POST   /api/v1/sessions[?url=]          — start a session (returns a bearer token)
// GET    /api/v1/sessions/:id             — current state
// DELETE /api/v1/sessions/:id             — end the session
// PUT    /api/v1/sessions/:id/search      — set the query
// DELETE /api/v1/sessions/:id/search      — clear the query and its results
// GET    /api/v1/sessions/:id/sidebar     — result list display data
// POST   /api/v1/sessions/:id/navigate    — scroll to "#highlight-<id>"
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/middleware"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	pdfservice "github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/sidebar"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/viewer"
)

// CreateSession starts a viewer session on the default document, or on
// the document named by the url query parameter.
// POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var src pdfservice.Source
	if raw := c.Query("url"); raw != "" {
		if err := validateDocumentURL(raw); err != nil {
			abort(c, http.StatusBadRequest, "invalid_url", err.Error())
			return
		}
		src = pdfservice.URLSource(raw)
	}

	ctrl, err := h.Sessions.Create(src)
	if err != nil {
		// The session exists and is ready with no results; the caller can
		// still use it and retry the load.
		log.Printf("⚠️  Session %s: initial load not scheduled: %v", ctrl.ID(), err)
	}
	ctrl.RegisterScroller(func(hl models.Highlight) {
		log.Printf("📜 Session %s: scroll to highlight %s on page %d", ctrl.ID(), hl.ID, hl.Position.PageNumber)
	})

	token, err := middleware.GenerateSessionToken(ctrl.ID(), h.JWTSecret)
	if err != nil {
		_ = h.Sessions.Delete(ctrl.ID())
		abort(c, http.StatusInternalServerError, "token_error", "Failed to issue a session token")
		return
	}

	c.JSON(http.StatusCreated, models.CreateSessionResponse{
		SessionID: ctrl.ID(),
		Token:     token,
		State:     ctrl.Snapshot(),
	})
}

// GetSession returns the session state.
// GET /api/v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// DeleteSession ends a session.
// DELETE /api/v1/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.Sessions.Delete(c.Param("id")); err != nil {
		sessionNotFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetSearch updates the query. Keystroke updates are debounced; set
// "immediate" for an explicit submit.
// PUT /api/v1/sessions/:id/search
func (h *Handler) SetSearch(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return
	}

	if req.Immediate {
		ctrl.SearchNow(req.Query)
		c.JSON(http.StatusOK, ctrl.Snapshot())
		return
	}
	ctrl.Search(req.Query)
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

// ResetSearch clears the query, the matches and the search highlights.
// DELETE /api/v1/sessions/:id/search
func (h *Handler) ResetSearch(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	ctrl.ResetSearch()
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// GetSidebar returns the result list.
// GET /api/v1/sessions/:id/sidebar
func (h *Handler) GetSidebar(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sidebar.Build(ctrl.Snapshot()))
}

// Navigate scrolls to the highlight named by a location hash. An unknown
// or malformed hash is not an error; nothing happens and 204 is returned.
// POST /api/v1/sessions/:id/navigate
func (h *Handler) Navigate(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req models.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", "Provide a JSON body with a 'hash' field")
		return
	}

	target, found := ctrl.ScrollToHash(req.Hash)
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, target)
}

// ClearNavigation forgets the last scroll target once the viewer has
// scrolled away from it.
// DELETE /api/v1/sessions/:id/navigate
func (h *Handler) ClearNavigation(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	ctrl.ClearScrollTarget()
	c.Status(http.StatusNoContent)
}

// session resolves :id, writing a 404 when the session is gone.
func (h *Handler) session(c *gin.Context) (*viewer.Controller, bool) {
	ctrl, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, viewer.ErrSessionNotFound) {
			sessionNotFound(c)
		} else {
			abort(c, http.StatusInternalServerError, "session_error", err.Error())
		}
		return nil, false
	}
	return ctrl, true
}

func sessionNotFound(c *gin.Context) {
	abort(c, http.StatusNotFound, "not_found", "Session not found or expired")
}
