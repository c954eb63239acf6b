// documents.go handles document selection for a viewer session and the
// load history endpoint.
//
// PUT    /api/v1/sessions/:id/document        — load a URL (JSON) or an upload (multipart)
// DELETE /api/v1/sessions/:id/document        — back to the initial document
// POST   /api/v1/sessions/:id/document/toggle — switch primary/secondary
// GET    /api/v1/documents/recent             — recent loads (needs DATABASE_URL)
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	pdfservice "github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/viewer"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/worker"
)

// SetDocument swaps the session's document.
// PUT /api/v1/sessions/:id/document
//
// A JSON body {"url": "..."} loads by URL. A multipart body with a "file"
// field loads an upload. Anything that is not a PDF is rejected with 400
// and the session keeps its current document.
func (h *Handler) SetDocument(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var src pdfservice.Source
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		name, data, ok := h.readUpload(c)
		if !ok {
			return
		}
		src = pdfservice.UploadSource(name, data)
	} else {
		var req models.SetDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid_request", "Provide a JSON body with a 'url' field or a multipart 'file' upload")
			return
		}
		if err := validateDocumentURL(req.URL); err != nil {
			abort(c, http.StatusBadRequest, "invalid_url", err.Error())
			return
		}
		src = pdfservice.URLSource(req.URL)
	}

	if err := ctrl.Open(src); err != nil {
		scheduleFailed(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

// ClearDocument returns the session to its initial document.
// DELETE /api/v1/sessions/:id/document
func (h *Handler) ClearDocument(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if err := ctrl.Clear(); err != nil {
		scheduleFailed(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

// ToggleDocument switches between the primary and secondary documents.
// POST /api/v1/sessions/:id/document/toggle
func (h *Handler) ToggleDocument(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if err := ctrl.Toggle(); err != nil {
		if errors.Is(err, viewer.ErrNoAlternate) {
			abort(c, http.StatusConflict, "no_alternate_document", "No secondary document is configured")
			return
		}
		scheduleFailed(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

// ListRecentDocuments returns the session's own load history, newest first.
// GET /api/v1/sessions/:id/documents/recent?limit=20&status=failed
func (h *Handler) ListRecentDocuments(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	if h.DB == nil {
		abort(c, http.StatusServiceUnavailable, "history_disabled", "Load history is disabled; set DATABASE_URL to enable it")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	status := c.Query("status")
	switch status {
	case "", "completed", "failed", "stale":
	default:
		abort(c, http.StatusBadRequest, "invalid_status", "status must be one of: completed, failed, stale")
		return
	}

	loads, err := h.DB.ListRecentDocumentLoads(c.Request.Context(), c.Param("id"), limit, status)
	if err != nil {
		abort(c, http.StatusInternalServerError, "database_error", "Failed to list document loads")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loads": loads, "count": len(loads)})
}

// readUpload reads and validates the multipart "file" field. On failure it
// has already written the error response.
func (h *Handler) readUpload(c *gin.Context) (string, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize())

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("No PDF file provided. Upload a file with the field name 'file'. Max size: %dMB.", h.maxUploadSize()>>20))
		return "", nil, false
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !isPDFContentType(ct) {
		abort(c, http.StatusBadRequest, "invalid_file_type",
			fmt.Sprintf("Unsupported file type '%s'. Only application/pdf is accepted.", ct))
		return "", nil, false
	}

	// The pdf library needs random access, so the whole file goes into memory.
	data, err := io.ReadAll(file)
	if err != nil {
		abort(c, http.StatusBadRequest, "read_error", "Failed to read uploaded file")
		return "", nil, false
	}

	if !pdfservice.ValidatePDF(data) || !mimetype.Detect(data).Is("application/pdf") {
		abort(c, http.StatusBadRequest, "invalid_pdf", "The uploaded file does not appear to be a valid PDF")
		return "", nil, false
	}

	return filepath.Base(header.Filename), data, true
}

func (h *Handler) maxUploadSize() int64 {
	if h.MaxPDFSize > 0 {
		return h.MaxPDFSize
	}
	return 50 << 20
}

// isPDFContentType accepts application/pdf and the generic binary type
// some clients send for every file.
func isPDFContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	return ct == "application/pdf" || ct == "application/octet-stream"
}

// validateDocumentURL accepts absolute http(s) URLs only.
func validateDocumentURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("'%s' is not an absolute http(s) URL", raw)
	}
	return nil
}

// scheduleFailed reports a load that could not be queued.
func scheduleFailed(c *gin.Context, err error) {
	if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrStopped) {
		abort(c, http.StatusServiceUnavailable, "queue_full", "The document loader is busy. Try again later.")
		return
	}
	abort(c, http.StatusInternalServerError, "load_failed", err.Error())
}
