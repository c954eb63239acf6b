package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/highlight"
	pdfservice "github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/search"
)

// SearchDocument runs the whole pipeline once without a session: extract
// the uploaded PDF, match the query, project the highlights.
// POST /api/v1/search (multipart: file, q)
//
// Processing is synchronous; extraction of one document is fast enough to
// answer inline.
func (h *Handler) SearchDocument(c *gin.Context) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		abort(c, http.StatusBadRequest, "invalid_request", "Send a multipart form with a 'file' field and a 'q' field")
		return
	}

	name, data, ok := h.readUpload(c)
	if !ok {
		return
	}
	query := c.PostForm("q")

	doc, err := h.Extractor.Extract(c.Request.Context(), data, "upload://"+name)
	if err != nil {
		log.Printf("❌ Search extraction failed for %s: %v", name, err)
		if errors.Is(err, pdfservice.ErrNotPDF) {
			abort(c, http.StatusBadRequest, "invalid_pdf", "The uploaded file does not appear to be a valid PDF")
			return
		}
		abort(c, http.StatusUnprocessableEntity, "extraction_failed", "PDF text extraction failed: "+err.Error())
		return
	}
	doc.Name = name

	matches := search.Find(doc.Pages, search.Compile(query))
	c.JSON(http.StatusOK, models.SearchResponse{
		Document: models.DocumentInfo{
			Source:        doc.Source,
			Kind:          models.SourceUpload,
			Name:          name,
			PageCount:     doc.PageCount,
			FragmentCount: doc.FragmentCount(),
		},
		Query:      query,
		Matches:    matches,
		Highlights: highlight.ProjectAll(matches, doc.PageHeights(), query),
		Summary:    search.Summarize(matches),
	})
}
