package database

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

// Limits for ListRecentDocumentLoads.
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// RecordDocumentLoad inserts one load outcome. The generated id and
// timestamp are written back into l.
func (db *DB) RecordDocumentLoad(ctx context.Context, l *models.DocumentLoad) error {
	query := `
		INSERT INTO document_loads (session_id, kind, source, name, page_count, fragment_count, status, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := db.QueryRowContext(ctx, query,
		l.SessionID, l.Kind, l.Source, l.Name,
		l.PageCount, l.FragmentCount, l.Status, l.ErrorMessage, l.DurationMS,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record document load: %w", err)
	}
	return nil
}

// ListRecentDocumentLoads returns one session's newest loads first,
// optionally filtered by status.
func (db *DB) ListRecentDocumentLoads(ctx context.Context, sessionID string, limit int, status string) ([]models.DocumentLoad, error) {
	if limit <= 0 || limit > MaxRecentLimit {
		limit = DefaultRecentLimit
	}

	var statusValue interface{}
	if status != "" {
		statusValue = status
	}

	loads := []models.DocumentLoad{}
	err := db.SelectContext(ctx, &loads,
		`SELECT * FROM document_loads
		 WHERE session_id = $1
		   AND ($2::text IS NULL OR status = $2)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		sessionID, statusValue, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list document loads: %w", err)
	}
	return loads, nil
}
