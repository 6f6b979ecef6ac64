package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

// LogRepository appends activity records to the logs table.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository constructs the repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Append inserts entry.
func (r *LogRepository) Append(ctx context.Context, entry models.LogEntry) error {
	const query = `INSERT INTO logs (usuario, action, created_at, libro_id, request_id) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, entry.Usuario, entry.Action, entry.CreatedAt, entry.LibroID, entry.RequestID); err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}
