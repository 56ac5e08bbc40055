package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/friendix-ai/engagement-engine/internal/domain"
)

// AdminLogRepository records admin console actions for audit.
type AdminLogRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewAdminLogRepository creates a new SQL-backed audit log repository.
func NewAdminLogRepository(db *sql.DB, log *slog.Logger) *AdminLogRepository {
	return &AdminLogRepository{
		db:  db,
		log: log,
	}
}

// Append writes one audit entry. Audit failures are logged but never
// block the admin action itself.
func (r *AdminLogRepository) Append(ctx context.Context, entry *domain.AdminLog) error {
	const query = `
		INSERT INTO admin_logs (admin, action, details, logged_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, entry.Admin, entry.Action, entry.Details, entry.Timestamp); err != nil {
		if r.log != nil {
			r.log.Error("failed to append admin log", slog.String("action", entry.Action), slog.Any("error", err))
		}
		return fmt.Errorf("insert admin log: %w", err)
	}

	return nil
}

// Recent returns the newest audit entries, most recent first.
func (r *AdminLogRepository) Recent(ctx context.Context, limit int) ([]domain.AdminLog, error) {
	const query = `
		SELECT id, admin, action, details, logged_at
		FROM admin_logs
		ORDER BY logged_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list admin logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AdminLog
	for rows.Next() {
		var entry domain.AdminLog
		if err := rows.Scan(&entry.ID, &entry.Admin, &entry.Action, &entry.Details, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan admin log: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
