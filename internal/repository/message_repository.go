package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/friendix-ai/engagement-engine/internal/domain"
)

// MessageRepository persists companion chat history.
type MessageRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewMessageRepository creates a new SQL-backed message repository.
func NewMessageRepository(db *sql.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		db:  db,
		log: log,
	}
}

// Add appends one message to a user's chat history.
func (r *MessageRepository) Add(ctx context.Context, msg *domain.Message) error {
	const query = `
		INSERT INTO messages (user_id, sender, body, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := r.db.QueryRowContext(ctx, query, msg.UserID, msg.Sender, msg.Body, msg.SentAt).Scan(&msg.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to insert message", slog.Int64("user_id", msg.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// History returns a user's messages in send order, newest last.
func (r *MessageRepository) History(ctx context.Context, userID int64, limit int) ([]domain.Message, error) {
	const query = `
		SELECT id, user_id, sender, body, sent_at
		FROM messages
		WHERE user_id = $1
		ORDER BY sent_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Sender, &msg.Body, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// DeleteOlderThan removes messages past the retention window and
// returns how many were deleted.
func (r *MessageRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	const query = `DELETE FROM messages WHERE sent_at < NOW() - ($1 || ' days')::interval`

	result, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, fmt.Errorf("delete old messages: %w", err)
	}

	return result.RowsAffected()
}
