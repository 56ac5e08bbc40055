// Package repository provides SQL-backed persistence for users, chat
// messages and admin audit logs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/friendix-ai/engagement-engine/internal/domain"
	"github.com/friendix-ai/engagement-engine/internal/engagement"
)

const userColumns = `
	id, email, display_name, hashed_password, is_banned, created_at,
	xp, level, streak, last_active, last_absence_days,
	daily_msg_sent, reengagement_level, last_reengagement_sent
`

// UserRepository persists user records together with their engagement
// state. It satisfies engagement.UserStore.
type UserRepository struct {
	db  *sql.DB
	log *slog.Logger
}

var _ engagement.UserStore = (*UserRepository)(nil)

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
	}
}

// Create persists a new user record in the database and fills in the
// generated id.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (email, display_name, hashed_password, is_banned, created_at,
			xp, level, streak, daily_msg_sent, reengagement_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	eng := user.Engagement
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.DisplayName,
		user.HashedPassword,
		user.IsBanned,
		user.CreatedAt,
		eng.XP,
		eng.Level,
		eng.Streak,
		eng.DailyMsgSent,
		eng.ReengagementLevel,
	).Scan(&user.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create user", slog.String("email", user.Email), slog.Any("error", err))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByEmail retrieves a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// UpdateEngagement overwrites the engagement columns for the user in
// one statement.
func (r *UserRepository) UpdateEngagement(ctx context.Context, id int64, eng domain.Engagement) error {
	const query = `
		UPDATE users SET
			xp = $2, level = $3, streak = $4, last_active = $5,
			last_absence_days = $6, daily_msg_sent = $7,
			reengagement_level = $8, last_reengagement_sent = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		id,
		eng.XP,
		eng.Level,
		eng.Streak,
		eng.LastActive,
		eng.LastAbsenceDays,
		eng.DailyMsgSent,
		eng.ReengagementLevel,
		eng.LastReengagementSent,
	)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to update engagement", slog.Int64("user_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("update engagement: %w", err)
	}

	return requireRow(result)
}

// UpdatePassword replaces the stored password hash for the email.
func (r *UserRepository) UpdatePassword(ctx context.Context, email, hashedPassword string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET hashed_password = $2 WHERE email = $1`, email, hashedPassword)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to update password", slog.String("email", email), slog.Any("error", err))
		}
		return fmt.Errorf("update password: %w", err)
	}

	return requireRow(result)
}

// MarkDailyNudge flips the daily_msg_sent flag only.
func (r *UserRepository) MarkDailyNudge(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET daily_msg_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark daily nudge: %w", err)
	}

	return requireRow(result)
}

// MarkReengagement records a delivered re-engagement notice.
func (r *UserRepository) MarkReengagement(ctx context.Context, id int64, tier int, sentAt time.Time) error {
	const query = `
		UPDATE users SET reengagement_level = $2, last_reengagement_sent = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, tier, sentAt.UTC())
	if err != nil {
		return fmt.Errorf("mark reengagement: %w", err)
	}

	return requireRow(result)
}

// ForEachUser streams every user row through fn in id order.
func (r *UserRepository) ForEachUser(ctx context.Context, fn func(*domain.User) error) error {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := r.scanUserRow(rows)
		if err != nil {
			return err
		}
		if err := fn(user); err != nil {
			return err
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row *sql.Row) (*domain.User, error) {
	user, err := r.scanUserRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engagement.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) scanUserRow(row rowScanner) (*domain.User, error) {
	var (
		user       domain.User
		lastActive sql.NullTime
		lastSent   sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.HashedPassword,
		&user.IsBanned,
		&user.CreatedAt,
		&user.Engagement.XP,
		&user.Engagement.Level,
		&user.Engagement.Streak,
		&lastActive,
		&user.Engagement.LastAbsenceDays,
		&user.Engagement.DailyMsgSent,
		&user.Engagement.ReengagementLevel,
		&lastSent,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		if r.log != nil {
			r.log.Error("failed to scan user row", slog.Any("error", err))
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if lastActive.Valid {
		t := lastActive.Time.UTC()
		user.Engagement.LastActive = &t
	}
	if lastSent.Valid {
		t := lastSent.Time.UTC()
		user.Engagement.LastReengagementSent = &t
	}

	return &user, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return engagement.ErrUserNotFound
	}
	return nil
}
