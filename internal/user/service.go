// Package user implements account operations: signup, password
// authentication, and profile progress reads.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/friendix-ai/engagement-engine/internal/domain"
	"github.com/friendix-ai/engagement-engine/internal/engagement"
	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/pkg/metrics"
)

const minPasswordLen = 8

// Repository is the persistence surface the service needs.
type Repository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, email, hashedPassword string) error
}

// Service provides business operations over accounts.
type Service struct {
	repo   Repository
	engine *engagement.Engine
	log    *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, engine *engagement.Engine, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{repo: repo, engine: engine, log: log}
}

// Register creates an account with a fresh engagement record. The
// email must be unused and the password long enough to hash.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required")
	}
	if len(password) < minPasswordLen {
		return nil, apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.NewValidationError("this email is already registered")
	} else if !errors.Is(err, engagement.ErrUserNotFound) {
		return nil, fmt.Errorf("check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:          email,
		DisplayName:    displayName,
		HashedPassword: string(hash),
		CreatedAt:      time.Now().UTC(),
		Engagement:     domain.NewEngagement(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.log.Error("failed to create account", slog.String("email", email), slog.Any("error", err))
		return nil, apperrors.NewPersistenceError(err)
	}

	s.log.Info("account created", slog.Int64("user_id", user.ID))
	return user, nil
}

// Authenticate verifies the password for the email. Unknown accounts
// and wrong passwords return the same auth error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, engagement.ErrUserNotFound) {
			return nil, apperrors.NewAuthError("invalid email or password")
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if user.IsBanned {
		return nil, apperrors.NewAuthError("this account is suspended")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, apperrors.NewAuthError("invalid email or password")
	}

	return user, nil
}

// ResetPassword replaces the account's password. The caller must have
// verified the reset token first.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = normalizeEmail(email)
	if len(newPassword) < minPasswordLen {
		return apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, email, string(hash)); err != nil {
		if errors.Is(err, engagement.ErrUserNotFound) {
			return apperrors.NewRecordNotFoundError("user")
		}
		s.log.Error("failed to update password", slog.String("email", email), slog.Any("error", err))
		return apperrors.NewPersistenceError(err)
	}

	s.log.Info("password reset completed", slog.String("email", email))
	return nil
}

// Login authenticates and applies the login-time engagement update.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, *engagement.LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		metrics.RecordLogin("denied")
		return nil, nil, err
	}

	result, err := s.engine.ApplyLogin(ctx, user)
	if err != nil {
		metrics.RecordLogin("error")
		return nil, nil, err
	}

	metrics.RecordLogin("ok")
	if result.DailyBonus {
		metrics.RecordDailyBonus(result.XPAwarded)
	}

	return user, result, nil
}

// Stats is the progress summary shown on the profile page.
type Stats struct {
	XP          int `json:"xp"`
	Level       int `json:"level"`
	NextLevelXP int `json:"next_level_xp"`
	Streak      int `json:"streak"`
	AbsenceDays int `json:"last_absence_days"`
}

// GetStats returns the user's progress summary.
func (s *Service) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, engagement.ErrUserNotFound) {
			return nil, apperrors.NewRecordNotFoundError("user")
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	eng := user.Engagement
	return &Stats{
		XP:          eng.XP,
		Level:       eng.Level,
		NextLevelXP: engagement.NextLevelXP(eng.Level),
		Streak:      eng.Streak,
		AbsenceDays: eng.LastAbsenceDays,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
