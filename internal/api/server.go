// Package api exposes the web backend: account endpoints, the chat
// message surface, profile stats, the admin console, and the
// operational routes.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/friendix-ai/engagement-engine/internal/domain"
	"github.com/friendix-ai/engagement-engine/internal/engagement"
	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/internal/health"
	"github.com/friendix-ai/engagement-engine/internal/jobs"
	"github.com/friendix-ai/engagement-engine/internal/notify"
	"github.com/friendix-ai/engagement-engine/internal/otp"
	"github.com/friendix-ai/engagement-engine/internal/ratelimit"
	"github.com/friendix-ai/engagement-engine/internal/user"
	"github.com/friendix-ai/engagement-engine/internal/usercache"
	"github.com/friendix-ai/engagement-engine/pkg/logger"
)

// UserFinder fetches user records.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// MessageStore is the chat history surface the API needs.
type MessageStore interface {
	Add(ctx context.Context, msg *domain.Message) error
	History(ctx context.Context, userID int64, limit int) ([]domain.Message, error)
}

// AuditLog records and lists admin actions.
type AuditLog interface {
	Append(ctx context.Context, entry *domain.AdminLog) error
	Recent(ctx context.Context, limit int) ([]domain.AdminLog, error)
}

// Deps bundles everything the server serves from.
type Deps struct {
	Users      *user.Service
	Finder     UserFinder
	Engine     *engagement.Engine
	Messages   MessageStore
	AuditLog   AuditLog
	Sessions   *SessionStore
	OTP        *otp.Store
	Email      notify.EmailSender
	StatsCache *usercache.Cache
	Limiter    ratelimit.Limiter
	Rules      *ratelimit.Rules
	Checker    *health.Checker
	Jobs       jobs.Manager
	Errors     *apperrors.Handler
	AdminToken string
	Log        *slog.Logger
}

// Server is the HTTP handler tree.
type Server struct {
	users      *user.Service
	finder     UserFinder
	engine     *engagement.Engine
	messages   MessageStore
	audit      AuditLog
	sessions   *SessionStore
	otp        *otp.Store
	email      notify.EmailSender
	statsCache *usercache.Cache
	limiter    ratelimit.Limiter
	rules      *ratelimit.Rules
	checker    *health.Checker
	jobs       jobs.Manager
	errs       *apperrors.Handler
	adminToken string
	log        *slog.Logger
}

// NewServer constructs the Server from its dependencies.
func NewServer(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		users:      deps.Users,
		finder:     deps.Finder,
		engine:     deps.Engine,
		messages:   deps.Messages,
		audit:      deps.AuditLog,
		sessions:   deps.Sessions,
		otp:        deps.OTP,
		email:      deps.Email,
		statsCache: deps.StatsCache,
		limiter:    deps.Limiter,
		rules:      deps.Rules,
		checker:    deps.Checker,
		jobs:       deps.Jobs,
		errs:       deps.Errors,
		adminToken: deps.AdminToken,
		log:        log,
	}
}

// Handler builds the route tree with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	signupLimit, signupWindow := s.ruleOrDefault(s.rules.Signup)
	loginLimit, loginWindow := s.ruleOrDefault(s.rules.Login)

	mux.Handle("POST /api/signup",
		s.route("signup", s.withRateLimit("signup", signupLimit, signupWindow, http.HandlerFunc(s.handleSignup))))
	mux.Handle("POST /api/login",
		s.route("login", s.withRateLimit("login", loginLimit, loginWindow, http.HandlerFunc(s.handleLogin))))
	mux.Handle("POST /api/auto_login_check",
		s.route("auto_login_check", http.HandlerFunc(s.handleAutoLoginCheck)))
	mux.Handle("POST /api/send_otp",
		s.route("send_otp", s.withRateLimit("send_otp", signupLimit, signupWindow, http.HandlerFunc(s.handleSendOTP))))
	mux.Handle("POST /api/verify_otp",
		s.route("verify_otp", http.HandlerFunc(s.handleVerifyOTP)))
	mux.Handle("POST /api/request_reset",
		s.route("request_reset", s.withRateLimit("request_reset", signupLimit, signupWindow, http.HandlerFunc(s.handleRequestReset))))
	mux.Handle("POST /api/verify_reset_otp",
		s.route("verify_reset_otp", http.HandlerFunc(s.handleVerifyResetOTP)))
	mux.Handle("POST /api/update_password",
		s.route("update_password", http.HandlerFunc(s.handleUpdatePassword)))

	mux.Handle("GET /api/profile/stats",
		s.route("profile_stats", s.withSession(s.handleProfileStats)))
	mux.Handle("GET /api/messages",
		s.route("messages_list", s.withSession(s.handleListMessages)))
	mux.Handle("POST /api/messages",
		s.route("messages_send", s.withSession(s.handleSendMessage)))

	mux.Handle("POST /api/admin/users/{id}/progress",
		s.route("admin_progress", s.withAdminToken(s.handleAdminSetProgress)))
	mux.Handle("GET /api/admin/logs",
		s.route("admin_logs", s.withAdminToken(s.handleAdminLogs)))
	mux.Handle("POST /api/admin/sweep",
		s.route("admin_sweep", s.withAdminToken(s.handleAdminTriggerSweep)))

	mux.Handle("GET /health", s.route("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /metrics", promhttp.Handler())

	return logger.Middleware(withRecovery(s.log, mux))
}

func (s *Server) route(name string, h http.Handler) http.Handler {
	return withMetrics(name, h)
}

func (s *Server) ruleOrDefault(rule func() (int, time.Duration, error)) (int, time.Duration) {
	limit, window, err := rule()
	if err != nil || limit <= 0 {
		// Misconfigured rules degrade to a conservative default
		// instead of disabling the limiter.
		return 10, time.Minute
	}
	return limit, window
}
