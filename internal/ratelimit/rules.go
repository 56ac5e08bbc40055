package ratelimit

import (
	"fmt"
	"time"

	"github.com/friendix-ai/engagement-engine/pkg/config"
)

// Rules resolves configured limits for the throttled endpoints.
type Rules struct {
	cfg config.RateLimitConfig
}

// NewRules builds Rules from configuration.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{cfg: cfg}
}

// Login returns the limit and window for the login endpoint.
func (r *Rules) Login() (int, time.Duration, error) {
	return parseRule(r.cfg.Login)
}

// Signup returns the limit and window for the signup endpoint.
func (r *Rules) Signup() (int, time.Duration, error) {
	return parseRule(r.cfg.Signup)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return 0, 0, fmt.Errorf("rate limit window is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, fmt.Errorf("parse rate limit window: %w", err)
	}
	return rule.Limit, window, nil
}
