// Package notify renders and delivers engagement notices: in-app
// nudges written to the chat history and re-engagement emails sent
// through a transactional email API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/pkg/config"
)

const sendTimeout = 10 * time.Second

// EmailSender delivers one rendered email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// brevoPayload is the provider's transactional send request.
type brevoPayload struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// EmailClient talks to the Brevo transactional API. Calls run behind a
// circuit breaker so a provider outage fails fast instead of stalling
// every sweep worker on timeouts.
type EmailClient struct {
	cfg     config.EmailConfig
	http    *http.Client
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

var _ EmailSender = (*EmailClient)(nil)

// NewEmailClient builds the provider client from configuration.
func NewEmailClient(cfg config.EmailConfig, log *slog.Logger) *EmailClient {
	if log == nil {
		log = slog.Default()
	}

	return &EmailClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: sendTimeout},
		breaker: apperrors.NewCircuitBreaker(apperrors.EmailBreakerSettings()),
		log:     log,
	}
}

// Send posts one email through the provider. Transient failures are
// retried with backoff inside a single breaker call.
func (c *EmailClient) Send(ctx context.Context, to, subject, html string) error {
	if !c.cfg.Enabled {
		c.log.Info("email delivery disabled, dropping notice",
			slog.String("to", to), slog.String("subject", subject))
		return nil
	}

	return c.breaker.Call(func() error {
		return apperrors.WithRetry(ctx, func() error {
			return c.post(ctx, to, subject, html)
		})
	})
}

func (c *EmailClient) post(ctx context.Context, to, subject, html string) error {
	payload := brevoPayload{
		Sender:      brevoAddress{Name: c.cfg.SenderName, Email: c.cfg.Sender},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}

	url := strings.TrimRight(c.cfg.APIBase, "/") + "/v3/smtp/email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failures are worth another attempt.
		return apperrors.NewDispatchError("email", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		cause := fmt.Errorf("email provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return apperrors.NewDispatchError("email", cause)
		}
		// 4xx means the request itself is bad; retrying cannot help.
		return cause
	}

	return nil
}
