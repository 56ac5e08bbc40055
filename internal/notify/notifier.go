package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/friendix-ai/engagement-engine/internal/domain"
	"github.com/friendix-ai/engagement-engine/internal/engagement"
)

// MessageWriter appends one message to a user's chat history.
type MessageWriter interface {
	Add(ctx context.Context, msg *domain.Message) error
}

// Notifier routes engagement notices: daily nudges land in the chat
// history as companion messages, re-engagement notices go out by
// email.
type Notifier struct {
	messages MessageWriter
	email    EmailSender
	loginURL string
	log      *slog.Logger
}

var _ engagement.Notifier = (*Notifier)(nil)

// NewNotifier wires the two delivery channels together.
func NewNotifier(messages MessageWriter, email EmailSender, loginURL string, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{
		messages: messages,
		email:    email,
		loginURL: loginURL,
		log:      log,
	}
}

// SendInApp appends a companion message to the user's history.
func (n *Notifier) SendInApp(ctx context.Context, userID int64, text string, at time.Time) error {
	msg := &domain.Message{
		UserID: userID,
		Sender: domain.SenderCompanion,
		Body:   text,
		SentAt: at,
	}
	if err := n.messages.Add(ctx, msg); err != nil {
		return fmt.Errorf("write in-app nudge: %w", err)
	}

	n.log.Debug("in-app nudge delivered", slog.Int64("user_id", userID))
	return nil
}

// SendReengagement renders the notice for the tier and emails it.
func (n *Notifier) SendReengagement(ctx context.Context, user *domain.User, tier int) error {
	subject, html, err := Render(tier, user.DisplayName, n.loginURL)
	if err != nil {
		return err
	}

	if err := n.email.Send(ctx, user.Email, subject, html); err != nil {
		return err
	}

	n.log.Info("re-engagement notice sent",
		slog.Int64("user_id", user.ID),
		slog.Int("tier", tier))
	return nil
}
