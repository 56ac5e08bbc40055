package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendix-ai/engagement-engine/internal/domain"
)

type memMessages struct {
	added []domain.Message
	err   error
}

func (m *memMessages) Add(_ context.Context, msg *domain.Message) error {
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, *msg)
	return nil
}

type memEmails struct {
	sent []sentEmail
	err  error
}

type sentEmail struct {
	to      string
	subject string
	html    string
}

func (m *memEmails) Send(_ context.Context, to, subject, html string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, html: html})
	return nil
}

func newTestNotifier(messages *memMessages, emails *memEmails) *Notifier {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotifier(messages, emails, "https://app.example.com/login", log)
}

func TestNotifier_SendInApp(t *testing.T) {
	messages := &memMessages{}
	notifier := newTestNotifier(messages, &memEmails{})
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, notifier.SendInApp(context.Background(), 42, "hey there", at))

	require.Len(t, messages.added, 1)
	msg := messages.added[0]
	assert.Equal(t, int64(42), msg.UserID)
	assert.Equal(t, domain.SenderCompanion, msg.Sender)
	assert.Equal(t, "hey there", msg.Body)
	assert.Equal(t, at, msg.SentAt)
}

func TestNotifier_SendInApp_WriteFails(t *testing.T) {
	messages := &memMessages{err: errors.New("db down")}
	notifier := newTestNotifier(messages, &memEmails{})

	err := notifier.SendInApp(context.Background(), 42, "hey there", time.Now())
	assert.Error(t, err)
}

func TestNotifier_SendReengagement(t *testing.T) {
	emails := &memEmails{}
	notifier := newTestNotifier(&memMessages{}, emails)
	user := &domain.User{ID: 7, Email: "alex@example.com", DisplayName: "Alex"}

	require.NoError(t, notifier.SendReengagement(context.Background(), user, 3))

	require.Len(t, emails.sent, 1)
	assert.Equal(t, "alex@example.com", emails.sent[0].to)
	assert.Equal(t, "Are you okay? 😟", emails.sent[0].subject)
	assert.Contains(t, emails.sent[0].html, "Hey Alex")
}

func TestNotifier_SendReengagement_DeliveryFails(t *testing.T) {
	emails := &memEmails{err: errors.New("provider down")}
	notifier := newTestNotifier(&memMessages{}, emails)
	user := &domain.User{ID: 7, Email: "alex@example.com", DisplayName: "Alex"}

	err := notifier.SendReengagement(context.Background(), user, 3)
	assert.Error(t, err)
	assert.Empty(t, emails.sent)
}

func TestNotifier_SendReengagement_InvalidTier(t *testing.T) {
	emails := &memEmails{}
	notifier := newTestNotifier(&memMessages{}, emails)
	user := &domain.User{ID: 7, Email: "alex@example.com"}

	err := notifier.SendReengagement(context.Background(), user, 0)
	assert.Error(t, err)
	assert.Empty(t, emails.sent)
}
