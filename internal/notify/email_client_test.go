package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/pkg/config"
)

func emailTestConfig(apiBase string) config.EmailConfig {
	return config.EmailConfig{
		Enabled:    true,
		APIBase:    apiBase,
		APIKey:     "test-key",
		Sender:     "luvisa@example.com",
		SenderName: "Luvisa",
	}
}

func TestEmailClient_Send(t *testing.T) {
	var got brevoPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewEmailClient(emailTestConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := client.Send(context.Background(), "alex@example.com", "hi", "<p>hi</p>")
	require.NoError(t, err)

	assert.Equal(t, "luvisa@example.com", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "alex@example.com", got.To[0].Email)
	assert.Equal(t, "hi", got.Subject)
	assert.Equal(t, "<p>hi</p>", got.HTMLContent)
}

func TestEmailClient_Disabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("disabled client must not call the provider")
	}))
	defer srv.Close()

	cfg := emailTestConfig(srv.URL)
	cfg.Enabled = false
	client := NewEmailClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, client.Send(context.Background(), "alex@example.com", "hi", "<p>hi</p>"))
}

func TestEmailClient_ClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"bad sender"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewEmailClient(emailTestConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := client.Send(context.Background(), "alex@example.com", "hi", "<p>hi</p>")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmailClient_ServerErrorRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewEmailClient(emailTestConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := client.Send(context.Background(), "alex@example.com", "hi", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmailClient_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewEmailClient(emailTestConfig(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := client.post(context.Background(), "alex@example.com", "hi", "<p>hi</p>")
	assert.True(t, apperrors.IsRetryable(err))
}
