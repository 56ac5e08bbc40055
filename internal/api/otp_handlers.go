package api

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/friendix-ai/engagement-engine/internal/engagement"
	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/internal/otp"
)

type sendOTPRequest struct {
	Email string `json:"email"`
}

// handleSendOTP emails a one-time signup code. Already-registered
// addresses are refused before a code is spent on them.
func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		s.writeError(w, r, apperrors.NewValidationError("email is required"))
		return
	}

	if _, err := s.finder.FindByEmail(r.Context(), email); err == nil {
		s.writeError(w, r, apperrors.NewValidationError("this email is already registered"))
		return
	} else if !errors.Is(err, engagement.ErrUserNotFound) {
		s.writeError(w, r, apperrors.NewPersistenceError(err))
		return
	}

	code, err := generateOTP()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.otp.Put(r.Context(), email, code); err != nil {
		s.writeError(w, r, err)
		return
	}

	subject := "Your Friendix.ai OTP Code 💖"
	body := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in a few minutes.</p>", code)
	if err := s.email.Send(r.Context(), email, subject, body); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// handleVerifyOTP redeems a code. Success consumes it.
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.OTP == "" {
		s.writeError(w, r, apperrors.NewValidationError("email and otp are required"))
		return
	}

	if err := s.otp.TakeIfValid(r.Context(), email, req.OTP); err != nil {
		if errors.Is(err, otp.ErrCodeInvalid) {
			s.writeError(w, r, apperrors.NewAuthError("invalid or expired code"))
			return
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
