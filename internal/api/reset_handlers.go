package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/friendix-ai/engagement-engine/internal/engagement"
	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/internal/otp"
)

// resetTokenTTL bounds the window between code verification and the
// password update.
const resetTokenTTL = 10 * time.Minute

func resetCodeKey(email string) string  { return "reset:" + email }
func resetTokenKey(email string) string { return "reset_token:" + email }

type requestResetRequest struct {
	Email string `json:"email"`
}

// handleRequestReset emails a password-reset code. The response is the
// same whether or not the address has an account, so the endpoint
// cannot be used to enumerate registered emails.
func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		s.writeError(w, r, apperrors.NewValidationError("email is required"))
		return
	}

	neutral := map[string]any{"success": true, "message": "code sent if the email is registered"}

	if _, err := s.finder.FindByEmail(r.Context(), email); err != nil {
		if errors.Is(err, engagement.ErrUserNotFound) {
			writeJSON(w, http.StatusOK, neutral)
			return
		}
		s.writeError(w, r, apperrors.NewPersistenceError(err))
		return
	}

	code, err := generateOTP()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.otp.Put(r.Context(), resetCodeKey(email), code); err != nil {
		s.writeError(w, r, err)
		return
	}

	subject := "Your Friendix.ai Password Reset Code 💖"
	body := fmt.Sprintf("<p>Your password reset code is <strong>%s</strong>. It expires in a few minutes.</p>", code)
	if err := s.email.Send(r.Context(), email, subject, body); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, neutral)
}

type verifyResetRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// handleVerifyResetOTP redeems the reset code and hands back a
// short-lived token the client presents on the password update.
func (s *Server) handleVerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyResetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.OTP == "" {
		s.writeError(w, r, apperrors.NewValidationError("email and otp are required"))
		return
	}

	if err := s.otp.TakeIfValid(r.Context(), resetCodeKey(email), req.OTP); err != nil {
		if errors.Is(err, otp.ErrCodeInvalid) {
			s.writeError(w, r, apperrors.NewAuthError("invalid or expired code"))
			return
		}
		s.writeError(w, r, err)
		return
	}

	token := uuid.NewString()
	if err := s.otp.PutFor(r.Context(), resetTokenKey(email), token, resetTokenTTL); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

type updatePasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// handleUpdatePassword finalizes the reset: the token from the verify
// step is consumed and the new password stored.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Token == "" || req.NewPassword == "" {
		s.writeError(w, r, apperrors.NewValidationError("email, token and new_password are required"))
		return
	}

	if err := s.otp.TakeIfValid(r.Context(), resetTokenKey(email), req.Token); err != nil {
		if errors.Is(err, otp.ErrCodeInvalid) {
			s.writeError(w, r, apperrors.NewAuthError("invalid or expired reset token"))
			return
		}
		s.writeError(w, r, err)
		return
	}

	if err := s.users.ResetPassword(r.Context(), email, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password updated"})
}
