package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500 with a generic message; internals
// never leak to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	userMessage, _ := s.errs.Handle(r.Context(), err)

	status := http.StatusInternalServerError
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr != nil {
		switch appErr.Code {
		case "E100":
			status = http.StatusBadRequest
		case "E110":
			status = http.StatusNotFound
		case "E400":
			status = http.StatusUnauthorized
		case "E500":
			status = http.StatusTooManyRequests
		}
	}

	if userMessage == "" {
		userMessage = "Something went wrong, please try again later"
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}

	writeJSON(w, status, errorResponse{Success: false, Message: userMessage})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("request body is not valid JSON")
	}
	return nil
}
