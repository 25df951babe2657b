package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", NewValidationError("text required", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("post: %w", NewValidationError("x", nil)), "VALIDATION_FAILED", http.StatusBadRequest},
		{"no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"fiber", fiber.NewError(http.StatusMethodNotAllowed, "nope"), http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed},
		{"generic", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			if de.Code != tt.code {
				t.Errorf("code: got %q want %q", de.Code, tt.code)
			}
			if de.HTTPStatus != tt.status {
				t.Errorf("status: got %d want %d", de.HTTPStatus, tt.status)
			}
		})
	}

	if ToDomainError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
