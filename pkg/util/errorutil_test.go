package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "domain error passes through", err: NewConflict("ticket already paused", nil), code: "CONFLICT", status: http.StatusConflict},
		{name: "wrapped no rows", err: fmt.Errorf("load ticket: %w", pgx.ErrNoRows), code: "NOT_FOUND", status: http.StatusNotFound},
		{name: "invalid calendar", err: fmt.Errorf("build calendar: %w", sla.ErrInvalidWindow), code: "CALENDAR_INVALID", status: http.StatusUnprocessableEntity},
		{name: "fiber error", err: fiber.NewError(http.StatusMethodNotAllowed, "method not allowed"), code: "HTTP_ERROR", status: http.StatusMethodNotAllowed},
		{name: "unknown", err: errors.New("boom"), code: "INTERNAL_ERROR", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.code || got.HTTPStatus != tt.status {
				t.Fatalf("expected %s/%d, got %s/%d", tt.code, tt.status, got.Code, got.HTTPStatus)
			}
		})
	}

	if ToDomainError(nil) != nil {
		t.Fatal("nil error should map to nil")
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := NewInternalError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
	if err.Error() != "internal server error: db down" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
