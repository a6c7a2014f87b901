package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetKindFindsWrappedError(t *testing.T) {
	base := NotFound("lead not found")
	wrapped := fmt.Errorf("load lead: %w", base)

	if got := GetKind(wrapped); got != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", got)
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatalf("expected Is(KindNotFound) to match wrapped error")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected KindUnknown for plain errors")
	}
}

func TestUnavailableMapsTo503AndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("lead store unreachable", cause)

	if err.HTTPStatus() != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", err.HTTPStatus())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := Validation("budget must be positive").WithOp("leads.update")
	if err.Error() != "leads.update: budget must be positive" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
