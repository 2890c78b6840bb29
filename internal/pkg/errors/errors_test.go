package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapMatchesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrExternalService, "gemini.text", cause)
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("errors.Is kind: want=true")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is cause: want=true")
	}
	if got, want := err.Error(), "gemini.text: external service error: boom"; got != want {
		t.Fatalf("Error(): want=%q got=%q", want, got)
	}
}

func TestKindOfThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("advance: %w", Newf(ErrState, "advance", "stage %s", "FAILED"))
	if got := KindOf(err); got != ErrState {
		t.Fatalf("KindOf: want=%v got=%v", ErrState, got)
	}
	if got := KindOf(errors.New("plain")); got != nil {
		t.Fatalf("KindOf plain: want=nil got=%v", got)
	}
}
