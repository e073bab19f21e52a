package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := WithMetadata(CodeSlippageExceeded, "output below minimum", map[string]string{"min_out": "91", "out": "90"})
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected slippage match")
	}
	if errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("unexpected invalid amount match")
	}

	wrapped := fmt.Errorf("swap: %w", err)
	if !errors.Is(wrapped, ErrSlippageExceeded) {
		t.Fatalf("expected match through fmt wrapping")
	}
	if got := CodeOf(wrapped); got != CodeSlippageExceeded {
		t.Fatalf("code mismatch: %s", got)
	}
}

func TestErrorMessageIncludesSortedMetadataAndCause(t *testing.T) {
	err := Wrap(CodeConflict, "commit", errors.New("serialization failure"))
	err.Metadata = map[string]string{"b": "2", "a": "1"}

	want := "commit (a=1, b=2): serialization failure"
	if err.Error() != want {
		t.Fatalf("message mismatch: %q != %q", err.Error(), want)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %s", got)
	}
	if !CodeConflict.Retryable() || CodePoolLocked.Retryable() {
		t.Fatalf("retryable classification mismatch")
	}
}
