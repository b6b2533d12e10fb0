package failure

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorMessageIncludesURLAndCause(t *testing.T) {
	err := WithURL(KindDownload, "failed to download", "https://example.com/a.png", io.ErrUnexpectedEOF)

	msg := err.Error()
	if !strings.Contains(msg, "https://example.com/a.png") {
		t.Errorf("Expected message to contain URL, got '%s'", msg)
	}
	if !strings.HasPrefix(msg, "download error") {
		t.Errorf("Expected message to start with kind, got '%s'", msg)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Expected cause to be reachable with errors.Is")
	}
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("publish failed: %w", New(KindUpload, "failed to upload", io.EOF))

	if KindOf(err) != KindUpload {
		t.Errorf("Expected kind %s, got '%s'", KindUpload, KindOf(err))
	}
	if !Is(err, KindUpload) {
		t.Error("Expected Is to match upload kind")
	}
	if Is(err, KindFetch) {
		t.Error("Expected Is not to match fetch kind")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if kind := KindOf(io.EOF); kind != "" {
		t.Errorf("Expected empty kind, got '%s'", kind)
	}
}
