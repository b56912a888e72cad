package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Info("claimed uid", slog.String(FieldComponent, "manifest"), slog.String(FieldUID, "RTS-0042"))

	line := buf.String()
	if !strings.Contains(line, "INFO manifest: claimed uid") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "uid=RTS-0042") {
		t.Fatalf("expected uid attribute in line: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	handler := newConsoleHandler(&buf, levelVar, false)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFormatValueQuotesSpaces(t *testing.T) {
	got := formatValue(slog.StringValue("two words"))
	if got != `"two words"` {
		t.Fatalf("unexpected quoting: %q", got)
	}
}
