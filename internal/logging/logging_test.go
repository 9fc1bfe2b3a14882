package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	var level slog.LevelVar
	level.Set(slog.LevelInfo)

	for _, format := range []string{FormatText, FormatJSON, FormatTint} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(&buf, format, &level)
			if err != nil {
				t.Fatal(err)
			}
			logger.Debug("hidden")
			logger.Info("visible", "cycle", 3)

			out := buf.String()
			if strings.Contains(out, "hidden") {
				t.Errorf("Debug record should be filtered: %s", out)
			}
			if !strings.Contains(out, "visible") {
				t.Errorf("Expected info record, got %q", out)
			}
			if format == FormatJSON && !json.Valid(bytes.TrimSpace(buf.Bytes())) {
				t.Errorf("Expected JSON output, got %q", out)
			}
		})
	}

	if _, err := New(&bytes.Buffer{}, "xml", &level); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestValid(t *testing.T) {
	for format, want := range map[string]bool{FormatText: true, FormatJSON: true, FormatTint: true, "": false, "xml": false} {
		if got := Valid(format); got != want {
			t.Errorf("Valid(%q): expected %v, got %v", format, want, got)
		}
	}
}
