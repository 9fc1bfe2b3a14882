// Package logging builds the root slog logger shared by the relay and the ground tools.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatTint = "tint"
)

// Valid reports whether format names a known handler.
func Valid(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatTint:
		return true
	default:
		return false
	}
}

// New builds the root logger for format. The level is read from level on every record.
func New(w io.Writer, format string, level *slog.LevelVar) (*slog.Logger, error) {
	var h slog.Handler
	switch format {
	case FormatText, "":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case FormatJSON:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case FormatTint:
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.StampMilli,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(h), nil
}
