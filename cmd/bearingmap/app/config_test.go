package app

import (
	"flag"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/roman-kulish/rf-relay/internal/logging"
	"github.com/roman-kulish/rf-relay/internal/spectrum"
)

func parseTestFlags(args ...string) (*Config, error) {
	fs := flag.NewFlagSet("bearingmap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseFlags(fs, args)
}

func TestParseFlagsDefaults(t *testing.T) {
	c, err := parseTestFlags("-db", "flight.sqlite", "-o", "map")
	if err != nil {
		t.Fatal(err)
	}

	if c.OutputFile != "map.png" {
		t.Errorf("Expected output file map.png, got %s", c.OutputFile)
	}
	if c.SessionID != 1 {
		t.Errorf("Expected session 1, got %d", c.SessionID)
	}
	if c.Theme != ClassicTheme {
		t.Errorf("Expected classic theme, got %s", c.Theme)
	}
	if !reflect.DeepEqual(c.Bands, spectrum.Bands) {
		t.Errorf("Expected all bands, got %v", c.Bands)
	}
	if c.BinWidth != 5 || c.RowDuration != 5*time.Second || c.CellSize != 4 {
		t.Errorf("Unexpected grid defaults: bin %v, row %s, cell %d", c.BinWidth, c.RowDuration, c.CellSize)
	}
	if c.LogFormat != logging.FormatText || c.LogLevel() != slog.LevelInfo {
		t.Errorf("Expected text logging at info, got %s at %s", c.LogFormat, c.LogLevel())
	}
	if c.MinLevel != nil || c.MaxLevel != nil {
		t.Errorf("Expected no level overrides, got %v and %v", c.MinLevel, c.MaxLevel)
	}
}

func TestParseFlagsOverrides(t *testing.T) {
	c, err := parseTestFlags(
		"-db", "flight.sqlite", "-s", "3", "-o", "map", "-f", "JPEG",
		"-theme", "thermal", "-band", "high", "-bin", "2.5", "-row", "1s",
		"-cell", "2", "-min-level", "-110", "-max-level", "-20.5",
		"-tz", "UTC", "-include-no-fix", "-no-annotations",
		"-log-format", "json", "-verbose",
	)
	if err != nil {
		t.Fatal(err)
	}

	if c.OutputFile != "map.jpeg" || c.Format != ImageJPEG {
		t.Errorf("Expected map.jpeg, got %s (%s)", c.OutputFile, c.Format)
	}
	if c.SessionID != 3 {
		t.Errorf("Expected session 3, got %d", c.SessionID)
	}
	if c.Theme != ThermalTheme {
		t.Errorf("Expected thermal theme, got %s", c.Theme)
	}
	if !reflect.DeepEqual(c.Bands, []spectrum.Band{spectrum.HighBand}) {
		t.Errorf("Expected high band only, got %v", c.Bands)
	}
	if c.BinWidth != 2.5 || c.RowDuration != time.Second || c.CellSize != 2 {
		t.Errorf("Unexpected grid settings: bin %v, row %s, cell %d", c.BinWidth, c.RowDuration, c.CellSize)
	}
	if c.MinLevel == nil || *c.MinLevel != -110 {
		t.Errorf("Expected min level -110, got %v", c.MinLevel)
	}
	if c.MaxLevel == nil || *c.MaxLevel != -20.5 {
		t.Errorf("Expected max level -20.5, got %v", c.MaxLevel)
	}
	if c.TimeZone != time.UTC {
		t.Errorf("Expected UTC, got %s", c.TimeZone)
	}
	if c.LogFormat != logging.FormatJSON || c.LogLevel() != slog.LevelDebug {
		t.Errorf("Expected json logging at debug, got %s at %s", c.LogFormat, c.LogLevel())
	}
	if !c.IncludeNoFix || !c.NoAnnotations {
		t.Error("Expected boolean flags to be set")
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing db", []string{"-o", "map"}},
		{"missing output", []string{"-db", "x"}},
		{"bad session", []string{"-db", "x", "-o", "map", "-s", "0"}},
		{"bad format", []string{"-db", "x", "-o", "map", "-f", "gif"}},
		{"bad theme", []string{"-db", "x", "-o", "map", "-theme", "sepia"}},
		{"bad band", []string{"-db", "x", "-o", "map", "-band", "mid"}},
		{"zero bin", []string{"-db", "x", "-o", "map", "-bin", "0"}},
		{"wide bin", []string{"-db", "x", "-o", "map", "-bin", "120"}},
		{"zero row", []string{"-db", "x", "-o", "map", "-row", "0s"}},
		{"zero cell", []string{"-db", "x", "-o", "map", "-cell", "0"}},
		{"inverted levels", []string{"-db", "x", "-o", "map", "-min-level", "-20", "-max-level", "-90"}},
		{"bad time zone", []string{"-db", "x", "-o", "map", "-tz", "Mars/Olympus"}},
		{"bad log format", []string{"-db", "x", "-o", "map", "-log-format", "xml"}},
		{"unknown flag", []string{"-db", "x", "-o", "map", "-freq", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTestFlags(tt.args...); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
