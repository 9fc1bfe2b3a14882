package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/roman-kulish/rf-relay/internal/logging"
	"github.com/roman-kulish/rf-relay/internal/spectrum"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	Bands         []spectrum.Band
	BinWidth      float64       // degrees of heading per column
	RowDuration   time.Duration // time covered by one row
	CellSize      int           // pixels per cell side
	MinLevel      *float64
	MaxLevel      *float64
	TimeZone      *time.Location
	IncludeNoFix  bool // place samples without a valid heading at 0°
	NoAnnotations bool
	LogFormat     string
	Verbose       bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:      ImagePNG,
		Theme:       ClassicTheme,
		Bands:       spectrum.Bands,
		BinWidth:    5,
		RowDuration: 5 * time.Second,
		CellSize:    4,
		TimeZone:    time.Local,
		LogFormat:   logging.FormatText,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, theme, band, tz string
	var minLevel, maxLevel float64
	fs.StringVar(&c.DBPath, "db", "", "Path to the flight recorder database file")
	fs.Int64Var(&c.SessionID, "s", 1, "Session ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(ClassicTheme), "Color theme. [classic, grayscale, jungle, thermal, marine]")
	fs.StringVar(&band, "band", "all", "Band to render. [low, high, all]")
	fs.Float64Var(&c.BinWidth, "bin", c.BinWidth, "Heading bin width in degrees")
	fs.DurationVar(&c.RowDuration, "row", c.RowDuration, "Time covered by one image row")
	fs.IntVar(&c.CellSize, "cell", c.CellSize, "Cell size in pixels")
	fs.Float64Var(&minLevel, "min-level", 0, "Define a manual minimum level in dBm (format nn.n)")
	fs.Float64Var(&maxLevel, "max-level", 0, "Define a manual maximum level in dBm (format nn.n)")
	fs.StringVar(&tz, "tz", "Local", "Time zone for time labels")
	fs.BoolVar(&c.IncludeNoFix, "include-no-fix", false, "Place samples without a valid heading at 0°")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format. [text, json, tint]")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and heading scales")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "min-level" {
			c.MinLevel = &minLevel
		}
		if f.Name == "max-level" {
			c.MaxLevel = &maxLevel
		}
	})

	imageFormat = strings.ToLower(imageFormat)
	c.Theme = ColorTheme(strings.ToLower(theme))

	var err error
	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.SessionID <= 0:
		err = errors.New("session id is required")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.BinWidth <= 0 || c.BinWidth > 90:
		err = fmt.Errorf("invalid bin width: %v", c.BinWidth)
	case c.RowDuration <= 0:
		err = fmt.Errorf("invalid row duration: %s", c.RowDuration)
	case c.CellSize <= 0:
		err = fmt.Errorf("invalid cell size: %d", c.CellSize)
	case !logging.Valid(c.LogFormat):
		err = fmt.Errorf("invalid log format: %s", c.LogFormat)
	case c.MinLevel != nil && c.MaxLevel != nil && *c.MinLevel >= *c.MaxLevel:
		err = fmt.Errorf("min level %.1f must be below max level %.1f", *c.MinLevel, *c.MaxLevel)
	}
	if err == nil {
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		} else if !validTheme(c.Theme) {
			err = fmt.Errorf("invalid color theme: %s", theme)
		}
	}
	if err == nil {
		c.Bands, err = parseBands(band)
	}
	if err == nil {
		c.TimeZone, err = time.LoadLocation(tz)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

// LogLevel is the minimum level logged by the tool.
func (c *Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func parseBands(s string) ([]spectrum.Band, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return spectrum.Bands, nil
	case "low":
		return []spectrum.Band{spectrum.LowBand}, nil
	case "high":
		return []spectrum.Band{spectrum.HighBand}, nil
	default:
		return nil, fmt.Errorf("invalid band: %s", s)
	}
}
