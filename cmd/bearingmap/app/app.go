package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rf-relay/internal/spectrum"
	"github.com/roman-kulish/rf-relay/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("loading session %d: %w", config.SessionID, err)
	}

	logger.Info("session",
		slog.Int64("id", session.ID),
		slog.String("deviceID", session.DeviceID),
		slog.String("started", humanize.Time(session.StartTime)))

	hist := NewLevelHistogram()
	grids, err := readGrids(ctx, store, config, hist, logger)
	if err != nil {
		return err
	}
	if len(grids) == 0 {
		return fmt.Errorf("session %d has no samples: %w", config.SessionID, storage.ErrNoData)
	}

	bounds := hist.Bounds().WithOverrides(config.MinLevel, config.MaxLevel)
	renderer := NewBearingRenderer(RenderConfig{
		Location:   config.TimeZone,
		ColorTheme: config.Theme,
		CellSize:   config.CellSize,
		Annotate:   !config.NoAnnotations,
	})

	img, err := renderer.Render(grids, bounds)
	if err != nil {
		return fmt.Errorf("rendering bearing map: %w", err)
	}

	logger.Info("rendering bearing map",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Any("bands", bandsOf(grids)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
			slog.String("minLevel", fmt.Sprintf("%.1fdBm", bounds.Min)),
			slog.String("maxLevel", fmt.Sprintf("%.1fdBm", bounds.Max)),
		))

	return writeImage(config.OutputFile, config.Format, img, logger)
}

func readGrids(ctx context.Context, store storage.Store, config *Config, hist *LevelHistogram, logger *slog.Logger) ([]*BearingGrid, error) {
	var grids []*BearingGrid
	for _, band := range config.Bands {
		stats, err := store.Stats(ctx, config.SessionID, storage.WithBand(band))
		if errors.Is(err, storage.ErrNoData) {
			logger.Warn("no samples recorded for band", slog.String("band", band.String()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s band stats: %w", band, err)
		}

		logger.Info("reading samples",
			slog.String("band", band.String()),
			slog.String("count", humanize.Comma(stats.Count)),
			slog.String("from", stats.Start.In(config.TimeZone).Format(time.DateTime)),
			slog.String("to", stats.End.In(config.TimeZone).Format(time.DateTime)))

		grid := NewBearingGrid(band, config.BinWidth, config.RowDuration, stats.Start, stats.End)
		if err = fillGrid(ctx, store, config, grid, hist); err != nil {
			return nil, fmt.Errorf("reading %s band samples: %w", band, err)
		}
		grids = append(grids, grid)
	}
	return grids, nil
}

func fillGrid(ctx context.Context, store storage.Store, config *Config, grid *BearingGrid, hist *LevelHistogram) error {
	reader, err := store.ReadSamples(ctx, config.SessionID, storage.WithBand(grid.Band))
	if err != nil {
		return err
	}
	defer reader.Close()

	for reader.Next(ctx) {
		s := reader.Current()
		if grid.Add(s.ScanSample, config.IncludeNoFix) {
			hist.Update(s.Level)
		}
	}
	return reader.Error()
}

func writeImage(path string, format ImageFormat, img image.Image, logger *slog.Logger) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if err = encodeImage(out, format, img); err != nil {
		_ = out.Close()
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	if err = out.Close(); err != nil {
		return err
	}

	if info, err := os.Stat(path); err == nil {
		logger.Info("bearing map written",
			slog.String("destination", path),
			slog.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	return nil
}

func encodeImage(w io.Writer, format ImageFormat, img image.Image) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 98})
	default:
		return fmt.Errorf("unsupported image format: %s", format)
	}
}

// bandsOf lists the bands present in grids, in render order.
func bandsOf(grids []*BearingGrid) []spectrum.Band {
	bands := make([]spectrum.Band, 0, len(grids))
	for _, g := range grids {
		bands = append(bands, g.Band)
	}
	return bands
}
