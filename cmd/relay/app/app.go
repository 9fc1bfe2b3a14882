package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rf-relay/internal/hw"
	"github.com/roman-kulish/rf-relay/internal/lora"
	"github.com/roman-kulish/rf-relay/internal/mirror"
	"github.com/roman-kulish/rf-relay/internal/power"
	"github.com/roman-kulish/rf-relay/internal/scan"
	"github.com/roman-kulish/rf-relay/internal/storage"
	"github.com/roman-kulish/rf-relay/internal/telemetry"
)

const (
	storageDir = "data"
)

// Run brings up the hardware and runs the scan loop until ctx is cancelled or a
// peripheral fails.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	h, err := hw.Open(config.Hardware)
	if err != nil {
		return fmt.Errorf("opening hardware: %w", err)
	}
	defer h.Close()

	radio := lora.New(h.RadioBus, h.RadioSelect, h.RadioReset, lora.WithLogger(logger))
	if err = radio.Initialize(config.Radio); err != nil {
		return fmt.Errorf("initializing transceiver: %w", err)
	}
	defer func() {
		if err := radio.Sleep(); err != nil {
			logger.Warn("putting transceiver to sleep", "error", err)
		}
	}()

	sampler, err := power.NewSampler(h.ReceiverBus, h.ReceiverSelect, config.Receiver, power.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating power sampler: %w", err)
	}

	source, closeSource, err := createAttitudeSource(&config.Attitude, logger)
	if err != nil {
		return fmt.Errorf("creating attitude source: %w", err)
	}
	defer closeSource()

	heading := telemetry.NewProvider(source, telemetry.NewDecoder(config.Attitude.Strictness), telemetry.WithLogger(logger))

	options := []func(*scan.Sequencer){scan.WithLogger(logger)}

	if config.Storage.Enabled {
		store, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("creating storage: %w", err)
		}
		defer store.Close()

		sessionID, err := store.CreateSession(ctx, config.Settings.DeviceID, config)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		logger.Info("recording session", "session_id", sessionID)
		options = append(options, scan.WithRecorder(&storeRecorder{store: store, sessionID: sessionID}))
	}

	if config.Mirror.Enabled {
		client, err := mirror.NewClient(config.Mirror, config.Settings.DeviceID, mirror.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("creating mirror: %w", err)
		}
		defer client.Disconnect()

		// The broker is optional ground equipment; the relay flies without it.
		go func() {
			if err := client.Connect(ctx); err != nil {
				logger.Warn("mirror connect", "error", err)
			}
		}()
		options = append(options, scan.WithRecorder(client))
	}

	seq, err := scan.New(config.Scan, scan.Peripherals{
		Switch:      h.BandSwitch,
		Sampler:     sampler,
		Heading:     heading,
		Transmitter: radio,
		Indicator:   h.Status,
	}, options...)
	if err != nil {
		return fmt.Errorf("creating sequencer: %w", err)
	}

	started := time.Now()
	err = seq.Run(ctx)
	logger.Info("relay stopped",
		"cycles", humanize.Comma(int64(seq.Cycles())),
		"uptime", humanize.RelTime(started, time.Now(), "", ""))
	return err
}

func createAttitudeSource(config *AttitudeConfig, logger *slog.Logger) (telemetry.Source, func(), error) {
	if !config.Enabled {
		logger.Warn("attitude link disabled, heading will be reported as 0")
		return telemetry.NoFrames, func() {}, nil
	}

	src, err := telemetry.OpenSerial(config.Config, telemetry.WithSourceLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := src.Close(); err != nil {
			logger.Warn("closing attitude source", "error", err)
		}
	}

	if config.HasCredentials() {
		if err = src.Activate(config.AppID, config.AppKey, config.ActivationDelay.Std()); err != nil {
			closer()
			return nil, nil, fmt.Errorf("activating attitude source: %w", err)
		}
	}
	return src, closer, nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	dbPath := config.DataDirectory
	if dbPath == "" {
		dbPath = storageDir
	}
	if !filepath.IsAbs(dbPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dbPath = filepath.Join(wd, dbPath)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	return storage.NewSqliteStore(sessionPath(dbPath, time.Now())), nil
}

func sessionPath(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("relay_session_%s.sqlite", t.UTC().Format("20060102_150405")))
}
