package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/rf-relay/internal/scan"
	"github.com/roman-kulish/rf-relay/internal/spectrum"
	"github.com/roman-kulish/rf-relay/internal/storage"
)

func TestStoreRecorder(t *testing.T) {
	ctx := context.Background()
	store := storage.NewSqliteStore(filepath.Join(t.TempDir(), "relay.sqlite"))
	defer store.Close()

	sessionID, err := store.CreateSession(ctx, "drone-7", DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := [2]spectrum.ScanSample{
		{Timestamp: now, Band: spectrum.LowBand, Level: -60.3, Heading: 123.4},
		{Timestamp: now.Add(50 * time.Millisecond), Band: spectrum.HighBand, Level: -72.1, Heading: 123.4},
	}
	cycle := scan.Cycle{
		Number:  1,
		Samples: samples,
		Packets: [2]spectrum.TelemetryPacket{spectrum.NewPacket(samples[0]), spectrum.NewPacket(samples[1])},
	}

	rec := &storeRecorder{store: store, sessionID: sessionID}
	if err := rec.Record(ctx, cycle); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	stats, err := store.Stats(ctx, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Count != 2 || stats.MinLevel != -72.1 || stats.MaxLevel != -60.3 {
		t.Errorf("Unexpected stats after recording: %+v", stats)
	}
}

func TestSessionPath(t *testing.T) {
	got := sessionPath("/data", time.Date(2024, 6, 1, 12, 30, 5, 0, time.FixedZone("CEST", 2*3600)))
	if want := "/data/relay_session_20240601_103005.sqlite"; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestCreateStorage_MissingDirectory(t *testing.T) {
	if _, err := createStorage(&StorageConfig{DataDirectory: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("Expected error for missing directory")
	}
	if _, err := createStorage(&StorageConfig{DataDirectory: t.TempDir()}); err != nil {
		t.Errorf("Expected store for existing directory, got %v", err)
	}
}
