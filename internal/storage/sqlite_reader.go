package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roman-kulish/rf-relay/internal/spectrum"
	"github.com/roman-kulish/rf-relay/internal/telemetry"
)

// ErrNoData indicates either that no samples exist for the given parameters,
// or that all available samples have been read.
var ErrNoData = errors.New("no data available")

type filter struct {
	band      *spectrum.Band
	startTime *time.Time
	endTime   *time.Time
}

func (f *filter) bandArg() sql.NullInt64 {
	if f.band == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*f.band), Valid: true}
}

func (f *filter) timeArgs() (start, end int64) {
	start, end = math.MinInt64, math.MaxInt64
	if f.startTime != nil {
		start = toUnixMilli(*f.startTime)
	}
	if f.endTime != nil {
		end = toUnixMilli(*f.endTime)
	}
	return
}

// ReaderOption narrows the samples returned by a reader.
type ReaderOption func(*filter)

// WithBand restricts the reader to one band.
func WithBand(b spectrum.Band) ReaderOption {
	return func(f *filter) {
		f.band = &b
	}
}

// WithStartTime excludes samples taken before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(f *filter) {
		f.startTime = &t
	}
}

// WithEndTime excludes samples taken after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(f *filter) {
		f.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(f *filter) {
		f.startTime = &startTime
		f.endTime = &endTime
	}
}

// SqliteSampleReader iterates over the samples of one session in time order.
// A reader instance should only be used from a single goroutine.
type SqliteSampleReader struct {
	session *spectrum.ScanSession
	filter  filter

	current Sample
	rows    *sql.Rows
	err     error
}

func newSqliteSampleReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteSampleReader, error) {
	if sessionID <= 0 {
		return nil, errors.New("session ID required")
	}

	sr := &SqliteSampleReader{}
	for _, opt := range opts {
		opt(&sr.filter)
	}
	if sr.filter.startTime != nil && sr.filter.endTime != nil && sr.filter.startTime.After(*sr.filter.endTime) {
		return nil, fmt.Errorf("start time %s is after end time %s", sr.filter.startTime, sr.filter.endTime)
	}

	var err error
	if sr.session, err = querySession(ctx, db, sessionID); err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	start, end := sr.filter.timeArgs()
	if sr.rows, err = db.QueryContext(ctx, selectSamplesSQL, sessionID, start, end, sr.filter.bandArg()); err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	return sr, nil
}

// Session returns the session being read.
func (sr *SqliteSampleReader) Session() *spectrum.ScanSession {
	return sr.session
}

// Next advances to the next sample. It returns false at the end of the data or on error.
func (sr *SqliteSampleReader) Next(ctx context.Context) bool {
	if sr.err != nil || sr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		sr.err = ctx.Err()
		return false
	default:
	}

	if !sr.rows.Next() {
		sr.err = ErrNoData
		return false
	}

	var ts int64
	var band, status uint8
	var s Sample
	if err := sr.rows.Scan(&s.Cycle, &ts, &band, &s.Level, &s.Heading, &status); err != nil {
		sr.err = fmt.Errorf("scanning sample: %w", err)
		return false
	}
	s.Timestamp = fromUnixMilli(ts)
	s.Band = spectrum.Band(band)
	s.HeadingStatus = telemetry.Status(status)

	sr.current = s
	return true
}

// Current returns the sample read by the last successful Next.
func (sr *SqliteSampleReader) Current() Sample {
	return sr.current
}

// Error returns the error that stopped iteration, or nil at the normal end of data.
func (sr *SqliteSampleReader) Error() error {
	if sr.err != nil && !errors.Is(sr.err, ErrNoData) {
		return sr.err
	}
	if sr.rows != nil {
		return sr.rows.Err()
	}
	return nil
}

func (sr *SqliteSampleReader) Close() error {
	if sr.rows != nil {
		err := sr.rows.Close()
		sr.rows = nil
		return err
	}
	return nil
}
