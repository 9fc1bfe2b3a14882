package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/rf-relay/internal/spectrum"
)

// Store is the flight recorder: it keeps every relayed scan sample of a session
// so the flight can be reviewed on the ground.
type Store interface {
	// CreateSession starts a new recording session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - deviceID: Identifier of the relay or airframe
	//   - config: Optional relay configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, deviceID string, config any) (sessionID int64, err error)

	// Session retrieves a specific session by its ID.
	Session(ctx context.Context, id int64) (session *spectrum.ScanSession, err error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) (sessions []*spectrum.ScanSession, err error)

	// StoreCycle saves the samples of one scan cycle together with the packets relayed
	// for them, in a single transaction. samples and packets are matched by index.
	StoreCycle(ctx context.Context, sessionID int64, cycle uint64, samples []spectrum.ScanSample, packets []spectrum.TelemetryPacket) error

	// Stats summarises the samples of a session, optionally for one band only.
	// Returns ErrNoData when nothing was recorded.
	Stats(ctx context.Context, sessionID int64, opts ...ReaderOption) (Stats, error)

	// ReadSamples returns an iterator over the samples of a session in time order.
	// The reader must be closed after use.
	ReadSamples(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SqliteSampleReader, error)

	// Close releases all database connections. It is safe to call Close multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)
