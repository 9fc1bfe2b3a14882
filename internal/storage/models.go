package storage

import (
	"database/sql"
	"time"

	"github.com/roman-kulish/rf-relay/internal/spectrum"
)

type sessionData struct {
	ID        int64
	StartTime int64
	DeviceID  string
	Config    sql.NullString
}

type sampleData struct {
	SessionID     int64
	Cycle         uint64
	Timestamp     int64
	Band          uint8
	Level         float64
	Heading       float64
	HeadingStatus uint8
	Packet        []byte
}

// Sample is a recorded scan sample with the number of the cycle that produced it.
type Sample struct {
	spectrum.ScanSample
	Cycle uint64 `json:"cycle"`
}

// Stats summarises the samples recorded for a session.
type Stats struct {
	Count    int64
	Start    time.Time
	End      time.Time
	MinLevel float64
	MaxLevel float64
}
