package spectrum

import (
	"fmt"
	"time"

	"github.com/roman-kulish/rf-relay/internal/telemetry"
)

// Band identifies one of the two receiver bands. The value is the wire band id.
type Band uint8

const (
	LowBand  Band = 24
	HighBand Band = 58
)

// Bands lists the bands in scan order.
var Bands = []Band{LowBand, HighBand}

func (b Band) String() string {
	switch b {
	case LowBand:
		return "low"
	case HighBand:
		return "high"
	default:
		return fmt.Sprintf("band(%d)", uint8(b))
	}
}

func (b Band) Valid() bool {
	return b == LowBand || b == HighBand
}

// ScanSession represents one run of the relay.
type ScanSession struct {
	ID        int64     `json:"ID"`                      // Unique identifier for the session
	StartTime time.Time `json:"startTime"`               // When the relay started scanning
	DeviceID  string    `json:"deviceID"`                // Identifier of the airframe or relay
	Config    *string   `json:"config,string,omitempty"` // Optional relay configuration in JSON format
}

// ScanSample is a single band measurement fused with the platform heading.
type ScanSample struct {
	Timestamp     time.Time        `json:"timestamp"`     // When the level was sampled
	Band          Band             `json:"band"`          // Band the receiver was switched to
	Level         float64          `json:"level"`         // Signal level in dBm
	Heading       float64          `json:"heading"`       // Platform heading in degrees, 0 when unavailable
	HeadingStatus telemetry.Status `json:"headingStatus"` // Why the heading is or is not valid
}

func (s ScanSample) String() string {
	return fmt.Sprintf("%s %.1f dBm @ %.1f°", s.Band, s.Level, s.Heading)
}
