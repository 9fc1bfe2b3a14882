// Package telemetry decodes the platform heading from externally delivered attitude frames.
package telemetry

// Status tells why a reading does or does not carry a decoded heading.
type Status uint8

const (
	StatusOK         Status = iota
	StatusNoFrame           // no frame was available
	StatusMalformed         // frame too short or missing the start marker
	StatusOutOfRange        // decoded heading outside [0, 360]
	StatusIntegrity         // strict mode: length or checksum mismatch
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoFrame:
		return "no-frame"
	case StatusMalformed:
		return "malformed"
	case StatusOutOfRange:
		return "out-of-range"
	case StatusIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// Reading is the outcome of decoding one frame. Heading is 0 unless Status is StatusOK.
type Reading struct {
	Heading float64 `json:"heading"` // degrees, [0, 360]
	Status  Status  `json:"status"`
}

func (r Reading) OK() bool { return r.Status == StatusOK }
