package telemetry

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

const (
	StartMarker = 0xAA
	FrameSize   = 16

	minFrameSize  = 8
	lengthOffset  = 1
	headingOffset = 4
	crcSize       = 4

	maxHeading = 360.0
)

// Strictness selects how much of the frame is verified before the heading is trusted.
type Strictness string

const (
	// Lenient checks only the start marker and the minimum length.
	Lenient Strictness = "lenient"
	// Strict also requires the full frame size, a matching length byte and a valid CRC-32 trailer.
	Strict Strictness = "strict"
)

func (s Strictness) Validate() error {
	switch s {
	case Lenient, Strict:
		return nil
	default:
		return fmt.Errorf("unknown strictness %q", string(s))
	}
}

type Decoder struct {
	strictness Strictness
}

func NewDecoder(strictness Strictness) *Decoder {
	if strictness == "" {
		strictness = Lenient
	}
	return &Decoder{strictness: strictness}
}

// Decode never fails: any problem yields a zero heading with a non-OK status.
func (d *Decoder) Decode(frame []byte) Reading {
	if len(frame) == 0 {
		return Reading{Status: StatusNoFrame}
	}
	if len(frame) < minFrameSize || frame[0] != StartMarker {
		return Reading{Status: StatusMalformed}
	}

	if d.strictness == Strict {
		if len(frame) != FrameSize {
			return Reading{Status: StatusMalformed}
		}
		if int(frame[lengthOffset]) != len(frame) {
			return Reading{Status: StatusIntegrity}
		}
		if !checksumOK(frame) {
			return Reading{Status: StatusIntegrity}
		}
	}

	heading := float64(math.Float32frombits(binary.LittleEndian.Uint32(frame[headingOffset:])))
	if math.IsNaN(heading) || heading < 0 || heading > maxHeading {
		return Reading{Status: StatusOutOfRange}
	}
	return Reading{Heading: heading, Status: StatusOK}
}

// checksumOK reports whether the last four bytes are the little-endian CRC-32 of the rest.
func checksumOK(frame []byte) bool {
	if len(frame) <= crcSize {
		return false
	}
	body, trailer := frame[:len(frame)-crcSize], frame[len(frame)-crcSize:]
	return crc32.ChecksumIEEE(body) == binary.LittleEndian.Uint32(trailer)
}

// EncodeFrame builds a FrameSize frame carrying heading that passes strict decoding.
func EncodeFrame(heading float32) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = StartMarker
	frame[lengthOffset] = FrameSize
	binary.LittleEndian.PutUint32(frame[headingOffset:], math.Float32bits(heading))
	binary.LittleEndian.PutUint32(frame[FrameSize-crcSize:], crc32.ChecksumIEEE(frame[:FrameSize-crcSize]))
	return frame
}
