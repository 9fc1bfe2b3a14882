package spectrum

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PacketSize is the length of an encoded TelemetryPacket.
const PacketSize = 5

const packetScale = 10

// TelemetryPacket is the wire form of a ScanSample: band id, then level and heading
// in tenths as little-endian int16.
type TelemetryPacket struct {
	Band          Band
	LevelTenths   int16
	HeadingTenths int16
}

// NewPacket scales s to tenths, truncating toward zero and saturating at the int16 limits.
func NewPacket(s ScanSample) TelemetryPacket {
	return TelemetryPacket{
		Band:          s.Band,
		LevelTenths:   tenths(s.Level),
		HeadingTenths: tenths(s.Heading),
	}
}

func tenths(v float64) int16 {
	t := math.Trunc(v * packetScale)
	switch {
	case math.IsNaN(t):
		return 0
	case t >= math.MaxInt16:
		return math.MaxInt16
	case t <= math.MinInt16:
		return math.MinInt16
	default:
		return int16(t)
	}
}

func (p TelemetryPacket) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, PacketSize))
}

func (p TelemetryPacket) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, byte(p.Band))
	b = binary.LittleEndian.AppendUint16(b, uint16(p.LevelTenths))
	b = binary.LittleEndian.AppendUint16(b, uint16(p.HeadingTenths))
	return b, nil
}

func (p *TelemetryPacket) UnmarshalBinary(b []byte) error {
	if len(b) != PacketSize {
		return fmt.Errorf("telemetry packet: expected %d bytes, got %d", PacketSize, len(b))
	}
	p.Band = Band(b[0])
	p.LevelTenths = int16(binary.LittleEndian.Uint16(b[1:3]))
	p.HeadingTenths = int16(binary.LittleEndian.Uint16(b[3:5]))
	return nil
}

// Encode returns the wire bytes of s.
func Encode(s ScanSample) []byte {
	b, _ := NewPacket(s).MarshalBinary()
	return b
}

// Level returns the level in dBm carried by the packet.
func (p TelemetryPacket) Level() float64 { return float64(p.LevelTenths) / packetScale }

// Heading returns the heading in degrees carried by the packet.
func (p TelemetryPacket) Heading() float64 { return float64(p.HeadingTenths) / packetScale }

func (p TelemetryPacket) String() string {
	return fmt.Sprintf("[%d, %d, %d]", p.Band, p.LevelTenths, p.HeadingTenths)
}
