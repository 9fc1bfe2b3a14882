package telemetry

import (
	"encoding/binary"
	"math"
	"testing"
)

func lenientFrame(heading float32) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = StartMarker
	binary.LittleEndian.PutUint32(frame[4:], math.Float32bits(heading))
	return frame
}

func TestDecoder_Lenient(t *testing.T) {
	d := NewDecoder(Lenient)

	wrongMarker := lenientFrame(45)
	wrongMarker[0] = 0x55

	testCases := []struct {
		name    string
		frame   []byte
		heading float64
		status  Status
	}{
		{"valid 45", lenientFrame(45), 45, StatusOK},
		{"valid 0", lenientFrame(0), 0, StatusOK},
		{"valid 360", lenientFrame(360), 360, StatusOK},
		{"eight bytes", lenientFrame(90)[:8], 90, StatusOK},
		{"wrong marker", wrongMarker, 0, StatusMalformed},
		{"out of range", lenientFrame(400), 0, StatusOutOfRange},
		{"negative", lenientFrame(-1), 0, StatusOutOfRange},
		{"nan", lenientFrame(float32(math.NaN())), 0, StatusOutOfRange},
		{"inf", lenientFrame(float32(math.Inf(1))), 0, StatusOutOfRange},
		{"short", lenientFrame(45)[:7], 0, StatusMalformed},
		{"empty", nil, 0, StatusNoFrame},
		{"bad crc ignored", lenientFrame(12.5), 12.5, StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := d.Decode(tc.frame)
			if r.Heading != tc.heading {
				t.Errorf("Expected heading %v, got %v", tc.heading, r.Heading)
			}
			if r.Status != tc.status {
				t.Errorf("Expected status %s, got %s", tc.status, r.Status)
			}
		})
	}
}

func TestDecoder_Strict(t *testing.T) {
	d := NewDecoder(Strict)

	if r := d.Decode(EncodeFrame(123.5)); !r.OK() || r.Heading != 123.5 {
		t.Errorf("Expected 123.5 ok, got %v %s", r.Heading, r.Status)
	}

	corrupt := EncodeFrame(123.5)
	corrupt[5] ^= 0x01
	if r := d.Decode(corrupt); r.Status != StatusIntegrity || r.Heading != 0 {
		t.Errorf("Expected integrity failure, got %v %s", r.Heading, r.Status)
	}

	badLength := EncodeFrame(10)
	badLength[1] = 12
	if r := d.Decode(badLength); r.Status != StatusIntegrity {
		t.Errorf("Expected integrity failure for length byte, got %s", r.Status)
	}

	if r := d.Decode(lenientFrame(45)); r.Status != StatusIntegrity {
		t.Errorf("Expected unchecked frame to fail, got %s", r.Status)
	}

	if r := d.Decode(EncodeFrame(45)[:12]); r.Status != StatusMalformed {
		t.Errorf("Expected short frame to be malformed, got %s", r.Status)
	}

	if r := d.Decode(EncodeFrame(400)); r.Status != StatusOutOfRange {
		t.Errorf("Expected out of range, got %s", r.Status)
	}
}

type frameQueue [][]byte

func (q *frameQueue) Frame() ([]byte, bool) {
	if len(*q) == 0 {
		return nil, false
	}
	f := (*q)[0]
	*q = (*q)[1:]
	return f, true
}

func TestProvider_Heading(t *testing.T) {
	q := &frameQueue{lenientFrame(45), lenientFrame(500)}
	p := NewProvider(q, NewDecoder(Lenient))

	if r := p.Heading(); r.Heading != 45 || !r.OK() {
		t.Errorf("Expected 45 ok, got %v %s", r.Heading, r.Status)
	}
	if r := p.Heading(); r.Status != StatusOutOfRange {
		t.Errorf("Expected out of range, got %s", r.Status)
	}
	if r := p.Heading(); r.Status != StatusNoFrame || r.Heading != 0 {
		t.Errorf("Expected no frame, got %v %s", r.Heading, r.Status)
	}
}
