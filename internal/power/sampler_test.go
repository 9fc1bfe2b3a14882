package power_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/roman-kulish/rf-relay/internal/hw"
	"github.com/roman-kulish/rf-relay/internal/hw/hwtest"
	"github.com/roman-kulish/rf-relay/internal/power"
)

func TestLinearHalfDB(t *testing.T) {
	testCases := []struct {
		b0, b1 byte
		want   float64
	}{
		{0x00, 0x00, 0.0},
		{0xFF, 0x00, -127.5},
		{0x00, 0x01, -128.0},
		{0x02, 0x01, -129.0},
	}
	for _, tc := range testCases {
		if got := power.LinearHalfDB.Convert(tc.b0, tc.b1); got != tc.want {
			t.Errorf("(%#02x, %#02x): expected %v dBm, got %v", tc.b0, tc.b1, tc.want, got)
		}
	}
}

func TestSampler_Sample(t *testing.T) {
	conn := hwtest.NewConn("spi", nil)
	s, err := power.NewSampler(hw.NewBus("receiver", conn), hw.NewSelectLine("cs", hwtest.NewPin("cs", nil)), power.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	conn.QueueReply(0xFF, 0x00)
	level, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if level != -127.5 {
		t.Errorf("Expected -127.5 dBm, got %v", level)
	}

	writes := conn.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("Expected one 4-byte transaction, got %v", writes)
	}
}

func TestSampler_CustomConverter(t *testing.T) {
	conn := hwtest.NewConn("spi", nil)
	bigEndian := power.ConverterFunc(func(b0, b1 byte) float64 {
		return float64(int(b0)<<8 | int(b1))
	})
	s, err := power.NewSampler(hw.NewBus("receiver", conn), hw.NewSelectLine("cs", hwtest.NewPin("cs", nil)),
		power.DefaultConfig(), power.WithConverter(bigEndian))
	if err != nil {
		t.Fatal(err)
	}

	conn.QueueReply(0x01, 0x02)
	if level, _ := s.Sample(); level != 258 {
		t.Errorf("Expected 258, got %v", level)
	}
}

func TestSampler_TransportFailure(t *testing.T) {
	conn := hwtest.NewConn("spi", nil)
	conn.Fail = true
	s, err := power.NewSampler(hw.NewBus("receiver", conn), hw.NewSelectLine("cs", hwtest.NewPin("cs", nil)), power.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Sample(); !errors.Is(err, hw.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestNewSampler_EmptyRequest(t *testing.T) {
	if _, err := power.NewSampler(nil, hw.SelectLine{}, power.Config{}); err == nil {
		t.Error("Expected error for empty request")
	}
}
