// Package power reads signal strength from the scanning receiver.
package power

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/rf-relay/internal/hw"
)

const readLength = 2

// Converter turns the two raw bytes read from the receiver into a level in dBm.
// b0 is the first byte clocked in.
type Converter interface {
	Convert(b0, b1 byte) float64
}

// ConverterFunc adapts a plain function to Converter.
type ConverterFunc func(b0, b1 byte) float64

func (f ConverterFunc) Convert(b0, b1 byte) float64 { return f(b0, b1) }

// LinearHalfDB is the placeholder conversion: raw = b1*256 + b0, level = -raw/2 dBm.
// Replace it once the receiver's register map is calibrated.
var LinearHalfDB = ConverterFunc(func(b0, b1 byte) float64 {
	raw := int(b1)*256 + int(b0)
	return -float64(raw) / 2
})

type Config struct {
	Request []byte `yaml:"request" json:"request"` // bytes clocked out before the two-byte read
}

func DefaultConfig() Config {
	return Config{Request: []byte{0x01, 0x00}}
}

func (c *Config) Validate() error {
	if len(c.Request) == 0 {
		return errors.New("power.Config: request must not be empty")
	}
	return nil
}

// Sampler issues level reads against the active receiver.
type Sampler struct {
	bus       *hw.Bus
	sel       hw.SelectLine
	request   []byte
	converter Converter
	logger    *slog.Logger
}

func WithConverter(c Converter) func(*Sampler) {
	return func(s *Sampler) {
		s.converter = c
	}
}

func WithLogger(logger *slog.Logger) func(*Sampler) {
	return func(s *Sampler) {
		s.logger = logger.With("component", "power")
	}
}

func NewSampler(bus *hw.Bus, sel hw.SelectLine, config Config, opts ...func(*Sampler)) (*Sampler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Sampler{
		bus:       bus,
		sel:       sel,
		request:   append([]byte(nil), config.Request...),
		converter: LinearHalfDB,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sample performs one read transaction and returns the converted level in dBm.
func (s *Sampler) Sample() (float64, error) {
	resp, err := s.bus.Transact(s.sel, s.request, readLength)
	if err != nil {
		return 0, fmt.Errorf("reading power level: %w", err)
	}

	level := s.converter.Convert(resp[0], resp[1])
	s.logger.Debug("power sample", "raw", fmt.Sprintf("% X", resp), "dbm", level)
	return level, nil
}
