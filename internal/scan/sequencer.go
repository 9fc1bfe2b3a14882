// Package scan runs the dual-band scan loop: switch band, sample, fuse heading,
// relay the packets and keep the cycle cadence.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rf-relay/internal/clock"
	"github.com/roman-kulish/rf-relay/internal/hw"
	"github.com/roman-kulish/rf-relay/internal/spectrum"
	"github.com/roman-kulish/rf-relay/internal/telemetry"
)

// Sampler reads the signal level on the currently selected band.
type Sampler interface {
	Sample() (float64, error)
}

// HeadingSource returns the latest decoded platform heading.
type HeadingSource interface {
	Heading() telemetry.Reading
}

// Transmitter relays one packet and returns once the radio is back in standby.
type Transmitter interface {
	Transmit(payload []byte) error
}

// BandSwitch selects the receiver band.
type BandSwitch interface {
	Select(pos hw.SwitchPosition) error
}

// Indicator is the status light pulsed once per cycle.
type Indicator interface {
	On() error
	Off() error
}

// Recorder receives every completed cycle. Recorder errors are logged and never stop the loop.
type Recorder interface {
	Record(ctx context.Context, c Cycle) error
}

// Peripherals are the collaborators the sequencer drives.
type Peripherals struct {
	Switch      BandSwitch
	Sampler     Sampler
	Heading     HeadingSource
	Transmitter Transmitter
	Indicator   Indicator
}

func (p Peripherals) validate() error {
	if p.Switch == nil || p.Sampler == nil || p.Heading == nil || p.Transmitter == nil || p.Indicator == nil {
		return errors.New("scan: all peripherals are required")
	}
	return nil
}

// Cycle is the outcome of one scan cycle.
type Cycle struct {
	Number   uint64
	Start    time.Time
	Samples  [2]spectrum.ScanSample
	Packets  [2]spectrum.TelemetryPacket
	Duration time.Duration
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(*Sequencer) {
	return func(s *Sequencer) {
		s.logger = logger.With("component", "scan")
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) func(*Sequencer) {
	return func(s *Sequencer) {
		s.clock = c
	}
}

// WithRecorder adds a recorder that receives every completed cycle.
func WithRecorder(r Recorder) func(*Sequencer) {
	return func(s *Sequencer) {
		s.recorders = append(s.recorders, r)
	}
}

// Sequencer is the single thread of control of the relay. It is not safe for concurrent use.
type Sequencer struct {
	config    Config
	p         Peripherals
	clock     clock.Clock
	recorders []Recorder
	logger    *slog.Logger

	cycles uint64
}

// New creates a Sequencer.
func New(config Config, p Peripherals, options ...func(*Sequencer)) (*Sequencer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	s := Sequencer{
		config: config,
		p:      p,
		clock:  clock.Real{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&s)
	}
	return &s, nil
}

// Run blinks the indicator once, then runs cycles on a fixed cadence until ctx is
// cancelled or a peripheral fails. Cancellation is observed between cycles only.
// Deadlines accumulate from the first cycle, so transmit and settle overhead does not drift
// the cadence; a cycle that overruns its slot resynchronises the schedule to now.
func (s *Sequencer) Run(ctx context.Context) error {
	if err := s.pulse(s.config.StartupBlink.Std()); err != nil {
		return err
	}
	s.logger.Info("scan loop started", "period", s.config.Period)

	period := s.config.Period.Std()
	next := s.clock.Now()
	for {
		if ctx.Err() != nil {
			s.logger.Info("scan loop stopped", "cycles", humanize.Comma(int64(s.cycles)))
			return nil
		}

		cycle, err := s.RunCycle(ctx)
		if err != nil {
			return fmt.Errorf("scan cycle %d: %w", s.cycles+1, err)
		}
		s.record(ctx, cycle)

		next = next.Add(period)
		now := s.clock.Now()
		if wait := next.Sub(now); wait > 0 {
			s.clock.Sleep(wait)
		} else {
			s.logger.Warn("scan cycle overran its period",
				"cycle", cycle.Number, "duration", cycle.Duration, "period", period)
			next = now
		}
	}
}

// RunCycle performs one scan cycle: low band sample with heading, high band sample
// reusing that heading, two transmissions and an indicator pulse.
func (s *Sequencer) RunCycle(_ context.Context) (Cycle, error) {
	c := Cycle{
		Number: s.cycles + 1,
		Start:  s.clock.Now(),
	}

	var heading telemetry.Reading
	for i, band := range spectrum.Bands {
		level, err := s.sampleBand(band)
		if err != nil {
			return c, err
		}
		if band == spectrum.LowBand {
			heading = s.p.Heading.Heading()
		}
		c.Samples[i] = spectrum.ScanSample{
			Timestamp:     s.clock.Now(),
			Band:          band,
			Level:         level,
			Heading:       heading.Heading,
			HeadingStatus: heading.Status,
		}
	}

	for i, sample := range c.Samples {
		c.Packets[i] = spectrum.NewPacket(sample)
		payload, _ := c.Packets[i].MarshalBinary()
		if err := s.p.Transmitter.Transmit(payload); err != nil {
			return c, fmt.Errorf("transmitting %s band packet: %w", sample.Band, err)
		}
	}

	if err := s.pulse(s.config.IndicatorPulse.Std()); err != nil {
		return c, err
	}

	s.cycles++
	c.Duration = clock.Since(s.clock, c.Start)
	s.logger.Debug("scan cycle complete",
		"cycle", c.Number,
		"low", c.Samples[0].Level,
		"high", c.Samples[1].Level,
		"heading", heading.Heading,
		"heading_status", heading.Status,
		"duration", c.Duration)
	return c, nil
}

// Cycles returns the number of completed cycles.
func (s *Sequencer) Cycles() uint64 {
	return s.cycles
}

func (s *Sequencer) sampleBand(band spectrum.Band) (float64, error) {
	pos := hw.PositionA
	if band == spectrum.HighBand {
		pos = hw.PositionB
	}
	if err := s.p.Switch.Select(pos); err != nil {
		return 0, fmt.Errorf("selecting %s band: %w", band, err)
	}
	s.clock.Sleep(s.config.BandSettle.Std())

	level, err := s.p.Sampler.Sample()
	if err != nil {
		return 0, fmt.Errorf("sampling %s band: %w", band, err)
	}
	return level, nil
}

func (s *Sequencer) pulse(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if err := s.p.Indicator.On(); err != nil {
		return err
	}
	s.clock.Sleep(d)
	return s.p.Indicator.Off()
}

func (s *Sequencer) record(ctx context.Context, c Cycle) {
	for _, r := range s.recorders {
		if err := r.Record(ctx, c); err != nil {
			s.logger.Warn("recording scan cycle", "cycle", c.Number, "error", err)
		}
	}
}
