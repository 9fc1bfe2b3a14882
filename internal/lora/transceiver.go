// Package lora drives an SX127x long-range transceiver over a register bus.
package lora

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rf-relay/internal/clock"
	"github.com/roman-kulish/rf-relay/internal/hw"
)

var (
	ErrNotInitialized  = errors.New("transceiver not initialized")
	ErrPayloadTooLarge = errors.New("payload too large")
)

const maxFifoPayload = 255

// Config is the radio configuration applied once by Initialize.
type Config struct {
	FrequencyMHz float64        `yaml:"frequencyMHz" json:"frequencyMHz"`
	PowerDBm     int            `yaml:"powerDBm" json:"powerDBm"`
	ResetHold    clock.Duration `yaml:"resetHold" json:"resetHold"`
	ResetSettle  clock.Duration `yaml:"resetSettle" json:"resetSettle"`
	TxSettle     clock.Duration `yaml:"txSettle" json:"txSettle"`
	MaxPayload   int            `yaml:"maxPayload" json:"maxPayload"`
}

func DefaultConfig() Config {
	return Config{
		FrequencyMHz: 915,
		PowerDBm:     20,
		ResetHold:    clock.Duration(10 * time.Millisecond),
		ResetSettle:  clock.Duration(10 * time.Millisecond),
		TxSettle:     clock.Duration(100 * time.Millisecond),
		MaxPayload:   maxFifoPayload,
	}
}

func (c *Config) Validate() error {
	if c.FrequencyMHz < MinFrequencyMHz || c.FrequencyMHz > MaxFrequencyMHz {
		return fmt.Errorf("lora.Config: frequency %.3f MHz outside %.0f-%.0f MHz", c.FrequencyMHz, MinFrequencyMHz, MaxFrequencyMHz)
	}
	if c.PowerDBm < 0 || c.PowerDBm > powerMask {
		return fmt.Errorf("lora.Config: power %d dBm outside 0-%d", c.PowerDBm, powerMask)
	}
	if c.ResetHold < clock.Duration(10*time.Millisecond) || c.ResetSettle < clock.Duration(10*time.Millisecond) {
		return fmt.Errorf("lora.Config: reset hold and settle must be at least 10ms: hold=%s settle=%s", c.ResetHold, c.ResetSettle)
	}
	if c.TxSettle <= 0 {
		return errors.New("lora.Config: transmit settle must be positive")
	}
	if c.MaxPayload <= 0 || c.MaxPayload > maxFifoPayload {
		return fmt.Errorf("lora.Config: max payload %d outside 1-%d", c.MaxPayload, maxFifoPayload)
	}
	return nil
}

// Transceiver tracks the radio state across calls. It is not safe for concurrent use.
type Transceiver struct {
	bus   *hw.Bus
	sel   hw.SelectLine
	reset hw.ResetLine
	clock clock.Clock

	config      Config
	initialized bool
	mode        Mode
	logger      *slog.Logger
}

func WithLogger(logger *slog.Logger) func(*Transceiver) {
	return func(t *Transceiver) {
		t.logger = logger.With("component", "lora")
	}
}

func WithClock(c clock.Clock) func(*Transceiver) {
	return func(t *Transceiver) {
		t.clock = c
	}
}

func New(bus *hw.Bus, sel hw.SelectLine, reset hw.ResetLine, opts ...func(*Transceiver)) *Transceiver {
	t := &Transceiver{
		bus:    bus,
		sel:    sel,
		reset:  reset,
		clock:  clock.Real{},
		mode:   ModeUnknown,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Mode returns the last state the transceiver was driven to.
func (t *Transceiver) Mode() Mode {
	return t.mode
}

// Initialize resets the radio, applies config in sleep mode and leaves it in standby.
func (t *Transceiver) Initialize(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if err := t.pulseReset(config.ResetHold.Std(), config.ResetSettle.Std()); err != nil {
		return err
	}
	if err := t.setMode(ModeSleep); err != nil {
		return err
	}

	frf := SplitFrequency(FrequencyRegister(config.FrequencyMHz))
	if err := t.writeRegisters(
		RegFrfMsb, frf[0],
		RegFrfMid, frf[1],
		RegFrfLsb, frf[2],
		RegPaConfig, byte(config.PowerDBm)&powerMask,
	); err != nil {
		return fmt.Errorf("configuring radio: %w", err)
	}

	if err := t.setMode(ModeStandby); err != nil {
		return err
	}

	t.config = config
	t.initialized = true
	t.logger.Info("transceiver initialized",
		"frequency", humanize.SIWithDigits(config.FrequencyMHz*1e6, 3, "Hz"),
		"power_dbm", config.PowerDBm)
	return nil
}

// Transmit loads payload into the FIFO, starts a transmission and waits the configured
// settle interval before returning the radio to standby. Completion is not verified.
func (t *Transceiver) Transmit(payload []byte) error {
	if !t.initialized {
		return ErrNotInitialized
	}
	if len(payload) > t.config.MaxPayload {
		return fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(payload), t.config.MaxPayload)
	}

	if err := t.setMode(ModeStandby); err != nil {
		return err
	}
	if err := t.writeRegisters(
		RegFifoAddrPtr, 0x00,
		RegIrqFlags, irqClearAll,
		RegPayloadLength, byte(len(payload)),
	); err != nil {
		return fmt.Errorf("preparing FIFO: %w", err)
	}

	burst := make([]byte, 0, len(payload)+1)
	burst = append(burst, RegFifo|writeFlag)
	burst = append(burst, payload...)
	if err := t.bus.Write(t.sel, burst); err != nil {
		return fmt.Errorf("loading FIFO: %w", err)
	}

	if err := t.setMode(ModeTransmit); err != nil {
		return err
	}
	t.clock.Sleep(t.config.TxSettle.Std())

	return t.setMode(ModeStandby)
}

// Sleep puts the radio into its lowest power state.
func (t *Transceiver) Sleep() error {
	if !t.initialized {
		return ErrNotInitialized
	}
	return t.setMode(ModeSleep)
}

func (t *Transceiver) pulseReset(hold, settle time.Duration) error {
	if err := t.reset.Assert(); err != nil {
		return fmt.Errorf("resetting radio: %w", err)
	}
	t.clock.Sleep(hold)
	if err := t.reset.Release(); err != nil {
		return fmt.Errorf("resetting radio: %w", err)
	}
	t.clock.Sleep(settle)
	return nil
}

func (t *Transceiver) setMode(m Mode) error {
	if err := t.writeRegister(RegOpMode, m.opMode()); err != nil {
		return fmt.Errorf("entering %s mode: %w", m, err)
	}
	t.logger.Debug("mode change", "from", t.mode, "to", m)
	t.mode = m
	return nil
}

func (t *Transceiver) writeRegister(addr, value byte) error {
	return t.bus.Write(t.sel, []byte{addr | writeFlag, value})
}

// writeRegisters writes address/value pairs in order, one transaction each.
func (t *Transceiver) writeRegisters(pairs ...byte) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := t.writeRegister(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}
