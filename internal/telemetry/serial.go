package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"

	"github.com/roman-kulish/rf-relay/internal/clock"
)

var ErrSourceClosed = errors.New("attitude source closed")

const (
	defaultBaud            = 115200
	defaultReadTimeout     = 100 * time.Millisecond
	defaultActivationDelay = time.Second

	cmdActivate  = 0x0A
	cmdSubscribe = 0x04
)

// Config describes the UART attitude link.
type Config struct {
	Port            string         `yaml:"port" json:"port"`
	Baud            int            `yaml:"baud" json:"baud"`
	FrameSize       int            `yaml:"frameSize" json:"frameSize"`
	ReadTimeout     clock.Duration `yaml:"readTimeout" json:"readTimeout"`
	Strictness      Strictness     `yaml:"strictness" json:"strictness"`
	AppID           string         `yaml:"appID,omitempty" json:"appID,omitempty"`
	AppKey          string         `yaml:"appKey,omitempty" json:"-"`
	ActivationDelay clock.Duration `yaml:"activationDelay" json:"activationDelay"`
}

func DefaultConfig() Config {
	return Config{
		Port:            "/dev/serial0",
		Baud:            defaultBaud,
		FrameSize:       FrameSize,
		ReadTimeout:     clock.Duration(defaultReadTimeout),
		Strictness:      Lenient,
		ActivationDelay: clock.Duration(defaultActivationDelay),
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("telemetry.Config: port is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("telemetry.Config: invalid baud rate %d", c.Baud)
	}
	if c.FrameSize < minFrameSize || c.FrameSize > 255 {
		return fmt.Errorf("telemetry.Config: frame size %d outside %d-255", c.FrameSize, minFrameSize)
	}
	if c.Strictness == Strict && c.FrameSize != FrameSize {
		return fmt.Errorf("telemetry.Config: strict mode requires %d byte frames", FrameSize)
	}
	if err := c.Strictness.Validate(); err != nil {
		return fmt.Errorf("telemetry.Config: %w", err)
	}
	if (c.AppID == "") != (c.AppKey == "") {
		return errors.New("telemetry.Config: appID and appKey must be set together")
	}
	return nil
}

// HasCredentials reports whether the activation handshake should run.
func (c *Config) HasCredentials() bool {
	return c.AppID != "" && c.AppKey != ""
}

// SerialSource reads marker-synchronised frames from a byte stream in the background
// and keeps the most recent complete one.
type SerialSource struct {
	port       io.ReadWriteCloser
	frameSize  int
	strictness Strictness
	clock      clock.Clock
	logger     *slog.Logger

	mu     sync.Mutex
	latest []byte
	fresh  bool
	err    error

	closed atomic.Bool
	done   chan struct{}
}

func WithSourceLogger(logger *slog.Logger) func(*SerialSource) {
	return func(s *SerialSource) {
		s.logger = logger.With("component", "attitude-uart")
	}
}

// WithSourceStrictness makes the reader verify the CRC-32 trailer before accepting a frame.
func WithSourceStrictness(strictness Strictness) func(*SerialSource) {
	return func(s *SerialSource) {
		s.strictness = strictness
	}
}

func WithSourceClock(c clock.Clock) func(*SerialSource) {
	return func(s *SerialSource) {
		s.clock = c
	}
}

// OpenSerial opens the UART named in config and starts reading frames.
func OpenSerial(config Config, opts ...func(*SerialSource)) (*SerialSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        config.Port,
		Baud:        config.Baud,
		ReadTimeout: config.ReadTimeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", config.Port, err)
	}
	opts = append([]func(*SerialSource){WithSourceStrictness(config.Strictness)}, opts...)
	return NewSerialSource(port, config.FrameSize, opts...), nil
}

// NewSerialSource starts reading frameSize frames from port. The source owns port.
func NewSerialSource(port io.ReadWriteCloser, frameSize int, opts ...func(*SerialSource)) *SerialSource {
	s := &SerialSource{
		port:      port,
		frameSize:  frameSize,
		strictness: Lenient,
		clock:      clock.Real{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.read()
	return s
}

// Frame returns the newest complete frame not yet handed out.
func (s *SerialSource) Frame() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh {
		return nil, false
	}
	s.fresh = false
	return s.latest, true
}

// Activate sends the application credentials, waits the activation delay and
// subscribes to attitude frames.
func (s *SerialSource) Activate(appID, appKey string, delay time.Duration) error {
	activate := append([]byte{StartMarker, cmdActivate}, appID...)
	activate = append(activate, appKey...)
	if err := s.write(activate); err != nil {
		return fmt.Errorf("sending activation: %w", err)
	}

	s.clock.Sleep(delay)

	if err := s.write([]byte{StartMarker, cmdSubscribe, 0x01, 0x01}); err != nil {
		return fmt.Errorf("subscribing to attitude: %w", err)
	}
	s.logger.Info("attitude source activated", "app_id", appID)
	return nil
}

// Err returns the error that stopped the reader, if any.
func (s *SerialSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the port and waits for the reader to exit.
func (s *SerialSource) Close() error {
	s.closed.Store(true)
	err := s.port.Close()
	<-s.done
	return err
}

func (s *SerialSource) write(b []byte) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}
	_, err := s.port.Write(b)
	return err
}

func (s *SerialSource) read() {
	defer close(s.done)

	buf := make([]byte, 64)
	pending := make([]byte, 0, s.frameSize)
	for {
		n, err := s.port.Read(buf)
		for _, b := range buf[:n] {
			if len(pending) == 0 && b != StartMarker {
				continue
			}
			pending = append(pending, b)
			if len(pending) < s.frameSize {
				continue
			}
			if s.aligned(pending) {
				s.publish(pending)
				pending = pending[:0]
				continue
			}
			pending = resync(pending)
		}

		switch {
		case err == nil:
		case s.closed.Load():
			s.stop(ErrSourceClosed)
			return
		case errors.Is(err, io.EOF):
			// read timeout with no data
		default:
			s.logger.Error("attitude reader stopped", "error", err)
			s.stop(err)
			return
		}
	}
}

// aligned reports whether a full frame starts on a real marker: the length byte
// must match, and in strict mode so must the CRC-32 trailer.
func (s *SerialSource) aligned(frame []byte) bool {
	if int(frame[lengthOffset]) != len(frame) {
		return false
	}
	return s.strictness != Strict || checksumOK(frame)
}

// resync drops the false start and keeps the bytes from the next start marker on.
func resync(pending []byte) []byte {
	i := bytes.IndexByte(pending[1:], StartMarker)
	if i < 0 {
		return pending[:0]
	}
	n := copy(pending, pending[1+i:])
	return pending[:n]
}

func (s *SerialSource) stop(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *SerialSource) publish(frame []byte) {
	out := make([]byte, len(frame))
	copy(out, frame)

	s.mu.Lock()
	s.latest = out
	s.fresh = true
	s.mu.Unlock()
}
