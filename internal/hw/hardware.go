package hw

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const defaultSPISpeedHz = 1_000_000

// SPIConfig describes one SPI peripheral and its control lines.
type SPIConfig struct {
	Port    string `yaml:"port" json:"port"`       // spireg port name, empty selects the first port
	SpeedHz int64  `yaml:"speedHz" json:"speedHz"` // clock, mode 0, 8 bit words
	Select  string `yaml:"select" json:"select"`   // gpioreg name of the chip select
	Reset   string `yaml:"reset,omitempty" json:"reset,omitempty"`
}

// Config names every line the relay drives.
type Config struct {
	Radio      SPIConfig `yaml:"radio" json:"radio"`
	Receiver   SPIConfig `yaml:"receiver" json:"receiver"`
	BandSwitch string    `yaml:"bandSwitch" json:"bandSwitch"`
	StatusLED  string    `yaml:"statusLED" json:"statusLED"`
}

// DefaultConfig returns the reference wiring: receiver on SPI0 (CS GPIO17),
// transceiver on SPI1 (CS GPIO13, reset GPIO14), RF switch on GPIO15 and the status LED on GPIO25.
func DefaultConfig() Config {
	return Config{
		Radio: SPIConfig{
			Port:    "SPI1.0",
			SpeedHz: defaultSPISpeedHz,
			Select:  "GPIO13",
			Reset:   "GPIO14",
		},
		Receiver: SPIConfig{
			Port:    "SPI0.0",
			SpeedHz: defaultSPISpeedHz,
			Select:  "GPIO17",
		},
		BandSwitch: "GPIO15",
		StatusLED:  "GPIO25",
	}
}

func (c *Config) Validate() error {
	if c.Radio.Select == "" || c.Radio.Reset == "" {
		return errors.New("hw.Config: radio select and reset lines are required")
	}
	if c.Receiver.Select == "" {
		return errors.New("hw.Config: receiver select line is required")
	}
	if c.BandSwitch == "" {
		return errors.New("hw.Config: band switch line is required")
	}
	if c.StatusLED == "" {
		return errors.New("hw.Config: status LED line is required")
	}
	if c.Radio.SpeedHz <= 0 || c.Receiver.SpeedHz <= 0 {
		return fmt.Errorf("hw.Config: SPI speed must be positive: radio=%d receiver=%d", c.Radio.SpeedHz, c.Receiver.SpeedHz)
	}
	return nil
}

// Hardware is the set of peripheral handles owned by the relay. It is opened once
// and handed to each component constructor.
type Hardware struct {
	RadioBus    *Bus
	RadioSelect SelectLine
	RadioReset  ResetLine

	ReceiverBus    *Bus
	ReceiverSelect SelectLine

	BandSwitch SwitchLine
	Status     Indicator

	closers []io.Closer
}

// Open initialises the host drivers and acquires every bus and line named in config.
// Lines are driven to their idle levels: selects and reset high, switch and LED low.
func Open(config Config) (_ *Hardware, err error) {
	if err = config.Validate(); err != nil {
		return nil, err
	}
	if _, err = host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host drivers: %w", err)
	}

	h := &Hardware{}
	defer func() {
		if err != nil {
			_ = h.Close()
		}
	}()

	radioConn, err := h.openSPI(config.Radio)
	if err != nil {
		return nil, fmt.Errorf("opening radio bus: %w", err)
	}
	h.RadioBus = NewBus("radio", radioConn)

	if config.Receiver.Port == config.Radio.Port {
		h.ReceiverBus = h.RadioBus
	} else {
		receiverConn, err := h.openSPI(config.Receiver)
		if err != nil {
			return nil, fmt.Errorf("opening receiver bus: %w", err)
		}
		h.ReceiverBus = NewBus("receiver", receiverConn)
	}

	lines := []struct {
		name  string
		level gpio.Level
		bind  func(Output)
	}{
		{config.Radio.Select, gpio.High, func(p Output) { h.RadioSelect = NewSelectLine("radio-cs", p) }},
		{config.Radio.Reset, gpio.High, func(p Output) { h.RadioReset = NewResetLine("radio-reset", p) }},
		{config.Receiver.Select, gpio.High, func(p Output) { h.ReceiverSelect = NewSelectLine("receiver-cs", p) }},
		{config.BandSwitch, gpio.Low, func(p Output) { h.BandSwitch = NewSwitchLine("band-switch", p) }},
		{config.StatusLED, gpio.Low, func(p Output) { h.Status = NewIndicator("status-led", p) }},
	}
	for _, l := range lines {
		pin, err := outputPin(l.name, l.level)
		if err != nil {
			return nil, err
		}
		l.bind(pin)
	}

	return h, nil
}

func (h *Hardware) openSPI(config SPIConfig) (spi.Conn, error) {
	port, err := spireg.Open(config.Port)
	if err != nil {
		return nil, fmt.Errorf("opening SPI port %q: %w", config.Port, err)
	}
	h.closers = append(h.closers, port)

	conn, err := port.Connect(physic.Frequency(config.SpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("connecting SPI port %q: %w", config.Port, err)
	}
	return conn, nil
}

func outputPin(name string, initial gpio.Level) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := pin.Out(initial); err != nil {
		return nil, fmt.Errorf("configuring gpio %q as output: %w", name, err)
	}
	return pin, nil
}

// Close releases the SPI ports.
func (h *Hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}
