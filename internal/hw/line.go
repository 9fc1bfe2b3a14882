package hw

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Output is the digital-output capability of a peripheral line. gpio.PinIO satisfies it.
type Output interface {
	Out(l gpio.Level) error
}

// SelectLine is an active-low chip select.
type SelectLine struct {
	name string
	pin  Output
}

func NewSelectLine(name string, pin Output) SelectLine {
	return SelectLine{name: name, pin: pin}
}

// Assert drives the line low, selecting the peripheral.
func (s SelectLine) Assert() error {
	if err := s.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("%w: asserting select %s: %w", ErrTransport, s.name, err)
	}
	return nil
}

// Release drives the line high, deselecting the peripheral.
func (s SelectLine) Release() error {
	if err := s.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("%w: releasing select %s: %w", ErrTransport, s.name, err)
	}
	return nil
}

func (s SelectLine) String() string { return s.name }

// ResetLine is an active-low peripheral reset.
type ResetLine struct {
	name string
	pin  Output
}

func NewResetLine(name string, pin Output) ResetLine {
	return ResetLine{name: name, pin: pin}
}

// Assert holds the peripheral in reset.
func (r ResetLine) Assert() error {
	if err := r.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("asserting reset %s: %w", r.name, err)
	}
	return nil
}

// Release lets the peripheral run.
func (r ResetLine) Release() error {
	if err := r.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("releasing reset %s: %w", r.name, err)
	}
	return nil
}

// SwitchPosition is the state of a two-way selector line.
type SwitchPosition uint8

const (
	PositionA SwitchPosition = 0 // line low
	PositionB SwitchPosition = 1 // line high
)

// SwitchLine drives a two-way selector, such as an RF switch.
type SwitchLine struct {
	name string
	pin  Output
}

func NewSwitchLine(name string, pin Output) SwitchLine {
	return SwitchLine{name: name, pin: pin}
}

func (s SwitchLine) Select(pos SwitchPosition) error {
	level := gpio.Low
	if pos == PositionB {
		level = gpio.High
	}
	if err := s.pin.Out(level); err != nil {
		return fmt.Errorf("setting switch %s to %d: %w", s.name, pos, err)
	}
	return nil
}

// Indicator is an active-high status light.
type Indicator struct {
	name string
	pin  Output
}

func NewIndicator(name string, pin Output) Indicator {
	return Indicator{name: name, pin: pin}
}

func (i Indicator) On() error {
	if err := i.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("turning on %s: %w", i.name, err)
	}
	return nil
}

func (i Indicator) Off() error {
	if err := i.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("turning off %s: %w", i.name, err)
	}
	return nil
}
