package lora

import "math"

const (
	oscillatorMHz = 32
	frequencyStep = 1 << 19

	// MinFrequencyMHz and MaxFrequencyMHz bound the synthesiser range of the SX127x family.
	MinFrequencyMHz = 137.0
	MaxFrequencyMHz = 1020.0
)

// FrequencyRegister returns the 24-bit Frf value for a carrier in MHz.
func FrequencyRegister(mhz float64) uint32 {
	return uint32(math.Round(mhz*frequencyStep/oscillatorMHz)) & 0xFFFFFF
}

// SplitFrequency returns the MSB, MID and LSB register values for frf.
func SplitFrequency(frf uint32) [3]byte {
	return [3]byte{byte(frf >> 16), byte(frf >> 8), byte(frf)}
}

// JoinFrequency recombines the three register values into the 24-bit Frf value.
func JoinFrequency(b [3]byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// RegisterFrequency returns the carrier in MHz programmed by frf.
func RegisterFrequency(frf uint32) float64 {
	return float64(frf) * oscillatorMHz / frequencyStep
}
