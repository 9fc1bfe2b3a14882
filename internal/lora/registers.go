package lora

// SX127x register map, long-range mode.
const (
	RegFifo          = 0x00
	RegOpMode        = 0x01
	RegFrfMsb        = 0x06
	RegFrfMid        = 0x07
	RegFrfLsb        = 0x08
	RegPaConfig      = 0x09
	RegFifoAddrPtr   = 0x0D
	RegIrqFlags      = 0x12
	RegPayloadLength = 0x40
)

// SX127x datasheet encoding, deliberately: every register write sets the 0x80 write flag
// (an unflagged address byte is a read), and RegOpMode is LongRangeMode | mode, giving
// 0x80 sleep, 0x81 standby and 0x83 transmit. Do not use the 0x88/0x8B op-mode bytes.
const (
	writeFlag = 0x80

	longRangeMode = 0x80

	opModeSleep    = 0x00
	opModeStandby  = 0x01
	opModeTransmit = 0x03

	irqClearAll = 0xFF
	powerMask   = 0x1F
)

// Mode is the tracked operating state of the transceiver.
type Mode uint8

const (
	ModeUnknown Mode = iota
	ModeSleep
	ModeStandby
	ModeTransmit
)

func (m Mode) String() string {
	switch m {
	case ModeSleep:
		return "sleep"
	case ModeStandby:
		return "standby"
	case ModeTransmit:
		return "transmit"
	default:
		return "unknown"
	}
}

func (m Mode) opMode() byte {
	switch m {
	case ModeStandby:
		return longRangeMode | opModeStandby
	case ModeTransmit:
		return longRangeMode | opModeTransmit
	default:
		return longRangeMode | opModeSleep
	}
}
