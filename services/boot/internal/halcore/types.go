// services/boot/internal/halcore/types.go
package halcore

import (
	"downstream-go/errcode"
	"downstream-go/services/boot/internal/faultgate"

	"tinygo.org/x/drivers"
)

// ---- GPIO abstractions ----

// Bank identifies a GPIO port (A=0 .. G=6).
type Bank uint8

const (
	BankA Bank = iota
	BankB
	BankC
	BankD
	BankE
	BankF
	BankG
)

// NumBanks is the number of GPIO banks brought up at boot.
const NumBanks = 7

func (b Bank) String() string { return string(rune('A' + b)) }

// Pin names one line on one bank, e.g. Pin{BankC, 13} is PC13.
type Pin struct {
	Bank Bank
	Num  uint8
}

// Mask returns the pin's bit in a 16-bit port mask.
func (p Pin) Mask() uint16 { return 1 << p.Num }

// AllPins selects every line of a port.
const AllPins uint16 = 0xFFFF

type Mode uint8

const (
	ModeInput Mode = iota
	ModeOutput
	ModeAlternate
	ModeAnalog
)

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type Speed uint8

const (
	SpeedLow Speed = iota
	SpeedMedium
	SpeedHigh
	SpeedVeryHigh
)

// PinConfig applies to every pin set in Pins on one port.
// Outputs are always push-pull.
type PinConfig struct {
	Pins  uint16
	Mode  Mode
	Pull  Pull
	Speed Speed
	Alt   uint8
}

// Port is one GPIO bank.
type Port interface {
	Configure(cfg PinConfig)
	// SetBits and ResetBits drive output latches through the atomic
	// set/reset register, independent of the pin mode.
	SetBits(mask uint16)
	ResetBits(mask uint16)
	// Read samples the input data register.
	Read() uint16
}

// GPIO supplies ports and their bus clocks.
type GPIO interface {
	EnableClock(b Bank)
	Port(b Bank) Port
}

// ---- Clocks ----

// ClockConfig is the full oscillator, PLL and bus divider setup.
// Frequencies are in Hz.
type ClockConfig struct {
	HSEHz        uint32
	PLLM         uint32
	PLLN         uint32
	PLLP         uint32
	PLLQ         uint32
	AHBDiv       uint32
	APB1Div      uint32
	APB2Div      uint32
	FlashLatency uint32
	VoltageScale uint8
}

// ClockController programs the reset and clock controller.
// Either configuration call may fail; failures are fatal to the caller.
type ClockController interface {
	ConfigureOscillator(cfg ClockConfig) error
	ConfigureBuses(cfg ClockConfig) error
	SysTickFromHCLK()
}

// ---- Identity ----

// DeviceID exposes the read-only debug MCU identity register.
type DeviceID interface {
	IDCode() uint32
}

// ---- Flash ----

// FlashController exposes the flash key and control registers.
// WriteKey may raise a bus fault.
type FlashController interface {
	WriteKey(key uint32)
	Locked() bool
}

// ---- CPU ----

type CPU interface {
	// WaitForInterrupt suspends until any enabled interrupt fires.
	WaitForInterrupt()
	// Barrier completes outstanding memory accesses (DSB; ISB) so any
	// bus fault they raise is taken before it returns.
	Barrier()
	// Halt disables interrupts and stops forever. It never returns on
	// hardware; host fakes record the code and return.
	Halt(code errcode.Code)
}

// Hardware bundles everything the boot sequence touches.
type Hardware struct {
	Clock  ClockController
	GPIO   GPIO
	ID     DeviceID
	Flash  FlashController
	CPU    CPU
	Faults *faultgate.Gate
	// OpenSPI configures the downstream SPI bus. It is called once, after
	// the GPIO default pass.
	OpenSPI func() (drivers.SPI, error)
}
