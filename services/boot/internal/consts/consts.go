// services/boot/internal/consts/consts.go
package consts

import "downstream-go/services/boot/internal/halcore"

// Identity: STM32F405/407/415/417 on an Olimex H407.
const (
	DevIDMask uint32 = 0x0FFF
	DevIDF407 uint32 = 0x413
)

// Flash key register values.
const (
	FlashKeyInvalid uint32 = 999
	FlashKey1       uint32 = 0x45670123
	FlashKey2       uint32 = 0xCDEF89AB
)

// IdleThreshold: some USB host state transitions take 3 loop iterations
// to apply, so sleep only once more than this many iterations passed
// without a USB interrupt.
const IdleThreshold uint8 = 4

// Clocks: 12 MHz crystal, 84 MHz core, 48 MHz USB.
var Clock = halcore.ClockConfig{
	HSEHz:        12_000_000,
	PLLM:         12,
	PLLN:         336,
	PLLP:         4,
	PLLQ:         7,
	AHBDiv:       1,
	APB1Div:      4,
	APB2Div:      2,
	FlashLatency: 2,
	VoltageScale: 2,
}

// Pins.
var (
	// JTAG must stay in AF0.
	PA_JTMS   = halcore.Pin{Bank: halcore.BankA, Num: 13}
	PA_JTCK   = halcore.Pin{Bank: halcore.BankA, Num: 14}
	PA_JTDI   = halcore.Pin{Bank: halcore.BankA, Num: 15}
	PB_JTDO   = halcore.Pin{Bank: halcore.BankB, Num: 3}
	PB_NJTRST = halcore.Pin{Bank: halcore.BankB, Num: 4}

	USB_FS_VBUS   = halcore.Pin{Bank: halcore.BankA, Num: 9}
	USB_HS_VBUS   = halcore.Pin{Bank: halcore.BankB, Num: 13}
	USB_FS_VBUSON = halcore.Pin{Bank: halcore.BankC, Num: 2}
	USB_HS_VBUSON = halcore.Pin{Bank: halcore.BankC, Num: 8}

	// STAT LED on the H407; carries the board's pull-up.
	FaultLED = halcore.Pin{Bank: halcore.BankC, Num: 13}
	// STAT LED position on the H405.
	H405FaultLED = halcore.Pin{Bank: halcore.BankC, Num: 12}
	// SPI interrupt-active debug indicator.
	IntActive = halcore.Pin{Bank: halcore.BankC, Num: 9}
)

// Both STAT LEDs sink current: driving the pin low lights them.
const FaultLEDActiveLow = true

// JTAGPins lists the debug pins excluded from the bulk GPIO default.
func JTAGPins() []halcore.Pin {
	return []halcore.Pin{PA_JTMS, PA_JTCK, PA_JTDI, PB_JTDO, PB_NJTRST}
}

// SpecialPins lists pins reconfigured after the bulk default pass.
func SpecialPins() []halcore.Pin {
	return []halcore.Pin{
		USB_FS_VBUS, USB_HS_VBUS,
		USB_FS_VBUSON, USB_HS_VBUSON,
		FaultLED, IntActive,
	}
}
