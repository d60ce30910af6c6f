// services/boot/internal/indicator/indicator.go
package indicator

import (
	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/halcore"
)

// LED names a board indicator.
type LED uint8

const (
	Fault LED = iota
	H405Fault
	IntActive
)

// Set drives the board indicators through the ports' set/reset registers.
// Pin modes are the caller's business; Set only touches output latches.
type Set struct {
	gpio halcore.GPIO
}

func New(gpio halcore.GPIO) *Set { return &Set{gpio: gpio} }

func (s *Set) On(l LED)  { s.drive(l, true) }
func (s *Set) Off(l LED) { s.drive(l, false) }

// Light makes each LED's pin a push-pull output and turns it on. Used on
// fault paths, where the pin may still be an input.
func (s *Set) Light(leds ...LED) {
	for _, l := range leds {
		pin, _ := lookup(l)
		s.gpio.Port(pin.Bank).Configure(halcore.PinConfig{
			Pins:  pin.Mask(),
			Mode:  halcore.ModeOutput,
			Pull:  halcore.PullNone,
			Speed: halcore.SpeedLow,
		})
		s.On(l)
	}
}

func (s *Set) drive(l LED, on bool) {
	pin, activeLow := lookup(l)
	port := s.gpio.Port(pin.Bank)
	if on != activeLow {
		port.SetBits(pin.Mask())
	} else {
		port.ResetBits(pin.Mask())
	}
}

func lookup(l LED) (halcore.Pin, bool) {
	switch l {
	case Fault:
		return consts.FaultLED, consts.FaultLEDActiveLow
	case H405Fault:
		return consts.H405FaultLED, consts.FaultLEDActiveLow
	default:
		return consts.IntActive, false
	}
}
