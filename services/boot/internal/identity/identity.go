// services/boot/internal/identity/identity.go
package identity

import (
	"downstream-go/errcode"
	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/services/boot/internal/indicator"
	"downstream-go/x/conv"
)

// Check confirms the firmware runs on the board it was built for: an
// STM32F405/407 die, and the STAT LED pull-up that only the H407 has on
// PC13. The silicon id alone cannot tell two boards with the same part
// apart.
//
// On mismatch both possible STAT LEDs are lit and errcode.WrongHardware is
// returned; the caller must halt.
func Check(id halcore.DeviceID, gpio halcore.GPIO, leds *indicator.Set) error {
	gpio.EnableClock(consts.FaultLED.Bank)

	dev := id.IDCode() & consts.DevIDMask
	if dev == consts.DevIDF407 && probePullUp(gpio.Port(consts.FaultLED.Bank), consts.FaultLED) {
		return nil
	}
	println("[ident] unexpected hardware, dev id", conv.Hex32(dev))

	leds.Light(indicator.Fault, indicator.H405Fault)
	return &errcode.E{C: errcode.WrongHardware, Op: "identity", Msg: "dev id " + conv.Hex32(dev)}
}

// probePullUp pulls the pin down, releases it, and samples it. It reads
// high only when something on the board holds it up.
func probePullUp(port halcore.Port, p halcore.Pin) bool {
	cfg := halcore.PinConfig{
		Pins:  p.Mask(),
		Mode:  halcore.ModeInput,
		Pull:  halcore.PullDown,
		Speed: halcore.SpeedLow,
	}
	port.Configure(cfg)
	cfg.Pull = halcore.PullNone
	port.Configure(cfg)
	return port.Read()&p.Mask() != 0
}
