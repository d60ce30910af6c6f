// services/boot/internal/bringup/gpio.go
package bringup

import (
	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/services/boot/internal/indicator"
)

// ConfigureGPIO clocks every bank, puts every non-JTAG pin into the safe
// default (input, pull-up, low speed) and then configures the pins with a
// job. Output latches are set through the set/reset register before a pin
// becomes an output, so power rails never see an undriven window.
func ConfigureGPIO(g halcore.GPIO, leds *indicator.Set) {
	for b := halcore.Bank(0); b < halcore.NumBanks; b++ {
		g.EnableClock(b)
	}

	// Bulk default. JTAG pins must remain AF0.
	jtag := [halcore.NumBanks]uint16{}
	for _, p := range consts.JTAGPins() {
		jtag[p.Bank] |= p.Mask()
	}
	for b := halcore.Bank(0); b < halcore.NumBanks; b++ {
		g.Port(b).Configure(halcore.PinConfig{
			Pins:  halcore.AllPins &^ jtag[b],
			Mode:  halcore.ModeInput,
			Pull:  halcore.PullUp,
			Speed: halcore.SpeedLow,
		})
	}

	// VBUS sense.
	for _, p := range []halcore.Pin{consts.USB_FS_VBUS, consts.USB_HS_VBUS} {
		configure(g, p, halcore.ModeAnalog)
	}

	// USB_FS power on, USB_HS power off.
	g.Port(consts.USB_FS_VBUSON.Bank).SetBits(consts.USB_FS_VBUSON.Mask())
	configure(g, consts.USB_FS_VBUSON, halcore.ModeOutput)
	g.Port(consts.USB_HS_VBUSON.Bank).ResetBits(consts.USB_HS_VBUSON.Mask())
	configure(g, consts.USB_HS_VBUSON, halcore.ModeOutput)

	leds.Off(indicator.Fault)
	configure(g, consts.FaultLED, halcore.ModeOutput)

	leds.Off(indicator.IntActive)
	configure(g, consts.IntActive, halcore.ModeOutput)
}

func configure(g halcore.GPIO, p halcore.Pin, mode halcore.Mode) {
	g.Port(p.Bank).Configure(halcore.PinConfig{
		Pins:  p.Mask(),
		Mode:  mode,
		Pull:  halcore.PullNone,
		Speed: halcore.SpeedLow,
	})
}
