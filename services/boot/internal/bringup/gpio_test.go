package bringup

import (
	"testing"

	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/services/boot/internal/indicator"
	"downstream-go/services/boot/internal/platform"
)

func bringUp(t *testing.T) *platform.Board {
	t.Helper()
	b := platform.NewBoard()
	hw := b.Hardware()
	ConfigureGPIO(hw.GPIO, indicator.New(hw.GPIO))
	return b
}

func pinOf(b *platform.Board, p halcore.Pin) (halcore.Mode, halcore.Pull) {
	port := b.Ports[p.Bank]
	return port.Modes[p.Num], port.Pulls[p.Num]
}

func TestAllBanksClocked(t *testing.T) {
	b := bringUp(t)
	for i, on := range b.Clocked {
		if !on {
			t.Fatalf("bank %s not clocked", halcore.Bank(i))
		}
	}
}

func TestBulkDefaultSkipsJTAG(t *testing.T) {
	b := bringUp(t)
	for _, p := range consts.JTAGPins() {
		port := b.Ports[p.Bank]
		if port.Pulls[p.Num] != halcore.PullNone || port.Modes[p.Num] != halcore.ModeInput {
			t.Fatalf("JTAG pin %s%d was reconfigured", p.Bank, p.Num)
		}
	}
	// An ordinary pin gets the default.
	if m, pull := pinOf(b, halcore.Pin{Bank: halcore.BankE, Num: 7}); m != halcore.ModeInput || pull != halcore.PullUp {
		t.Fatalf("PE7 mode=%d pull=%d, want input pull-up", m, pull)
	}
	var sawA, sawB bool
	for _, tr := range b.Trace() {
		sawA = sawA || tr == "gpioA:config:1FFF:in"
		sawB = sawB || tr == "gpioB:config:FFE7:in"
	}
	if !sawA || !sawB {
		t.Fatalf("bulk masks for banks A/B not applied: %v", b.Trace())
	}
}

func TestSpecialPins(t *testing.T) {
	b := bringUp(t)
	for _, p := range []halcore.Pin{consts.USB_FS_VBUS, consts.USB_HS_VBUS} {
		if m, _ := pinOf(b, p); m != halcore.ModeAnalog {
			t.Fatalf("VBUS sense %s%d mode=%d, want analog", p.Bank, p.Num, m)
		}
	}
	for _, p := range []halcore.Pin{consts.USB_FS_VBUSON, consts.USB_HS_VBUSON, consts.FaultLED, consts.IntActive} {
		if m, pull := pinOf(b, p); m != halcore.ModeOutput || pull != halcore.PullNone {
			t.Fatalf("%s%d mode=%d pull=%d, want output no-pull", p.Bank, p.Num, m, pull)
		}
	}
	portC := b.Ports[halcore.BankC]
	if !portC.Level(consts.USB_FS_VBUSON.Num) {
		t.Fatal("USB_FS power must be enabled")
	}
	if portC.Level(consts.USB_HS_VBUSON.Num) {
		t.Fatal("USB_HS power must be disabled")
	}
	if !portC.Level(consts.FaultLED.Num) {
		t.Fatal("active-low fault LED should be off (high)")
	}
	if portC.Level(consts.IntActive.Num) {
		t.Fatal("INT_ACTIVE should be off")
	}
}

func TestPowerRailLevelSetBeforeOutputMode(t *testing.T) {
	b := bringUp(t)
	tr := b.Trace()
	idx := func(s string) int {
		for i, v := range tr {
			if v == s {
				return i
			}
		}
		t.Fatalf("trace missing %q: %v", s, tr)
		return -1
	}
	if idx("gpioC:set:0004") > idx("gpioC:config:0004:out") {
		t.Fatal("USB_FS_VBUSON latch must be set before the pin becomes an output")
	}
	if idx("gpioC:reset:0100") > idx("gpioC:config:0100:out") {
		t.Fatal("USB_HS_VBUSON latch must be reset before the pin becomes an output")
	}
}
