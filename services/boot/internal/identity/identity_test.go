package identity

import (
	"testing"

	"downstream-go/errcode"
	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/services/boot/internal/indicator"
	"downstream-go/services/boot/internal/platform"
)

func check(b *platform.Board) error {
	hw := b.Hardware()
	return Check(hw.ID, hw.GPIO, indicator.New(hw.GPIO))
}

func TestExpectedBoardPasses(t *testing.T) {
	b := platform.NewBoard()
	if err := check(b); err != nil {
		t.Fatalf("Check on H407: %v", err)
	}
	if !b.Clocked[halcore.BankC] {
		t.Fatal("port C clock should be enabled for the probe")
	}
	portC := b.Ports[halcore.BankC]
	if portC.Modes[consts.FaultLED.Num] != halcore.ModeInput || portC.Pulls[consts.FaultLED.Num] != halcore.PullNone {
		t.Fatal("probe should leave PC13 as a floating input")
	}
}

func TestRevisionBitsIgnored(t *testing.T) {
	b := platform.NewBoard()
	b.IDCode = 0x20006413
	if err := check(b); err != nil {
		t.Fatalf("revision field should not matter: %v", err)
	}
}

func TestWrongHardware(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*platform.Board)
	}{
		{"wrong silicon", func(b *platform.Board) { b.IDCode = 0x10006419 }},
		{"no pull-up", func(b *platform.Board) { b.Ports[halcore.BankC].ExternalPullUp = 0 }},
	}
	for _, tt := range tests {
		b := platform.NewBoard()
		tt.setup(b)
		err := check(b)
		if errcode.Of(err) != errcode.WrongHardware {
			t.Fatalf("%s: err = %v, want %s", tt.name, err, errcode.WrongHardware)
		}
		portC := b.Ports[halcore.BankC]
		for _, p := range []halcore.Pin{consts.FaultLED, consts.H405FaultLED} {
			if portC.Modes[p.Num] != halcore.ModeOutput {
				t.Fatalf("%s: LED pin %d not an output", tt.name, p.Num)
			}
			if portC.Level(p.Num) {
				t.Fatalf("%s: active-low LED pin %d should be driven low (lit)", tt.name, p.Num)
			}
		}
	}
}

func TestWrongSiliconSkipsProbe(t *testing.T) {
	b := platform.NewBoard()
	b.IDCode = 0x411
	_ = check(b)
	for _, tr := range b.Trace() {
		if tr == "gpioC:config:2000:in" {
			t.Fatal("pin probe should not run on unexpected silicon")
		}
	}
}
