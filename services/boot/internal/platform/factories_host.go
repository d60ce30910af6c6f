// services/boot/internal/platform/factories_host.go
//go:build !(stm32f407 && h407)

package platform

import (
	"errors"
	"sync"

	"downstream-go/errcode"
	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/faultgate"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/x/conv"

	"tinygo.org/x/drivers"
)

// Host builds run against a simulated H407. Tests reach into the Board to
// change its wiring or inject failures before booting it.

// Default returns the hardware of a fresh simulated H407.
func Default() halcore.Hardware { return NewBoard().Hardware() }

// ErrSimulated is returned by clock stages configured to fail.
var ErrSimulated = errors.New("simulated failure")

// Board is a simulated STM32F407 on an H407 carrier.
type Board struct {
	mu    sync.Mutex
	trace []string

	Ports   [halcore.NumBanks]*FakePort
	Clocked [halcore.NumBanks]bool
	IDCode  uint32
	Clock   FakeClock
	Flash   FakeFlash
	CPU     FakeCPU
	SPI     HostSPI
	Faults  faultgate.Gate

	// FailSPI makes OpenSPI report ErrSimulated.
	FailSPI bool
}

// NewBoard wires a board that passes every boot check: F407 id code,
// the STAT LED pull-up on PC13, and a flash controller that locks
// itself after a wrong key.
func NewBoard() *Board {
	b := &Board{IDCode: 0x10016413}
	for i := range b.Ports {
		b.Ports[i] = &FakePort{board: b, bank: halcore.Bank(i)}
	}
	b.Ports[consts.FaultLED.Bank].ExternalPullUp = consts.FaultLED.Mask()
	b.Clock.board = b
	b.Flash = FakeFlash{board: b, locked: true}
	b.CPU.board = b
	return b
}

// Hardware exposes the board through the boot interfaces.
func (b *Board) Hardware() halcore.Hardware {
	return halcore.Hardware{
		Clock:  &b.Clock,
		GPIO:   (*hostGPIO)(b),
		ID:     hostID{b},
		Flash:  &b.Flash,
		CPU:    &b.CPU,
		Faults: &b.Faults,
		OpenSPI: func() (drivers.SPI, error) {
			b.record("spi:open")
			if b.FailSPI {
				return nil, ErrSimulated
			}
			return &b.SPI, nil
		},
	}
}

// Trace returns the ordered record of hardware operations.
func (b *Board) Trace() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.trace...)
}

func (b *Board) record(s string) {
	b.mu.Lock()
	b.trace = append(b.trace, s)
	b.mu.Unlock()
}

func (b *Board) busFault() {
	b.record("busfault")
	handleBusFault(&b.Faults, &b.CPU)
}

// ----------------------------- GPIO ------------------------------------------

type hostGPIO Board

func (g *hostGPIO) EnableClock(bank halcore.Bank) {
	b := (*Board)(g)
	b.Clocked[bank] = true
	b.record("rcc:gpio" + bank.String())
}

func (g *hostGPIO) Port(bank halcore.Bank) halcore.Port { return g.Ports[bank] }

// FakePort models one GPIO bank. Unconnected floating inputs read low.
type FakePort struct {
	board *Board
	bank  halcore.Bank

	Modes  [16]halcore.Mode
	Pulls  [16]halcore.Pull
	Speeds [16]halcore.Speed
	Alts   [16]uint8
	ODR    uint16

	// ExternalPullUp marks lines tied high on the PCB.
	ExternalPullUp uint16
}

func (p *FakePort) Configure(cfg halcore.PinConfig) {
	for i := 0; i < 16; i++ {
		if cfg.Pins&(1<<i) == 0 {
			continue
		}
		p.Modes[i] = cfg.Mode
		p.Pulls[i] = cfg.Pull
		p.Speeds[i] = cfg.Speed
		p.Alts[i] = cfg.Alt
	}
	p.board.record("gpio" + p.bank.String() + ":config:" + hex16(cfg.Pins) + ":" + modeName(cfg.Mode))
}

func (p *FakePort) SetBits(mask uint16) {
	p.ODR |= mask
	p.board.record("gpio" + p.bank.String() + ":set:" + hex16(mask))
}

func (p *FakePort) ResetBits(mask uint16) {
	p.ODR &^= mask
	p.board.record("gpio" + p.bank.String() + ":reset:" + hex16(mask))
}

func (p *FakePort) Read() uint16 {
	var v uint16
	for i := 0; i < 16; i++ {
		bit := uint16(1) << i
		switch p.Modes[i] {
		case halcore.ModeOutput:
			v |= p.ODR & bit
		case halcore.ModeInput:
			// A board pull-up overrides the weak internal pull-down.
			if p.ExternalPullUp&bit != 0 || p.Pulls[i] == halcore.PullUp {
				v |= bit
			}
		}
	}
	return v
}

// Level reports the driven or sensed level of one pin.
func (p *FakePort) Level(num uint8) bool { return p.Read()&(1<<num) != 0 }

func modeName(m halcore.Mode) string {
	switch m {
	case halcore.ModeOutput:
		return "out"
	case halcore.ModeAlternate:
		return "af"
	case halcore.ModeAnalog:
		return "analog"
	default:
		return "in"
	}
}

func hex16(v uint16) string {
	var b [4]byte
	return string(conv.U16Hex(b[:], v))
}

// ----------------------------- Identity --------------------------------------

type hostID struct{ b *Board }

func (h hostID) IDCode() uint32 { return h.b.IDCode }

// ----------------------------- Clock -----------------------------------------

// FakeClock records the configuration it was given.
type FakeClock struct {
	board *Board

	FailOscillator bool
	FailBuses      bool

	Applied     halcore.ClockConfig
	SysTickHCLK bool
}

func (c *FakeClock) ConfigureOscillator(cfg halcore.ClockConfig) error {
	c.board.record("rcc:osc")
	if c.FailOscillator {
		return ErrSimulated
	}
	c.Applied = cfg
	return nil
}

func (c *FakeClock) ConfigureBuses(cfg halcore.ClockConfig) error {
	c.board.record("rcc:bus")
	if c.FailBuses {
		return ErrSimulated
	}
	c.Applied.AHBDiv, c.Applied.APB1Div, c.Applied.APB2Div = cfg.AHBDiv, cfg.APB1Div, cfg.APB2Div
	c.Applied.FlashLatency = cfg.FlashLatency
	return nil
}

func (c *FakeClock) SysTickFromHCLK() {
	c.SysTickHCLK = true
	c.board.record("systick:hclk")
}

// ----------------------------- Flash -----------------------------------------

// FakeFlash models the flash key state machine of the reference manual:
// KEY1 then KEY2 unlocks; any other write raises a bus error and blocks
// unlocking until reset.
type FakeFlash struct {
	board  *Board
	locked bool
	stage  int // 0 idle, 1 KEY1 accepted, -1 blocked until reset

	// NoKeyLockout lets the unlock sequence succeed after a wrong key.
	NoKeyLockout bool
	// ClearAfterInvalid makes the lock bit read clear after a wrong key.
	ClearAfterInvalid bool
	// Silent suppresses bus errors.
	Silent bool

	Keys []uint32
}

func (f *FakeFlash) WriteKey(key uint32) {
	f.Keys = append(f.Keys, key)
	f.board.record("flash:keyr:" + conv.Hex32(key))
	if !f.locked {
		return
	}
	switch {
	case key == consts.FlashKey1 && f.stage == 0:
		f.stage = 1
		return
	case key == consts.FlashKey2 && f.stage == 1:
		f.locked = false
		f.stage = 0
		return
	}
	if f.NoKeyLockout {
		f.stage = 0
	} else {
		f.stage = -1
	}
	if f.ClearAfterInvalid {
		f.locked = false
	}
	if !f.Silent {
		f.board.busFault()
	}
}

func (f *FakeFlash) Locked() bool { return f.locked }

// ----------------------------- CPU -------------------------------------------

// FakeCPU counts sleeps and barriers and records the halt code instead of
// stopping. OnWait, when set, runs inside WaitForInterrupt to model the
// interrupt that wakes the core.
type FakeCPU struct {
	board *Board

	Waits    int
	Barriers int
	Halted   bool
	HaltCode errcode.Code
	OnWait   func()
}

func (c *FakeCPU) WaitForInterrupt() {
	c.Waits++
	c.board.record("cpu:wfi")
	if c.OnWait != nil {
		c.OnWait()
	}
}

func (c *FakeCPU) Barrier() { c.Barriers++ }

func (c *FakeCPU) Halt(code errcode.Code) {
	if c.Halted {
		return
	}
	c.Halted = true
	c.HaltCode = code
	c.board.record("cpu:halt:" + string(code))
}

// ----------------------------- SPI -------------------------------------------

// HostSPI implements tinygo drivers.SPI and echoes zeros.
type HostSPI struct {
	mu  sync.Mutex
	Out []byte
}

func (s *HostSPI) Tx(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Out = append(s.Out, w...)
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (s *HostSPI) Transfer(b byte) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Out = append(s.Out, b)
	return 0, nil
}
