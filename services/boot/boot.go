// services/boot/boot.go
package boot

import (
	"downstream-go/errcode"
	"downstream-go/services/boot/internal/bringup"
	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/flashlock"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/services/boot/internal/identity"
	"downstream-go/services/boot/internal/indicator"
	"downstream-go/services/boot/internal/platform"
	"downstream-go/services/boot/internal/scheduler"
	"downstream-go/services/boot/modules"
)

// State is a boot phase. Fault is terminal and reachable from every phase
// before Running.
type State uint8

const (
	ClockInit State = iota
	IdentityCheck
	FlashLockout
	ModuleInit
	Running
	Fault
)

func (s State) String() string {
	switch s {
	case ClockInit:
		return "clock_init"
	case IdentityCheck:
		return "identity_check"
	case FlashLockout:
		return "flash_lockout"
	case ModuleInit:
		return "module_init"
	case Running:
		return "running"
	default:
		return "fault"
	}
}

// successor is the only legal forward transition from s.
func successor(s State) (State, bool) {
	switch s {
	case ClockInit, IdentityCheck, FlashLockout, ModuleInit:
		return s + 1, true
	default:
		return Fault, false
	}
}

// Machine sequences boot and then hands over to the run loop.
type Machine struct {
	hw     halcore.Hardware
	leds   *indicator.Set
	locker *flashlock.Locker
	usb    modules.USBHost
	down   modules.Downstream

	state   State
	code    errcode.Code
	history []State

	sched scheduler.State
	loop  *scheduler.Loop
}

func New(hw halcore.Hardware, usb modules.USBHost, down modules.Downstream) *Machine {
	return &Machine{
		hw:      hw,
		leds:    indicator.New(hw.GPIO),
		locker:  flashlock.New(hw.Flash, hw.Faults, hw.CPU),
		usb:     usb,
		down:    down,
		state:   ClockInit,
		code:    errcode.OK,
		history: []State{ClockInit},
	}
}

// Main boots the board with the linked collaborators and runs forever.
// It returns only on host builds, after a fault.
func Main() {
	usb, down := modules.Lookup()
	New(platform.Default(), usb, down).Run()
}

// Run boots and, if every phase passed, runs the scheduler forever.
func (m *Machine) Run() {
	if m.Start() != nil {
		return
	}
	m.loop.Run()
}

// Start runs every boot phase in order and stops at Running. The first
// failing phase moves the machine to Fault and halts the CPU; on hardware
// Start then never returns.
func (m *Machine) Start() error {
	for m.state != Running {
		var err error
		switch m.state {
		case ClockInit:
			err = bringup.ConfigureClock(m.hw.Clock, consts.Clock)
		case IdentityCheck:
			err = identity.Check(m.hw.ID, m.hw.GPIO, m.leds)
		case FlashLockout:
			err = m.locker.Lock()
		case ModuleInit:
			err = m.initModules()
		default:
			err = errcode.InvalidTransition
		}
		if err != nil {
			m.fail(err)
			return err
		}
		next, _ := successor(m.state)
		if err := m.advance(next); err != nil {
			return err
		}
	}
	return nil
}

// advance moves to the successor of the current state. Anything else,
// including leaving Fault, is refused and faults the machine.
func (m *Machine) advance(to State) error {
	if want, ok := successor(m.state); !ok || want != to {
		err := &errcode.E{C: errcode.InvalidTransition, Op: "boot", Msg: m.state.String() + " -> " + to.String()}
		m.fail(err)
		return err
	}
	println("[boot]", m.state.String(), "->", to.String())
	m.state = to
	m.history = append(m.history, to)
	return nil
}

func (m *Machine) fail(err error) {
	if m.state == Fault {
		return
	}
	failed := m.state
	m.code = errcode.Of(err)
	println("[boot] fault in", failed.String()+":", err.Error())
	m.state = Fault
	m.history = append(m.history, Fault)
	// GPIOC is clocked from IdentityCheck on.
	if failed != ClockInit {
		m.leds.Light(indicator.Fault)
	}
	m.hw.CPU.Halt(m.code)
}

func (m *Machine) initModules() error {
	bringup.ConfigureGPIO(m.hw.GPIO, m.leds)

	if m.usb == nil || m.down == nil {
		return &errcode.E{C: errcode.MissingModule, Op: "modules", Msg: "usb host and downstream must be linked"}
	}
	if err := m.usb.Init(&m.sched); err != nil {
		return errcode.Wrap(errcode.ModuleInit, "usb host", err)
	}
	spi, err := m.hw.OpenSPI()
	if err != nil {
		return errcode.Wrap(errcode.ModuleInit, "spi", err)
	}
	in := modules.DownstreamInput{
		SPI:       spi,
		IntActive: ledIndicator{leds: m.leds, led: indicator.IntActive},
	}
	if err := m.down.Init(in); err != nil {
		return errcode.Wrap(errcode.ModuleInit, "downstream", err)
	}
	m.loop = scheduler.NewLoop(&m.sched, m.usb, m.down, m.hw.CPU)
	return nil
}

// State returns the current boot phase.
func (m *Machine) State() State { return m.state }

// Code returns the fault code, or errcode.OK.
func (m *Machine) Code() errcode.Code { return m.code }

// History lists every state entered, in order.
func (m *Machine) History() []State { return append([]State(nil), m.history...) }

// Step runs one scheduler iteration. Valid only in Running.
func (m *Machine) Step() bool {
	if m.state != Running {
		return false
	}
	return m.loop.Step()
}

type ledIndicator struct {
	leds *indicator.Set
	led  indicator.LED
}

func (l ledIndicator) On()  { l.leds.On(l.led) }
func (l ledIndicator) Off() { l.leds.Off(l.led) }
