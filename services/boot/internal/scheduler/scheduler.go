// services/boot/internal/scheduler/scheduler.go
package scheduler

import (
	"sync/atomic"

	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/services/boot/modules"
)

// State is shared between the USB interrupt and the main loop.
// The interrupt only ever sets the flag; the loop reads and clears it and
// owns the idle counter.
type State struct {
	interrupted atomic.Bool
	idle        uint8 // iterations since the last observed interrupt; wraps
}

var _ modules.InterruptSink = (*State)(nil)

// Interrupt records a USB interrupt. Safe to call from handler context.
func (s *State) Interrupt() { s.interrupted.Store(true) }

// Idle returns the idle iteration count. Main loop only.
func (s *State) Idle() uint8 { return s.idle }

// Loop services the USB host and the downstream processor on every
// iteration and sleeps the core once the USB side has been quiet for more
// than consts.IdleThreshold iterations.
type Loop struct {
	state *State
	usb   modules.USBHost
	down  modules.Downstream
	cpu   halcore.CPU
}

func NewLoop(state *State, usb modules.USBHost, down modules.Downstream, cpu halcore.CPU) *Loop {
	return &Loop{state: state, usb: usb, down: down, cpu: cpu}
}

// Step runs one iteration and reports whether it slept.
func (l *Loop) Step() bool {
	l.usb.Process()
	l.down.SPIProcess()
	l.down.CheckNotifyDisconnectReply()

	s := l.state
	if s.interrupted.Swap(false) {
		s.idle = 0
		return false
	}
	s.idle++
	if s.idle > consts.IdleThreshold {
		l.cpu.WaitForInterrupt()
		return true
	}
	return false
}

// Run never returns.
func (l *Loop) Run() {
	for {
		l.Step()
	}
}
