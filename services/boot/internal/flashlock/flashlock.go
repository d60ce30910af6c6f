// services/boot/internal/flashlock/flashlock.go
package flashlock

import (
	"downstream-go/errcode"
	"downstream-go/services/boot/internal/consts"
	"downstream-go/services/boot/internal/faultgate"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/x/conv"
)

// Locker disables flash programming until the next reset and proves it.
//
// A wrong value in the key register makes the controller raise a bus
// error and refuse unlocking until reset. Lock writes one, checks the lock
// bit, then attempts the real unlock sequence, which must fault too and
// leave the bit set. Every key write runs under a single fault permit.
type Locker struct {
	flash halcore.FlashController
	gate  *faultgate.Gate
	cpu   halcore.CPU

	ran      bool
	absorbed int
}

func New(flash halcore.FlashController, gate *faultgate.Gate, cpu halcore.CPU) *Locker {
	return &Locker{flash: flash, gate: gate, cpu: cpu}
}

// Lock runs the lockout once. Any error is fatal to boot; on error the
// sequence stops at the failing check.
func (l *Locker) Lock() error {
	if l.ran {
		return errcode.AlreadyLocked
	}
	l.ran = true

	if err := l.writeKey(consts.FlashKeyInvalid); err != nil {
		return err
	}
	if !l.flash.Locked() {
		return &errcode.E{C: errcode.FlashUnlockable, Op: "flashlock", Msg: "lock clear after invalid key"}
	}

	// These must fault as well; they verify, they do not unlock.
	for _, k := range [...]uint32{consts.FlashKey1, consts.FlashKey2} {
		if err := l.writeKey(k); err != nil {
			return err
		}
	}
	if !l.flash.Locked() {
		return &errcode.E{C: errcode.FlashWriteProtect, Op: "flashlock", Msg: "unlock sequence cleared lock"}
	}
	return nil
}

// Absorbed is the number of key writes whose bus fault was consumed.
func (l *Locker) Absorbed() int { return l.absorbed }

func (l *Locker) writeKey(key uint32) error {
	faulted, err := l.gate.Expect(func() { l.flash.WriteKey(key) }, l.cpu.Barrier)
	if err != nil {
		return &errcode.E{C: errcode.Of(err), Op: "flashlock", Err: err}
	}
	if faulted {
		l.absorbed++
	} else {
		// The lock bit check decides; a quiet write is only worth a note.
		println("[flash] key write raised no fault:", conv.Hex32(key))
	}
	return nil
}
