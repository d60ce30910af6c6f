// services/boot/internal/platform/platform.go
package platform

import (
	"downstream-go/errcode"
	"downstream-go/services/boot/internal/faultgate"
	"downstream-go/services/boot/internal/halcore"
)

// handleBusFault is the body of the bus fault handler on every platform.
// A fault with no armed permit is fatal.
func handleBusFault(g *faultgate.Gate, cpu halcore.CPU) bool {
	if g.Absorb() {
		return true
	}
	cpu.Halt(errcode.UnarmedFault)
	return false
}
