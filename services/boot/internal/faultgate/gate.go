// services/boot/internal/faultgate/gate.go
package faultgate

import (
	"sync/atomic"

	"downstream-go/errcode"
)

// Gate coordinates deliberately provoked bus faults with the fault handler.
// At most one Permit is outstanding; each permits exactly one fault.
// Absorb runs in handler context and must not block or log.
type Gate struct {
	armed    atomic.Uint32 // generation of the outstanding permit, 0 = none
	gen      uint32        // last issued generation; main context only
	absorbed atomic.Uint32
	revoked  atomic.Uint32
}

// Permit is the capability handed out by Arm. It is spent either by the
// fault handler (Absorb) or by Revoke, whichever comes first.
type Permit struct {
	g   *Gate
	gen uint32
}

// Arm issues a permit for exactly one fault.
func (g *Gate) Arm() (Permit, error) {
	if g.armed.Load() != 0 {
		return Permit{}, errcode.PermitOutstanding
	}
	g.gen++
	if g.gen == 0 {
		g.gen = 1
	}
	g.armed.Store(g.gen)
	return Permit{g: g, gen: g.gen}, nil
}

// Absorb is called by the bus fault handler. It consumes the outstanding
// permit and reports true, or reports false when no permit is armed; the
// handler must then halt with errcode.UnarmedFault.
func (g *Gate) Absorb() bool {
	for {
		cur := g.armed.Load()
		if cur == 0 {
			return false
		}
		if g.armed.CompareAndSwap(cur, 0) {
			g.absorbed.Add(1)
			return true
		}
	}
}

// Consumed reports whether the fault handler spent this permit.
func (p Permit) Consumed() bool {
	return p.g == nil || p.g.armed.Load() != p.gen
}

// Revoke withdraws the permit if it is still armed and reports whether it
// was. A revoked permit can no longer absorb a fault.
func (p Permit) Revoke() bool {
	if p.g == nil {
		return false
	}
	if p.g.armed.CompareAndSwap(p.gen, 0) {
		p.g.revoked.Add(1)
		return true
	}
	return false
}

// Expect arms a permit, runs op, completes outstanding accesses with
// barrier, then revokes the permit if no fault spent it. It reports
// whether op's fault was absorbed.
func (g *Gate) Expect(op func(), barrier func()) (faulted bool, err error) {
	p, err := g.Arm()
	if err != nil {
		return false, err
	}
	op()
	if barrier != nil {
		barrier()
	}
	return !p.Revoke(), nil
}

// Armed reports whether a permit is outstanding.
func (g *Gate) Armed() bool { return g.armed.Load() != 0 }

// Absorbed counts faults consumed through permits.
func (g *Gate) Absorbed() uint32 { return g.absorbed.Load() }

// Revoked counts permits withdrawn without a fault.
func (g *Gate) Revoked() uint32 { return g.revoked.Load() }
