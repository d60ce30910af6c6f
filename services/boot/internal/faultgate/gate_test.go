package faultgate

import (
	"testing"

	"downstream-go/errcode"
)

func TestAbsorbWithoutPermitIsRejected(t *testing.T) {
	var g Gate
	if g.Absorb() {
		t.Fatal("Absorb must refuse a fault with no permit armed")
	}
	if g.Absorbed() != 0 {
		t.Fatalf("absorbed = %d, want 0", g.Absorbed())
	}
}

func TestOnePermitAbsorbsOneFault(t *testing.T) {
	var g Gate
	p, err := g.Arm()
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if !g.Absorb() {
		t.Fatal("first fault should be absorbed")
	}
	if g.Absorb() {
		t.Fatal("second fault on the same permit must not be absorbed")
	}
	if !p.Consumed() {
		t.Fatal("permit should report consumed")
	}
	if p.Revoke() {
		t.Fatal("revoking a spent permit should report false")
	}
}

func TestArmTwiceFails(t *testing.T) {
	var g Gate
	if _, err := g.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if _, err := g.Arm(); errcode.Of(err) != errcode.PermitOutstanding {
		t.Fatalf("second Arm err = %v, want %s", err, errcode.PermitOutstanding)
	}
}

func TestExpect(t *testing.T) {
	var g Gate
	barriers := 0
	barrier := func() { barriers++ }

	faulted, err := g.Expect(func() {
		if !g.Absorb() {
			t.Fatal("op fault should find an armed permit")
		}
	}, barrier)
	if err != nil || !faulted {
		t.Fatalf("faulting op: faulted=%v err=%v", faulted, err)
	}

	faulted, err = g.Expect(func() {}, barrier)
	if err != nil || faulted {
		t.Fatalf("quiet op: faulted=%v err=%v", faulted, err)
	}
	if g.Armed() {
		t.Fatal("unspent permit must be revoked after Expect")
	}
	if g.Absorb() {
		t.Fatal("a stray fault after Expect must not be absorbed")
	}
	if barriers != 2 {
		t.Fatalf("barrier ran %d times, want 2", barriers)
	}
	if g.Absorbed() != 1 || g.Revoked() != 1 {
		t.Fatalf("absorbed=%d revoked=%d, want 1/1", g.Absorbed(), g.Revoked())
	}
}

func TestStalePermitCannotRevokeNewer(t *testing.T) {
	var g Gate
	old, _ := g.Arm()
	g.Absorb()
	fresh, err := g.Arm()
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if old.Revoke() {
		t.Fatal("a spent permit must not withdraw a newer one")
	}
	if !g.Armed() || fresh.Consumed() {
		t.Fatal("newer permit should still be armed")
	}
}
