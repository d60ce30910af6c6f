package optbytes

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"downstream-go/errcode"
)

func dump(rdp byte, nwrp uint16) []byte {
	b := make([]byte, Size)
	b[0] = 0xEC
	b[1] = rdp
	b[8] = byte(nwrp)
	b[9] = byte(nwrp >> 8)
	return b
}

func TestDecode(t *testing.T) {
	cases := []struct {
		rdp  byte
		want RDP
	}{
		{0xAA, RDPLevel0},
		{0xCC, RDPLevel2},
		{0x55, RDPLevel1},
	}
	for _, tc := range cases {
		o, err := Decode(dump(tc.rdp, 0x0FF0))
		if err != nil {
			t.Fatal(err)
		}
		if o.RDP != tc.want {
			t.Errorf("rdp 0x%02X: got %s want %s", tc.rdp, o.RDP, tc.want)
		}
		if o.User != 0xEC || o.NWRP != 0x0FF0 {
			t.Errorf("user/nwrp: %+v", o)
		}
	}
	if _, err := Decode(make([]byte, 4)); !errors.Is(err, ErrShort) {
		t.Fatalf("short dump: %v", err)
	}
}

func TestNWRPIgnoresUpperBits(t *testing.T) {
	o, _ := Decode(dump(0xAA, 0xF000))
	if o.NWRP != 0 {
		t.Fatalf("nwrp = %#x", o.NWRP)
	}
}

func TestCheck(t *testing.T) {
	o, _ := Decode(dump(0xAA, 0x0FFC)) // sectors 0,1 protected
	if err := o.Check([]int{0, 1}); err != nil {
		t.Fatalf("protected sectors: %v", err)
	}
	err := o.Check([]int{0, 1, 2, 11})
	if errcode.Of(err) != errcode.FlashWriteProtect {
		t.Fatalf("code = %v", err)
	}
	if !strings.Contains(err.Error(), "2,11") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestSectorsFor(t *testing.T) {
	cases := []struct {
		n    uint64
		want []int
	}{
		{0, nil},
		{1, []int{0}},
		{16 << 10, []int{0}},
		{16<<10 + 1, []int{0, 1}},
		{100 << 10, []int{0, 1, 2, 3, 4}},
		{200 << 10, []int{0, 1, 2, 3, 4, 5}},
	}
	for _, tc := range cases {
		if got := SectorsFor(tc.n); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SectorsFor(%d) = %v want %v", tc.n, got, tc.want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := ToHex(&buf, dump(0xAA, 0x0FF0)); err != nil {
		t.Fatal(err)
	}
	o, err := FromHex(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if o.RDP != RDPLevel0 || o.NWRP != 0x0FF0 {
		t.Fatalf("got %+v", o)
	}
	if o.Writable(0) || !o.Writable(4) {
		t.Fatalf("writable: 0=%v 4=%v", o.Writable(0), o.Writable(4))
	}
}

func TestFromHexMissing(t *testing.T) {
	hex := ":0400000001020304F2\n:00000001FF\n"
	if _, err := FromHex(strings.NewReader(hex)); !errors.Is(err, ErrMissing) {
		t.Fatalf("err = %v", err)
	}
}
