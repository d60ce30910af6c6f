// Package optbytes decodes STM32F405/407 user option bytes as read back
// by a programmer or the ROM bootloader. It runs on the host; nothing
// here is linked into the firmware.
package optbytes

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"downstream-go/errcode"

	"github.com/marcinbor85/gohex"
)

const (
	// Base is the first user option byte word (USER, RDP).
	Base uint32 = 0x1FFFC000
	// WRPAddr holds nWRP[11:0]; a cleared bit write-protects its sector.
	WRPAddr uint32 = 0x1FFFC008
	// Size covers both words.
	Size = 16

	NumSectors = 12
	sectorMask = 1<<NumSectors - 1

	// FlashSize is the main flash of the 1 MiB part.
	FlashSize = 1 << 20
)

// Readout protection levels.
type RDP uint8

const (
	RDPLevel0 RDP = 0
	RDPLevel1 RDP = 1
	RDPLevel2 RDP = 2
)

func (r RDP) String() string {
	switch r {
	case RDPLevel0:
		return "level0"
	case RDPLevel2:
		return "level2"
	default:
		return "level1"
	}
}

var (
	ErrShort   = errors.New("option bytes: short read")
	ErrMissing = errors.New("option bytes: no data at 0x1FFFC000")
)

// Options is the decoded user option byte block.
type Options struct {
	User uint8
	RDP  RDP
	// NWRP is the raw nWRP field; bit n set means sector n is writable.
	NWRP uint16
}

// Decode parses a raw dump that starts at Base.
func Decode(b []byte) (Options, error) {
	if len(b) < Size {
		return Options{}, ErrShort
	}
	o := Options{
		User: b[0],
		NWRP: (uint16(b[8]) | uint16(b[9])<<8) & sectorMask,
	}
	switch b[1] {
	case 0xAA:
		o.RDP = RDPLevel0
	case 0xCC:
		o.RDP = RDPLevel2
	default:
		o.RDP = RDPLevel1
	}
	return o, nil
}

// Writable reports whether sector n can be programmed.
func (o Options) Writable(n int) bool {
	return n >= 0 && n < NumSectors && o.NWRP&(1<<n) != 0
}

// Unprotected returns the sectors in want that are still writable.
func (o Options) Unprotected(want []int) []int {
	var out []int
	for _, n := range want {
		if o.Writable(n) {
			out = append(out, n)
		}
	}
	return out
}

// Check fails with FlashWriteProtect when any sector in want is writable.
func (o Options) Check(want []int) error {
	if open := o.Unprotected(want); len(open) > 0 {
		return &errcode.E{C: errcode.FlashWriteProtect, Op: "wrp", Msg: "sectors writable: " + sectorList(open)}
	}
	return nil
}

// Sector layout of the 1 MiB part: 4 x 16K, 1 x 64K, 7 x 128K.
var sectorSizes = [NumSectors]uint32{
	16 << 10, 16 << 10, 16 << 10, 16 << 10,
	64 << 10,
	128 << 10, 128 << 10, 128 << 10, 128 << 10, 128 << 10, 128 << 10, 128 << 10,
}

// SectorsFor returns the sectors spanned by an image of n bytes
// programmed at the start of flash.
func SectorsFor(n uint64) []int {
	var out []int
	var end uint64
	for i, sz := range sectorSizes {
		if end >= n {
			break
		}
		out = append(out, i)
		end += uint64(sz)
	}
	return out
}

// FromHex extracts the option block from an Intel HEX dump.
func FromHex(r io.Reader) (Options, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return Options{}, err
	}
	buf := make([]byte, Size)
	found := false
	for _, seg := range mem.GetDataSegments() {
		for i, v := range seg.Data {
			a := seg.Address + uint32(i)
			if a >= Base && a < Base+Size {
				buf[a-Base] = v
				found = true
			}
		}
	}
	if !found {
		return Options{}, ErrMissing
	}
	return Decode(buf)
}

// ToHex writes a raw option dump back out as Intel HEX at Base.
func ToHex(w io.Writer, raw []byte) error {
	mem := gohex.NewMemory()
	if err := mem.AddBinary(Base, raw); err != nil {
		return err
	}
	return mem.DumpIntelHex(w, 16)
}

func sectorList(s []int) string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
