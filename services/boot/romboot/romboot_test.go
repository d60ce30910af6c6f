package romboot

import (
	"bytes"
	"errors"
	"testing"
)

// fakePort replays canned bootloader replies and records what was sent.
type fakePort struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func newFake(reply ...byte) *fakePort { return &fakePort{in: bytes.NewReader(reply)} }

func (f *fakePort) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakePort) Write(p []byte) (int, error) { return f.out.Write(p) }

func TestSync(t *testing.T) {
	f := newFake(ack)
	if err := New(f).Sync(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.out.Bytes(), []byte{0x7F}) {
		t.Fatalf("sent % X", f.out.Bytes())
	}
	if err := New(newFake(nack)).Sync(); !errors.Is(err, ErrNACK) {
		t.Fatalf("nack: %v", err)
	}
	if err := New(newFake(0x00)).Sync(); !errors.Is(err, ErrBadReply) {
		t.Fatalf("garbage: %v", err)
	}
}

func TestVersion(t *testing.T) {
	f := newFake(ack, 2, 0x31, 0x00, 0x11, ack)
	v, err := New(f).Version()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x31 {
		t.Fatalf("version = %#x", v)
	}
	if !bytes.Equal(f.out.Bytes(), []byte{0x00, 0xFF}) {
		t.Fatalf("sent % X", f.out.Bytes())
	}
}

func TestReadMemory(t *testing.T) {
	data := []byte{0xEC, 0xAA, 0x13, 0x55}
	f := newFake(append([]byte{ack, ack, ack}, data...)...)
	got, err := New(f).ReadMemory(0x1FFFC000, len(data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("data % X", got)
	}
	want := []byte{
		0x11, 0xEE,
		0x1F, 0xFF, 0xC0, 0x00, 0x1F ^ 0xFF ^ 0xC0 ^ 0x00,
		0x03, 0xFC,
	}
	if !bytes.Equal(f.out.Bytes(), want) {
		t.Fatalf("sent % X want % X", f.out.Bytes(), want)
	}
}

func TestReadMemoryRejected(t *testing.T) {
	// Read Memory is refused while readout protection is active.
	if _, err := New(newFake(nack)).ReadMemory(0x08000000, 4); !errors.Is(err, ErrNACK) {
		t.Fatalf("err = %v", err)
	}
	if _, err := New(newFake()).ReadMemory(0, 0); !errors.Is(err, ErrLength) {
		t.Fatalf("len 0: %v", err)
	}
	if _, err := New(newFake()).ReadMemory(0, MaxRead+1); !errors.Is(err, ErrLength) {
		t.Fatalf("len max+1: %v", err)
	}
}
