// Command wrpcheck verifies that the flash sectors holding the firmware
// are write-protected in the STM32F407 option bytes. Option bytes come
// either from an Intel HEX dump of 0x1FFFC000 or straight from a board
// held in its ROM bootloader (BOOT0 high).
//
//	wrpcheck -hex opt.hex -size 128KB
//	wrpcheck -port /dev/ttyUSB0 -size 128KB -save opt.hex
//
// Exit status: 0 protected, 1 writable sectors, 2 usage or I/O error.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"downstream-go/services/boot/optbytes"
	"downstream-go/services/boot/romboot"

	"github.com/inhies/go-bytesize"
	"go.bug.st/serial"
)

var (
	errTimeout = errors.New("serial read timeout")
	errNoImage = errors.New("image size must be non-zero")
	errTooBig  = errors.New("image larger than flash")
)

// timeoutReader turns the port's silent (0, nil) timeout into an error so
// io.ReadFull does not spin.
type timeoutReader struct {
	serial.Port
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.Port.Read(p)
	if n == 0 && err == nil {
		return 0, errTimeout
	}
	return n, err
}

func main() {
	hexPath := flag.String("hex", "", "Intel HEX dump of the option bytes")
	port := flag.String("port", "", "serial port of a board in ROM bootloader mode")
	baud := flag.Int("baud", 115200, "bootloader baud rate")
	save := flag.String("save", "", "write option bytes read from -port to this HEX file")
	size := bytesize.New(128 * 1024)
	flag.Var(&size, "size", "firmware image size (e.g. 128KB)")
	flag.Parse()

	if (*hexPath == "") == (*port == "") {
		fmt.Fprintln(os.Stderr, "wrpcheck: exactly one of -hex or -port is required")
		os.Exit(2)
	}

	sectors, err := imageSectors(size)
	if err != nil {
		fmt.Fprintln(os.Stderr, "wrpcheck:", err)
		os.Exit(2)
	}

	var opts optbytes.Options
	if *hexPath != "" {
		opts, err = fromFile(*hexPath)
	} else {
		opts, err = fromBoard(*port, *baud, *save)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "wrpcheck:", err)
		os.Exit(2)
	}

	fmt.Printf("rdp=%s user=0x%02X nwrp=0x%03X image=%s sectors=%v\n",
		opts.RDP, opts.User, opts.NWRP, size, sectors)
	if err := opts.Check(sectors); err != nil {
		fmt.Fprintln(os.Stderr, "wrpcheck:", err)
		os.Exit(1)
	}
	fmt.Println("ok: firmware sectors write-protected")
}

// imageSectors maps the image size to the sectors it occupies.
func imageSectors(size bytesize.ByteSize) ([]int, error) {
	if size == 0 {
		return nil, errNoImage
	}
	if uint64(size) > optbytes.FlashSize {
		return nil, errTooBig
	}
	return optbytes.SectorsFor(uint64(size)), nil
}

func fromFile(path string) (optbytes.Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return optbytes.Options{}, err
	}
	defer f.Close()
	return optbytes.FromHex(f)
}

func fromBoard(name string, baud int, save string) (optbytes.Options, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return optbytes.Options{}, err
	}
	defer p.Close()
	if err := p.SetReadTimeout(time.Second); err != nil {
		return optbytes.Options{}, err
	}

	raw, err := readOptions(romboot.New(timeoutReader{p}))
	if err != nil {
		return optbytes.Options{}, err
	}
	if save != "" {
		if err := writeHex(save, raw); err != nil {
			return optbytes.Options{}, err
		}
	}
	return optbytes.Decode(raw)
}

func readOptions(c *romboot.Conn) ([]byte, error) {
	if err := c.Sync(); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	v, err := c.Version()
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	fmt.Printf("bootloader v%d.%d\n", v>>4, v&0xF)
	raw, err := c.ReadMemory(optbytes.Base, optbytes.Size)
	if err != nil {
		return nil, fmt.Errorf("read 0x%08X: %w", optbytes.Base, err)
	}
	return raw, nil
}

func writeHex(path string, raw []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := optbytes.ToHex(f, raw); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
