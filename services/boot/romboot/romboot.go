// Package romboot talks to the STM32 system-memory bootloader over USART
// (8E1, auto-baud). Only the commands needed to read option bytes are
// implemented.
package romboot

import (
	"errors"
	"io"
)

const (
	ack  = 0x79
	nack = 0x1F

	cmdSync = 0x7F
	cmdGet  = 0x00
	cmdRead = 0x11

	// MaxRead is the largest single Read Memory transfer.
	MaxRead = 256
)

var (
	ErrNACK     = errors.New("romboot: nack")
	ErrBadReply = errors.New("romboot: unexpected reply")
	ErrLength   = errors.New("romboot: read length out of range")
)

// Conn is a bootloader session over an open serial port.
type Conn struct {
	rw io.ReadWriter
}

func New(rw io.ReadWriter) *Conn { return &Conn{rw: rw} }

// Sync sends the auto-baud byte and waits for the bootloader's ACK.
func (c *Conn) Sync() error {
	if _, err := c.rw.Write([]byte{cmdSync}); err != nil {
		return err
	}
	return c.waitAck()
}

// Version returns the bootloader protocol version from the Get command.
func (c *Conn) Version() (byte, error) {
	if err := c.command(cmdGet); err != nil {
		return 0, err
	}
	var hdr [2]byte
	if _, err := io.ReadFull(c.rw, hdr[:]); err != nil {
		return 0, err
	}
	// hdr[0] is the count of command bytes that follow the version.
	rest := make([]byte, int(hdr[0]))
	if _, err := io.ReadFull(c.rw, rest); err != nil {
		return 0, err
	}
	return hdr[1], c.waitAck()
}

// ReadMemory reads n bytes (1..MaxRead) starting at addr.
func (c *Conn) ReadMemory(addr uint32, n int) ([]byte, error) {
	if n < 1 || n > MaxRead {
		return nil, ErrLength
	}
	if err := c.command(cmdRead); err != nil {
		return nil, err
	}
	a := []byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
	if err := c.send(append(a, xor(a))); err != nil {
		return nil, err
	}
	l := byte(n - 1)
	if err := c.send([]byte{l, ^l}); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(c.rw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conn) command(cmd byte) error {
	return c.send([]byte{cmd, ^cmd})
}

func (c *Conn) send(b []byte) error {
	if _, err := c.rw.Write(b); err != nil {
		return err
	}
	return c.waitAck()
}

func (c *Conn) waitAck() error {
	var b [1]byte
	if _, err := io.ReadFull(c.rw, b[:]); err != nil {
		return err
	}
	switch b[0] {
	case ack:
		return nil
	case nack:
		return ErrNACK
	default:
		return ErrBadReply
	}
}

func xor(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}
