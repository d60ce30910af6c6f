// services/boot/modules/modules.go
package modules

import (
	"fmt"
	"sync"

	"tinygo.org/x/drivers"
)

// InterruptSink receives USB interrupt notifications. Interrupt is called
// from handler context and must not block.
type InterruptSink interface {
	Interrupt()
}

// Indicator is a single on/off board indicator.
type Indicator interface {
	On()
	Off()
}

// USBHost is the USB host stack as seen by the boot sequence and the run
// loop. Process does a bounded amount of pending work and returns.
type USBHost interface {
	Init(irq InterruptSink) error
	Process()
}

// DownstreamInput carries the resources handed to the downstream processor.
type DownstreamInput struct {
	SPI       drivers.SPI
	IntActive Indicator
}

// Downstream is the downstream state machine and its SPI transport.
// SPIProcess and CheckNotifyDisconnectReply are non-blocking.
type Downstream interface {
	Init(in DownstreamInput) error
	SPIProcess()
	CheckNotifyDisconnectReply()
}

var (
	mu         sync.RWMutex
	usbHost    USBHost
	downstream Downstream
)

// RegisterUSBHost links the USB host stack. Call from init().
func RegisterUSBHost(h USBHost) {
	mu.Lock()
	defer mu.Unlock()
	if usbHost != nil {
		panic(fmt.Sprintf("usb host already registered: %T", usbHost))
	}
	usbHost = h
}

// RegisterDownstream links the downstream processor. Call from init().
func RegisterDownstream(d Downstream) {
	mu.Lock()
	defer mu.Unlock()
	if downstream != nil {
		panic(fmt.Sprintf("downstream already registered: %T", downstream))
	}
	downstream = d
}

// Lookup returns the registered collaborators; either may be nil.
func Lookup() (USBHost, Downstream) {
	mu.RLock()
	defer mu.RUnlock()
	return usbHost, downstream
}
