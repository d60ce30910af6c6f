package modules

import "testing"

type dummyHost struct{}

func (dummyHost) Init(InterruptSink) error { return nil }
func (dummyHost) Process()                 {}

type dummyDownstream struct{}

func (dummyDownstream) Init(DownstreamInput) error  { return nil }
func (dummyDownstream) SPIProcess()                 {}
func (dummyDownstream) CheckNotifyDisconnectReply() {}

func TestRegisterAndLookup(t *testing.T) {
	if h, d := Lookup(); h != nil || d != nil {
		t.Skip("collaborators already registered by earlier test run")
	}
	RegisterUSBHost(dummyHost{})
	RegisterDownstream(dummyDownstream{})
	h, d := Lookup()
	if h == nil || d == nil {
		t.Fatal("lookup failed after registration")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	if h, _ := Lookup(); h == nil {
		RegisterUSBHost(dummyHost{})
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterUSBHost(dummyHost{})
}
