package errcode

// Code is a stable error identifier for boot and runtime faults.
// It is a string newtype, comparable, allocation-free, and implements error.
// Every Code that reaches the boot Fault state is terminal.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Boot sequence
	ClockConfig       Code = "clock_config"
	WrongHardware     Code = "wrong_hardware"
	FlashUnlockable   Code = "flash_unlockable"
	FlashWriteProtect Code = "flash_write_protect"
	AlreadyLocked     Code = "already_locked"
	MissingModule     Code = "missing_module"
	ModuleInit        Code = "module_init"
	InvalidTransition Code = "invalid_transition"

	// Fault gate
	UnarmedFault      Code = "unarmed_fault"
	PermitOutstanding Code = "permit_outstanding"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap returns an *E for op carrying code c and cause err.
func Wrap(c Code, op string, err error) *E {
	e := &E{C: c, Op: op, Err: err}
	if err != nil {
		e.Msg = err.Error()
	}
	return e
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
