// services/boot/internal/bringup/errors.go
package bringup

import "errors"

var (
	ErrPLLFactor    = errors.New("pll_factor_out_of_range")
	ErrVCOInput     = errors.New("vco_input_out_of_range")
	ErrVCOOutput    = errors.New("vco_output_out_of_range")
	ErrUSBClock     = errors.New("usb_clock_not_48mhz")
	ErrSysclk       = errors.New("sysclk_too_high")
	ErrBusDivider   = errors.New("bus_divider_invalid")
	ErrBusClock     = errors.New("bus_clock_too_high")
	ErrFlashLatency = errors.New("flash_latency_too_low")
	ErrVoltageScale = errors.New("voltage_scale_invalid")
)
