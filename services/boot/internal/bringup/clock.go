// services/boot/internal/bringup/clock.go
package bringup

import (
	"downstream-go/errcode"
	"downstream-go/services/boot/internal/halcore"
	"downstream-go/x/mathx"
)

const mhz = 1_000_000

// STM32F405/407 limits (RM0090, DS8626).
const (
	vcoInMin, vcoInMax   = 1 * mhz, 2 * mhz
	vcoOutMin, vcoOutMax = 100 * mhz, 432 * mhz
	usbHz                = 48 * mhz
	sysclkMax            = 168 * mhz
	hclkMaxScale2        = 144 * mhz
	pclk1Max             = 42 * mhz
	pclk2Max             = 84 * mhz
	// One wait state per 30 MHz of HCLK at 2.7-3.6 V.
	flashHzPerWaitState = 30 * mhz
)

// Frequencies derived from a ClockConfig.
type Frequencies struct {
	VCO, Sysclk, HCLK, PCLK1, PCLK2, USB uint32
}

// Derive computes the clock tree for cfg without validating it.
func Derive(cfg halcore.ClockConfig) Frequencies {
	var f Frequencies
	if cfg.PLLM == 0 || cfg.PLLP == 0 || cfg.PLLQ == 0 || cfg.AHBDiv == 0 || cfg.APB1Div == 0 || cfg.APB2Div == 0 {
		return f
	}
	f.VCO = cfg.HSEHz / cfg.PLLM * cfg.PLLN
	f.Sysclk = f.VCO / cfg.PLLP
	f.USB = f.VCO / cfg.PLLQ
	f.HCLK = f.Sysclk / cfg.AHBDiv
	f.PCLK1 = f.HCLK / cfg.APB1Div
	f.PCLK2 = f.HCLK / cfg.APB2Div
	return f
}

// Validate checks cfg against the silicon's PLL and bus limits.
func Validate(cfg halcore.ClockConfig) error {
	if !mathx.Between(cfg.PLLM, 2, 63) || !mathx.Between(cfg.PLLN, 50, 432) ||
		!mathx.OneOf(cfg.PLLP, 2, 4, 6, 8) || !mathx.Between(cfg.PLLQ, 2, 15) {
		return ErrPLLFactor
	}
	if !mathx.OneOf(cfg.AHBDiv, 1, 2, 4, 8, 16, 64, 128, 256, 512) ||
		!mathx.OneOf(cfg.APB1Div, 1, 2, 4, 8, 16) || !mathx.OneOf(cfg.APB2Div, 1, 2, 4, 8, 16) {
		return ErrBusDivider
	}
	if !mathx.OneOf(cfg.VoltageScale, 1, 2) {
		return ErrVoltageScale
	}
	if !mathx.Between(cfg.HSEHz/cfg.PLLM, vcoInMin, vcoInMax) {
		return ErrVCOInput
	}
	f := Derive(cfg)
	if !mathx.Between(f.VCO, vcoOutMin, vcoOutMax) {
		return ErrVCOOutput
	}
	if usb, exact := mathx.ExactDiv(f.VCO, cfg.PLLQ); !exact || usb != usbHz {
		return ErrUSBClock
	}
	if f.Sysclk > sysclkMax || (cfg.VoltageScale == 2 && f.HCLK > hclkMaxScale2) {
		return ErrSysclk
	}
	if f.PCLK1 > pclk1Max || f.PCLK2 > pclk2Max {
		return ErrBusClock
	}
	if cfg.FlashLatency < mathx.CeilDiv(f.HCLK, flashHzPerWaitState)-1 {
		return ErrFlashLatency
	}
	return nil
}

// ConfigureClock validates cfg, starts the oscillator and PLL, sets the
// bus dividers and switches SysTick to HCLK. Any error is fatal to boot.
func ConfigureClock(clk halcore.ClockController, cfg halcore.ClockConfig) error {
	if err := Validate(cfg); err != nil {
		return errcode.Wrap(errcode.ClockConfig, "validate", err)
	}
	if err := clk.ConfigureOscillator(cfg); err != nil {
		return errcode.Wrap(errcode.ClockConfig, "oscillator", err)
	}
	if err := clk.ConfigureBuses(cfg); err != nil {
		return errcode.Wrap(errcode.ClockConfig, "buses", err)
	}
	clk.SysTickFromHCLK()
	return nil
}
