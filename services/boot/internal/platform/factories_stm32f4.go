// services/boot/internal/platform/factories_stm32f4.go
//go:build stm32f407 && h407

package platform

import (
	"device/arm"
	"device/stm32"
	"errors"
	"machine"
	"runtime/volatile"
	"unsafe"

	"downstream-go/errcode"
	"downstream-go/services/boot/internal/faultgate"
	"downstream-go/services/boot/internal/halcore"

	"tinygo.org/x/drivers"
)

// -----------------------------------------------------------------------------
// Defaults used by boot.Main on the Olimex H407 (STM32F407)
// -----------------------------------------------------------------------------

// faults is shared with BusFault_Handler.
var faults faultgate.Gate

var (
	dbgmcuIDCODE = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE0042000)))
	scbSHCSR     = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000ED24)))
	scbCFSR      = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000ED28)))
	systCSR      = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000E010)))
)

const (
	shcsrBusFaultEna = 1 << 17
	cfsrBFSRMask     = 0xFF << 8
	systCSRClkSource = 1 << 2
)

// Default returns the register-backed hardware. Bus faults are routed to
// their own handler so a permitted fault never escalates to HardFault.
func Default() halcore.Hardware {
	scbSHCSR.SetBits(shcsrBusFaultEna)
	arm.Asm("dsb 0xF")
	arm.Asm("isb 0xF")

	return halcore.Hardware{
		Clock:   rccClock{},
		GPIO:    gpioBanks{},
		ID:      dbgmcu{},
		Flash:   flashCtl{},
		CPU:     cortexM4{},
		Faults:  &faults,
		OpenSPI: openSPI,
	}
}

// Key register writes are buffered, so their bus error arrives as an
// imprecise fault after the store retired and returning resumes past it.
// A precise fault re-executes the store, faults again without a permit
// and halts.
//
//go:export BusFault_Handler
func busFaultHandler() {
	if handleBusFault(&faults, cortexM4{}) {
		scbCFSR.Set(cfsrBFSRMask)
	}
}

// ---- SPI ----

func openSPI() (drivers.SPI, error) {
	spi := machine.SPI1
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 10_500_000,
		SCK:       machine.SPI1_SCK_PIN,
		SDO:       machine.SPI1_SDO_PIN,
		SDI:       machine.SPI1_SDI_PIN,
		Mode:      0,
	}); err != nil {
		return nil, err
	}
	return spi, nil
}

// ---- CPU ----

type cortexM4 struct{}

func (cortexM4) WaitForInterrupt() { arm.Asm("wfi") }

func (cortexM4) Barrier() {
	arm.Asm("dsb 0xF")
	arm.Asm("isb 0xF")
}

func (cortexM4) Halt(errcode.Code) {
	arm.DisableInterrupts()
	for {
		arm.Asm("wfi")
	}
}

// ---- Identity ----

type dbgmcu struct{}

func (dbgmcu) IDCode() uint32 { return dbgmcuIDCODE.Get() }

// ---- Flash ----

const flashCRLock = 1 << 31

type flashCtl struct{}

func (flashCtl) WriteKey(key uint32) { stm32.FLASH.KEYR.Set(key) }
func (flashCtl) Locked() bool        { return stm32.FLASH.CR.HasBits(flashCRLock) }

// ---- GPIO ----

var gpioRegs = [halcore.NumBanks]*stm32.GPIO_Type{
	stm32.GPIOA, stm32.GPIOB, stm32.GPIOC, stm32.GPIOD,
	stm32.GPIOE, stm32.GPIOF, stm32.GPIOG,
}

type gpioBanks struct{}

func (gpioBanks) EnableClock(b halcore.Bank) {
	stm32.RCC.AHB1ENR.SetBits(1 << b)
	// Read back so the clock is running before the first port access.
	_ = stm32.RCC.AHB1ENR.Get()
}

func (gpioBanks) Port(b halcore.Bank) halcore.Port { return gpioPort{r: gpioRegs[b]} }

// gpioPort writes halcore enums straight into MODER/PUPDR/OSPEEDR; their
// values match the two-bit register encodings.
type gpioPort struct {
	r *stm32.GPIO_Type
}

func (p gpioPort) Configure(cfg halcore.PinConfig) {
	for i := uint8(0); i < 16; i++ {
		if cfg.Pins&(1<<i) == 0 {
			continue
		}
		if cfg.Mode == halcore.ModeAlternate {
			if i < 8 {
				p.r.AFRL.ReplaceBits(uint32(cfg.Alt), 0xF, i*4)
			} else {
				p.r.AFRH.ReplaceBits(uint32(cfg.Alt), 0xF, (i-8)*4)
			}
		}
		p.r.OSPEEDR.ReplaceBits(uint32(cfg.Speed), 0x3, i*2)
		p.r.OTYPER.ClearBits(1 << i)
		p.r.MODER.ReplaceBits(uint32(cfg.Mode), 0x3, i*2)
		p.r.PUPDR.ReplaceBits(uint32(cfg.Pull), 0x3, i*2)
	}
}

func (p gpioPort) SetBits(mask uint16)   { p.r.BSRR.Set(uint32(mask)) }
func (p gpioPort) ResetBits(mask uint16) { p.r.BSRR.Set(uint32(mask) << 16) }
func (p gpioPort) Read() uint16          { return uint16(p.r.IDR.Get()) }

// ---- Clock ----

const (
	rccCR_HSION  = 1 << 0
	rccCR_HSIRDY = 1 << 1
	rccCR_HSEON  = 1 << 16
	rccCR_HSERDY = 1 << 17
	rccCR_PLLON  = 1 << 24
	rccCR_PLLRDY = 1 << 25

	rccCFGR_SW_Pos    = 0
	rccCFGR_SWS_Pos   = 2
	rccCFGR_HPRE_Pos  = 4
	rccCFGR_PPRE1_Pos = 10
	rccCFGR_PPRE2_Pos = 13
	rccCFGR_SW_HSI    = 0
	rccCFGR_SW_PLL    = 2

	rccPLLCFGR_PLLN_Pos  = 6
	rccPLLCFGR_PLLP_Pos  = 16
	rccPLLCFGR_PLLSRC    = 1 << 22
	rccPLLCFGR_PLLQ_Pos  = 24
	rccAPB1ENR_PWREN     = 1 << 28
	pwrCR_VOS            = 1 << 14
	flashACR_PRFTEN      = 1 << 8
	flashACR_ICEN        = 1 << 9
	flashACR_DCEN        = 1 << 10
	flashACR_LATENCY_Msk = 0x7

	// Busy-wait bound for oscillator, PLL and switch status bits.
	clockTimeout = 0x50000
)

var (
	errHSITimeout    = errors.New("hsi_timeout")
	errHSETimeout    = errors.New("hse_timeout")
	errPLLTimeout    = errors.New("pll_timeout")
	errSwitchTimeout = errors.New("sysclk_switch_timeout")
	errFlashLatency  = errors.New("flash_latency_not_applied")
)

type rccClock struct{}

// ConfigureOscillator parks SYSCLK on HSI (the runtime may already run
// from the PLL), then brings up HSE and the PLL with cfg's factors.
func (rccClock) ConfigureOscillator(cfg halcore.ClockConfig) error {
	stm32.RCC.CR.SetBits(rccCR_HSION)
	if !waitFor(func() bool { return stm32.RCC.CR.HasBits(rccCR_HSIRDY) }) {
		return errHSITimeout
	}
	if err := switchSysclk(rccCFGR_SW_HSI); err != nil {
		return err
	}
	stm32.RCC.CR.ClearBits(rccCR_PLLON)
	if !waitFor(func() bool { return !stm32.RCC.CR.HasBits(rccCR_PLLRDY) }) {
		return errPLLTimeout
	}

	stm32.RCC.APB1ENR.SetBits(rccAPB1ENR_PWREN)
	if cfg.VoltageScale == 1 {
		stm32.PWR.CR.SetBits(pwrCR_VOS)
	} else {
		stm32.PWR.CR.ClearBits(pwrCR_VOS)
	}

	stm32.RCC.CR.SetBits(rccCR_HSEON)
	if !waitFor(func() bool { return stm32.RCC.CR.HasBits(rccCR_HSERDY) }) {
		return errHSETimeout
	}

	stm32.RCC.PLLCFGR.Set(cfg.PLLM |
		cfg.PLLN<<rccPLLCFGR_PLLN_Pos |
		(cfg.PLLP/2-1)<<rccPLLCFGR_PLLP_Pos |
		rccPLLCFGR_PLLSRC |
		cfg.PLLQ<<rccPLLCFGR_PLLQ_Pos)
	stm32.RCC.CR.SetBits(rccCR_PLLON)
	if !waitFor(func() bool { return stm32.RCC.CR.HasBits(rccCR_PLLRDY) }) {
		return errPLLTimeout
	}
	return nil
}

// ConfigureBuses raises flash wait states first, then sets the dividers
// and moves SYSCLK to the PLL.
func (rccClock) ConfigureBuses(cfg halcore.ClockConfig) error {
	stm32.FLASH.ACR.Set(flashACR_PRFTEN | flashACR_ICEN | flashACR_DCEN | cfg.FlashLatency&flashACR_LATENCY_Msk)
	if stm32.FLASH.ACR.Get()&flashACR_LATENCY_Msk != cfg.FlashLatency {
		return errFlashLatency
	}
	stm32.RCC.CFGR.ReplaceBits(hpreBits(cfg.AHBDiv), 0xF, rccCFGR_HPRE_Pos)
	stm32.RCC.CFGR.ReplaceBits(ppreBits(cfg.APB1Div), 0x7, rccCFGR_PPRE1_Pos)
	stm32.RCC.CFGR.ReplaceBits(ppreBits(cfg.APB2Div), 0x7, rccCFGR_PPRE2_Pos)
	return switchSysclk(rccCFGR_SW_PLL)
}

func (rccClock) SysTickFromHCLK() { systCSR.SetBits(systCSRClkSource) }

func switchSysclk(src uint32) error {
	stm32.RCC.CFGR.ReplaceBits(src, 0x3, rccCFGR_SW_Pos)
	if !waitFor(func() bool { return (stm32.RCC.CFGR.Get()>>rccCFGR_SWS_Pos)&0x3 == src }) {
		return errSwitchTimeout
	}
	return nil
}

func waitFor(ready func() bool) bool {
	for n := 0; n < clockTimeout; n++ {
		if ready() {
			return true
		}
	}
	return false
}

// hpreBits encodes an AHB prescaler (1, 2..16, 64..512).
func hpreBits(div uint32) uint32 {
	switch div {
	case 2:
		return 0b1000
	case 4:
		return 0b1001
	case 8:
		return 0b1010
	case 16:
		return 0b1011
	case 64:
		return 0b1100
	case 128:
		return 0b1101
	case 256:
		return 0b1110
	case 512:
		return 0b1111
	default:
		return 0
	}
}

// ppreBits encodes an APB prescaler (1, 2, 4, 8, 16).
func ppreBits(div uint32) uint32 {
	switch div {
	case 2:
		return 0b100
	case 4:
		return 0b101
	case 8:
		return 0b110
	case 16:
		return 0b111
	default:
		return 0
	}
}
