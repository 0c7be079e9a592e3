// Package gb wires the 8-bit console: CPU, MMU, LCD and APU. The MMU is
// the root owner of memory; the CPU, LCD and APU hold non-owning
// references installed here.
package gb

import (
	"errors"

	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/cart"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
	gbaudio "github.com/CaptainCaffeine/Chroma/chroma/gb/audio"
	"github.com/CaptainCaffeine/Chroma/chroma/gb/cpu"
	"github.com/CaptainCaffeine/Chroma/chroma/gb/memory"
	"github.com/CaptainCaffeine/Chroma/chroma/gb/video"
)

// frameCycles is the master-cycle budget of one frame at standard
// speed; the budget doubles after a CGB speed switch.
const frameCycles = 69920

// ErrCPUHung is returned when the CPU entered the unrecoverable STOP
// state, as real hardware does with all joypad lines disabled.
var ErrCPUHung = errors.New("CPU hung")

// GameBoy is a DMG or CGB console instance.
type GameBoy struct {
	cpu *cpu.CPU
	mmu *memory.MMU
	lcd *video.LCD
	apu *gbaudio.APU

	// cycleDebt carries frame-budget overshoot into the next frame.
	cycleDebt int
}

// New builds a console for a parsed cartridge. forceDMG runs a
// CGB-capable cartridge in DMG mode.
func New(header cart.Header, rom []uint8, forceDMG bool, filter gbaudio.Filter) *GameBoy {
	cgbMode := header.Mode == cart.ModeCGB && !forceDMG

	mmu := memory.New(header, rom, cgbMode)
	lcd := video.New(mmu, cgbMode)
	apu := gbaudio.New(filter)
	mmu.AttachVideo(lcd)
	mmu.AttachAudio(apu)

	return &GameBoy{
		cpu: cpu.New(mmu, cgbMode),
		mmu: mmu,
		lcd: lcd,
		apu: apu,
	}
}

// RunFrame executes one frame's worth of cycles. Overshoot carries into
// the next call as debt, so the long-run cycle rate stays locked to the
// emulated timebase.
func (g *GameBoy) RunFrame() error {
	budget := frameCycles - g.cycleDebt
	if g.mmu.DoubleSpeed() {
		budget = frameCycles*2 - g.cycleDebt
	}

	cycles := 0
	for cycles < budget {
		cycles += g.cpu.Step()
		if g.cpu.Hung() {
			return ErrCPUHung
		}
	}
	g.cycleDebt = cycles - budget

	return nil
}

// Frame returns the most recently published frame.
func (g *GameBoy) Frame() *display.Frame { return g.lcd.Frame() }

// FrameCount returns the number of frames published so far.
func (g *GameBoy) FrameCount() uint64 { return g.lcd.FrameCount() }

// DrainAudio appends the buffered host-rate samples to dst.
func (g *GameBoy) DrainAudio(dst []uint8) []uint8 { return g.apu.DrainSamples(dst) }

// HandleInput latches one host input event into the joypad.
func (g *GameBoy) HandleInput(act action.Action, pressed bool) {
	key, ok := joypadKey(act)
	if !ok {
		return
	}
	if pressed {
		g.mmu.Joypad.Press(key)
	} else {
		g.mmu.Joypad.Release(key)
	}
}

func joypadKey(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.Up:
		return memory.JoypadUp, true
	case action.Down:
		return memory.JoypadDown, true
	case action.Left:
		return memory.JoypadLeft, true
	case action.Right:
		return memory.JoypadRight, true
	case action.A:
		return memory.JoypadA, true
	case action.B:
		return memory.JoypadB, true
	case action.Start:
		return memory.JoypadStart, true
	case action.Select:
		return memory.JoypadSelect, true
	default:
		return 0, false
	}
}

// BatteryRAM exposes external RAM for save persistence.
func (g *GameBoy) BatteryRAM() []uint8 { return g.mmu.ExternalRAM() }

// LoadBatteryRAM installs a save image.
func (g *GameBoy) LoadBatteryRAM(data []uint8) { g.mmu.LoadExternalRAM(data) }
