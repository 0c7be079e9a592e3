// Package gba wires the 32-bit console: ARM7TDMI, bus, LCD, timers, DMA,
// keypad and sound. The bus is the root owner of memory; every other
// block holds a non-owning reference installed here.
package gba

import (
	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
	gbaaudio "github.com/CaptainCaffeine/Chroma/chroma/gba/audio"
	"github.com/CaptainCaffeine/Chroma/chroma/gba/cpu"
	"github.com/CaptainCaffeine/Chroma/chroma/gba/hardware"
	"github.com/CaptainCaffeine/Chroma/chroma/gba/memory"
	"github.com/CaptainCaffeine/Chroma/chroma/gba/video"
)

// frameCycles is the bus-cycle budget of one frame: 228 lines of 1232
// cycles.
const frameCycles = 228 * 1232

// AGB is a Game Boy Advance console instance.
type AGB struct {
	cpu    *cpu.CPU
	bus    *memory.Bus
	lcd    *video.LCD
	timers *hardware.Timers
	dmas   *hardware.DMAs
	keypad *hardware.Keypad
	audio  *gbaaudio.Audio

	// tick sink state; see Tick.
	ticking      bool
	pendingTicks int
	cycleCount   uint64

	cycleDebt int
}

// New builds a console around a ROM image and an optional BIOS.
func New(bios, rom []uint8) *AGB {
	bus := memory.New(bios, rom)
	irq := bus.IRQ()

	g := &AGB{
		bus:    bus,
		lcd:    video.New(bus),
		keypad: hardware.NewKeypad(irq),
		audio:  gbaaudio.New(),
	}
	g.dmas = hardware.NewDMAs(bus, irq)
	g.timers = hardware.NewTimers(irq, g.audio.OnTimerOverflow)
	g.audio.SetDMARequest(g.dmas.OnFIFORequest)
	g.lcd.SetDMACallbacks(g.dmas.OnVBlank, g.dmas.OnHBlank)

	bus.MapIO(g.lcd, 0x00, 0x56)
	bus.MapIO(g.audio, 0x60, 0xA6)
	bus.MapIO(g.dmas, 0xB0, 0xDE)
	bus.MapIO(g.timers, 0x100, 0x10E)
	bus.MapIO(g.keypad, 0x130, 0x132)
	bus.AttachHardware(g)

	g.cpu = cpu.New(bus, len(bios) > 0)

	return g
}

// Tick is the bus's peripheral sink. DMA transfers run from inside LCD
// callbacks and charge the bus themselves, so the sink defers nested
// ticks instead of recursing.
func (g *AGB) Tick(cycles int) {
	g.pendingTicks += cycles
	if g.ticking {
		return
	}
	g.ticking = true
	for g.pendingTicks > 0 {
		n := g.pendingTicks
		g.pendingTicks = 0
		g.cycleCount += uint64(n)
		g.timers.Tick(n)
		g.lcd.Tick(n)
		g.audio.Tick(n)
	}
	g.ticking = false
}

// RunFrame executes one frame's worth of bus cycles, carrying overshoot
// into the next frame as debt.
func (g *AGB) RunFrame() error {
	target := g.cycleCount + uint64(frameCycles-g.cycleDebt)
	for g.cycleCount < target {
		g.cpu.Step()
	}
	g.cycleDebt = int(g.cycleCount - target)
	return nil
}

// Frame returns the most recently published frame.
func (g *AGB) Frame() *display.Frame { return g.lcd.Frame() }

// FrameCount returns the number of frames published so far.
func (g *AGB) FrameCount() uint64 { return g.lcd.FrameCount() }

// DrainAudio appends buffered host-rate samples to dst.
func (g *AGB) DrainAudio(dst []uint8) []uint8 { return g.audio.DrainSamples(dst) }

// HandleInput latches one host input event into the keypad.
func (g *AGB) HandleInput(act action.Action, pressed bool) {
	g.keypad.Handle(act, pressed)
}

// BatteryRAM exposes the save backup store.
func (g *AGB) BatteryRAM() []uint8 { return g.bus.SRAM() }

// LoadBatteryRAM installs a save image.
func (g *AGB) LoadBatteryRAM(data []uint8) { g.bus.LoadSRAM(data) }
