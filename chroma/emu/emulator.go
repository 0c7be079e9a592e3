// Package emu detects the console variant, builds the right core and
// runs the host frame loop around it.
package emu

import (
	"fmt"
	"log/slog"

	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/cart"
	"github.com/CaptainCaffeine/Chroma/chroma/debug"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
	"github.com/CaptainCaffeine/Chroma/chroma/gb"
	gbaudio "github.com/CaptainCaffeine/Chroma/chroma/gb/audio"
	"github.com/CaptainCaffeine/Chroma/chroma/gba"
	"github.com/CaptainCaffeine/Chroma/chroma/timing"
)

// Console is one emulated machine; both cores implement it.
type Console interface {
	RunFrame() error
	Frame() *display.Frame
	FrameCount() uint64
	DrainAudio(dst []uint8) []uint8
	HandleInput(act action.Action, pressed bool)
	BatteryRAM() []uint8
	LoadBatteryRAM(data []uint8)
}

// Variant is the forced or detected console model.
type Variant uint8

const (
	VariantAuto Variant = iota
	VariantDMG
	VariantCGB
	VariantAGB
)

// Options is the parsed CLI surface.
type Options struct {
	Variant     Variant
	LogLevel    string // "", "trace" or "regs"
	Scale       int
	Fullscreen  bool
	Filter      string // "iir" or "nearest"
	Multicart   bool
	RecordAudio string // WAV output path, empty to disable
}

// Emulator owns a console and the host-facing loop state.
type Emulator struct {
	console Console
	romPath string

	paused       bool
	frameAdvance bool
	quit         bool

	limiter  timing.Limiter
	recorder *debug.WAVRecorder

	audioBuf []uint8
}

// New loads a ROM, detects its console family and builds the core.
func New(romPath string, opts Options) (*Emulator, error) {
	rom, kind, err := cart.LoadROM(romPath)
	if err != nil {
		return nil, err
	}

	if opts.Variant == VariantAGB && kind != cart.KindGBA {
		return nil, fmt.Errorf("%s is not a GBA ROM", romPath)
	}

	e := &Emulator{romPath: romPath}

	switch kind {
	case cart.KindGBA:
		bios, err := cart.LoadBIOS()
		if err != nil {
			return nil, err
		}
		e.console = gba.New(bios, rom)
		e.limiter = timing.NewFrameLimiter(timing.GBAFrameRate)
	default:
		header, err := cart.ParseHeader(rom, opts.Multicart)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded cartridge", "title", header.Title, "mbc", header.MBC.String(),
			"romBanks", header.ROMBanks, "ramSize", header.RAMSize)

		filter := gbaudio.FilterIIR
		if opts.Filter == "nearest" {
			filter = gbaudio.FilterNearest
		}
		forceDMG := opts.Variant == VariantDMG
		e.console = gb.New(header, rom, forceDMG, filter)
		e.limiter = timing.NewFrameLimiter(timing.GBFrameRate)
	}

	e.console.LoadBatteryRAM(cart.LoadSave(romPath, len(e.console.BatteryRAM())))

	if opts.RecordAudio != "" {
		rec, err := debug.NewWAVRecorder(opts.RecordAudio)
		if err != nil {
			return nil, err
		}
		e.recorder = rec
	}

	return e, nil
}

// SetLimiter overrides frame pacing (headless runs use the no-op one).
func (e *Emulator) SetLimiter(l timing.Limiter) { e.limiter = l }

// Console exposes the underlying core.
func (e *Emulator) Console() Console { return e.console }

// Frame returns the most recently published frame.
func (e *Emulator) Frame() *display.Frame { return e.console.Frame() }

// Quit reports whether the loop should stop.
func (e *Emulator) Quit() bool { return e.quit }

// HandleAction routes one host input event. Control events act on the
// loop; key events latch into the console. The pause flag is only
// sampled at frame boundaries.
func (e *Emulator) HandleAction(act action.Action, pressed bool) {
	switch act {
	case action.Quit:
		if pressed {
			e.quit = true
		}
	case action.Pause:
		if pressed {
			e.paused = !e.paused
			e.limiter.Reset()
		}
	case action.FrameAdvance:
		if pressed {
			e.frameAdvance = true
		}
	case action.LogLevel, action.Fullscreen, action.Screenshot,
		action.LcdDebug, action.HideWindow, action.ShowWindow:
		// Host-side events; the backend acts on them.
	default:
		e.console.HandleInput(act, pressed)
	}
}

// StepFrame runs one frame of emulation and returns the audio samples
// produced. A paused emulator produces nothing unless a frame advance
// is queued.
func (e *Emulator) StepFrame() ([]uint8, error) {
	if e.paused && !e.frameAdvance {
		return nil, nil
	}
	e.frameAdvance = false

	if err := e.console.RunFrame(); err != nil {
		return nil, err
	}

	e.audioBuf = e.console.DrainAudio(e.audioBuf[:0])
	if e.recorder != nil {
		e.recorder.Append(e.audioBuf)
	}
	return e.audioBuf, nil
}

// Wait paces the loop to the console timebase.
func (e *Emulator) Wait() {
	e.limiter.WaitForNextFrame()
}

// Shutdown persists the battery save and closes the recorder.
func (e *Emulator) Shutdown() error {
	var firstErr error

	if err := cart.WriteSave(e.romPath, e.console.BatteryRAM()); err != nil {
		slog.Error("Failed to write save file", "error", err)
		firstErr = err
	}
	if e.recorder != nil {
		if err := e.recorder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
