package video

import (
	"github.com/CaptainCaffeine/Chroma/chroma/addr"
	"github.com/CaptainCaffeine/Chroma/chroma/bit"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
	"github.com/CaptainCaffeine/Chroma/chroma/gb/memory"
)

// LCD phases, by STAT encoding.
const (
	modeHBlank  uint8 = 0
	modeVBlank  uint8 = 1
	modeOAMScan uint8 = 2
	modeTransfer uint8 = 3
)

const (
	cyclesPerLine  = 456
	oamScanCycles  = 80
	visibleLines   = 144
	totalLines     = 154
	baseMode3Cycles = 172
)

// dmgShades maps the four DMG grey levels to BGR555.
var dmgShades = [4]uint16{0x7FFF, 0x56B5, 0x294A, 0x0000}

// LCD is the mode state machine and scanline renderer. It owns the LCD
// register file and, in CGB mode, the palette RAM; pixel data comes from
// the MMU's VRAM through ungated accessors.
type LCD struct {
	mmu *memory.MMU
	cgb bool

	lcdc uint8
	stat uint8 // bits 3-6 as written; mode and coincidence are derived
	scy  uint8
	scx  uint8
	lyc  uint8
	bgp  uint8
	obp0 uint8
	obp1 uint8
	wy   uint8
	wx   uint8

	bgPaletteRAM  [64]uint8
	objPaletteRAM [64]uint8
	bgpi          uint8
	obpi          uint8

	line        int // internal line counter, 0-153
	lineCycles  int
	mode        uint8
	mode3Len    int
	windowLine  int
	statSignal  bool
	lySuppress  int // cycles the LY=LYC signal is forced low after an LY change
	frameCount  uint64

	sprites []sprite

	swap    *display.SwapChain
	frameCb func()
}

type sprite struct {
	y, x     int
	tile     uint8
	attr     uint8
	oamIndex int
}

// New builds the LCD. The MMU reference is a non-owning back-reference
// used for VRAM/OAM reads and interrupt requests.
func New(mmu *memory.MMU, cgbMode bool) *LCD {
	return &LCD{
		mmu:  mmu,
		cgb:  cgbMode,
		lcdc: 0x91,
		bgp:  0xFC,
		obp0: 0xFF,
		obp1: 0xFF,
		swap: display.NewSwapChain(display.GBWidth, display.GBHeight),
		mode: modeOAMScan,
	}
}

// SetFrameCallback registers a hook invoked when a frame is published.
func (l *LCD) SetFrameCallback(cb func()) { l.frameCb = cb }

// Frame returns the most recently published frame.
func (l *LCD) Frame() *display.Frame { return l.swap.Front() }

// FrameCount returns the number of frames published so far.
func (l *LCD) FrameCount() uint64 { return l.frameCount }

func (l *LCD) enabled() bool { return bit.IsSet(7, l.lcdc) }

// Mode reports the current phase for access gating; 0 while disabled.
func (l *LCD) Mode() uint8 {
	if !l.enabled() {
		return 0
	}
	return l.mode
}

// Tick advances the LCD. cycles is in fixed 4 MHz master cycles.
func (l *LCD) Tick(cycles int) {
	if !l.enabled() {
		return
	}
	for ; cycles >= 4; cycles -= 4 {
		l.step()
	}
}

func (l *LCD) step() {
	l.lineCycles += 4
	if l.lySuppress > 0 {
		l.lySuppress -= 4
	}

	if l.line < visibleLines {
		switch {
		case l.lineCycles <= oamScanCycles:
			l.setMode(modeOAMScan)
		case l.lineCycles <= oamScanCycles+l.currentMode3Len():
			l.setMode(modeTransfer)
		default:
			l.setMode(modeHBlank)
		}
	}

	if l.lineCycles >= cyclesPerLine {
		l.lineCycles -= cyclesPerLine
		l.advanceLine()
	}

	l.updateStatSignal()
}

func (l *LCD) currentMode3Len() int {
	if l.mode3Len == 0 {
		l.mode3Len = baseMode3Cycles
	}
	return l.mode3Len
}

func (l *LCD) setMode(mode uint8) {
	if l.mode == mode {
		return
	}
	l.mode = mode

	switch mode {
	case modeTransfer:
		l.scanSprites()
		// Mode 3 stretches with scroll misalignment and sprite fetches;
		// mode 0 takes up whatever the line has left.
		l.mode3Len = baseMode3Cycles + int(l.scx%8) + 6*len(l.sprites)
		l.renderScanline()
	case modeHBlank:
		l.mmu.SignalHBlank()
	case modeVBlank:
		l.mmu.RequestInterrupt(addr.VBlankInterrupt)
		l.publishFrame()
	}
}

func (l *LCD) advanceLine() {
	l.line++
	l.mode3Len = 0
	// The LY=LYC signal drops for one machine cycle on every LY change.
	l.lySuppress = 4

	switch {
	case l.line == visibleLines:
		l.setMode(modeVBlank)
	case l.line >= totalLines:
		l.line = 0
		l.windowLine = 0
		l.setMode(modeOAMScan)
	}
}

// lyValue is the exposed LY. Line 153 reads as 0 for most of its
// duration.
func (l *LCD) lyValue() uint8 {
	if l.line == totalLines-1 && l.lineCycles > 4 {
		return 0
	}
	return uint8(l.line)
}

// updateStatSignal recomputes the level-triggered STAT interrupt line.
// Only a rising edge of the ORed signal requests the interrupt; further
// sources enabling while it is high are swallowed.
func (l *LCD) updateStatSignal() {
	coincidence := l.lySuppress <= 0 && l.lyValue() == l.lyc

	signal := false
	switch {
	case bit.IsSet(3, l.stat) && l.mode == modeHBlank:
		signal = true
	case bit.IsSet(4, l.stat) && l.mode == modeVBlank:
		signal = true
	case bit.IsSet(5, l.stat) && l.mode == modeOAMScan:
		signal = true
	}
	if bit.IsSet(6, l.stat) && coincidence {
		signal = true
	}

	if signal && !l.statSignal {
		l.mmu.RequestInterrupt(addr.StatInterrupt)
	}
	l.statSignal = signal
}

func (l *LCD) publishFrame() {
	l.swap.Publish()
	l.frameCount++
	if l.frameCb != nil {
		l.frameCb()
	}
}

// ReadRegister serves the MMU's I/O dispatch for LCD-owned registers.
func (l *LCD) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return l.lcdc
	case addr.STAT:
		value := l.stat & 0x78
		value |= l.Mode()
		if l.enabled() && l.lySuppress <= 0 && l.lyValue() == l.lyc {
			value |= 0x04
		}
		return value
	case addr.SCY:
		return l.scy
	case addr.SCX:
		return l.scx
	case addr.LY:
		if !l.enabled() {
			return 0
		}
		return l.lyValue()
	case addr.LYC:
		return l.lyc
	case addr.BGP:
		return l.bgp
	case addr.OBP0:
		return l.obp0
	case addr.OBP1:
		return l.obp1
	case addr.WY:
		return l.wy
	case addr.WX:
		return l.wx
	case addr.BGPI:
		return l.bgpi
	case addr.BGPD:
		return l.bgPaletteRAM[l.bgpi&0x3F]
	case addr.OBPI:
		return l.obpi
	case addr.OBPD:
		return l.objPaletteRAM[l.obpi&0x3F]
	default:
		return 0xFF
	}
}

// WriteRegister serves the MMU's I/O dispatch for LCD-owned registers.
func (l *LCD) WriteRegister(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		wasEnabled := l.enabled()
		l.lcdc = value
		if wasEnabled && !l.enabled() {
			// Turning the LCD off resets the scan position.
			l.line = 0
			l.lineCycles = 0
			l.mode = modeHBlank
			l.statSignal = false
		}
	case addr.STAT:
		l.stat = value & 0x78
		l.updateStatSignal()
	case addr.SCY:
		l.scy = value
	case addr.SCX:
		l.scx = value
	case addr.LY:
		// Read-only.
	case addr.LYC:
		l.lyc = value
		l.updateStatSignal()
	case addr.BGP:
		l.bgp = value
	case addr.OBP0:
		l.obp0 = value
	case addr.OBP1:
		l.obp1 = value
	case addr.WY:
		l.wy = value
	case addr.WX:
		l.wx = value
	case addr.BGPI:
		l.bgpi = value & 0xBF
	case addr.BGPD:
		l.bgPaletteRAM[l.bgpi&0x3F] = value
		if bit.IsSet(7, l.bgpi) {
			l.bgpi = 0x80 | (l.bgpi+1)&0x3F
		}
	case addr.OBPI:
		l.obpi = value & 0xBF
	case addr.OBPD:
		l.objPaletteRAM[l.obpi&0x3F] = value
		if bit.IsSet(7, l.obpi) {
			l.obpi = 0x80 | (l.obpi+1)&0x3F
		}
	}
}
