package video

import (
	"github.com/CaptainCaffeine/Chroma/chroma/display"
	"github.com/CaptainCaffeine/Chroma/chroma/gba/memory"
)

// Line timing in bus cycles.
const (
	visibleCycles = 960
	hblankCycles  = 272
	lineCycles    = visibleCycles + hblankCycles
	visibleLines  = 160
	totalLines    = 228
)

// LCD is the AGB video controller: four background layers, affine
// sprites, two rectangular windows plus the object window, and the
// color blending unit.
type LCD struct {
	bus *memory.Bus
	irq *memory.IRQ

	dispcnt  uint16
	dispstat uint16
	vcount   uint16

	bgcnt  [4]uint16
	bghofs [4]uint16
	bgvofs [4]uint16

	// Affine parameters and reference points for BG2/BG3.
	bgpa, bgpb, bgpc, bgpd [2]uint16
	bgxRef, bgyRef         [2]uint32
	// Internal reference point latches, reloaded each V-blank.
	bgxCur, bgyCur [2]int32

	win0h, win1h uint16
	win0v, win1v uint16
	winin        uint16
	winout       uint16
	mosaic       uint16
	bldcnt       uint16
	bldalpha     uint16
	bldy         uint16

	lineCycleCount int
	inHBlank       bool

	swap       *display.SwapChain
	frameCount uint64
	frameCb    func()

	onVBlank func()
	onHBlank func()
}

// New builds the LCD with non-owning references to the bus (for VRAM,
// palette RAM and OAM) and the interrupt controller.
func New(bus *memory.Bus) *LCD {
	return &LCD{
		bus:  bus,
		irq:  bus.IRQ(),
		swap: display.NewSwapChain(display.GBAWidth, display.GBAHeight),
	}
}

// SetDMACallbacks wires the V-blank/H-blank DMA triggers.
func (l *LCD) SetDMACallbacks(onVBlank, onHBlank func()) {
	l.onVBlank = onVBlank
	l.onHBlank = onHBlank
}

// SetFrameCallback registers a hook invoked at frame publish.
func (l *LCD) SetFrameCallback(cb func()) { l.frameCb = cb }

// Frame returns the most recently published frame.
func (l *LCD) Frame() *display.Frame { return l.swap.Front() }

// FrameCount returns the number of published frames.
func (l *LCD) FrameCount() uint64 { return l.frameCount }

// Tick advances the LCD by bus cycles.
func (l *LCD) Tick(cycles int) {
	for cycles > 0 {
		step := cycles
		if step > 4 {
			step = 4
		}
		l.lineCycleCount += step
		cycles -= step
		l.advance()
	}
}

func (l *LCD) advance() {
	if !l.inHBlank && l.lineCycleCount >= visibleCycles {
		l.inHBlank = true
		if l.vcount < visibleLines {
			l.renderScanline()
			if l.onHBlank != nil {
				l.onHBlank()
			}
		}
		if l.dispstat&0x0010 != 0 {
			l.irq.Request(memory.IntHBlank)
		}
	}

	if l.lineCycleCount >= lineCycles {
		l.lineCycleCount -= lineCycles
		l.inHBlank = false
		l.vcount++

		switch {
		case l.vcount == visibleLines:
			l.enterVBlank()
		case l.vcount >= totalLines:
			l.vcount = 0
			l.reloadAffineReferences()
		}

		l.checkVCount()
	}
}

func (l *LCD) enterVBlank() {
	if l.dispstat&0x0008 != 0 {
		l.irq.Request(memory.IntVBlank)
	}
	if l.onVBlank != nil {
		l.onVBlank()
	}
	l.publishFrame()
}

func (l *LCD) publishFrame() {
	l.swap.Publish()
	l.frameCount++
	if l.frameCb != nil {
		l.frameCb()
	}
}

func (l *LCD) reloadAffineReferences() {
	for i := 0; i < 2; i++ {
		l.bgxCur[i] = signExtend28(l.bgxRef[i])
		l.bgyCur[i] = signExtend28(l.bgyRef[i])
	}
}

func signExtend28(v uint32) int32 {
	return int32(v<<4) >> 4
}

func (l *LCD) checkVCount() {
	target := l.dispstat >> 8
	if l.vcount == target && l.dispstat&0x0020 != 0 {
		l.irq.Request(memory.IntVCount)
	}
}

// ReadIO serves the display register window at offsets 0x00-0x56.
func (l *LCD) ReadIO(offset uint32) uint16 {
	switch offset {
	case 0x00:
		return l.dispcnt
	case 0x04:
		value := l.dispstat & 0xFFF8
		if l.vcount >= visibleLines && l.vcount < totalLines-1 {
			value |= 0x0001
		}
		if l.inHBlank {
			value |= 0x0002
		}
		if l.vcount == l.dispstat>>8 {
			value |= 0x0004
		}
		return value
	case 0x06:
		return l.vcount
	case 0x08, 0x0A, 0x0C, 0x0E:
		return l.bgcnt[(offset-0x08)/2]
	case 0x48:
		return l.winin
	case 0x4A:
		return l.winout
	case 0x50:
		return l.bldcnt
	case 0x52:
		return l.bldalpha
	default:
		// Scroll, affine, window bound and BLDY registers are write-only.
		return 0
	}
}

// WriteIO handles the display register window.
func (l *LCD) WriteIO(offset uint32, value, mask uint16) {
	merge := func(reg *uint16) {
		*reg = *reg&^mask | value&mask
	}

	switch offset {
	case 0x00:
		merge(&l.dispcnt)
	case 0x04:
		l.dispstat = l.dispstat&^(mask&0xFFB8) | value&mask&0xFFB8
	case 0x08, 0x0A, 0x0C, 0x0E:
		merge(&l.bgcnt[(offset-0x08)/2])
	case 0x10, 0x14, 0x18, 0x1C:
		merge(&l.bghofs[(offset-0x10)/4])
	case 0x12, 0x16, 0x1A, 0x1E:
		merge(&l.bgvofs[(offset-0x12)/4])
	case 0x20, 0x30:
		merge(&l.bgpa[(offset-0x20)/16])
	case 0x22, 0x32:
		merge(&l.bgpb[(offset-0x22)/16])
	case 0x24, 0x34:
		merge(&l.bgpc[(offset-0x24)/16])
	case 0x26, 0x36:
		merge(&l.bgpd[(offset-0x26)/16])
	case 0x28, 0x38:
		i := (offset - 0x28) / 16
		l.bgxRef[i] = l.bgxRef[i]&^uint32(mask) | uint32(value&mask)
		l.bgxCur[i] = signExtend28(l.bgxRef[i])
	case 0x2A, 0x3A:
		i := (offset - 0x2A) / 16
		l.bgxRef[i] = l.bgxRef[i]&^(uint32(mask)<<16) | uint32(value&mask)<<16
		l.bgxCur[i] = signExtend28(l.bgxRef[i])
	case 0x2C, 0x3C:
		i := (offset - 0x2C) / 16
		l.bgyRef[i] = l.bgyRef[i]&^uint32(mask) | uint32(value&mask)
		l.bgyCur[i] = signExtend28(l.bgyRef[i])
	case 0x2E, 0x3E:
		i := (offset - 0x2E) / 16
		l.bgyRef[i] = l.bgyRef[i]&^(uint32(mask)<<16) | uint32(value&mask)<<16
		l.bgyCur[i] = signExtend28(l.bgyRef[i])
	case 0x40:
		merge(&l.win0h)
	case 0x42:
		merge(&l.win1h)
	case 0x44:
		merge(&l.win0v)
	case 0x46:
		merge(&l.win1v)
	case 0x48:
		merge(&l.winin)
	case 0x4A:
		merge(&l.winout)
	case 0x4C:
		merge(&l.mosaic)
	case 0x50:
		merge(&l.bldcnt)
	case 0x52:
		merge(&l.bldalpha)
	case 0x54:
		merge(&l.bldy)
	}
}
