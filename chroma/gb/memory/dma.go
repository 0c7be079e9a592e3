package memory

// dmaState tracks both copy engines.
type dmaState uint8

const (
	dmaInactive dmaState = iota
	dmaRegWritten
	dmaStarting
	dmaActive
	dmaPaused // HDMA only, waiting for the next H-blank
)

// oamDMA is the byte-paced OAM copy engine. While it is active the
// external bus is blocked: reads return 0xFF and writes are swallowed.
// Restarting an active DMA keeps the bus blocked across the restart.
type oamDMA struct {
	state        dmaState
	source       uint16
	startValue   uint8
	bytesRead    int
	transferByte uint8
	blocked      bool
}

func (d *oamDMA) writeRegister(value uint8) {
	d.startValue = value
	d.state = dmaRegWritten
}

// tick advances the engine one machine cycle. copy reads the source
// through the MMU without DMA blocking applied.
func (d *oamDMA) tick(m *MMU) {
	switch d.state {
	case dmaRegWritten:
		d.source = uint16(d.startValue) << 8
		d.bytesRead = 0
		d.state = dmaStarting
	case dmaStarting:
		// First source byte is read; no write happens yet. The bus
		// becomes blocked on this transition and stays blocked until the
		// engine returns to inactive.
		d.transferByte = m.dmaCopyRead(d.source)
		d.bytesRead = 1
		d.state = dmaActive
		d.blocked = true
	case dmaActive:
		m.oam[d.bytesRead-1] = d.transferByte
		if d.bytesRead == 160 {
			d.state = dmaInactive
			d.blocked = false
			return
		}
		d.transferByte = m.dmaCopyRead(d.source + uint16(d.bytesRead))
		d.bytesRead++
	}
}

// hdma is the CGB VRAM copy engine: a general-purpose burst or a
// 16-bytes-per-H-blank mode. The CPU stalls while a copy runs.
type hdma struct {
	state      dmaState
	regWritten bool
	hblankMode bool

	sourceHi, sourceLo uint8
	destHi, destLo     uint8
	control            uint8

	bytesToCopy int
	hblankBytes int
}

func (h *hdma) writeRegister(address uint16, value uint8) {
	switch address {
	case 0xFF51:
		h.sourceHi = value
	case 0xFF52:
		h.sourceLo = value & 0xF0
	case 0xFF53:
		h.destHi = value & 0x1F
	case 0xFF54:
		h.destLo = value & 0xF0
	case 0xFF55:
		h.control = value
		h.regWritten = true
	}
}

func (h *hdma) readControl() uint8 {
	return h.control
}

func (h *hdma) init(lcdMode uint8) {
	h.hblankMode = h.control&0x80 != 0
	h.bytesToCopy = (int(h.control&0x7F) + 1) * 16
	h.hblankBytes = 16
	h.control &= 0x7F

	if h.hblankMode && lcdMode != 0 {
		h.state = dmaPaused
	} else {
		h.state = dmaStarting
	}
}

// tick advances the engine one machine cycle.
func (h *hdma) tick(m *MMU) {
	if h.regWritten {
		if h.state == dmaInactive {
			h.init(m.lcdMode())
		} else if h.control&0x80 != 0 {
			h.init(m.lcdMode())
		} else {
			// Writing with bit 7 clear stops a paused H-blank copy and
			// sets bit 7 of HDMA5.
			h.control |= 0x80
			h.bytesToCopy = 0
			h.hblankBytes = 0
			h.state = dmaInactive
		}
		h.regWritten = false
		return
	}

	switch h.state {
	case dmaStarting:
		h.state = dmaActive
	case dmaActive:
		h.execute(m)
		if h.bytesToCopy == 0 {
			h.control = 0xFF
			h.state = dmaInactive
		} else if h.hblankMode && h.hblankBytes == 0 {
			h.state = dmaPaused
		}
	}
}

// execute copies two bytes per machine cycle at single speed, one at
// double speed. Destination writes honor mode-3 VRAM gating.
func (h *hdma) execute(m *MMU) {
	source := uint16(h.sourceHi)<<8 | uint16(h.sourceLo)
	dest := uint16(h.destHi|0x80)<<8 | uint16(h.destLo)

	numBytes := 2
	if m.doubleSpeed {
		numBytes = 1
	}
	if numBytes > h.bytesToCopy {
		numBytes = h.bytesToCopy
	}
	if h.hblankMode && numBytes > h.hblankBytes {
		numBytes = h.hblankBytes
	}
	if h.hblankMode {
		h.hblankBytes -= numBytes
	}
	h.bytesToCopy -= numBytes

	for i := 0; i < numBytes; i++ {
		if m.lcdMode() != 3 {
			m.vram[uint32(m.vramBank)<<13|uint32(dest&0x1FFF)] = m.dmaCopyRead(source)
		}
		// Wrap within VRAM if the destination increments past 0x9FFF.
		dest = (dest + 1) & 0x9FFF
		source++
	}

	h.sourceLo = uint8(source)
	h.sourceHi = uint8(source >> 8)
	h.destLo = uint8(dest)
	h.destHi = uint8(dest>>8) & 0x1F

	h.control = uint8((h.bytesToCopy/16)-1) & 0x7F
}

// signalHBlank resumes a paused H-blank copy; called by the LCD when it
// enters mode 0.
func (h *hdma) signalHBlank() {
	if h.state == dmaPaused {
		h.hblankBytes = 16
		h.state = dmaStarting
	}
}

// stalling reports whether the CPU is stalled by a running copy.
func (h *hdma) stalling() bool {
	return h.state == dmaStarting || h.state == dmaActive || h.regWritten
}
