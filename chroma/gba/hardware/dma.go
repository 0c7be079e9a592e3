package hardware

import "github.com/CaptainCaffeine/Chroma/chroma/gba/memory"

// DMA trigger conditions, from control bits 12-13.
const (
	dmaImmediate = 0
	dmaVBlank    = 1
	dmaHBlank    = 2
	dmaSpecial   = 3 // audio FIFO for channels 1-2, video capture for 3
)

// dmaChannel is one of the four copy engines. A triggered channel runs
// to completion, charging its accesses through the bus, so the CPU is
// stalled for the duration.
type dmaChannel struct {
	index int

	source uint32
	dest   uint32
	count  uint16

	control uint16

	// Internal latches, reloaded when the channel is enabled.
	srcAddr uint32
	dstAddr uint32
	units   uint32
}

// DMAs is the block of four channels.
type DMAs struct {
	bus      *memory.Bus
	irq      *memory.IRQ
	channels [4]dmaChannel

	// fifoAddr are the audio FIFO destinations for the special trigger.
	fifoA, fifoB uint32
}

// NewDMAs builds the block.
func NewDMAs(bus *memory.Bus, irq *memory.IRQ) *DMAs {
	d := &DMAs{bus: bus, irq: irq, fifoA: 0x040000A0, fifoB: 0x040000A4}
	for i := range d.channels {
		d.channels[i].index = i
	}
	return d
}

// ReadIO serves the DMA register window at 0xB0-0xDE. Only the control
// halfwords read back.
func (d *DMAs) ReadIO(offset uint32) uint16 {
	ch, reg := dmaDecode(offset)
	if reg == 5 {
		return d.channels[ch].control
	}
	return 0
}

// WriteIO routes the source/dest/count/control halves.
func (d *DMAs) WriteIO(offset uint32, value, mask uint16) {
	ch, reg := dmaDecode(offset)
	c := &d.channels[ch]

	switch reg {
	case 0:
		c.source = c.source&^uint32(mask) | uint32(value&mask)
	case 1:
		c.source = c.source&^(uint32(mask)<<16) | uint32(value&mask)<<16
	case 2:
		c.dest = c.dest&^uint32(mask) | uint32(value&mask)
	case 3:
		c.dest = c.dest&^(uint32(mask)<<16) | uint32(value&mask)<<16
	case 4:
		c.count = c.count&^mask | value&mask
	case 5:
		wasEnabled := c.control&0x8000 != 0
		c.control = c.control&^mask | value&mask
		if !wasEnabled && c.control&0x8000 != 0 {
			d.reloadChannel(c)
			if c.trigger() == dmaImmediate {
				d.run(c)
			}
		}
	}
}

func dmaDecode(offset uint32) (channel int, reg int) {
	rel := offset - 0xB0
	return int(rel / 12), int(rel % 12 / 2)
}

func (c *dmaChannel) trigger() int { return int(c.control >> 12 & 0x03) }

func (d *DMAs) reloadChannel(c *dmaChannel) {
	c.srcAddr = c.source & 0x0FFFFFFF
	c.dstAddr = c.dest & 0x0FFFFFFF
	c.units = uint32(c.count)
	if c.units == 0 {
		if c.index == 3 {
			c.units = 0x10000
		} else {
			c.units = 0x4000
		}
	}
}

// OnVBlank triggers the V-blank-timed channels.
func (d *DMAs) OnVBlank() {
	for i := range d.channels {
		c := &d.channels[i]
		if c.control&0x8000 != 0 && c.trigger() == dmaVBlank {
			d.run(c)
		}
	}
}

// OnHBlank triggers the H-blank-timed channels.
func (d *DMAs) OnHBlank() {
	for i := range d.channels {
		c := &d.channels[i]
		if c.control&0x8000 != 0 && c.trigger() == dmaHBlank {
			d.run(c)
		}
	}
}

// OnFIFORequest triggers the audio special channels toward the given
// FIFO address: four 32-bit units, no destination adjustment.
func (d *DMAs) OnFIFORequest(fifoAddr uint32) {
	for _, i := range []int{1, 2} {
		c := &d.channels[i]
		if c.control&0x8000 == 0 || c.trigger() != dmaSpecial {
			continue
		}
		if c.dest&0x0FFFFFFF != fifoAddr&0x0FFFFFFF {
			continue
		}
		for n := 0; n < 4; n++ {
			d.bus.DMAWrite32(c.dstAddr, d.bus.DMARead32(c.srcAddr))
			c.srcAddr += 4
		}
	}
}

// run executes a triggered transfer to completion.
func (d *DMAs) run(c *dmaChannel) {
	wide := c.control&0x0400 != 0 // 32-bit units
	srcAdj := int(c.control >> 7 & 0x03)
	dstAdj := int(c.control >> 5 & 0x03)

	unitSize := uint32(2)
	if wide {
		unitSize = 4
	}

	for n := uint32(0); n < c.units; n++ {
		if wide {
			d.bus.DMAWrite32(c.dstAddr&^3, d.bus.DMARead32(c.srcAddr&^3))
		} else {
			d.bus.DMAWrite16(c.dstAddr&^1, d.bus.DMARead16(c.srcAddr&^1))
		}
		c.srcAddr = adjust(c.srcAddr, unitSize, srcAdj)
		c.dstAddr = adjust(c.dstAddr, unitSize, dstAdj)
	}

	if c.control&0x4000 != 0 {
		d.irq.Request(memory.IntDma0 << uint(c.index))
	}

	if c.control&0x0200 != 0 && c.trigger() != dmaImmediate {
		// Repeat: reload the count, and the destination too in
		// increment-reload mode.
		c.units = uint32(c.count)
		if c.units == 0 {
			c.units = 0x4000
			if c.index == 3 {
				c.units = 0x10000
			}
		}
		if dstAdj == 3 {
			c.dstAddr = c.dest & 0x0FFFFFFF
		}
	} else {
		c.control &^= 0x8000
	}
}

// adjust applies the address adjustment mode: increment, decrement,
// fixed, or increment-reload (treated as increment per transfer).
func adjust(addr, size uint32, mode int) uint32 {
	switch mode {
	case 0, 3:
		return addr + size
	case 1:
		return addr - size
	default:
		return addr
	}
}
