package memory

// waitControl is the decoded WAITCNT register: per-ROM-window first and
// sequential access wait counts, plus the SRAM wait. Consulted on every
// cartridge access to compute the bus cycles consumed.
type waitControl struct {
	raw uint16

	sram    int
	romN    [3]int // non-sequential waits for wait state 0/1/2
	romS    [3]int // sequential waits
}

var (
	nonSeqWaits = [4]int{4, 3, 2, 8}
	ws0SeqWaits = [2]int{2, 1}
	ws1SeqWaits = [2]int{4, 1}
	ws2SeqWaits = [2]int{8, 1}
)

func defaultWaitControl() waitControl {
	var w waitControl
	w.set(0x0000)
	return w
}

func (w *waitControl) set(value uint16) {
	w.raw = value & 0x5FFF
	w.sram = nonSeqWaits[value&0x03]
	w.romN[0] = nonSeqWaits[value>>2&0x03]
	w.romS[0] = ws0SeqWaits[value>>4&0x01]
	w.romN[1] = nonSeqWaits[value>>5&0x03]
	w.romS[1] = ws1SeqWaits[value>>7&0x01]
	w.romN[2] = nonSeqWaits[value>>8&0x03]
	w.romS[2] = ws2SeqWaits[value>>10&0x01]
}

// charge ticks the peripherals by the cost of an access of the given
// width. width is in bytes; sequential only matters for cartridge
// accesses.
func (b *Bus) charge(addr uint32, width int, sequential bool) {
	b.tick(b.AccessCycles(addr, width, sequential))
}

// WriteWaitControl decodes a WAITCNT write; routed from the IRQ/system
// register block.
func (b *Bus) WriteWaitControl(value, mask uint16) {
	b.waits.set(b.waits.raw&^mask | value&mask)
}

// WaitControl returns the raw WAITCNT value.
func (b *Bus) WaitControl() uint16 { return b.waits.raw }

// AccessCycles reports the cost of an access without performing it.
// The wait-state profile is keyed by region, width and sequential/
// non-sequential kind.
func (b *Bus) AccessCycles(addr uint32, width int, sequential bool) int {
	cycles := 1
	switch addr >> 24 & 0x0F {
	case regionEWRAM:
		// 16-bit bus with two wait states: 3 cycles per halfword.
		cycles = 3
		if width == 4 {
			cycles = 6
		}
	case regionPRAM, regionVRAM:
		// 16-bit bus, no wait states; a 32-bit access takes two cycles.
		if width == 4 {
			cycles = 2
		}
	case regionROM0, regionROM0B, regionROM1, regionROM1B, regionROM2, regionROM2B:
		ws := int(addr>>25&0x07) - 4
		first := b.waits.romN[ws]
		if sequential {
			first = b.waits.romS[ws]
		}
		cycles = 1 + first
		if width == 4 {
			// A 32-bit cartridge access is two 16-bit transfers; the
			// second is always sequential.
			cycles += 1 + b.waits.romS[ws]
		}
	case regionSRAM:
		cycles = 1 + b.waits.sram
	}
	return cycles
}
