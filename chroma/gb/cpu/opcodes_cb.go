package cpu

// cbOpcodes is the 0xCB-prefixed page. The page is fully regular: the
// high bits select the operation and the low 3 bits the operand.
var cbOpcodes [256]Opcode

func init() {
	shiftOps := [8]func(*CPU, uint8) uint8{
		(*CPU).rlc, (*CPU).rrc, (*CPU).rl, (*CPU).rr,
		(*CPU).sla, (*CPU).sra, (*CPU).swap, (*CPU).srl,
	}

	for op := 0; op < 0x40; op++ {
		shift := shiftOps[op>>3]
		reg := uint8(op) & 0x07
		cbOpcodes[op] = func(c *CPU) { c.setReg8(reg, shift(c, c.getReg8(reg))) }
	}

	// BIT b, r (0x40-0x7F): reads only, no writeback.
	for op := 0x40; op < 0x80; op++ {
		index := uint8(op>>3) & 0x07
		reg := uint8(op) & 0x07
		cbOpcodes[op] = func(c *CPU) { c.bitTest(index, c.getReg8(reg)) }
	}

	// RES b, r (0x80-0xBF).
	for op := 0x80; op < 0xC0; op++ {
		index := uint8(op>>3) & 0x07
		reg := uint8(op) & 0x07
		cbOpcodes[op] = func(c *CPU) { c.setReg8(reg, c.getReg8(reg)&^(1<<index)) }
	}

	// SET b, r (0xC0-0xFF).
	for op := 0xC0; op <= 0xFF; op++ {
		index := uint8(op>>3) & 0x07
		reg := uint8(op) & 0x07
		cbOpcodes[op] = func(c *CPU) { c.setReg8(reg, c.getReg8(reg)|1<<index) }
	}
}
