package cpu

// Opcode executes a single instruction. The opcode byte has already been
// fetched; any further bus traffic is charged by the helpers.
type Opcode func(*CPU)

var opcodes [256]Opcode

func init() {
	// Irregular opcodes first, then the regular blocks are filled in by
	// the loops below.
	table := map[uint8]Opcode{
		0x00: func(c *CPU) {},
		0x01: func(c *CPU) { c.setBC(c.readImmediateWord()) },
		0x02: func(c *CPU) { c.write(c.getBC(), c.a) },
		0x03: func(c *CPU) { c.setBC(c.getBC() + 1); c.internal() },
		0x07: func(c *CPU) { c.rlca() },
		0x08: func(c *CPU) {
			address := c.readImmediateWord()
			c.write(address, uint8(c.sp))
			c.write(address+1, uint8(c.sp>>8))
		},
		0x09: func(c *CPU) { c.addToHL(c.getBC()) },
		0x0A: func(c *CPU) { c.a = c.read(c.getBC()) },
		0x0B: func(c *CPU) { c.setBC(c.getBC() - 1); c.internal() },
		0x0F: func(c *CPU) { c.rrca() },

		0x10: func(c *CPU) { c.stop() },
		0x11: func(c *CPU) { c.setDE(c.readImmediateWord()) },
		0x12: func(c *CPU) { c.write(c.getDE(), c.a) },
		0x13: func(c *CPU) { c.setDE(c.getDE() + 1); c.internal() },
		0x17: func(c *CPU) { c.rla() },
		0x18: func(c *CPU) { c.jr(true) },
		0x19: func(c *CPU) { c.addToHL(c.getDE()) },
		0x1A: func(c *CPU) { c.a = c.read(c.getDE()) },
		0x1B: func(c *CPU) { c.setDE(c.getDE() - 1); c.internal() },
		0x1F: func(c *CPU) { c.rra() },

		0x20: func(c *CPU) { c.jr(!c.flagSet(zeroFlag)) },
		0x21: func(c *CPU) { c.setHL(c.readImmediateWord()) },
		0x22: func(c *CPU) { c.write(c.getHL(), c.a); c.setHL(c.getHL() + 1) },
		0x23: func(c *CPU) { c.setHL(c.getHL() + 1); c.internal() },
		0x27: func(c *CPU) { c.daa() },
		0x28: func(c *CPU) { c.jr(c.flagSet(zeroFlag)) },
		0x29: func(c *CPU) { c.addToHL(c.getHL()) },
		0x2A: func(c *CPU) { c.a = c.read(c.getHL()); c.setHL(c.getHL() + 1) },
		0x2B: func(c *CPU) { c.setHL(c.getHL() - 1); c.internal() },
		0x2F: func(c *CPU) {
			c.a = ^c.a
			c.setFlag(subFlag, true)
			c.setFlag(halfCarryFlag, true)
		},

		0x30: func(c *CPU) { c.jr(!c.flagSet(carryFlag)) },
		0x31: func(c *CPU) { c.sp = c.readImmediateWord() },
		0x32: func(c *CPU) { c.write(c.getHL(), c.a); c.setHL(c.getHL() - 1) },
		0x33: func(c *CPU) { c.sp++; c.internal() },
		0x37: func(c *CPU) {
			c.setFlag(subFlag, false)
			c.setFlag(halfCarryFlag, false)
			c.setFlag(carryFlag, true)
		},
		0x38: func(c *CPU) { c.jr(c.flagSet(carryFlag)) },
		0x39: func(c *CPU) { c.addToHL(c.sp) },
		0x3A: func(c *CPU) { c.a = c.read(c.getHL()); c.setHL(c.getHL() - 1) },
		0x3B: func(c *CPU) { c.sp--; c.internal() },
		0x3F: func(c *CPU) {
			c.setFlag(subFlag, false)
			c.setFlag(halfCarryFlag, false)
			c.setFlag(carryFlag, !c.flagSet(carryFlag))
		},

		0x76: func(c *CPU) { c.halt() },

		0xC0: func(c *CPU) { c.retConditional(!c.flagSet(zeroFlag)) },
		0xC1: func(c *CPU) { c.setBC(c.popStack()) },
		0xC2: func(c *CPU) { c.jp(!c.flagSet(zeroFlag)) },
		0xC3: func(c *CPU) { c.jp(true) },
		0xC4: func(c *CPU) { c.call(!c.flagSet(zeroFlag)) },
		0xC5: func(c *CPU) { c.pushStack(c.getBC()) },
		0xC6: func(c *CPU) { c.add(c.readImmediate()) },
		0xC7: func(c *CPU) { c.rst(0x00) },
		0xC8: func(c *CPU) { c.retConditional(c.flagSet(zeroFlag)) },
		0xC9: func(c *CPU) { c.pc = c.popStack(); c.internal() },
		0xCA: func(c *CPU) { c.jp(c.flagSet(zeroFlag)) },
		0xCC: func(c *CPU) { c.call(c.flagSet(zeroFlag)) },
		0xCD: func(c *CPU) { c.call(true) },
		0xCE: func(c *CPU) { c.adc(c.readImmediate()) },
		0xCF: func(c *CPU) { c.rst(0x08) },

		0xD0: func(c *CPU) { c.retConditional(!c.flagSet(carryFlag)) },
		0xD1: func(c *CPU) { c.setDE(c.popStack()) },
		0xD2: func(c *CPU) { c.jp(!c.flagSet(carryFlag)) },
		0xD4: func(c *CPU) { c.call(!c.flagSet(carryFlag)) },
		0xD5: func(c *CPU) { c.pushStack(c.getDE()) },
		0xD6: func(c *CPU) { c.sub(c.readImmediate()) },
		0xD7: func(c *CPU) { c.rst(0x10) },
		0xD8: func(c *CPU) { c.retConditional(c.flagSet(carryFlag)) },
		0xD9: func(c *CPU) {
			// RETI enables interrupts immediately.
			c.pc = c.popStack()
			c.internal()
			c.ime = true
		},
		0xDA: func(c *CPU) { c.jp(c.flagSet(carryFlag)) },
		0xDC: func(c *CPU) { c.call(c.flagSet(carryFlag)) },
		0xDE: func(c *CPU) { c.sbc(c.readImmediate()) },
		0xDF: func(c *CPU) { c.rst(0x18) },

		0xE0: func(c *CPU) { c.write(0xFF00+uint16(c.readImmediate()), c.a) },
		0xE1: func(c *CPU) { c.setHL(c.popStack()) },
		0xE2: func(c *CPU) { c.write(0xFF00+uint16(c.c), c.a) },
		0xE5: func(c *CPU) { c.pushStack(c.getHL()) },
		0xE6: func(c *CPU) { c.and(c.readImmediate()) },
		0xE7: func(c *CPU) { c.rst(0x20) },
		0xE8: func(c *CPU) {
			c.sp = c.addSPSigned(c.readSignedImmediate())
			c.internal()
			c.internal()
		},
		0xE9: func(c *CPU) { c.pc = c.getHL() },
		0xEA: func(c *CPU) { c.write(c.readImmediateWord(), c.a) },
		0xEE: func(c *CPU) { c.xor(c.readImmediate()) },
		0xEF: func(c *CPU) { c.rst(0x28) },

		0xF0: func(c *CPU) { c.a = c.read(0xFF00 + uint16(c.readImmediate())) },
		0xF1: func(c *CPU) { c.setAF(c.popStack()) },
		0xF2: func(c *CPU) { c.a = c.read(0xFF00 + uint16(c.c)) },
		0xF3: func(c *CPU) { c.ime = false; c.imePending = false },
		0xF5: func(c *CPU) { c.pushStack(c.getAF()) },
		0xF6: func(c *CPU) { c.or(c.readImmediate()) },
		0xF7: func(c *CPU) { c.rst(0x30) },
		0xF8: func(c *CPU) {
			c.setHL(c.addSPSigned(c.readSignedImmediate()))
			c.internal()
		},
		0xF9: func(c *CPU) { c.sp = c.getHL(); c.internal() },
		0xFA: func(c *CPU) { c.a = c.read(c.readImmediateWord()) },
		0xFB: func(c *CPU) { c.imePending = true },
		0xFE: func(c *CPU) { c.cp(c.readImmediate()) },
		0xFF: func(c *CPU) { c.rst(0x38) },
	}

	for op, fn := range table {
		opcodes[op] = fn
	}

	// INC r / DEC r / LD r, n columns.
	for i := uint8(0); i < 8; i++ {
		reg := i
		opcodes[0x04+i*8] = func(c *CPU) { c.setReg8(reg, c.inc(c.getReg8(reg))) }
		opcodes[0x05+i*8] = func(c *CPU) { c.setReg8(reg, c.dec(c.getReg8(reg))) }
		opcodes[0x06+i*8] = func(c *CPU) { c.setReg8(reg, c.readImmediate()) }
	}

	// LD r, r' block (0x40-0x7F). 0x76 is HALT, already installed.
	for op := 0x40; op < 0x80; op++ {
		if op == 0x76 {
			continue
		}
		dst := uint8(op>>3) & 0x07
		src := uint8(op) & 0x07
		opcodes[op] = func(c *CPU) { c.setReg8(dst, c.getReg8(src)) }
	}

	// ALU A, r block (0x80-0xBF).
	aluOps := [8]func(*CPU, uint8){
		(*CPU).add, (*CPU).adc, (*CPU).sub, (*CPU).sbc,
		(*CPU).and, (*CPU).xor, (*CPU).or, (*CPU).cp,
	}
	for op := 0x80; op < 0xC0; op++ {
		alu := aluOps[(op>>3)&0x07]
		src := uint8(op) & 0x07
		opcodes[op] = func(c *CPU) { alu(c, c.getReg8(src)) }
	}

	// Unused encodings hang the CPU, as they do on hardware.
	for _, op := range []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		opcodes[op] = func(c *CPU) { c.hung = true }
	}
}
