package cpu

import "github.com/CaptainCaffeine/Chroma/chroma/bit"

// armHandler executes one decoded ARM instruction.
type armHandler func(*CPU, uint32)

// armTable is keyed by bits 27-20 and 7-4, the bits that distinguish
// every ARMv4 instruction class.
var armTable [4096]armHandler

// armIndex extracts the 12 decode bits.
func armIndex(opcode uint32) uint32 {
	return opcode>>16&0xFF0 | opcode>>4&0x00F
}

// armPattern is one row of the decode list: an instruction matches when
// (opcode & mask) == value. The first matching row wins, so specific
// encodings precede the general classes they carve bits out of.
type armPattern struct {
	mask, value uint32
	handler     armHandler
}

func init() {
	patterns := []armPattern{
		{0x0FF000F0, 0x01200010, (*CPU).armBranchExchange},
		{0x0FC000F0, 0x00000090, (*CPU).armMultiply},
		{0x0F8000F0, 0x00800090, (*CPU).armMultiplyLong},
		{0x0FB000F0, 0x01000090, (*CPU).armSwap},
		{0x0E0000F0, 0x000000B0, (*CPU).armHalfwordTransfer},
		{0x0E1000F0, 0x001000D0, (*CPU).armHalfwordTransfer}, // LDRSB
		{0x0E1000F0, 0x001000F0, (*CPU).armHalfwordTransfer}, // LDRSH
		{0x0FB000F0, 0x01000000, (*CPU).armStatusToReg},      // MRS
		{0x0FB000F0, 0x01200000, (*CPU).armRegToStatus},      // MSR reg
		{0x0FB00000, 0x03200000, (*CPU).armImmToStatus},      // MSR imm
		{0x0E000010, 0x06000010, (*CPU).armUndefined},
		{0x0C000000, 0x04000000, (*CPU).armSingleTransfer},
		{0x0E000000, 0x08000000, (*CPU).armBlockTransfer},
		{0x0E000000, 0x0A000000, (*CPU).armBranch},
		{0x0F000000, 0x0F000000, (*CPU).armSoftwareInterrupt},
		{0x0C000000, 0x00000000, (*CPU).armDataProcessing},
	}

	for idx := range armTable {
		// Expand the index back into the decode bits and find the first
		// pattern the bits can match.
		opcode := uint32(idx)&0xFF0<<16 | uint32(idx)&0x00F<<4

		armTable[idx] = (*CPU).armUndefined
		for _, p := range patterns {
			// Only decode bits participate; other mask bits compare
			// against zero, which matches the canonical encodings.
			if opcode&p.mask&0x0FF000F0 == p.value&0x0FF000F0 {
				armTable[idx] = p.handler
				break
			}
		}
	}
}

// armOperand2 computes the shifter operand for data processing: either
// a rotated immediate or a shifted register. Returns the value and the
// shifter carry-out.
func (c *CPU) armOperand2(opcode uint32) (uint32, bool) {
	if bit.IsSet32(25, opcode) {
		imm := opcode & 0xFF
		rotate := (opcode >> 8 & 0x0F) * 2
		if rotate == 0 {
			return imm, c.Regs.C()
		}
		value := bit.RotateRight32(imm, uint(rotate))
		return value, value&0x80000000 != 0
	}

	rm := int(opcode & 0x0F)
	shiftType := opcode >> 5 & 0x03
	value := c.reg(rm)

	if bit.IsSet32(4, opcode) {
		// Shift amount from a register burns an internal cycle, and r15
		// reads one instruction further ahead.
		rs := int(opcode >> 8 & 0x0F)
		amount := c.reg(rs) & 0xFF
		if rm == 15 {
			value += 4
		}
		c.bus.Internal(1)
		return c.shiftByRegister(shiftType, amount, value)
	}

	amount := opcode >> 7 & 0x1F
	return c.shiftByImmediate(shiftType, amount, value)
}

// armDataProcessing dispatches the sixteen ALU operations through the
// shared arithmetic/logic primitives.
func (c *CPU) armDataProcessing(opcode uint32) {
	op := opcode >> 21 & 0x0F
	setFlags := bit.IsSet32(20, opcode)
	rn := int(opcode >> 16 & 0x0F)
	rd := int(opcode >> 12 & 0x0F)

	operand2, shifterCarry := c.armOperand2(opcode)
	operand1 := c.reg(rn)
	if rn == 15 && !bit.IsSet32(25, opcode) && bit.IsSet32(4, opcode) {
		operand1 += 4
	}

	var result uint32
	var carry, overflow bool
	writeResult := true
	arithmetic := false

	switch op {
	case 0x0: // AND
		result = operand1 & operand2
	case 0x1: // EOR
		result = operand1 ^ operand2
	case 0x2: // SUB
		result, carry, overflow = subWithCarry(operand1, operand2, true)
		arithmetic = true
	case 0x3: // RSB
		result, carry, overflow = subWithCarry(operand2, operand1, true)
		arithmetic = true
	case 0x4: // ADD
		result, carry, overflow = addWithCarry(operand1, operand2, false)
		arithmetic = true
	case 0x5: // ADC
		result, carry, overflow = addWithCarry(operand1, operand2, c.Regs.C())
		arithmetic = true
	case 0x6: // SBC
		result, carry, overflow = subWithCarry(operand1, operand2, c.Regs.C())
		arithmetic = true
	case 0x7: // RSC
		result, carry, overflow = subWithCarry(operand2, operand1, c.Regs.C())
		arithmetic = true
	case 0x8: // TST
		result = operand1 & operand2
		writeResult = false
	case 0x9: // TEQ
		result = operand1 ^ operand2
		writeResult = false
	case 0xA: // CMP
		result, carry, overflow = subWithCarry(operand1, operand2, true)
		arithmetic = true
		writeResult = false
	case 0xB: // CMN
		result, carry, overflow = addWithCarry(operand1, operand2, false)
		arithmetic = true
		writeResult = false
	case 0xC: // ORR
		result = operand1 | operand2
	case 0xD: // MOV
		result = operand2
	case 0xE: // BIC
		result = operand1 &^ operand2
	default: // MVN
		result = ^operand2
	}

	if setFlags {
		if rd == 15 && writeResult {
			// S with a PC destination restores CPSR from SPSR: the
			// return-from-exception form.
			c.returnFromException()
		} else {
			c.Regs.setNZ(result)
			if arithmetic {
				c.Regs.setFlag(flagC, carry)
				c.Regs.setFlag(flagV, overflow)
			} else {
				c.Regs.setFlag(flagC, shifterCarry)
			}
		}
	}

	if writeResult {
		c.setReg(rd, result)
	}
}

func (c *CPU) armBranch(opcode uint32) {
	offset := bit.SignExtend32(opcode&0x00FFFFFF, 24) << 2
	if bit.IsSet32(24, opcode) {
		// BL: the return address is the instruction after the branch.
		c.Regs.r[14] = c.Regs.r[15] - 4
	}
	c.setPC(c.Regs.r[15] + offset)
}

func (c *CPU) armBranchExchange(opcode uint32) {
	target := c.reg(int(opcode & 0x0F))
	c.Regs.setThumb(target&1 != 0)
	c.setPC(target)
}

func (c *CPU) armSoftwareInterrupt(opcode uint32) {
	c.takeException(ModeSupervisor, vectorSWI, c.Regs.r[15]-4)
}

func (c *CPU) armUndefined(opcode uint32) {
	c.takeException(ModeUndefined, vectorUndefined, c.Regs.r[15]-4)
}

func (c *CPU) armMultiply(opcode uint32) {
	rd := int(opcode >> 16 & 0x0F)
	rn := int(opcode >> 12 & 0x0F)
	rs := int(opcode >> 8 & 0x0F)
	rm := int(opcode & 0x0F)

	result := c.reg(rm) * c.reg(rs)
	cycles := multiplyCycles(c.reg(rs), true)
	if bit.IsSet32(21, opcode) { // MLA
		result += c.reg(rn)
		cycles++
	}
	c.bus.Internal(cycles)

	c.setReg(rd, result)
	if bit.IsSet32(20, opcode) {
		c.Regs.setNZ(result)
	}
}

func (c *CPU) armMultiplyLong(opcode uint32) {
	rdHi := int(opcode >> 16 & 0x0F)
	rdLo := int(opcode >> 12 & 0x0F)
	rs := int(opcode >> 8 & 0x0F)
	rm := int(opcode & 0x0F)
	signed := bit.IsSet32(22, opcode)
	accumulate := bit.IsSet32(21, opcode)

	var result uint64
	if signed {
		result = uint64(int64(int32(c.reg(rm))) * int64(int32(c.reg(rs))))
	} else {
		result = uint64(c.reg(rm)) * uint64(c.reg(rs))
	}
	if accumulate {
		result += uint64(c.reg(rdHi))<<32 | uint64(c.reg(rdLo))
	}

	cycles := multiplyCycles(c.reg(rs), signed) + 1
	if accumulate {
		cycles++
	}
	c.bus.Internal(cycles)

	c.setReg(rdLo, uint32(result))
	c.setReg(rdHi, uint32(result>>32))
	if bit.IsSet32(20, opcode) {
		c.Regs.setFlag(flagN, result&0x8000000000000000 != 0)
		c.Regs.setFlag(flagZ, result == 0)
	}
}

func (c *CPU) armSwap(opcode uint32) {
	rn := int(opcode >> 16 & 0x0F)
	rd := int(opcode >> 12 & 0x0F)
	rm := int(opcode & 0x0F)
	address := c.reg(rn)

	if bit.IsSet32(22, opcode) { // SWPB
		loaded := c.bus.Read8(address)
		c.bus.Write8(address, uint8(c.reg(rm)))
		c.setReg(rd, uint32(loaded))
	} else {
		loaded := c.readWordRotated(address)
		c.bus.Write32(address, c.reg(rm))
		c.setReg(rd, loaded)
	}
	c.bus.Internal(1)
}

// readWordRotated performs the ARM7 unaligned word read: the aligned
// word rotated so the addressed byte lands in the low lane.
func (c *CPU) readWordRotated(address uint32) uint32 {
	value := c.bus.Read32(address)
	return bit.RotateRight32(value, uint(address&3)*8)
}

func (c *CPU) armStatusToReg(opcode uint32) {
	rd := int(opcode >> 12 & 0x0F)
	if bit.IsSet32(22, opcode) {
		c.setReg(rd, c.Regs.SPSR())
	} else {
		c.setReg(rd, c.Regs.CPSR())
	}
}

// psrWriteMask builds the field mask for MSR from bits 19-16.
func psrWriteMask(opcode uint32, privileged bool) uint32 {
	var mask uint32
	if bit.IsSet32(19, opcode) {
		mask |= 0xFF000000
	}
	if privileged {
		if bit.IsSet32(18, opcode) {
			mask |= 0x00FF0000
		}
		if bit.IsSet32(17, opcode) {
			mask |= 0x0000FF00
		}
		if bit.IsSet32(16, opcode) {
			mask |= 0x000000FF
		}
	}
	return mask
}

func (c *CPU) armWriteStatus(opcode, value uint32) {
	privileged := c.Regs.Mode() != ModeUser

	if bit.IsSet32(22, opcode) {
		mask := psrWriteMask(opcode, privileged)
		c.Regs.SetSPSR(c.Regs.SPSR()&^mask | value&mask)
		return
	}

	mask := psrWriteMask(opcode, privileged)
	c.Regs.SetCPSR(c.Regs.CPSR()&^mask | value&mask)
}

func (c *CPU) armRegToStatus(opcode uint32) {
	c.armWriteStatus(opcode, c.reg(int(opcode&0x0F)))
}

func (c *CPU) armImmToStatus(opcode uint32) {
	imm := opcode & 0xFF
	rotate := (opcode >> 8 & 0x0F) * 2
	c.armWriteStatus(opcode, bit.RotateRight32(imm, uint(rotate)))
}

// armSingleTransfer covers LDR/STR and the byte forms with pre/post
// indexing and writeback.
func (c *CPU) armSingleTransfer(opcode uint32) {
	rn := int(opcode >> 16 & 0x0F)
	rd := int(opcode >> 12 & 0x0F)
	preIndex := bit.IsSet32(24, opcode)
	up := bit.IsSet32(23, opcode)
	byteAccess := bit.IsSet32(22, opcode)
	writeback := bit.IsSet32(21, opcode) || !preIndex
	load := bit.IsSet32(20, opcode)

	var offset uint32
	if bit.IsSet32(25, opcode) {
		value := c.reg(int(opcode & 0x0F))
		offset, _ = c.shiftByImmediate(opcode>>5&0x03, opcode>>7&0x1F, value)
	} else {
		offset = opcode & 0x0FFF
	}

	base := c.reg(rn)
	target := base
	if up {
		target += offset
	} else {
		target -= offset
	}

	address := base
	if preIndex {
		address = target
	}

	if load {
		var value uint32
		if byteAccess {
			value = uint32(c.bus.Read8(address))
		} else {
			value = c.readWordRotated(address)
		}
		c.bus.Internal(1)
		if writeback && rn != rd {
			c.setReg(rn, target)
		}
		c.setReg(rd, value)
	} else {
		value := c.reg(rd)
		if rd == 15 {
			// Stores see r15 one instruction further ahead.
			value += 4
		}
		if byteAccess {
			c.bus.Write8(address, uint8(value))
		} else {
			c.bus.Write32(address, value)
		}
		if writeback {
			c.setReg(rn, target)
		}
	}
}

// armHalfwordTransfer covers LDRH/STRH/LDRSB/LDRSH.
func (c *CPU) armHalfwordTransfer(opcode uint32) {
	rn := int(opcode >> 16 & 0x0F)
	rd := int(opcode >> 12 & 0x0F)
	preIndex := bit.IsSet32(24, opcode)
	up := bit.IsSet32(23, opcode)
	writeback := bit.IsSet32(21, opcode) || !preIndex
	load := bit.IsSet32(20, opcode)
	sh := opcode >> 5 & 0x03

	var offset uint32
	if bit.IsSet32(22, opcode) {
		offset = opcode>>4&0xF0 | opcode&0x0F
	} else {
		offset = c.reg(int(opcode & 0x0F))
	}

	base := c.reg(rn)
	target := base
	if up {
		target += offset
	} else {
		target -= offset
	}

	address := base
	if preIndex {
		address = target
	}

	if load {
		var value uint32
		switch sh {
		case 1: // LDRH: unaligned halfword reads rotate like words.
			half := uint32(c.bus.Read16(address))
			value = bit.RotateRight32(half, uint(address&1)*8)
		case 2: // LDRSB
			value = bit.SignExtend32(uint32(c.bus.Read8(address)), 8)
		default: // LDRSH: unaligned load behaves as LDRSB of the high byte.
			if address&1 != 0 {
				value = bit.SignExtend32(uint32(c.bus.Read8(address)), 8)
			} else {
				value = bit.SignExtend32(uint32(c.bus.Read16(address)), 16)
			}
		}
		c.bus.Internal(1)
		if writeback && rn != rd {
			c.setReg(rn, target)
		}
		c.setReg(rd, value)
	} else {
		// STRH is the only store form.
		c.bus.Write16(address, uint16(c.reg(rd)))
		if writeback {
			c.setReg(rn, target)
		}
	}
}

// armBlockTransfer implements LDM/STM, including the S-bit user-bank
// and exception-return forms.
func (c *CPU) armBlockTransfer(opcode uint32) {
	rn := int(opcode >> 16 & 0x0F)
	preIndex := bit.IsSet32(24, opcode)
	up := bit.IsSet32(23, opcode)
	sBit := bit.IsSet32(22, opcode)
	writeback := bit.IsSet32(21, opcode)
	load := bit.IsSet32(20, opcode)
	rlist := opcode & 0xFFFF

	count := 0
	for i := 0; i < 16; i++ {
		if rlist&(1<<i) != 0 {
			count++
		}
	}
	if count == 0 {
		// Empty list transfers r15 and steps the base by the full block.
		rlist = 1 << 15
		count = 16
	}

	base := c.reg(rn)
	var start uint32
	if up {
		start = base
		if preIndex {
			start += 4
		}
	} else {
		start = base - uint32(count)*4
		if !preIndex {
			start += 4
		}
	}

	var newBase uint32
	if up {
		newBase = base + uint32(count)*4
	} else {
		newBase = base - uint32(count)*4
	}

	pcInList := rlist&(1<<15) != 0
	userBank := sBit && !(load && pcInList)

	address := start &^ 3
	firstStore := true
	for i := 0; i < 16; i++ {
		if rlist&(1<<i) == 0 {
			continue
		}

		if load {
			value := c.bus.Read32(address)
			if userBank {
				c.Regs.SetUserReg(i, value)
			} else if i == 15 {
				// With the S bit, loading PC also restores CPSR from
				// SPSR; both land atomically before the pipeline flush.
				if sBit {
					c.returnFromException()
				}
				if c.Regs.Thumb() {
					c.setPC(value &^ 1)
				} else {
					c.setPC(value &^ 3)
				}
			} else {
				c.Regs.r[i] = value
			}
		} else {
			var value uint32
			if userBank {
				value = c.Regs.UserReg(i)
			} else {
				value = c.reg(i)
			}
			if i == 15 {
				value += 4
			}
			if i == rn && !firstStore {
				value = newBase
			}
			c.bus.Write32(address, value)
			firstStore = false
		}

		address += 4
	}

	if load {
		c.bus.Internal(1)
	}

	if writeback {
		if load && rlist&(1<<rn) != 0 {
			// A loaded base wins over writeback.
		} else {
			c.setReg(rn, newBase)
		}
	}
}
