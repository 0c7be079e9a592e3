package cpu

import "github.com/CaptainCaffeine/Chroma/chroma/bit"

// thumbHandler executes one 16-bit Thumb instruction.
type thumbHandler func(*CPU, uint16)

// thumbTable is keyed by the top 10 bits, enough to separate every
// Thumb format.
var thumbTable [1024]thumbHandler

func init() {
	for idx := range thumbTable {
		thumbTable[idx] = thumbSelect(uint16(idx) << 6)
	}
}

// thumbSelect routes an opcode to its format handler. The order mirrors
// the encoding tree: the specific carve-outs come before their parent
// blocks.
func thumbSelect(op uint16) thumbHandler {
	switch {
	case op&0xF800 == 0x1800:
		return (*CPU).thumbAddSub
	case op&0xE000 == 0x0000:
		return (*CPU).thumbShiftImmediate
	case op&0xE000 == 0x2000:
		return (*CPU).thumbImmediate
	case op&0xFC00 == 0x4000:
		return (*CPU).thumbALU
	case op&0xFC00 == 0x4400:
		return (*CPU).thumbHiReg
	case op&0xF800 == 0x4800:
		return (*CPU).thumbPCRelativeLoad
	case op&0xF200 == 0x5000:
		return (*CPU).thumbTransferReg
	case op&0xF200 == 0x5200:
		return (*CPU).thumbTransferSignExtended
	case op&0xE000 == 0x6000:
		return (*CPU).thumbTransferImmediate
	case op&0xF000 == 0x8000:
		return (*CPU).thumbTransferHalfword
	case op&0xF000 == 0x9000:
		return (*CPU).thumbTransferSPRelative
	case op&0xF000 == 0xA000:
		return (*CPU).thumbLoadAddress
	case op&0xFF00 == 0xB000:
		return (*CPU).thumbAdjustSP
	case op&0xF600 == 0xB400:
		return (*CPU).thumbPushPop
	case op&0xF000 == 0xC000:
		return (*CPU).thumbBlockTransfer
	case op&0xFF00 == 0xDF00:
		return (*CPU).thumbSoftwareInterrupt
	case op&0xF000 == 0xD000:
		return (*CPU).thumbConditionalBranch
	case op&0xF800 == 0xE000:
		return (*CPU).thumbBranch
	case op&0xF000 == 0xF000:
		return (*CPU).thumbLongBranchLink
	default:
		return (*CPU).thumbUndefined
	}
}

func (c *CPU) thumbUndefined(op uint16) {
	c.takeException(ModeUndefined, vectorUndefined, c.Regs.r[15]-2)
}

// thumbShiftImmediate: LSL/LSR/ASR Rd, Rm, #imm.
func (c *CPU) thumbShiftImmediate(op uint16) {
	shiftType := uint32(op >> 11 & 0x03)
	amount := uint32(op >> 6 & 0x1F)
	rm := int(op >> 3 & 0x07)
	rd := int(op & 0x07)

	result, carry := c.shiftByImmediate(shiftType, amount, c.reg(rm))
	c.Regs.r[rd] = result
	c.Regs.setNZ(result)
	c.Regs.setFlag(flagC, carry)
}

// thumbAddSub: ADD/SUB Rd, Rn, Rm or #imm3.
func (c *CPU) thumbAddSub(op uint16) {
	rd := int(op & 0x07)
	rn := int(op >> 3 & 0x07)

	var operand uint32
	if bit.IsSet16(10, op) {
		operand = uint32(op >> 6 & 0x07)
	} else {
		operand = c.reg(int(op >> 6 & 0x07))
	}

	var result uint32
	var carry, overflow bool
	if bit.IsSet16(9, op) {
		result, carry, overflow = subWithCarry(c.reg(rn), operand, true)
	} else {
		result, carry, overflow = addWithCarry(c.reg(rn), operand, false)
	}

	c.Regs.r[rd] = result
	c.Regs.setNZ(result)
	c.Regs.setFlag(flagC, carry)
	c.Regs.setFlag(flagV, overflow)
}

// thumbImmediate: MOV/CMP/ADD/SUB Rd, #imm8.
func (c *CPU) thumbImmediate(op uint16) {
	rd := int(op >> 8 & 0x07)
	imm := uint32(op & 0xFF)

	switch op >> 11 & 0x03 {
	case 0: // MOV
		c.Regs.r[rd] = imm
		c.Regs.setNZ(imm)
	case 1: // CMP
		result, carry, overflow := subWithCarry(c.reg(rd), imm, true)
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.Regs.setFlag(flagV, overflow)
	case 2: // ADD
		result, carry, overflow := addWithCarry(c.reg(rd), imm, false)
		c.Regs.r[rd] = result
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.Regs.setFlag(flagV, overflow)
	default: // SUB
		result, carry, overflow := subWithCarry(c.reg(rd), imm, true)
		c.Regs.r[rd] = result
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.Regs.setFlag(flagV, overflow)
	}
}

// thumbALU: the sixteen register-register operations.
func (c *CPU) thumbALU(op uint16) {
	rm := int(op >> 3 & 0x07)
	rd := int(op & 0x07)
	vd, vm := c.reg(rd), c.reg(rm)

	setArith := func(result uint32, carry, overflow bool) {
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.Regs.setFlag(flagV, overflow)
	}

	switch op >> 6 & 0x0F {
	case 0x0: // AND
		c.Regs.r[rd] = vd & vm
		c.Regs.setNZ(c.Regs.r[rd])
	case 0x1: // EOR
		c.Regs.r[rd] = vd ^ vm
		c.Regs.setNZ(c.Regs.r[rd])
	case 0x2: // LSL
		result, carry := c.shiftByRegister(shiftLSL, vm, vd)
		c.Regs.r[rd] = result
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.bus.Internal(1)
	case 0x3: // LSR
		result, carry := c.shiftByRegister(shiftLSR, vm, vd)
		c.Regs.r[rd] = result
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.bus.Internal(1)
	case 0x4: // ASR
		result, carry := c.shiftByRegister(shiftASR, vm, vd)
		c.Regs.r[rd] = result
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.bus.Internal(1)
	case 0x5: // ADC
		result, carry, overflow := addWithCarry(vd, vm, c.Regs.C())
		c.Regs.r[rd] = result
		setArith(result, carry, overflow)
	case 0x6: // SBC
		result, carry, overflow := subWithCarry(vd, vm, c.Regs.C())
		c.Regs.r[rd] = result
		setArith(result, carry, overflow)
	case 0x7: // ROR
		result, carry := c.shiftByRegister(shiftROR, vm, vd)
		c.Regs.r[rd] = result
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.bus.Internal(1)
	case 0x8: // TST
		c.Regs.setNZ(vd & vm)
	case 0x9: // NEG
		result, carry, overflow := subWithCarry(0, vm, true)
		c.Regs.r[rd] = result
		setArith(result, carry, overflow)
	case 0xA: // CMP
		result, carry, overflow := subWithCarry(vd, vm, true)
		setArith(result, carry, overflow)
	case 0xB: // CMN
		result, carry, overflow := addWithCarry(vd, vm, false)
		setArith(result, carry, overflow)
	case 0xC: // ORR
		c.Regs.r[rd] = vd | vm
		c.Regs.setNZ(c.Regs.r[rd])
	case 0xD: // MUL
		c.bus.Internal(multiplyCycles(vd, true))
		c.Regs.r[rd] = vd * vm
		c.Regs.setNZ(c.Regs.r[rd])
	case 0xE: // BIC
		c.Regs.r[rd] = vd &^ vm
		c.Regs.setNZ(c.Regs.r[rd])
	default: // MVN
		c.Regs.r[rd] = ^vm
		c.Regs.setNZ(c.Regs.r[rd])
	}
}

// thumbHiReg: ADD/CMP/MOV with high registers, and BX.
func (c *CPU) thumbHiReg(op uint16) {
	rd := int(op&0x07) | int(op>>4&0x08)
	rm := int(op >> 3 & 0x0F)

	switch op >> 8 & 0x03 {
	case 0: // ADD
		c.setReg(rd, c.reg(rd)+c.reg(rm))
	case 1: // CMP
		result, carry, overflow := subWithCarry(c.reg(rd), c.reg(rm), true)
		c.Regs.setNZ(result)
		c.Regs.setFlag(flagC, carry)
		c.Regs.setFlag(flagV, overflow)
	case 2: // MOV
		c.setReg(rd, c.reg(rm))
	default: // BX
		target := c.reg(rm)
		c.Regs.setThumb(target&1 != 0)
		c.setPC(target)
	}
}

// thumbPCRelativeLoad: LDR Rt, [PC, #imm8*4]; the base is word-aligned.
func (c *CPU) thumbPCRelativeLoad(op uint16) {
	rt := int(op >> 8 & 0x07)
	base := c.Regs.r[15] &^ 3
	c.Regs.r[rt] = c.readWordRotated(base + uint32(op&0xFF)*4)
	c.bus.Internal(1)
}

// thumbTransferReg: LDR/STR/LDRB/STRB Rt, [Rn, Rm].
func (c *CPU) thumbTransferReg(op uint16) {
	rt := int(op & 0x07)
	rn := int(op >> 3 & 0x07)
	rm := int(op >> 6 & 0x07)
	address := c.reg(rn) + c.reg(rm)

	switch op >> 10 & 0x03 {
	case 0: // STR
		c.bus.Write32(address, c.reg(rt))
	case 1: // STRB
		c.bus.Write8(address, uint8(c.reg(rt)))
	case 2: // LDR
		c.Regs.r[rt] = c.readWordRotated(address)
		c.bus.Internal(1)
	default: // LDRB
		c.Regs.r[rt] = uint32(c.bus.Read8(address))
		c.bus.Internal(1)
	}
}

// thumbTransferSignExtended: STRH/LDRH/LDSB/LDSH Rt, [Rn, Rm].
func (c *CPU) thumbTransferSignExtended(op uint16) {
	rt := int(op & 0x07)
	rn := int(op >> 3 & 0x07)
	rm := int(op >> 6 & 0x07)
	address := c.reg(rn) + c.reg(rm)

	switch op >> 10 & 0x03 {
	case 0: // STRH
		c.bus.Write16(address, uint16(c.reg(rt)))
	case 1: // LDSB
		c.Regs.r[rt] = bit.SignExtend32(uint32(c.bus.Read8(address)), 8)
		c.bus.Internal(1)
	case 2: // LDRH
		half := uint32(c.bus.Read16(address))
		c.Regs.r[rt] = bit.RotateRight32(half, uint(address&1)*8)
		c.bus.Internal(1)
	default: // LDSH
		if address&1 != 0 {
			c.Regs.r[rt] = bit.SignExtend32(uint32(c.bus.Read8(address)), 8)
		} else {
			c.Regs.r[rt] = bit.SignExtend32(uint32(c.bus.Read16(address)), 16)
		}
		c.bus.Internal(1)
	}
}

// thumbTransferImmediate: LDR/STR/LDRB/STRB Rt, [Rn, #imm5].
func (c *CPU) thumbTransferImmediate(op uint16) {
	rt := int(op & 0x07)
	rn := int(op >> 3 & 0x07)
	imm := uint32(op >> 6 & 0x1F)

	switch op >> 11 & 0x03 {
	case 0: // STR
		c.bus.Write32(c.reg(rn)+imm*4, c.reg(rt))
	case 1: // LDR
		c.Regs.r[rt] = c.readWordRotated(c.reg(rn) + imm*4)
		c.bus.Internal(1)
	case 2: // STRB
		c.bus.Write8(c.reg(rn)+imm, uint8(c.reg(rt)))
	default: // LDRB
		c.Regs.r[rt] = uint32(c.bus.Read8(c.reg(rn) + imm))
		c.bus.Internal(1)
	}
}

// thumbTransferHalfword: LDRH/STRH Rt, [Rn, #imm5*2].
func (c *CPU) thumbTransferHalfword(op uint16) {
	rt := int(op & 0x07)
	rn := int(op >> 3 & 0x07)
	address := c.reg(rn) + uint32(op>>6&0x1F)*2

	if bit.IsSet16(11, op) {
		half := uint32(c.bus.Read16(address))
		c.Regs.r[rt] = bit.RotateRight32(half, uint(address&1)*8)
		c.bus.Internal(1)
	} else {
		c.bus.Write16(address, uint16(c.reg(rt)))
	}
}

// thumbTransferSPRelative: LDR/STR Rt, [SP, #imm8*4].
func (c *CPU) thumbTransferSPRelative(op uint16) {
	rt := int(op >> 8 & 0x07)
	address := c.reg(13) + uint32(op&0xFF)*4

	if bit.IsSet16(11, op) {
		c.Regs.r[rt] = c.readWordRotated(address)
		c.bus.Internal(1)
	} else {
		c.bus.Write32(address, c.reg(rt))
	}
}

// thumbLoadAddress: ADD Rd, PC/SP, #imm8*4.
func (c *CPU) thumbLoadAddress(op uint16) {
	rd := int(op >> 8 & 0x07)
	imm := uint32(op&0xFF) * 4

	if bit.IsSet16(11, op) {
		c.Regs.r[rd] = c.reg(13) + imm
	} else {
		c.Regs.r[rd] = (c.Regs.r[15] &^ 3) + imm
	}
}

// thumbAdjustSP: ADD SP, #±imm7*4.
func (c *CPU) thumbAdjustSP(op uint16) {
	imm := uint32(op&0x7F) * 4
	if bit.IsSet16(7, op) {
		c.Regs.r[13] -= imm
	} else {
		c.Regs.r[13] += imm
	}
}

// thumbPushPop: PUSH {rlist, LR} / POP {rlist, PC}.
func (c *CPU) thumbPushPop(op uint16) {
	rlist := uint32(op & 0xFF)
	load := bit.IsSet16(11, op)
	pcLR := bit.IsSet16(8, op)

	count := 0
	for i := 0; i < 8; i++ {
		if rlist&(1<<i) != 0 {
			count++
		}
	}
	if pcLR {
		count++
	}

	if load {
		address := c.reg(13)
		for i := 0; i < 8; i++ {
			if rlist&(1<<i) != 0 {
				c.Regs.r[i] = c.bus.Read32(address)
				address += 4
			}
		}
		if pcLR {
			c.setPC(c.bus.Read32(address) &^ 1)
			address += 4
		}
		c.Regs.r[13] = address
		c.bus.Internal(1)
	} else {
		address := c.reg(13) - uint32(count)*4
		c.Regs.r[13] = address
		for i := 0; i < 8; i++ {
			if rlist&(1<<i) != 0 {
				c.bus.Write32(address, c.reg(i))
				address += 4
			}
		}
		if pcLR {
			c.bus.Write32(address, c.reg(14))
		}
	}
}

// thumbBlockTransfer: LDMIA/STMIA Rn!, {rlist}.
func (c *CPU) thumbBlockTransfer(op uint16) {
	rn := int(op >> 8 & 0x07)
	rlist := uint32(op & 0xFF)
	load := bit.IsSet16(11, op)

	if rlist == 0 {
		// Empty list transfers PC and steps the base by 0x40.
		if load {
			c.setPC(c.bus.Read32(c.reg(rn)) &^ 1)
		} else {
			c.bus.Write32(c.reg(rn), c.Regs.r[15]+2)
		}
		c.Regs.r[rn] += 0x40
		return
	}

	address := c.reg(rn)
	baseInList := rlist&(1<<rn) != 0
	first := true
	for i := 0; i < 8; i++ {
		if rlist&(1<<i) == 0 {
			continue
		}
		if load {
			c.Regs.r[i] = c.bus.Read32(address)
		} else {
			value := c.reg(i)
			if i == rn && !first {
				value = c.blockEndAddress(c.reg(rn), rlist)
			}
			c.bus.Write32(address, value)
		}
		address += 4
		first = false
	}

	if load {
		c.bus.Internal(1)
		if !baseInList {
			c.Regs.r[rn] = address
		}
	} else {
		c.Regs.r[rn] = address
	}
}

func (c *CPU) blockEndAddress(base uint32, rlist uint32) uint32 {
	count := uint32(0)
	for i := 0; i < 8; i++ {
		if rlist&(1<<i) != 0 {
			count++
		}
	}
	return base + count*4
}

// thumbConditionalBranch: B<cond> with an 8-bit offset.
func (c *CPU) thumbConditionalBranch(op uint16) {
	if !c.checkCondition(uint32(op >> 8 & 0x0F)) {
		return
	}
	offset := bit.SignExtend32(uint32(op&0xFF), 8) << 1
	c.setPC(c.Regs.r[15] + offset)
}

func (c *CPU) thumbSoftwareInterrupt(op uint16) {
	c.takeException(ModeSupervisor, vectorSWI, c.Regs.r[15]-2)
}

// thumbBranch: unconditional B with an 11-bit offset.
func (c *CPU) thumbBranch(op uint16) {
	offset := bit.SignExtend32(uint32(op&0x07FF), 11) << 1
	c.setPC(c.Regs.r[15] + offset)
}

// thumbLongBranchLink: the BL pair. The first half stashes the high
// offset in LR; the second half completes the branch and leaves the
// return address (with bit 0 set) in LR.
func (c *CPU) thumbLongBranchLink(op uint16) {
	offset := uint32(op & 0x07FF)

	if !bit.IsSet16(11, op) {
		// H=0: first half.
		c.Regs.r[14] = c.Regs.r[15] + (bit.SignExtend32(offset, 11) << 12)
		return
	}

	// H=1: second half.
	target := c.Regs.r[14] + offset<<1
	c.Regs.r[14] = (c.Regs.r[15] - 2) | 1
	c.setPC(target)
}
