package cpu

import "github.com/CaptainCaffeine/Chroma/chroma/bit"

// Shift types, by the 2-bit encoding.
const (
	shiftLSL = 0
	shiftLSR = 1
	shiftASR = 2
	shiftROR = 3
)

// shiftByImmediate applies a shift with an immediate amount, with the
// ARM encodings' special cases: LSR #0 and ASR #0 mean #32, ROR #0 is
// RRX. Returns the shifted value and the shifter carry-out.
func (c *CPU) shiftByImmediate(shiftType, amount uint32, value uint32) (uint32, bool) {
	carry := c.Regs.C()

	switch shiftType {
	case shiftLSL:
		if amount == 0 {
			return value, carry
		}
		return value << amount, bit.IsSet32(uint(32-amount), value)
	case shiftLSR:
		if amount == 0 {
			amount = 32
		}
		if amount == 32 {
			return 0, value&0x80000000 != 0
		}
		return value >> amount, bit.IsSet32(uint(amount-1), value)
	case shiftASR:
		if amount == 0 || amount >= 32 {
			out := uint32(int32(value) >> 31)
			return out, value&0x80000000 != 0
		}
		return uint32(int32(value) >> amount), bit.IsSet32(uint(amount-1), value)
	default: // ROR / RRX
		if amount == 0 {
			// RRX: rotate through carry by one.
			out := value >> 1
			if carry {
				out |= 0x80000000
			}
			return out, value&1 != 0
		}
		out := bit.RotateRight32(value, uint(amount))
		return out, out&0x80000000 != 0
	}
}

// shiftByRegister applies a shift whose amount is the low 8 bits of a
// register. Amounts of 0 leave the value and carry untouched; amounts
// of 32 or more saturate per the ARM ARM.
func (c *CPU) shiftByRegister(shiftType, amount uint32, value uint32) (uint32, bool) {
	carry := c.Regs.C()
	amount &= 0xFF

	if amount == 0 {
		return value, carry
	}

	switch shiftType {
	case shiftLSL:
		switch {
		case amount < 32:
			return value << amount, bit.IsSet32(uint(32-amount), value)
		case amount == 32:
			return 0, value&1 != 0
		default:
			return 0, false
		}
	case shiftLSR:
		switch {
		case amount < 32:
			return value >> amount, bit.IsSet32(uint(amount-1), value)
		case amount == 32:
			return 0, value&0x80000000 != 0
		default:
			return 0, false
		}
	case shiftASR:
		if amount >= 32 {
			return uint32(int32(value) >> 31), value&0x80000000 != 0
		}
		return uint32(int32(value) >> amount), bit.IsSet32(uint(amount-1), value)
	default: // ROR
		amount &= 31
		if amount == 0 {
			return value, value&0x80000000 != 0
		}
		out := bit.RotateRight32(value, uint(amount))
		return out, out&0x80000000 != 0
	}
}

// addWithCarry computes a + b + carryIn with carry and overflow outs.
func addWithCarry(a, b uint32, carryIn bool) (result uint32, carry, overflow bool) {
	var cin uint32
	if carryIn {
		cin = 1
	}
	sum := uint64(a) + uint64(b) + uint64(cin)
	result = uint32(sum)
	carry = sum > 0xFFFFFFFF
	overflow = (a^result)&(b^result)&0x80000000 != 0
	return
}

// subWithCarry computes a - b - (1 - carryIn); ARM carry is NOT borrow.
func subWithCarry(a, b uint32, carryIn bool) (result uint32, carry, overflow bool) {
	return addWithCarry(a, ^b, carryIn)
}

// multiplyCycles is the Booth early-termination internal cycle count for
// a multiply with the given operand.
func multiplyCycles(operand uint32, signed bool) int {
	masks := [3]uint32{0xFFFFFF00, 0xFFFF0000, 0xFF000000}
	for i, mask := range masks {
		top := operand & mask
		if top == 0 || (signed && top == mask) {
			return i + 1
		}
	}
	return 4
}
