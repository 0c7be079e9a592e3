package cpu

import "github.com/CaptainCaffeine/Chroma/chroma/gba/memory"

// Exception vectors.
const (
	vectorReset     uint32 = 0x00
	vectorUndefined uint32 = 0x04
	vectorSWI       uint32 = 0x08
	vectorIRQ       uint32 = 0x18
)

// CPU is the ARM7TDMI core: interleaved ARM and Thumb decoders feeding a
// shared executor, with banked registers and condition-code execution.
type CPU struct {
	Regs Registers

	bus *memory.Bus
	irq *memory.IRQ

	// pcWritten marks that the executing instruction changed r15, so the
	// next fetch must be recomputed instead of falling through.
	pcWritten bool

	cycles uint64
}

// New builds the CPU. With a BIOS image execution starts at the reset
// vector in Supervisor mode; without one, at the cartridge entry point
// with the post-BIOS register state.
func New(bus *memory.Bus, hasBIOS bool) *CPU {
	c := &CPU{bus: bus, irq: bus.IRQ()}

	if hasBIOS {
		c.Regs.cpsr = ModeSupervisor | flagIRQ | flagFIQ
		c.Regs.r[15] = vectorReset
	} else {
		c.Regs.cpsr = ModeSystem
		c.Regs.loadBank(ModeSystem)
		c.Regs.r[13] = 0x03007F00
		c.Regs.bankIRQ[0] = 0x03007FA0
		c.Regs.bankSVC[0] = 0x03007FE0
		c.Regs.r[15] = 0x08000000
	}

	return c
}

// Step executes one instruction, or services a pending interrupt or a
// halted cycle. All cycle accounting flows through the bus charges the
// step makes.
func (c *CPU) Step() {
	if c.irq.Halted() {
		c.bus.Internal(1)
		return
	}

	if c.irq.Pending() && !c.Regs.IRQDisabled() {
		c.takeIRQ()
	}

	if c.Regs.Thumb() {
		c.stepThumb()
	} else {
		c.stepArm()
	}
}

func (c *CPU) stepArm() {
	pc := c.Regs.r[15] &^ 3
	opcode := c.bus.ReadOpcode32(pc)
	c.cycles++

	// During execution r15 reads as the instruction address plus 8.
	c.Regs.r[15] = pc + 8
	c.pcWritten = false

	if c.checkCondition(opcode >> 28) {
		armTable[armIndex(opcode)](c, opcode)
	}

	if c.pcWritten {
		c.flushPipeline()
	} else {
		c.Regs.r[15] = pc + 4
	}
}

func (c *CPU) stepThumb() {
	pc := c.Regs.r[15] &^ 1
	opcode := c.bus.ReadOpcode16(pc)
	c.cycles++

	// During execution r15 reads as the instruction address plus 4.
	c.Regs.r[15] = pc + 4
	c.pcWritten = false

	thumbTable[opcode>>6](c, opcode)

	if c.pcWritten {
		c.flushPipeline()
	} else {
		c.Regs.r[15] = pc + 2
	}
}

// flushPipeline aligns the branch target; the refill itself happens on
// the next fetch.
func (c *CPU) flushPipeline() {
	if c.Regs.Thumb() {
		c.Regs.r[15] &^= 1
	} else {
		c.Regs.r[15] &^= 3
	}
	c.bus.Internal(1)
}

// setPC writes r15 and flags the pipeline flush.
func (c *CPU) setPC(value uint32) {
	c.Regs.r[15] = value
	c.pcWritten = true
}

// setReg routes register writes so r15 stores flush the pipeline.
func (c *CPU) setReg(index int, value uint32) {
	if index == 15 {
		c.setPC(value)
		return
	}
	c.Regs.r[index] = value
}

// reg reads a register; r15 reads include the pipeline offset applied
// by the step functions.
func (c *CPU) reg(index int) uint32 {
	return c.Regs.r[index]
}

// takeException switches modes: the return address lands in the new
// mode's r14, CPSR is copied to the new mode's SPSR, IRQs are disabled,
// Thumb is cleared and execution continues at the vector.
func (c *CPU) takeException(mode, vector, returnAddr uint32) {
	oldCPSR := c.Regs.CPSR()

	c.Regs.SetMode(mode)
	c.Regs.SetSPSR(oldCPSR)
	c.Regs.r[14] = returnAddr
	c.Regs.setThumb(false)
	c.Regs.cpsr |= flagIRQ
	c.Regs.r[15] = vector
	c.pcWritten = true
}

// takeIRQ enters IRQ mode between instructions. The saved address is
// the next instruction plus 4, so the handler returns with
// SUBS PC, LR, #4.
func (c *CPU) takeIRQ() {
	c.takeException(ModeIRQ, vectorIRQ, c.Regs.r[15]+4)
	c.flushPipeline()
}

// checkCondition evaluates the 4-bit condition field against CPSR.
func (c *CPU) checkCondition(cond uint32) bool {
	r := &c.Regs
	switch cond & 0x0F {
	case 0x0: // EQ
		return r.Z()
	case 0x1: // NE
		return !r.Z()
	case 0x2: // CS
		return r.C()
	case 0x3: // CC
		return !r.C()
	case 0x4: // MI
		return r.N()
	case 0x5: // PL
		return !r.N()
	case 0x6: // VS
		return r.V()
	case 0x7: // VC
		return !r.V()
	case 0x8: // HI
		return r.C() && !r.Z()
	case 0x9: // LS
		return !r.C() || r.Z()
	case 0xA: // GE
		return r.N() == r.V()
	case 0xB: // LT
		return r.N() != r.V()
	case 0xC: // GT
		return !r.Z() && r.N() == r.V()
	case 0xD: // LE
		return r.Z() || r.N() != r.V()
	case 0xE: // AL
		return true
	default:
		// NV is unpredictable on ARMv4; treated as never.
		return false
	}
}

// returnFromException restores CPSR from SPSR; data processing with the
// S bit and a PC destination uses this.
func (c *CPU) returnFromException() {
	c.Regs.SetCPSR(c.Regs.SPSR())
}

// Cycles returns the lifetime instruction count (diagnostic).
func (c *CPU) Cycles() uint64 { return c.cycles }
