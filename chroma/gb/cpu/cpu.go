package cpu

import (
	"github.com/CaptainCaffeine/Chroma/chroma/addr"
	"github.com/CaptainCaffeine/Chroma/chroma/bit"
)

// Bus is the CPU's view of the system. Every Read/Write the CPU makes
// charges one machine cycle through Tick; the bus advances all
// peripherals inside that charge.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	Tick(cycles int)
	InterruptPending() uint8
	CPUStalled() bool
	SpeedSwitchArmed() bool
	ToggleSpeed()
	SetStopMode(stopped bool)
	JoypadAnyPressed() bool
	JoypadLinesDisabled() bool
}

// Flag is one of the 4 flags in the high nibble of F.
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// Mode is the CPU execution mode.
type Mode uint8

const (
	// Running is normal fetch-decode-execute.
	Running Mode = iota
	// Halted waits for IE & IF to become nonzero.
	Halted
	// HaltBug makes the next opcode fetch skip the PC increment, so the
	// instruction executes twice.
	HaltBug
	// Stopped is STOP mode: LCD off, divider frozen, wake on joypad.
	Stopped
)

// speedSwitchCycles is the published cost of the CGB STOP speed switch,
// plus the machine cycle of the STOP fetch itself.
const speedSwitchCycles = 130992 + 4

// CPU is the 8-bit Sharp core.
type CPU struct {
	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	ime        bool
	imePending bool // EI takes effect after the following instruction
	mode       Mode
	hung       bool

	// instrCycles accumulates the master cycles charged during the
	// current Step call.
	instrCycles int
	totalCycles uint64

	bus Bus
}

// New returns a CPU in the post-boot-ROM state. cgbMode selects the CGB
// register file defaults.
func New(bus Bus, cgbMode bool) *CPU {
	cpu := &CPU{bus: bus}

	if cgbMode {
		cpu.setAF(0x1180)
		cpu.setBC(0x0000)
		cpu.setDE(0xFF56)
		cpu.setHL(0x000D)
	} else {
		cpu.setAF(0x01B0)
		cpu.setBC(0x0013)
		cpu.setDE(0x00D8)
		cpu.setHL(0x014D)
	}
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100

	return cpu
}

// Step executes one instruction (or one halted/stopped machine cycle)
// and returns the number of master cycles consumed. All peripheral
// advancement happens inside the bus charges this call makes.
func (c *CPU) Step() int {
	c.instrCycles = 0

	// A running VRAM DMA charges its cycles to the CPU.
	for c.bus.CPUStalled() {
		c.internal()
	}

	switch c.mode {
	case Halted:
		if c.bus.InterruptPending() != 0 {
			c.mode = Running
		} else {
			c.internal()
			return c.finish()
		}
	case Stopped:
		if c.bus.JoypadAnyPressed() {
			c.mode = Running
			c.bus.SetStopMode(false)
		} else {
			c.internal()
			return c.finish()
		}
	}

	if c.ime && c.bus.InterruptPending() != 0 {
		c.dispatchInterrupt()
		return c.finish()
	}

	applyEI := c.imePending

	opcode := c.fetchOpcode()
	if opcode == 0xCB {
		cb := c.readImmediate()
		cbOpcodes[cb](c)
	} else {
		opcodes[opcode](c)
	}

	// EI enables interrupts after the instruction that follows it.
	if applyEI && c.imePending {
		c.imePending = false
		c.ime = true
	}

	return c.finish()
}

func (c *CPU) finish() int {
	c.totalCycles += uint64(c.instrCycles)
	return c.instrCycles
}

// fetchOpcode reads the opcode byte. In HaltBug mode the PC increment is
// skipped, so the same byte is seen again by the next fetch or operand
// read.
func (c *CPU) fetchOpcode() uint8 {
	opcode := c.read(c.pc)
	if c.mode == HaltBug {
		c.mode = Running
	} else {
		c.pc++
	}
	return opcode
}

// dispatchInterrupt services the highest-priority pending interrupt:
// two wait cycles, two stack pushes, then the vector jump.
func (c *CPU) dispatchInterrupt() {
	c.internal()
	c.internal()

	c.write(c.sp-1, bit.High(c.pc))
	c.write(c.sp-2, bit.Low(c.pc))
	c.sp -= 2

	pending := c.bus.InterruptPending()
	c.ime = false
	c.imePending = false

	for i := uint8(0); i < 5; i++ {
		if pending&(1<<i) != 0 {
			interrupt := addr.Interrupt(i)
			iflags := c.bus.Read(addr.IF)
			c.bus.Write(addr.IF, iflags&^interrupt.Mask())
			c.pc = interrupt.Vector()
			break
		}
	}

	c.internal()
}

// read performs a bus read and charges one machine cycle.
func (c *CPU) read(address uint16) uint8 {
	value := c.bus.Read(address)
	c.tick()
	return value
}

// write performs a bus write and charges one machine cycle.
func (c *CPU) write(address uint16, value uint8) {
	c.bus.Write(address, value)
	c.tick()
}

// internal charges one machine cycle with no bus access.
func (c *CPU) internal() {
	c.tick()
}

func (c *CPU) tick() {
	c.bus.Tick(4)
	c.instrCycles += 4
}

func (c *CPU) readImmediate() uint8 {
	n := c.read(c.pc)
	c.pc++
	return n
}

func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

func (c *CPU) pushStack(value uint16) {
	c.internal()
	c.write(c.sp-1, bit.High(value))
	c.write(c.sp-2, bit.Low(value))
	c.sp -= 2
}

func (c *CPU) popStack() uint16 {
	low := c.read(c.sp)
	high := c.read(c.sp + 1)
	c.sp += 2
	return bit.Combine(high, low)
}

// halt enters HALT, or arms the halt bug when IME is clear with an
// interrupt already pending.
func (c *CPU) halt() {
	if !c.ime && c.bus.InterruptPending() != 0 {
		c.mode = HaltBug
		return
	}
	c.mode = Halted
}

// stop enters STOP mode, or performs the CGB speed switch when KEY1 is
// armed. Entering STOP with all joypad lines disabled hangs the CPU.
func (c *CPU) stop() {
	// STOP is encoded as 0x10 0x00; the padding byte is consumed.
	c.readImmediate()

	if c.bus.SpeedSwitchArmed() {
		for i := 0; i < speedSwitchCycles; i += 4 {
			c.internal()
		}
		c.bus.ToggleSpeed()
		return
	}

	if c.bus.JoypadLinesDisabled() {
		c.hung = true
		return
	}

	c.mode = Stopped
	c.bus.SetStopMode(true)
}

// Hung reports whether the CPU entered the unrecoverable STOP hang.
func (c *CPU) Hung() bool { return c.hung }

// CurrentMode exposes the execution mode.
func (c *CPU) CurrentMode() Mode { return c.mode }

// Cycles returns the lifetime master cycle count.
func (c *CPU) Cycles() uint64 { return c.totalCycles }

func (c *CPU) setFlag(flag Flag, condition bool) {
	if condition {
		c.f |= uint8(flag)
	} else {
		c.f &^= uint8(flag)
	}
	c.f &= 0xF0
}

func (c *CPU) flagSet(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) carryBit() uint8 {
	if c.flagSet(carryFlag) {
		return 1
	}
	return 0
}

func (c *CPU) setBC(value uint16) { c.b, c.c = bit.High(value), bit.Low(value) }
func (c *CPU) getBC() uint16      { return bit.Combine(c.b, c.c) }
func (c *CPU) setDE(value uint16) { c.d, c.e = bit.High(value), bit.Low(value) }
func (c *CPU) getDE() uint16      { return bit.Combine(c.d, c.e) }
func (c *CPU) setHL(value uint16) { c.h, c.l = bit.High(value), bit.Low(value) }
func (c *CPU) getHL() uint16      { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// The low nibble of F never holds bits.
	c.f = bit.Low(value) & 0xF0
}
func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }

// Register getters for trace logging and tests.
func (c *CPU) GetA() uint8   { return c.a }
func (c *CPU) GetF() uint8   { return c.f }
func (c *CPU) GetB() uint8   { return c.b }
func (c *CPU) GetC() uint8   { return c.c }
func (c *CPU) GetD() uint8   { return c.d }
func (c *CPU) GetE() uint8   { return c.e }
func (c *CPU) GetH() uint8   { return c.h }
func (c *CPU) GetL() uint8   { return c.l }
func (c *CPU) GetSP() uint16 { return c.sp }
func (c *CPU) GetPC() uint16 { return c.pc }
func (c *CPU) GetIME() bool  { return c.ime }

// SetPC is used by tests to point the CPU at a program.
func (c *CPU) SetPC(pc uint16) { c.pc = pc }

// SetSP is used by tests to place the stack.
func (c *CPU) SetSP(sp uint16) { c.sp = sp }

// SetA is used by tests to seed the accumulator.
func (c *CPU) SetA(a uint8) { c.a = a }

// SetIME is used by tests to control the master enable directly.
func (c *CPU) SetIME(enabled bool) { c.ime = enabled }
