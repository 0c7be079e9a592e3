package cpu

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CaptainCaffeine/Chroma/chroma/gba/memory"
)

// newThumbCPU assembles Thumb halfwords into ROM and switches the CPU
// into Thumb state at the entry point.
func newThumbCPU(halfwords ...uint16) (*CPU, *memory.Bus) {
	rom := make([]uint8, 0x1000)
	for i, h := range halfwords {
		binary.LittleEndian.PutUint16(rom[i*2:], h)
	}
	bus := memory.New(nil, rom)
	cpu := New(bus, false)
	cpu.Regs.setThumb(true)
	return cpu, bus
}

func TestThumbMoveImmediate(t *testing.T) {
	cpu, _ := newThumbCPU(0x202A) // MOV r0, #42
	cpu.Step()
	assert.Equal(t, uint32(42), cpu.Regs.r[0])
	assert.False(t, cpu.Regs.Z())
}

func TestThumbShiftImmediate(t *testing.T) {
	cpu, _ := newThumbCPU(
		0x2001, // MOV r0, #1
		0x0200, // LSL r0, r0, #8
	)
	cpu.Step()
	cpu.Step()
	assert.Equal(t, uint32(0x100), cpu.Regs.r[0])
}

func TestThumbAddSubRegister(t *testing.T) {
	cpu, _ := newThumbCPU(
		0x2005, // MOV r0, #5
		0x2103, // MOV r1, #3
		0x1A42, // SUB r2, r0, r1
	)
	for i := 0; i < 3; i++ {
		cpu.Step()
	}
	assert.Equal(t, uint32(2), cpu.Regs.r[2])
	assert.True(t, cpu.Regs.C()) // no borrow
}

func TestThumbALUOperations(t *testing.T) {
	cpu, _ := newThumbCPU(
		0x200F, // MOV r0, #0x0F
		0x21F0, // MOV r1, #0xF0
		0x4308, // ORR r0, r1
	)
	for i := 0; i < 3; i++ {
		cpu.Step()
	}
	assert.Equal(t, uint32(0xFF), cpu.Regs.r[0])
}

func TestThumbHiRegisterAdd(t *testing.T) {
	cpu, _ := newThumbCPU(
		0x2001, // MOV r0, #1
		0x4468, // ADD r0, sp
	)
	cpu.Regs.r[13] = 0x100
	cpu.Step()
	cpu.Step()
	assert.Equal(t, uint32(0x101), cpu.Regs.r[0])
}

func TestThumbPCRelativeLoad(t *testing.T) {
	cpu, _ := newThumbCPU(
		0x4801, // LDR r0, [pc, #4]
		0x0000, // padding
		0x0000,
		0x0000,
		0x5678, // literal low
		0x1234, // literal high
	)
	cpu.Step()
	// pc base is (instr + 4) aligned = 0x08000004; +4 = 0x08000008.
	assert.Equal(t, uint32(0x12345678), cpu.Regs.r[0])
}

func TestThumbLoadStoreImmediate(t *testing.T) {
	cpu, bus := newThumbCPU(
		0x2042, // MOV r0, #0x42
		0x4901, // LDR r1, [pc, #4] -> base address literal
		0x6008, // STR r0, [r1]
		0x0000, // padding
		0x0000, 0x0300, // literal 0x03000000
	)
	for i := 0; i < 3; i++ {
		cpu.Step()
	}
	assert.Equal(t, uint32(0x42), bus.Read32(0x03000000))
}

func TestThumbPushPop(t *testing.T) {
	cpu, bus := newThumbCPU(
		0x2011, // MOV r0, #0x11
		0xB401, // PUSH {r0}
		0x2000, // MOV r0, #0
		0xBC01, // POP {r0}
	)
	cpu.Regs.r[13] = 0x03000100
	for i := 0; i < 4; i++ {
		cpu.Step()
	}
	assert.Equal(t, uint32(0x11), cpu.Regs.r[0])
	assert.Equal(t, uint32(0x03000100), cpu.Regs.r[13])
	assert.Equal(t, uint32(0x11), bus.Read32(0x030000FC))
}

func TestThumbConditionalBranch(t *testing.T) {
	cpu, _ := newThumbCPU(
		0x2800, // CMP r0, #0 -> Z set
		0xD000, // BEQ over the next instruction
		0x2001, // MOV r0, #1 (skipped)
		0x2002, // MOV r0, #2
	)
	cpu.Step()
	cpu.Step()
	// Branch target: the branch's pc reads as its address plus 4.
	assert.Equal(t, uint32(0x08000006), cpu.Regs.r[15])
	cpu.Step()
	assert.Equal(t, uint32(2), cpu.Regs.r[0])
}

func TestThumbBranchLinkPair(t *testing.T) {
	cpu, _ := newThumbCPU(
		0xF000, // BL prefix, offset high 0
		0xF802, // BL suffix, offset 2 -> target 0x08000008
	)
	cpu.Step()
	cpu.Step()
	assert.Equal(t, uint32(0x08000008), cpu.Regs.r[15])
	// LR holds the address after the pair, with bit 0 set.
	assert.Equal(t, uint32(0x08000005), cpu.Regs.r[14])
}

func TestThumbBXReturnsToARM(t *testing.T) {
	cpu, _ := newThumbCPU(0x4700) // BX r0
	cpu.Regs.r[0] = 0x08000040    // bit 0 clear: ARM state
	cpu.Step()
	assert.False(t, cpu.Regs.Thumb())
	assert.Equal(t, uint32(0x08000040), cpu.Regs.r[15])
}

func TestThumbBlockTransfer(t *testing.T) {
	cpu, bus := newThumbCPU(
		0x2111, // MOV r1, #0x11
		0x2222, // MOV r2, #0x22
		0xC006, // STMIA r0!, {r1, r2}
	)
	cpu.Regs.r[0] = 0x03000000
	for i := 0; i < 3; i++ {
		cpu.Step()
	}
	assert.Equal(t, uint32(0x11), bus.Read32(0x03000000))
	assert.Equal(t, uint32(0x22), bus.Read32(0x03000004))
	assert.Equal(t, uint32(0x03000008), cpu.Regs.r[0])
}

func TestThumbSPRelativeStore(t *testing.T) {
	cpu, bus := newThumbCPU(
		0x2055, // MOV r0, #0x55
		0x9001, // STR r0, [sp, #4]
	)
	cpu.Regs.r[13] = 0x03000000
	cpu.Step()
	cpu.Step()
	assert.Equal(t, uint32(0x55), bus.Read32(0x03000004))
}
