package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CaptainCaffeine/Chroma/chroma/addr"
	"github.com/CaptainCaffeine/Chroma/chroma/cart"
)

func newTestMMU() *MMU {
	header := cart.Header{MBC: cart.NoMBC, ROMBanks: 2}
	return New(header, make([]uint8, 0x8000), false)
}

func newTestMMUCGB() *MMU {
	header := cart.Header{MBC: cart.NoMBC, ROMBanks: 2, Mode: cart.ModeCGB}
	return New(header, make([]uint8, 0x8000), true)
}

func TestEchoRegionMirrorsWRAM(t *testing.T) {
	m := newTestMMU()

	m.Write(0xC123, 0x42)
	assert.Equal(t, uint8(0x42), m.Read(0xE123))

	m.Write(0xF000, 0x24)
	assert.Equal(t, uint8(0x24), m.Read(0xD000))
}

func TestUnusableRegionReadsZero(t *testing.T) {
	m := newTestMMU()
	m.Write(0xFEA0, 0xFF)
	assert.Equal(t, uint8(0x00), m.Read(0xFEA0))
	assert.Equal(t, uint8(0x00), m.Read(0xFEFF))
}

func TestIFUpperBitsReadAsOnes(t *testing.T) {
	m := newTestMMU()
	m.Write(addr.IF, 0x01)
	assert.Equal(t, uint8(0xE1), m.Read(addr.IF))
}

func TestIORoundTripAppliesMasks(t *testing.T) {
	m := newTestMMU()

	// TAC: only the low 3 bits hold; the rest read as 1.
	m.Write(addr.TAC, 0xFF)
	assert.Equal(t, uint8(0xFF), m.Read(addr.TAC))
	m.Write(addr.TAC, 0x05)
	assert.Equal(t, uint8(0xFD), m.Read(addr.TAC))

	// P1 selection bits land; bits 6-7 always read 1.
	m.Write(addr.P1, 0x20)
	assert.Equal(t, uint8(0x20), m.Read(addr.P1)&0x30)
	assert.Equal(t, uint8(0xC0), m.Read(addr.P1)&0xC0)
}

func TestHRAMReadWrite(t *testing.T) {
	m := newTestMMU()
	m.Write(0xFF80, 0x11)
	m.Write(0xFFFE, 0x22)
	assert.Equal(t, uint8(0x11), m.Read(0xFF80))
	assert.Equal(t, uint8(0x22), m.Read(0xFFFE))
}

func TestTimerInterruptSuppressedByIFWrite(t *testing.T) {
	m := newTestMMU()

	// Arm a timer overflow so the reload cycle is the next machine
	// cycle.
	m.Write(addr.TMA, 0x10)
	m.Write(addr.TAC, 0x05)
	m.Write(addr.TIMA, 0xFF)
	for m.Read(addr.TIMA) == 0xFF {
		m.Tick(4)
	}

	// Software writes IF on the same cycle the reload would set the
	// timer bit: the written value wins.
	m.Write(addr.IF, 0x00)
	m.Tick(4)

	assert.Equal(t, uint8(0x10), m.Read(addr.TIMA))
	assert.Equal(t, uint8(0x00), m.Read(addr.IF)&0x04)
}

func TestTimerInterruptSetsIFWithoutWrite(t *testing.T) {
	m := newTestMMU()

	m.Write(addr.TAC, 0x05)
	m.Write(addr.TIMA, 0xFF)
	for m.Read(addr.TIMA) == 0xFF {
		m.Tick(4)
	}
	m.Tick(4)

	assert.Equal(t, uint8(0x04), m.Read(addr.IF)&0x04)
}

func TestWRAMBankingCGB(t *testing.T) {
	m := newTestMMUCGB()

	m.Write(addr.SVBK, 0x02)
	m.Write(0xD000, 0xAA)
	m.Write(addr.SVBK, 0x03)
	m.Write(0xD000, 0xBB)

	m.Write(addr.SVBK, 0x02)
	assert.Equal(t, uint8(0xAA), m.Read(0xD000))

	// Bank 0 selects bank 1.
	m.Write(addr.SVBK, 0x00)
	assert.Equal(t, uint8(0xF9), m.Read(addr.SVBK))
}

func TestOAMDMABlocksExternalBus(t *testing.T) {
	m := newTestMMU()

	m.Write(0xC000, 0x5A)
	m.Write(0xFF80, 0x77)

	// Arm the DMA from 0xC000 and advance through RegWritten, Starting
	// and into Active.
	m.Write(addr.DMA, 0xC0)
	m.Tick(4) // RegWritten -> Starting
	m.Tick(4) // Starting -> Active: first byte read, bus blocked
	m.Tick(4)

	assert.True(t, m.OAMDMAActive())

	// Reads below the HRAM+IO window return 0xFF; HRAM stays readable.
	assert.Equal(t, uint8(0xFF), m.Read(0xC000))
	assert.Equal(t, uint8(0xFF), m.Read(0x8000))
	assert.Equal(t, uint8(0xFF), m.Read(0x0000))
	assert.Equal(t, uint8(0x77), m.Read(0xFF80))

	// Writes below the window are swallowed.
	m.Write(0xC000, 0x11)

	// Finish the copy: 160 writes plus the start-up cycles.
	for i := 0; i < 170; i++ {
		m.Tick(4)
	}
	assert.False(t, m.OAMDMAActive())
	assert.Equal(t, uint8(0x5A), m.Read(0xC000))
	assert.Equal(t, uint8(0x5A), m.OAMByte(0))
}

func TestOAMDMARestartKeepsBusBlocked(t *testing.T) {
	m := newTestMMU()

	m.Write(addr.DMA, 0xC0)
	m.Tick(4)
	m.Tick(4)
	assert.True(t, m.OAMDMAActive())

	// Restarting goes Active -> RegWritten without passing Inactive.
	m.Write(addr.DMA, 0xC1)
	m.Tick(4)
	assert.True(t, m.OAMDMAActive())
	assert.Equal(t, uint8(0xFF), m.Read(0xC000))
}

func TestOAMDMACopiesBytes(t *testing.T) {
	m := newTestMMU()

	for i := uint16(0); i < 160; i++ {
		m.Write(0xC000+i, uint8(i)+1)
	}

	m.Write(addr.DMA, 0xC0)
	for i := 0; i < 163; i++ {
		m.Tick(4)
	}

	for i := 0; i < 160; i++ {
		assert.Equal(t, uint8(i)+1, m.OAMByte(i))
	}
}
