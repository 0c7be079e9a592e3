package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainCaffeine/Chroma/chroma/cart"
)

// makeROM builds a ROM of the given bank count where every byte of bank
// N reads as N.
func makeROM(banks int) []uint8 {
	rom := make([]uint8, banks*0x4000)
	for b := 0; b < banks; b++ {
		for i := 0; i < 0x4000; i++ {
			rom[b*0x4000+i] = uint8(b)
		}
	}
	return rom
}

func TestMBC1BankZeroBump(t *testing.T) {
	m := newMBC1(makeROM(64), 0x8000, false)

	// Selecting bank 0 through the low bits lands on bank 1.
	m.Write(0x2000, 0x00)
	assert.Equal(t, uint8(1), m.Read(0x4000))

	// 0x20 has zero low bits too; with upper bits 01 the result is 0x21.
	m.Write(0x2000, 0x00)
	m.Write(0x4000, 0x01)
	assert.Equal(t, uint8(0x21), m.Read(0x4000))
}

func TestMBC1BankSelection(t *testing.T) {
	m := newMBC1(makeROM(64), 0, false)

	m.Write(0x2000, 0x12)
	assert.Equal(t, uint8(0x12), m.Read(0x4000))
	// Bank 0 region stays fixed.
	assert.Equal(t, uint8(0), m.Read(0x0000))
}

func TestMBC1BankWrapsByCount(t *testing.T) {
	// 8 banks: selecting bank 0x12 wraps to 0x12 & 7 = 2.
	m := newMBC1(makeROM(8), 0, false)
	m.Write(0x2000, 0x12)
	assert.Equal(t, uint8(2), m.Read(0x4000))
}

func TestMBC1RAMEnable(t *testing.T) {
	m := newMBC1(makeROM(4), 0x2000, false)

	// Disabled RAM reads 0xFF and swallows writes.
	m.Write(0xA000, 0x55)
	assert.Equal(t, uint8(0xFF), m.Read(0xA000))

	// Only a low nibble of 0xA enables.
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x55)
	assert.Equal(t, uint8(0x55), m.Read(0xA000))

	m.Write(0x0000, 0x00)
	assert.Equal(t, uint8(0xFF), m.Read(0xA000))
}

func TestMBC1MulticartBankMapping(t *testing.T) {
	m := newMBC1(makeROM(64), 0, true)

	// Multicart wiring uses 4 low bits; the upper register lands at bit 4.
	m.Write(0x2000, 0x1F)
	m.Write(0x4000, 0x02)
	assert.Equal(t, uint8(0x2F), m.Read(0x4000))
}

func TestMBC2AddressBitSelects(t *testing.T) {
	m := newMBC2(makeROM(16))

	// Address bit 8 clear: RAM enable.
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x0F)
	assert.Equal(t, uint8(0xFF), m.Read(0xA000)) // low nibble 0xF, high bits open

	// Address bit 8 set: ROM bank select.
	m.Write(0x0100, 0x05)
	assert.Equal(t, uint8(5), m.Read(0x4000))

	// RAM enable unaffected by the bank write.
	m.Write(0xA001, 0x03)
	assert.Equal(t, uint8(0xF3), m.Read(0xA001))
}

func TestMBC2RAMIsNybbleWide(t *testing.T) {
	m := newMBC2(makeROM(16))
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0xAB)
	assert.Equal(t, uint8(0xFB), m.Read(0xA000))
}

func TestMBC3RTCRegisterSelect(t *testing.T) {
	m := newMBC3(makeROM(16), 0x8000, true)
	m.Write(0x0000, 0x0A)

	// Values 0x00-0x07 select RAM banks; 0x08-0x0C the RTC shadows.
	m.Write(0x4000, 0x01)
	m.Write(0xA000, 0x99)
	assert.Equal(t, uint8(0x99), m.Read(0xA000))

	m.Write(0x4000, 0x08)
	m.Write(0xA000, 75) // seconds wrap mod 60
	assert.Equal(t, uint8(15), m.Read(0xA000))

	m.Write(0x4000, 0x0A)
	m.Write(0xA000, 30) // hours wrap mod 24
	assert.Equal(t, uint8(6), m.Read(0xA000))
}

func TestMBC3RTCLatch(t *testing.T) {
	m := newMBC3(makeROM(16), 0, true)
	m.Write(0x0000, 0x0A)

	m.Write(0x4000, 0x08)
	m.Write(0xA000, 10)

	// Latch the current time, then change it; reads see the latch.
	m.Write(0x6000, 0x00)
	m.Write(0x6000, 0x01)
	m.Write(0xA000, 20)
	assert.Equal(t, uint8(10), m.Read(0xA000))

	// Re-latching observes the new value.
	m.Write(0x6000, 0x00)
	m.Write(0x6000, 0x01)
	assert.Equal(t, uint8(20), m.Read(0xA000))
}

func TestMBC5NineBitBankSelect(t *testing.T) {
	m := newMBC5(makeROM(512), 0, false)

	m.Write(0x2000, 0x34)
	m.Write(0x3000, 0x01)
	assert.Equal(t, uint8(0x34), m.Read(0x4000)) // bank 0x134 & 0x1FF... bank value wraps by count

	// Bank 0x134 in a 512-bank ROM is bank 0x134 itself.
	offset := uint32(0x134) << 14
	assert.Equal(t, m.rom[offset], m.Read(0x4000))
}

func TestMBC5RumbleStealsRAMBankBit(t *testing.T) {
	m := newMBC5(makeROM(16), 0x8000, true)
	m.Write(0x0000, 0x0A)

	m.Write(0x4000, 0x0B) // bit 3 drives the motor; RAM bank = 3
	assert.True(t, m.rumbleOn)
	assert.Equal(t, uint8(0x03), m.ramBank)
}

func TestROMNeverMutated(t *testing.T) {
	rom := makeROM(4)
	m := NewMBC(cart.Header{MBC: cart.MBC1, RAMSize: 0}, rom)

	for _, addr := range []uint16{0x0000, 0x2000, 0x4000, 0x6000, 0x7FFF} {
		m.Write(addr, 0xFF)
	}

	require.Equal(t, makeROM(4), rom)
}

func TestExternalRAMOutOfBoundsReads(t *testing.T) {
	m := newMBC3(makeROM(4), 0x800, false) // 2 KiB RAM only
	m.Write(0x0000, 0x0A)
	assert.Equal(t, uint8(0xFF), m.Read(0xBFFF))
}
