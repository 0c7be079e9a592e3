package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CaptainCaffeine/Chroma/chroma/gba/memory"
)

func newTestLCD() (*LCD, *memory.Bus) {
	bus := memory.New(nil, make([]uint8, 0x100))
	lcd := New(bus)
	return lcd, bus
}

func TestAlphaBlendArithmetic(t *testing.T) {
	// Full eva, zero evb: first target passes through.
	assert.Equal(t, uint16(0x001F), alphaBlend(0x001F, 0x0000, 16, 0))

	// Two full-weight whites stay white thanks to the min(31, ...) cap.
	assert.Equal(t, uint16(0x7FFF), alphaBlend(0x7FFF, 0x7FFF, 16, 16))

	// Half and half averages.
	blended := alphaBlend(0x001F, 0x0000, 8, 8)
	assert.Equal(t, uint16(0x000F), blended)

	// Coefficients saturate at 16.
	assert.Equal(t, alphaBlend(0x001F, 0x0000, 31, 0), alphaBlend(0x001F, 0x0000, 16, 0))
}

func TestBrightenDarkenArithmetic(t *testing.T) {
	// Full brighten reaches white, full darken reaches black.
	assert.Equal(t, uint16(0x7FFF), brighten(0x0000, 16))
	assert.Equal(t, uint16(0x0000), darken(0x7FFF, 16))

	// Zero coefficient is the identity.
	assert.Equal(t, uint16(0x1234), brighten(0x1234, 0))
	assert.Equal(t, uint16(0x1234), darken(0x1234, 0))
}

func TestVCountAdvances(t *testing.T) {
	lcd, _ := newTestLCD()

	lcd.Tick(lineCycles)
	assert.Equal(t, uint16(1), lcd.ReadIO(0x06))
	lcd.Tick(lineCycles * 3)
	assert.Equal(t, uint16(4), lcd.ReadIO(0x06))
}

func TestVBlankFlagAndInterrupt(t *testing.T) {
	lcd, bus := newTestLCD()
	lcd.WriteIO(0x04, 0x0008, 0xFFFF) // V-blank IRQ enable

	lcd.Tick(lineCycles * visibleLines)
	assert.Equal(t, uint16(0x0001), lcd.ReadIO(0x04)&0x0001)
	assert.Equal(t, memory.IntVBlank, bus.IRQ().ReadIO(0x202)&memory.IntVBlank)
}

func TestVCountMatchInterrupt(t *testing.T) {
	lcd, bus := newTestLCD()
	// Match line 3, IRQ enabled.
	lcd.WriteIO(0x04, 0x0320, 0xFFFF)

	lcd.Tick(lineCycles * 3)
	assert.Equal(t, memory.IntVCount, bus.IRQ().ReadIO(0x202)&memory.IntVCount)
}

func TestFramePublishedPerFrame(t *testing.T) {
	lcd, _ := newTestLCD()
	lcd.Tick(lineCycles * totalLines)
	assert.Equal(t, uint64(1), lcd.FrameCount())
}

func TestBitmapMode3RendersPixels(t *testing.T) {
	lcd, bus := newTestLCD()

	// Mode 3 with BG2 enabled; pixel (0,0) red, (1,0) blue.
	lcd.WriteIO(0x00, 0x0403, 0xFFFF)
	bus.Write16(0x06000000, 0x001F)
	bus.Write16(0x06000002, 0x7C00)

	lcd.Tick(lineCycles * totalLines)

	frame := lcd.Frame()
	assert.Equal(t, uint16(0x001F), frame.Pixels[0])
	assert.Equal(t, uint16(0x7C00), frame.Pixels[1])
}

func TestBackdropFillsEmptyPixels(t *testing.T) {
	lcd, bus := newTestLCD()

	lcd.WriteIO(0x00, 0x0100, 0xFFFF) // mode 0, BG0 enabled (empty tiles)
	bus.Write16(0x05000000, 0x03E0)   // backdrop green

	lcd.Tick(lineCycles * totalLines)

	assert.Equal(t, uint16(0x03E0), lcd.Frame().Pixels[0])
}

func TestForcedBlankDrawsWhite(t *testing.T) {
	lcd, _ := newTestLCD()
	lcd.WriteIO(0x00, 0x0080, 0xFFFF)

	lcd.Tick(lineCycles * totalLines)
	assert.Equal(t, uint16(0x7FFF), lcd.Frame().Pixels[0])
}
