package video

import (
	"github.com/CaptainCaffeine/Chroma/chroma/bit"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
)

// bgPixel is one background/window pixel before sprite compositing.
type bgPixel struct {
	colorIndex uint8
	priority   bool // CGB tile attribute bit 7
}

// scanSprites collects the first 10 sprites overlapping the current
// line, in OAM order.
func (l *LCD) scanSprites() {
	l.sprites = l.sprites[:0]

	height := 8
	if bit.IsSet(2, l.lcdc) {
		height = 16
	}

	line := l.line
	for i := 0; i < 40 && len(l.sprites) < 10; i++ {
		y := int(l.mmu.OAMByte(i*4)) - 16
		if line < y || line >= y+height {
			continue
		}
		l.sprites = append(l.sprites, sprite{
			y:        y,
			x:        int(l.mmu.OAMByte(i*4+1)) - 8,
			tile:     l.mmu.OAMByte(i*4 + 2),
			attr:     l.mmu.OAMByte(i*4 + 3),
			oamIndex: i,
		})
	}
}

func (l *LCD) renderScanline() {
	if l.line >= visibleLines {
		return
	}

	var lineBuf [display.GBWidth]bgPixel

	bgEnabled := bit.IsSet(0, l.lcdc)
	if bgEnabled || l.cgb {
		// In CGB mode LCDC bit 0 is master priority, not BG disable; the
		// background always draws.
		l.renderBackground(&lineBuf)
		l.renderWindow(&lineBuf)
	}

	row := l.swap.Back().Pixels[l.line*display.GBWidth : (l.line+1)*display.GBWidth]
	for x := 0; x < display.GBWidth; x++ {
		row[x] = l.bgColor(lineBuf[x].colorIndex)
	}

	if bit.IsSet(1, l.lcdc) {
		l.renderSprites(&lineBuf, row)
	}
}

func (l *LCD) renderBackground(lineBuf *[display.GBWidth]bgPixel) {
	mapBase := uint16(0x1800)
	if bit.IsSet(3, l.lcdc) {
		mapBase = 0x1C00
	}

	y := uint8(l.line) + l.scy
	tileRow := uint16(y/8) * 32

	for x := 0; x < display.GBWidth; x++ {
		px := uint8(x) + l.scx
		mapIndex := mapBase + tileRow + uint16(px/8)

		tileNum := l.mmu.VRAMBankByte(0, mapIndex)
		var attr uint8
		if l.cgb {
			attr = l.mmu.VRAMBankByte(1, mapIndex)
		}

		lineBuf[x] = l.fetchTilePixel(tileNum, attr, px%8, y%8)
	}
}

func (l *LCD) renderWindow(lineBuf *[display.GBWidth]bgPixel) {
	if !bit.IsSet(5, l.lcdc) || l.line < int(l.wy) || l.wx > 166 {
		return
	}

	mapBase := uint16(0x1800)
	if bit.IsSet(6, l.lcdc) {
		mapBase = 0x1C00
	}

	y := uint8(l.windowLine)
	tileRow := uint16(y/8) * 32
	startX := int(l.wx) - 7
	rendered := false

	for x := 0; x < display.GBWidth; x++ {
		if x < startX {
			continue
		}
		rendered = true
		px := uint8(x - startX)
		mapIndex := mapBase + tileRow + uint16(px/8)

		tileNum := l.mmu.VRAMBankByte(0, mapIndex)
		var attr uint8
		if l.cgb {
			attr = l.mmu.VRAMBankByte(1, mapIndex)
		}

		lineBuf[x] = l.fetchTilePixel(tileNum, attr, px%8, y%8)
	}

	// The window keeps its own line counter; it only advances on lines
	// where the window actually drew.
	if rendered {
		l.windowLine++
	}
}

// fetchTilePixel reads one 2-bpp pixel of a BG/window tile, honoring the
// CGB attribute flips and bank select.
func (l *LCD) fetchTilePixel(tileNum, attr, pixelX, pixelY uint8) bgPixel {
	var tileAddr uint16
	if bit.IsSet(4, l.lcdc) {
		tileAddr = uint16(tileNum) * 16
	} else {
		tileAddr = uint16(0x1000 + int(int8(tileNum))*16)
	}

	bank := uint8(0)
	if l.cgb {
		if bit.IsSet(3, attr) {
			bank = 1
		}
		if bit.IsSet(5, attr) {
			pixelX = 7 - pixelX
		}
		if bit.IsSet(6, attr) {
			pixelY = 7 - pixelY
		}
	}

	lo := l.mmu.VRAMBankByte(bank, tileAddr+uint16(pixelY)*2)
	hi := l.mmu.VRAMBankByte(bank, tileAddr+uint16(pixelY)*2+1)

	shift := 7 - pixelX
	colorIndex := (lo>>shift)&1 | ((hi>>shift)&1)<<1

	return bgPixel{
		colorIndex: colorIndex | (attr&0x07)<<4, // palette number packed above the index
		priority:   l.cgb && bit.IsSet(7, attr),
	}
}

// bgColor resolves a packed bgPixel color to BGR555.
func (l *LCD) bgColor(packed uint8) uint16 {
	colorIndex := packed & 0x03
	if !l.cgb {
		if !bit.IsSet(0, l.lcdc) {
			return dmgShades[0]
		}
		shade := (l.bgp >> (colorIndex * 2)) & 0x03
		return dmgShades[shade]
	}
	palette := packed >> 4
	base := palette*8 + colorIndex*2
	return uint16(l.bgPaletteRAM[base]) | uint16(l.bgPaletteRAM[base+1])<<8&0x7F00
}

func (l *LCD) objColor(palette, colorIndex uint8) uint16 {
	base := palette*8 + colorIndex*2
	return uint16(l.objPaletteRAM[base]) | uint16(l.objPaletteRAM[base+1])<<8&0x7F00
}

// renderSprites composites up to the 10 scanned sprites over the line.
// On DMG a lower X coordinate wins overlaps, ties broken by OAM index;
// on CGB the OAM index alone decides.
func (l *LCD) renderSprites(lineBuf *[display.GBWidth]bgPixel, row []uint16) {
	height := 8
	tallSprites := bit.IsSet(2, l.lcdc)
	if tallSprites {
		height = 16
	}

	// winner tracks which sprite owns each pixel so far.
	var winner [display.GBWidth]int
	for i := range winner {
		winner[i] = -1
	}

	masterPriority := bit.IsSet(0, l.lcdc)

	for s := range l.sprites {
		sp := &l.sprites[s]

		pixelY := uint8(l.line - sp.y)
		if bit.IsSet(6, sp.attr) {
			pixelY = uint8(height-1) - pixelY
		}

		tile := sp.tile
		if tallSprites {
			tile &= 0xFE
		}

		bank := uint8(0)
		if l.cgb && bit.IsSet(3, sp.attr) {
			bank = 1
		}

		lineAddr := uint16(tile)*16 + uint16(pixelY)*2
		lo := l.mmu.VRAMBankByte(bank, lineAddr)
		hi := l.mmu.VRAMBankByte(bank, lineAddr+1)

		for px := 0; px < 8; px++ {
			x := sp.x + px
			if x < 0 || x >= display.GBWidth {
				continue
			}

			shift := 7 - px
			if bit.IsSet(5, sp.attr) {
				shift = px
			}
			colorIndex := (lo>>uint(shift))&1 | ((hi>>uint(shift))&1)<<1
			if colorIndex == 0 {
				continue
			}

			if w := winner[x]; w >= 0 && !l.spriteWins(sp, &l.sprites[w]) {
				continue
			}

			// BG priority: color 0 is always under the sprite. Otherwise
			// the OBJ attribute and, on CGB, the tile attribute and
			// master priority bit decide.
			bgIndex := lineBuf[x].colorIndex & 0x03
			if bgIndex != 0 {
				behindBG := bit.IsSet(7, sp.attr) || lineBuf[x].priority
				if l.cgb && !masterPriority {
					behindBG = false
				}
				if behindBG {
					continue
				}
			}

			winner[x] = s
			if l.cgb {
				row[x] = l.objColor(sp.attr&0x07, colorIndex)
			} else {
				palette := l.obp0
				if bit.IsSet(4, sp.attr) {
					palette = l.obp1
				}
				shade := (palette >> (colorIndex * 2)) & 0x03
				row[x] = dmgShades[shade]
			}
		}
	}
}

// spriteWins reports whether candidate beats incumbent for a pixel.
func (l *LCD) spriteWins(candidate, incumbent *sprite) bool {
	if l.cgb {
		return candidate.oamIndex < incumbent.oamIndex
	}
	if candidate.x != incumbent.x {
		return candidate.x < incumbent.x
	}
	return candidate.oamIndex < incumbent.oamIndex
}
