package video

import "github.com/CaptainCaffeine/Chroma/chroma/display"

const transparent = 0x8000

// layer identifiers for the blending target masks (BLDCNT bit order).
const (
	layerBG0 = iota
	layerBG1
	layerBG2
	layerBG3
	layerOBJ
	layerBackdrop
)

// spriteSizes is indexed by [shape][size].
var spriteSizes = [3][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},   // square
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},   // horizontal
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},   // vertical
}

type objPixel struct {
	color  uint16 // transparent bit set when empty
	prio   int
	semi   bool
	window bool
}

func (l *LCD) renderScanline() {
	line := int(l.vcount)
	row := l.swap.Back().Pixels[line*display.GBAWidth : (line+1)*display.GBAWidth]

	if l.dispcnt&0x0080 != 0 {
		// Forced blank draws white.
		for x := range row {
			row[x] = 0x7FFF
		}
		return
	}

	mode := int(l.dispcnt & 0x07)

	var bgLines [4][display.GBAWidth]uint16
	bgEnabled := [4]bool{}
	for bg := 0; bg < 4; bg++ {
		for x := 0; x < display.GBAWidth; x++ {
			bgLines[bg][x] = transparent
		}
	}

	switch mode {
	case 0:
		for bg := 0; bg < 4; bg++ {
			if l.dispcnt&(0x0100<<bg) != 0 {
				bgEnabled[bg] = true
				l.renderTextBG(bg, line, &bgLines[bg])
			}
		}
	case 1:
		for bg := 0; bg < 2; bg++ {
			if l.dispcnt&(0x0100<<bg) != 0 {
				bgEnabled[bg] = true
				l.renderTextBG(bg, line, &bgLines[bg])
			}
		}
		if l.dispcnt&0x0400 != 0 {
			bgEnabled[2] = true
			l.renderAffineBG(2, &bgLines[2])
		}
	case 2:
		for bg := 2; bg < 4; bg++ {
			if l.dispcnt&(0x0100<<bg) != 0 {
				bgEnabled[bg] = true
				l.renderAffineBG(bg, &bgLines[bg])
			}
		}
	case 3, 4, 5:
		if l.dispcnt&0x0400 != 0 {
			bgEnabled[2] = true
			l.renderBitmapBG(mode, line, &bgLines[2])
		}
	}

	var objLine [display.GBAWidth]objPixel
	for x := range objLine {
		objLine[x].color = transparent
		objLine[x].prio = 4
	}
	if l.dispcnt&0x1000 != 0 {
		l.renderSprites(line, mode, &objLine)
	}

	backdrop := l.bus.PRAM16(0) & 0x7FFF

	for x := 0; x < display.GBAWidth; x++ {
		enableBG, enableOBJ, enableEffects := l.windowControl(x, line, objLine[x].window)

		// Find the top two visible layers at this pixel.
		first, second := layerBackdrop, layerBackdrop
		firstColor, secondColor := backdrop, backdrop

		pick := func(layer int, color uint16) {
			if first == layerBackdrop {
				first, firstColor = layer, color
			} else if second == layerBackdrop {
				second, secondColor = layer, color
			}
		}

		objTaken := false
		for prio := 0; prio <= 3 && second == layerBackdrop; prio++ {
			if !objTaken && enableOBJ && objLine[x].color != transparent && objLine[x].prio == prio {
				pick(layerOBJ, objLine[x].color)
				objTaken = true
				if second != layerBackdrop {
					break
				}
			}
			for bg := 0; bg < 4; bg++ {
				if bgEnabled[bg] && enableBG[bg] && int(l.bgcnt[bg]&0x03) == prio &&
					bgLines[bg][x] != transparent {
					pick(layerBG0+bg, bgLines[bg][x])
					if second != layerBackdrop {
						break
					}
				}
			}
		}

		row[x] = l.blend(firstColor, secondColor, first, second,
			enableEffects, first == layerOBJ && objLine[x].semi)
	}

	// Affine reference points step once per rendered line.
	for i := 0; i < 2; i++ {
		l.bgxCur[i] += int32(int16(l.bgpb[i]))
		l.bgyCur[i] += int32(int16(l.bgpd[i]))
	}
}

// windowControl resolves which layers and effects are enabled at a
// pixel, from windows 0, 1 and the object window.
func (l *LCD) windowControl(x, y int, objWindow bool) (bg [4]bool, obj bool, effects bool) {
	anyWindow := l.dispcnt&0xE000 != 0
	if !anyWindow {
		return [4]bool{true, true, true, true}, true, true
	}

	var control uint16
	switch {
	case l.dispcnt&0x2000 != 0 && l.inWindow(x, y, l.win0h, l.win0v):
		control = l.winin & 0x3F
	case l.dispcnt&0x4000 != 0 && l.inWindow(x, y, l.win1h, l.win1v):
		control = l.winin >> 8 & 0x3F
	case l.dispcnt&0x8000 != 0 && objWindow:
		control = l.winout >> 8 & 0x3F
	default:
		control = l.winout & 0x3F
	}

	for i := 0; i < 4; i++ {
		bg[i] = control&(1<<i) != 0
	}
	return bg, control&0x10 != 0, control&0x20 != 0
}

func (l *LCD) inWindow(x, y int, h, v uint16) bool {
	x1, x2 := int(h>>8), int(h&0xFF)
	y1, y2 := int(v>>8), int(v&0xFF)

	inX := false
	if x1 <= x2 {
		inX = x >= x1 && x < x2
	} else {
		inX = x >= x1 || x < x2
	}
	inY := false
	if y1 <= y2 {
		inY = y >= y1 && y < y2
	} else {
		inY = y >= y1 || y < y2
	}
	return inX && inY
}

// blend applies the selected color effect. Semi-transparent sprites
// force alpha blending onto the second target regardless of BLDCNT's
// mode.
func (l *LCD) blend(first, second uint16, firstLayer, secondLayer int, effectsEnabled, objSemi bool) uint16 {
	mode := int(l.bldcnt >> 6 & 0x03)

	firstTarget := l.bldcnt&(1<<firstLayer) != 0
	secondTarget := l.bldcnt&(0x100<<secondLayer) != 0

	if objSemi && secondTarget && effectsEnabled {
		return alphaBlend(first, second, int(l.bldalpha&0x1F), int(l.bldalpha>>8&0x1F))
	}

	if !effectsEnabled || mode == 0 || !firstTarget {
		return first
	}

	switch mode {
	case 1:
		if !secondTarget {
			return first
		}
		return alphaBlend(first, second, int(l.bldalpha&0x1F), int(l.bldalpha>>8&0x1F))
	case 2:
		return brighten(first, int(l.bldy&0x1F))
	default:
		return darken(first, int(l.bldy&0x1F))
	}
}

func saturate16(v int) int {
	if v > 16 {
		return 16
	}
	return v
}

// alphaBlend computes min(31, t1*a1 + t2*a2) per channel; coefficients
// saturate at 16/16.
func alphaBlend(c1, c2 uint16, eva, evb int) uint16 {
	eva = saturate16(eva)
	evb = saturate16(evb)

	var out uint16
	for shift := 0; shift < 15; shift += 5 {
		t1 := int(c1 >> shift & 0x1F)
		t2 := int(c2 >> shift & 0x1F)
		v := (t1*eva + t2*evb) / 16
		if v > 31 {
			v = 31
		}
		out |= uint16(v) << shift
	}
	return out
}

// brighten computes t + (31-t)*evy/16 per channel.
func brighten(c uint16, evy int) uint16 {
	evy = saturate16(evy)
	var out uint16
	for shift := 0; shift < 15; shift += 5 {
		t := int(c >> shift & 0x1F)
		v := t + (31-t)*evy/16
		out |= uint16(v) << shift
	}
	return out
}

// darken computes t * (16-evy)/16 per channel.
func darken(c uint16, evy int) uint16 {
	evy = saturate16(evy)
	var out uint16
	for shift := 0; shift < 15; shift += 5 {
		t := int(c >> shift & 0x1F)
		v := t * (16 - evy) / 16
		out |= uint16(v) << shift
	}
	return out
}

// renderTextBG draws one scanline of a tiled background.
func (l *LCD) renderTextBG(bg, line int, out *[display.GBAWidth]uint16) {
	cnt := l.bgcnt[bg]
	mapBase := uint32(cnt>>8&0x1F) * 0x800
	tileBase := uint32(cnt>>2&0x03) * 0x4000
	eightBPP := cnt&0x0080 != 0
	size := int(cnt >> 14 & 0x03)

	width := 256
	if size == 1 || size == 3 {
		width = 512
	}
	height := 256
	if size >= 2 {
		height = 512
	}

	mosaicH := int(l.mosaic&0x0F) + 1
	mosaicV := int(l.mosaic>>4&0x0F) + 1
	applyMosaic := cnt&0x0040 != 0

	mosaicLine := line
	if applyMosaic && mosaicV > 1 {
		mosaicLine -= mosaicLine % mosaicV
	}
	y := (mosaicLine + int(l.bgvofs[bg]&0x1FF)) & (height - 1)

	for x := 0; x < display.GBAWidth; x++ {
		px := (x + int(l.bghofs[bg]&0x1FF)) & (width - 1)
		if applyMosaic && mosaicH > 1 {
			px -= px % mosaicH
		}

		// Screen blocks are 256x256; wide/tall layouts append blocks.
		block := uint32(0)
		bx, by := px, y
		if px >= 256 {
			block++
			bx -= 256
		}
		if by >= 256 {
			if width == 512 {
				block += 2
			} else {
				block++
			}
			by -= 256
		}

		entryAddr := mapBase + block*0x800 + uint32(by/8*32+bx/8)*2
		entry := uint16(l.bus.VRAMByte(entryAddr)) | uint16(l.bus.VRAMByte(entryAddr+1))<<8

		tile := uint32(entry & 0x3FF)
		tx, ty := bx%8, by%8
		if entry&0x0400 != 0 {
			tx = 7 - tx
		}
		if entry&0x0800 != 0 {
			ty = 7 - ty
		}

		var colorIndex uint32
		var palette uint32
		if eightBPP {
			colorIndex = uint32(l.bus.VRAMByte(tileBase + tile*64 + uint32(ty*8+tx)))
		} else {
			b := l.bus.VRAMByte(tileBase + tile*32 + uint32(ty*4+tx/2))
			if tx&1 != 0 {
				colorIndex = uint32(b >> 4)
			} else {
				colorIndex = uint32(b & 0x0F)
			}
			palette = uint32(entry >> 12)
		}

		if colorIndex == 0 {
			continue
		}
		out[x] = l.bus.PRAM16(palette*16+colorIndex) & 0x7FFF
	}
}

// renderAffineBG draws one scanline of a rotation/scaling background.
// Affine layers are always 8bpp and their tile indexes are bytes.
func (l *LCD) renderAffineBG(bg int, out *[display.GBAWidth]uint16) {
	cnt := l.bgcnt[bg]
	i := bg - 2
	mapBase := uint32(cnt>>8&0x1F) * 0x800
	tileBase := uint32(cnt>>2&0x03) * 0x4000
	wrap := cnt&0x2000 != 0

	sizes := [4]int{128, 256, 512, 1024}
	size := sizes[cnt>>14&0x03]

	x := l.bgxCur[i]
	y := l.bgyCur[i]
	dx := int32(int16(l.bgpa[i]))
	dy := int32(int16(l.bgpc[i]))

	for px := 0; px < display.GBAWidth; px++ {
		tx, ty := int(x>>8), int(y>>8)
		x += dx
		y += dy

		if wrap {
			tx &= size - 1
			ty &= size - 1
		} else if tx < 0 || ty < 0 || tx >= size || ty >= size {
			continue
		}

		tileIndex := uint32(l.bus.VRAMByte(mapBase + uint32(ty/8*(size/8)+tx/8)))
		colorIndex := uint32(l.bus.VRAMByte(tileBase + tileIndex*64 + uint32(ty%8*8+tx%8)))
		if colorIndex == 0 {
			continue
		}
		out[px] = l.bus.PRAM16(colorIndex) & 0x7FFF
	}
}

// renderBitmapBG draws the mode 3/4/5 frame buffers through BG2's
// affine transform path, simplified to the common identity case.
func (l *LCD) renderBitmapBG(mode, line int, out *[display.GBAWidth]uint16) {
	pageOffset := uint32(0)
	if l.dispcnt&0x0010 != 0 && mode != 3 {
		pageOffset = 0xA000
	}

	switch mode {
	case 3:
		for x := 0; x < display.GBAWidth; x++ {
			idx := uint32(line*display.GBAWidth+x) * 2
			out[x] = (uint16(l.bus.VRAMByte(idx)) | uint16(l.bus.VRAMByte(idx+1))<<8) & 0x7FFF
		}
	case 4:
		for x := 0; x < display.GBAWidth; x++ {
			colorIndex := uint32(l.bus.VRAMByte(pageOffset + uint32(line*display.GBAWidth+x)))
			if colorIndex == 0 {
				continue
			}
			out[x] = l.bus.PRAM16(colorIndex) & 0x7FFF
		}
	case 5:
		if line >= 128 {
			return
		}
		for x := 0; x < 160; x++ {
			idx := pageOffset + uint32(line*160+x)*2
			out[x] = (uint16(l.bus.VRAMByte(idx)) | uint16(l.bus.VRAMByte(idx+1))<<8) & 0x7FFF
		}
	}
}

// renderSprites walks OAM in order; the first non-transparent sprite
// pixel at each position wins, with lower priority values on top.
func (l *LCD) renderSprites(line, mode int, out *[display.GBAWidth]objPixel) {
	oneDimensional := l.dispcnt&0x0040 != 0

	for obj := uint32(0); obj < 128; obj++ {
		a0 := l.bus.OAM16(obj * 4)
		a1 := l.bus.OAM16(obj*4 + 1)
		a2 := l.bus.OAM16(obj*4 + 2)

		affine := a0&0x0100 != 0
		disabled := !affine && a0&0x0200 != 0
		if disabled {
			continue
		}

		objMode := int(a0 >> 10 & 0x03)
		shape := int(a0 >> 14)
		if shape == 3 {
			continue
		}
		size := int(a1 >> 14)
		w, h := spriteSizes[shape][size][0], spriteSizes[shape][size][1]

		boundW, boundH := w, h
		if affine && a0&0x0200 != 0 {
			// Double-size rendering area.
			boundW, boundH = w*2, h*2
		}

		y := int(a0 & 0xFF)
		if y >= 160 {
			y -= 256
		}
		x := int(a1 & 0x1FF)
		if x >= 240 {
			x -= 512
		}

		if line < y || line >= y+boundH {
			continue
		}

		prio := int(a2 >> 10 & 0x03)
		palette := uint32(a2 >> 12)
		eightBPP := a0&0x2000 != 0
		baseTile := uint32(a2 & 0x3FF)

		// In the bitmap modes the low tile block holds the frame buffer.
		if mode >= 3 && baseTile < 512 {
			continue
		}

		var pa, pb, pc, pd int32 = 0x100, 0, 0, 0x100
		if affine {
			group := uint32(a1 >> 9 & 0x1F)
			pa = int32(int16(l.bus.OAM16(group*16 + 3)))
			pb = int32(int16(l.bus.OAM16(group*16 + 7)))
			pc = int32(int16(l.bus.OAM16(group*16 + 11)))
			pd = int32(int16(l.bus.OAM16(group*16 + 15)))
		}

		localY := line - y
		for localX := 0; localX < boundW; localX++ {
			screenX := x + localX
			if screenX < 0 || screenX >= display.GBAWidth {
				continue
			}

			var texX, texY int
			if affine {
				// Transform around the bounding box center.
				cx := localX - boundW/2
				cy := localY - boundH/2
				texX = int(pa*int32(cx)+pb*int32(cy))>>8 + w/2
				texY = int(pc*int32(cx)+pd*int32(cy))>>8 + h/2
				if texX < 0 || texX >= w || texY < 0 || texY >= h {
					continue
				}
			} else {
				texX, texY = localX, localY
				if a1&0x1000 != 0 {
					texX = w - 1 - texX
				}
				if a1&0x2000 != 0 {
					texY = h - 1 - texY
				}
			}

			colorIndex := l.spriteTexel(baseTile, texX, texY, w, eightBPP, oneDimensional)
			if colorIndex == 0 {
				continue
			}

			p := &out[screenX]
			if objMode == 2 {
				p.window = true
				continue
			}
			if p.color != transparent && p.prio <= prio {
				continue
			}

			if eightBPP {
				p.color = l.bus.PRAM16(256+uint32(colorIndex)) & 0x7FFF
			} else {
				p.color = l.bus.PRAM16(256+palette*16+uint32(colorIndex)) & 0x7FFF
			}
			p.prio = prio
			p.semi = objMode == 1
		}
	}
}

// spriteTexel reads one sprite pixel from the object character block.
func (l *LCD) spriteTexel(baseTile uint32, texX, texY, width int, eightBPP, oneDimensional bool) uint32 {
	const charBase = 0x10000

	tileX := uint32(texX / 8)
	tileY := uint32(texY / 8)

	var tile uint32
	if oneDimensional {
		rowStride := uint32(width / 8)
		if eightBPP {
			rowStride *= 2
			tile = baseTile + tileY*rowStride + tileX*2
		} else {
			tile = baseTile + tileY*rowStride + tileX
		}
	} else {
		if eightBPP {
			tile = (baseTile &^ 1) + tileY*32 + tileX*2
		} else {
			tile = baseTile + tileY*32 + tileX
		}
	}
	tile &= 0x3FF

	if eightBPP {
		addr := charBase + tile*32 + uint32(texY%8*8+texX%8)
		return uint32(l.bus.VRAMByte(addr))
	}
	addr := charBase + tile*32 + uint32(texY%8*4+texX%8/2)
	b := l.bus.VRAMByte(addr)
	if texX&1 != 0 {
		return uint32(b >> 4)
	}
	return uint32(b & 0x0F)
}
