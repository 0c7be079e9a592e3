package cart

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

// GameMode is the mode a GB cartridge requests from its header.
type GameMode uint8

const (
	ModeDMG GameMode = iota
	ModeCGB
)

// MBCType identifies the memory bank controller inside a GB cartridge.
type MBCType uint8

const (
	NoMBC MBCType = iota
	MBC1
	MBC1M
	MBC2
	MBC3
	MBC5
	MBCUnknown
)

func (t MBCType) String() string {
	switch t {
	case NoMBC:
		return "ROM only"
	case MBC1:
		return "MBC1"
	case MBC1M:
		return "MBC1 multicart"
	case MBC2:
		return "MBC2"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	default:
		return "unknown"
	}
}

// Header holds the once-parsed GB cartridge header fields the core needs.
type Header struct {
	Title      string
	Mode       GameMode
	MBC        MBCType
	ROMBanks   int // 16 KiB banks, power of two >= 2
	RAMSize    int // bytes of external RAM, 0 iff none declared
	HasBattery bool
	HasRTC     bool
	HasRumble  bool
}

const (
	titleAddress     = 0x134
	titleLength      = 11
	cgbFlagAddress   = 0x143
	cartTypeAddress  = 0x147
	romSizeAddress   = 0x148
	ramSizeAddress   = 0x149
	checksumAddress  = 0x14D
	headerChecksumLo = 0x134
	headerChecksumHi = 0x14D
)

// ParseHeader reads the GB cartridge header. multicart forces the MBC1M
// bank layout, which is indistinguishable from MBC1 in the header itself.
func ParseHeader(rom []byte, multicart bool) (Header, error) {
	if len(rom) < 0x150 {
		return Header{}, fmt.Errorf("ROM too small for a cartridge header: %d bytes", len(rom))
	}

	h := Header{
		Title: cleanTitle(rom[titleAddress : titleAddress+titleLength]),
	}

	if rom[cgbFlagAddress]&0x80 != 0 {
		h.Mode = ModeCGB
	}

	switch rom[cartTypeAddress] {
	case 0x00, 0x08, 0x09:
		h.MBC = NoMBC
		h.HasBattery = rom[cartTypeAddress] == 0x09
	case 0x01, 0x02, 0x03:
		h.MBC = MBC1
		h.HasBattery = rom[cartTypeAddress] == 0x03
	case 0x05, 0x06:
		h.MBC = MBC2
		h.HasBattery = rom[cartTypeAddress] == 0x06
	case 0x0F, 0x10:
		h.MBC = MBC3
		h.HasRTC = true
		h.HasBattery = true
	case 0x11, 0x12, 0x13:
		h.MBC = MBC3
		h.HasBattery = rom[cartTypeAddress] == 0x13
	case 0x19, 0x1A, 0x1B:
		h.MBC = MBC5
		h.HasBattery = rom[cartTypeAddress] == 0x1B
	case 0x1C, 0x1D, 0x1E:
		h.MBC = MBC5
		h.HasRumble = true
		h.HasBattery = rom[cartTypeAddress] == 0x1E
	default:
		return Header{}, fmt.Errorf("unimplemented cartridge type 0x%02X", rom[cartTypeAddress])
	}

	if multicart && h.MBC == MBC1 {
		h.MBC = MBC1M
	}

	romSizeCode := rom[romSizeAddress]
	if romSizeCode > 0x08 {
		return Header{}, fmt.Errorf("unrecognized ROM size code 0x%02X", romSizeCode)
	}
	h.ROMBanks = 2 << romSizeCode

	switch rom[ramSizeAddress] {
	case 0x00:
		h.RAMSize = 0
	case 0x01:
		h.RAMSize = 0x800
	case 0x02:
		h.RAMSize = 0x2000
	case 0x03:
		h.RAMSize = 0x8000
	case 0x04:
		h.RAMSize = 0x20000
	case 0x05:
		h.RAMSize = 0x10000
	default:
		return Header{}, fmt.Errorf("unrecognized RAM size code 0x%02X", rom[ramSizeAddress])
	}

	// MBC2 has embedded nybble RAM that the RAM size code does not declare.
	if h.MBC == MBC2 {
		h.RAMSize = 512
	}

	verifyHeaderChecksum(rom)

	return h, nil
}

// verifyHeaderChecksum warns when the checksum the boot ROM verifies does
// not match. Real hardware locks up; we keep going, like the console does
// once the boot ROM has been skipped.
func verifyHeaderChecksum(rom []byte) {
	var checksum uint8
	for i := headerChecksumLo; i < headerChecksumHi; i++ {
		checksum -= rom[i] + 1
	}
	if checksum != rom[checksumAddress] {
		slog.Warn("Header checksum mismatch; this ROM would not boot on hardware")
	}
}

// cleanTitle normalizes the raw title bytes to printable ASCII.
func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		r := rune(b)
		if r == 0 {
			r = ' '
		} else if !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}
