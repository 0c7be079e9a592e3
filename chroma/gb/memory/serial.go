package memory

import (
	"log/slog"

	"github.com/CaptainCaffeine/Chroma/chroma/addr"
)

// Serial is the link port with no peer attached: bits shift out MSB-first
// on the internal clock and 1s shift in. Each byte written to SB is fed to
// a debug log sink.
type Serial struct {
	data    byte
	control byte

	clock        uint16
	bitsToShift  int
	transferSig  bool
	prevTransfer bool
	prevInc      bool

	cgb bool

	// logLine accumulates transferred bytes until a newline, then logs
	// them. Blargg test ROMs report results this way.
	logLine []byte

	requestInterrupt func()
}

func newSerial(cgb bool, requestInterrupt func()) *Serial {
	return &Serial{cgb: cgb, requestInterrupt: requestInterrupt}
}

// Tick advances the serial clock; one bit shifts per falling edge of the
// transfer signal while a transfer is active.
func (s *Serial) Tick(cycles int) {
	for ; cycles >= 4; cycles -= 4 {
		s.step()
	}
}

func (s *Serial) step() {
	s.clock += 4

	if s.bitsToShift == 0 && s.control&0x80 != 0 {
		s.bitsToShift = 8
	}

	if s.bitsToShift > 0 && !s.transferSig && s.prevTransfer {
		s.shiftBit()
	}
	s.prevTransfer = s.transferSig

	inc := s.clock&s.selectClockBit() != 0 && s.control&0x01 != 0
	if !inc && s.prevInc {
		s.transferSig = !s.transferSig
	}
	s.prevInc = inc
}

func (s *Serial) shiftBit() {
	s.data = s.data<<1 | 0x01

	s.bitsToShift--
	if s.bitsToShift == 0 {
		s.control &= 0x7F
		if s.requestInterrupt != nil {
			s.requestInterrupt()
		}
	}
}

// RecordOutgoing feeds the debug log sink with the byte software is about
// to transfer; after 8 shifts SB only holds the 0xFF shifted in from the
// disconnected line.
func (s *Serial) RecordOutgoing(value byte) {
	if value == '\n' {
		if len(s.logLine) > 0 {
			slog.Info("serial", "text", string(s.logLine))
			s.logLine = s.logLine[:0]
		}
		return
	}
	if value >= 0x20 && value < 0x7F {
		s.logLine = append(s.logLine, value)
		if len(s.logLine) > 256 {
			s.logLine = s.logLine[:0]
		}
	}
}

func (s *Serial) selectClockBit() uint16 {
	// In CGB mode bit 1 of SC selects the fast clock.
	if s.cgb && s.control&0x02 != 0 {
		return 0x04
	}
	return 0x80
}

func (s *Serial) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.data
	case addr.SC:
		if s.cgb {
			return s.control | 0x7C
		}
		return s.control | 0x7E
	default:
		return 0xFF
	}
}

func (s *Serial) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.data = value
		s.RecordOutgoing(value)
	case addr.SC:
		s.control = value & 0x83
	}
}
