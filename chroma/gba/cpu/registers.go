package cpu

// ARM7TDMI processor modes, by CPSR mode bits.
const (
	ModeUser       uint32 = 0x10
	ModeFIQ        uint32 = 0x11
	ModeIRQ        uint32 = 0x12
	ModeSupervisor uint32 = 0x13
	ModeAbort      uint32 = 0x17
	ModeUndefined  uint32 = 0x1B
	ModeSystem     uint32 = 0x1F
)

// CPSR bits.
const (
	flagN     uint32 = 1 << 31
	flagZ     uint32 = 1 << 30
	flagC     uint32 = 1 << 29
	flagV     uint32 = 1 << 28
	flagIRQ   uint32 = 1 << 7
	flagFIQ   uint32 = 1 << 6
	flagThumb uint32 = 1 << 5
)

// Registers is the banked ARM7TDMI register file. r holds the active
// window; the bank arrays hold the inactive shadows for r8-r14 across
// the seven modes, swapped on mode change.
type Registers struct {
	r [16]uint32

	bankUser [7]uint32 // r8-r14 for User/System
	bankFIQ  [7]uint32 // r8-r14 for FIQ
	bankIRQ  [2]uint32 // r13-r14
	bankSVC  [2]uint32
	bankABT  [2]uint32
	bankUND  [2]uint32

	cpsr uint32
	spsr [5]uint32 // FIQ, IRQ, SVC, ABT, UND
}

// spsrIndex maps a privileged mode to its SPSR slot; -1 for User/System.
func spsrIndex(mode uint32) int {
	switch mode {
	case ModeFIQ:
		return 0
	case ModeIRQ:
		return 1
	case ModeSupervisor:
		return 2
	case ModeAbort:
		return 3
	case ModeUndefined:
		return 4
	default:
		return -1
	}
}

// Mode returns the current processor mode bits.
func (r *Registers) Mode() uint32 { return r.cpsr & 0x1F }

// CPSR returns the raw status register.
func (r *Registers) CPSR() uint32 { return r.cpsr }

// SetCPSR installs a full status word, swapping register banks if the
// mode bits changed.
func (r *Registers) SetCPSR(value uint32) {
	oldMode := r.Mode()
	newMode := value & 0x1F
	if oldMode != newMode {
		r.swapBanks(oldMode, newMode)
	}
	r.cpsr = value
}

// SetMode changes only the mode bits.
func (r *Registers) SetMode(mode uint32) {
	r.SetCPSR(r.cpsr&^0x1F | mode&0x1F)
}

// swapBanks saves the active r8-r14 window into the old mode's shadow
// and loads the new mode's.
func (r *Registers) swapBanks(oldMode, newMode uint32) {
	r.saveBank(oldMode)
	r.loadBank(newMode)
}

func (r *Registers) saveBank(mode uint32) {
	switch mode {
	case ModeFIQ:
		copy(r.bankFIQ[:], r.r[8:15])
	default:
		copy(r.bankUser[:5], r.r[8:13])
		switch mode {
		case ModeIRQ:
			r.bankIRQ[0], r.bankIRQ[1] = r.r[13], r.r[14]
		case ModeSupervisor:
			r.bankSVC[0], r.bankSVC[1] = r.r[13], r.r[14]
		case ModeAbort:
			r.bankABT[0], r.bankABT[1] = r.r[13], r.r[14]
		case ModeUndefined:
			r.bankUND[0], r.bankUND[1] = r.r[13], r.r[14]
		default:
			r.bankUser[5], r.bankUser[6] = r.r[13], r.r[14]
		}
	}
}

func (r *Registers) loadBank(mode uint32) {
	switch mode {
	case ModeFIQ:
		copy(r.r[8:15], r.bankFIQ[:])
	default:
		copy(r.r[8:15], r.bankUser[:])
		switch mode {
		case ModeIRQ:
			r.r[13], r.r[14] = r.bankIRQ[0], r.bankIRQ[1]
		case ModeSupervisor:
			r.r[13], r.r[14] = r.bankSVC[0], r.bankSVC[1]
		case ModeAbort:
			r.r[13], r.r[14] = r.bankABT[0], r.bankABT[1]
		case ModeUndefined:
			r.r[13], r.r[14] = r.bankUND[0], r.bankUND[1]
		}
	}
}

// SPSR returns the saved status register of the current mode; in User
// or System mode there is none and CPSR is returned.
func (r *Registers) SPSR() uint32 {
	if i := spsrIndex(r.Mode()); i >= 0 {
		return r.spsr[i]
	}
	return r.cpsr
}

// SetSPSR writes the current mode's saved status register; ignored in
// User/System mode.
func (r *Registers) SetSPSR(value uint32) {
	if i := spsrIndex(r.Mode()); i >= 0 {
		r.spsr[i] = value
	}
}

// UserReg reads a register from the User bank regardless of the current
// mode; LDM/STM with the S bit use this.
func (r *Registers) UserReg(index int) uint32 {
	mode := r.Mode()
	if index < 8 || index == 15 || mode == ModeUser || mode == ModeSystem {
		return r.r[index]
	}
	if mode == ModeFIQ {
		return r.bankUser[index-8]
	}
	if index < 13 {
		return r.r[index]
	}
	return r.bankUser[index-8]
}

// SetUserReg writes a register in the User bank regardless of mode.
func (r *Registers) SetUserReg(index int, value uint32) {
	mode := r.Mode()
	if index < 8 || index == 15 || mode == ModeUser || mode == ModeSystem {
		r.r[index] = value
		return
	}
	if mode == ModeFIQ {
		r.bankUser[index-8] = value
		return
	}
	if index < 13 {
		r.r[index] = value
		return
	}
	r.bankUser[index-8] = value
}

// Thumb reports the T bit.
func (r *Registers) Thumb() bool { return r.cpsr&flagThumb != 0 }

func (r *Registers) setThumb(thumb bool) {
	if thumb {
		r.cpsr |= flagThumb
	} else {
		r.cpsr &^= flagThumb
	}
}

// Flag accessors.
func (r *Registers) N() bool { return r.cpsr&flagN != 0 }
func (r *Registers) Z() bool { return r.cpsr&flagZ != 0 }
func (r *Registers) C() bool { return r.cpsr&flagC != 0 }
func (r *Registers) V() bool { return r.cpsr&flagV != 0 }

func (r *Registers) setFlag(mask uint32, set bool) {
	if set {
		r.cpsr |= mask
	} else {
		r.cpsr &^= mask
	}
}

func (r *Registers) setNZ(result uint32) {
	r.setFlag(flagN, result&0x80000000 != 0)
	r.setFlag(flagZ, result == 0)
}

// IRQDisabled reports the I bit.
func (r *Registers) IRQDisabled() bool { return r.cpsr&flagIRQ != 0 }
