package hardware

import (
	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/gba/memory"
)

// Keypad key bits in KEYINPUT (0 = pressed).
const (
	keyA      uint16 = 0x0001
	keyB      uint16 = 0x0002
	keySelect uint16 = 0x0004
	keyStart  uint16 = 0x0008
	keyRight  uint16 = 0x0010
	keyLeft   uint16 = 0x0020
	keyUp     uint16 = 0x0040
	keyDown   uint16 = 0x0080
	keyR      uint16 = 0x0100
	keyL      uint16 = 0x0200
)

// Keypad latches host input into KEYINPUT and evaluates the KEYCNT
// interrupt condition on every change.
type Keypad struct {
	input  uint16 // low-active
	keycnt uint16

	irq *memory.IRQ
}

// NewKeypad starts with all keys released.
func NewKeypad(irq *memory.IRQ) *Keypad {
	return &Keypad{input: 0x03FF, irq: irq}
}

// Handle latches one host input event.
func (k *Keypad) Handle(act action.Action, pressed bool) {
	mask, ok := keyMask(act)
	if !ok {
		return
	}
	if pressed {
		k.input &^= mask
	} else {
		k.input |= mask
	}
	k.checkInterrupt()
}

func keyMask(act action.Action) (uint16, bool) {
	switch act {
	case action.A:
		return keyA, true
	case action.B:
		return keyB, true
	case action.Select:
		return keySelect, true
	case action.Start:
		return keyStart, true
	case action.Right:
		return keyRight, true
	case action.Left:
		return keyLeft, true
	case action.Up:
		return keyUp, true
	case action.Down:
		return keyDown, true
	case action.R:
		return keyR, true
	case action.L:
		return keyL, true
	default:
		return 0, false
	}
}

// checkInterrupt raises the keypad interrupt per KEYCNT: in OR mode any
// selected key, in AND mode all selected keys.
func (k *Keypad) checkInterrupt() {
	if k.keycnt&0x4000 == 0 {
		return
	}
	selected := k.keycnt & 0x03FF
	pressed := ^k.input & 0x03FF

	if k.keycnt&0x8000 != 0 {
		if selected != 0 && pressed&selected == selected {
			k.irq.Request(memory.IntKeypad)
		}
	} else if pressed&selected != 0 {
		k.irq.Request(memory.IntKeypad)
	}
}

// ReadIO serves KEYINPUT (0x130) and KEYCNT (0x132).
func (k *Keypad) ReadIO(offset uint32) uint16 {
	if offset == 0x130 {
		return k.input
	}
	return k.keycnt
}

// WriteIO only KEYCNT is writable.
func (k *Keypad) WriteIO(offset uint32, value, mask uint16) {
	if offset == 0x132 {
		k.keycnt = k.keycnt&^mask | value&mask
		k.checkInterrupt()
	}
}
