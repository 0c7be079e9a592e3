package memory

import "github.com/CaptainCaffeine/Chroma/chroma/bit"

// JoypadKey is a key on the joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad latches button state into the P1 register. P1 is a selector
// (bits 4-5) controlling which button group the low nibble reflects;
// 0 means pressed. Bits 6-7 always read as 1.
type Joypad struct {
	buttons uint8 // A/B/Select/Start, low nibble, 1 = released
	dpad    uint8 // Right/Left/Up/Down, low nibble, 1 = released
	p1      uint8 // selection bits 4-5 as last written

	requestInterrupt func()
}

func newJoypad(requestInterrupt func()) *Joypad {
	return &Joypad{
		buttons:          0x0F,
		dpad:             0x0F,
		p1:               0x30,
		requestInterrupt: requestInterrupt,
	}
}

func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) | (j.p1 & 0x30)

	selectDpad := !bit.IsSet(4, j.p1)
	selectButtons := !bit.IsSet(5, j.p1)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	default:
		// No group selected; the lines float high.
		result |= 0x0F
	}

	return result
}

func (j *Joypad) Write(value uint8) {
	j.p1 = value & 0x30
}

// AllLinesDisabled reports whether neither button group is selected.
// Entering STOP in this state hangs real hardware.
func (j *Joypad) AllLinesDisabled() bool {
	return j.p1&0x30 == 0x30
}

// Press registers a key press. A high-to-low transition on a line of a
// group selected in P1 requests the joypad interrupt.
func (j *Joypad) Press(key JoypadKey) {
	oldButtons, oldDpad := j.buttons, j.dpad

	switch key {
	case JoypadRight:
		j.dpad = bit.Clear(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Clear(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Clear(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Clear(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Clear(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Clear(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Clear(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Clear(3, j.buttons)
	}

	var fell uint8
	if !bit.IsSet(5, j.p1) {
		fell |= oldButtons &^ j.buttons
	}
	if !bit.IsSet(4, j.p1) {
		fell |= oldDpad &^ j.dpad
	}
	if fell != 0 {
		if j.requestInterrupt != nil {
			j.requestInterrupt()
		}
	}
}

// Release registers a key release.
func (j *Joypad) Release(key JoypadKey) {
	switch key {
	case JoypadRight:
		j.dpad = bit.Set(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Set(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Set(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Set(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Set(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Set(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Set(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Set(3, j.buttons)
	}
}

// AnyPressed reports whether any key is currently held.
func (j *Joypad) AnyPressed() bool {
	return j.buttons&0x0F != 0x0F || j.dpad&0x0F != 0x0F
}
