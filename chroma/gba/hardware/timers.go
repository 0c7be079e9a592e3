package hardware

import "github.com/CaptainCaffeine/Chroma/chroma/gba/memory"

// timerPrescale maps the control bits to divider amounts.
var timerPrescale = [4]int{1, 64, 256, 1024}

// Timer is one of the four 16-bit timers. A cascaded timer counts
// overflows of its neighbor instead of clock cycles.
type Timer struct {
	index   int
	counter uint16
	reload  uint16
	control uint16

	prescaleCount int

	irq      *memory.IRQ
	overflow func(index int)
}

// Timers is the block of four.
type Timers struct {
	timers [4]Timer
}

// NewTimers wires the block. onOverflow fires for every timer overflow;
// the audio FIFOs key off timers 0 and 1.
func NewTimers(irq *memory.IRQ, onOverflow func(index int)) *Timers {
	t := &Timers{}
	for i := range t.timers {
		t.timers[i].index = i
		t.timers[i].irq = irq
		t.timers[i].overflow = onOverflow
	}
	return t
}

func (t *Timers) enabled(i int) bool { return t.timers[i].control&0x80 != 0 }
func (t *Timers) cascade(i int) bool { return t.timers[i].control&0x04 != 0 }

// Tick advances all four timers by the given cycles.
func (t *Timers) Tick(cycles int) {
	for i := 0; i < 4; i++ {
		if !t.enabled(i) || t.cascade(i) {
			continue
		}
		tm := &t.timers[i]
		tm.prescaleCount += cycles
		period := timerPrescale[tm.control&0x03]
		for tm.prescaleCount >= period {
			tm.prescaleCount -= period
			t.increment(i)
		}
	}
}

func (t *Timers) increment(i int) {
	tm := &t.timers[i]
	tm.counter++
	if tm.counter != 0 {
		return
	}
	tm.counter = tm.reload

	if tm.control&0x40 != 0 {
		tm.irq.Request(memory.IntTimer0 << uint(i))
	}
	if tm.overflow != nil {
		tm.overflow(i)
	}

	// Cascade into the next timer.
	if i < 3 && t.enabled(i+1) && t.cascade(i+1) {
		t.increment(i + 1)
	}
}

// ReadIO serves the TM0CNT-TM3CNT window at offsets 0x100-0x10E.
func (t *Timers) ReadIO(offset uint32) uint16 {
	i := int(offset-0x100) / 4
	if offset&0x02 == 0 {
		return t.timers[i].counter
	}
	return t.timers[i].control
}

// WriteIO handles the counter-reload and control halves.
func (t *Timers) WriteIO(offset uint32, value, mask uint16) {
	i := int(offset-0x100) / 4
	tm := &t.timers[i]

	if offset&0x02 == 0 {
		tm.reload = tm.reload&^mask | value&mask
		return
	}

	wasEnabled := tm.control&0x80 != 0
	tm.control = tm.control&^mask | value&mask&0x00C7
	if !wasEnabled && tm.control&0x80 != 0 {
		// Enabling reloads the counter.
		tm.counter = tm.reload
		tm.prescaleCount = 0
	}
}
