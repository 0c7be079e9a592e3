package backend

import (
	"github.com/gdamore/tcell/v2"

	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
)

// Terminal renders into a tcell screen using half-block characters, two
// pixels per cell. Audio is dropped.
type Terminal struct {
	screen tcell.Screen
	events chan Event
}

// NewTerminal builds the tcell frontend.
func NewTerminal() *Terminal {
	return &Terminal{events: make(chan Event, 64)}
}

func (t *Terminal) Init(config Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	t.screen = screen

	go t.pollEvents()
	return nil
}

func (t *Terminal) pollEvents() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch tev := ev.(type) {
		case *tcell.EventKey:
			if act, ok := translateKey(tev); ok {
				// Terminals deliver no key-up events; emit a press and
				// an immediate release.
				t.events <- Event{Action: act, Pressed: true}
				if act != action.Quit && act != action.Pause {
					t.events <- Event{Action: act, Pressed: false}
				}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func translateKey(ev *tcell.EventKey) (action.Action, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return action.Quit, true
	case tcell.KeyUp:
		return action.Up, true
	case tcell.KeyDown:
		return action.Down, true
	case tcell.KeyLeft:
		return action.Left, true
	case tcell.KeyRight:
		return action.Right, true
	case tcell.KeyEnter:
		return action.Start, true
	}
	switch ev.Rune() {
	case 'z', 'Z':
		return action.A, true
	case 'x', 'X':
		return action.B, true
	case 'a', 'A':
		return action.L, true
	case 's', 'S':
		return action.R, true
	case 'p', 'P':
		return action.Pause, true
	case 'n', 'N':
		return action.FrameAdvance, true
	case ' ':
		return action.Select, true
	}
	return 0, false
}

func (t *Terminal) Update(frame *display.Frame, samples []uint8) ([]Event, error) {
	t.render(frame)

	var events []Event
	for {
		select {
		case ev := <-t.events:
			events = append(events, ev)
		default:
			return events, nil
		}
	}
}

// render draws two frame rows per terminal row with the upper half
// block, foreground for the top pixel and background for the bottom.
func (t *Terminal) render(frame *display.Frame) {
	for y := 0; y < frame.Height; y += 2 {
		for x := 0; x < frame.Width; x++ {
			top := bgr555ToColor(frame.Pixels[y*frame.Width+x])
			bottom := tcell.ColorBlack
			if y+1 < frame.Height {
				bottom = bgr555ToColor(frame.Pixels[(y+1)*frame.Width+x])
			}
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
	t.screen.Show()
}

func bgr555ToColor(pixel uint16) tcell.Color {
	r := int32(pixel&0x1F) << 3
	g := int32(pixel>>5&0x1F) << 3
	b := int32(pixel>>10&0x1F) << 3
	return tcell.NewRGBColor(r, g, b)
}

func (t *Terminal) Close() error {
	t.screen.Fini()
	return nil
}
