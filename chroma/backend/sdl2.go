//go:build sdl2

package backend

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
)

// SDL2 is the windowed frontend, compiled only with build tag sdl2.
// Building it requires the SDL2 development libraries; default builds use
// the stub in sdl2_stub.go.
type SDL2 struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	audio    sdl.AudioDeviceID
	width    int
	height   int
}

// NewSDL2 creates the SDL2 frontend.
func NewSDL2() *SDL2 {
	return &SDL2{}
}

func (s *SDL2) Init(config Config) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("initializing SDL2: %w", err)
	}

	s.width, s.height = config.Width, config.Height

	var flags uint32 = sdl.WINDOW_SHOWN
	if config.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	window, err := sdl.CreateWindow(config.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(config.Width*config.Scale), int32(config.Height*config.Scale), flags)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_BGR555,
		sdl.TEXTUREACCESS_STREAMING, int32(config.Width), int32(config.Height))
	if err != nil {
		return fmt.Errorf("creating texture: %w", err)
	}
	s.texture = texture

	spec := sdl.AudioSpec{
		Freq:     48000,
		Format:   sdl.AUDIO_U8,
		Channels: 2,
		Samples:  1024,
	}
	device, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	s.audio = device
	sdl.PauseAudioDevice(device, false)

	return nil
}

func (s *SDL2) Update(frame *display.Frame, samples []uint8) ([]Event, error) {
	if len(samples) > 0 {
		if err := sdl.QueueAudio(s.audio, samples); err != nil {
			return nil, err
		}
	}

	if err := s.texture.Update(nil,
		unsafe.Pointer(&frame.Pixels[0]), frame.Width*2); err != nil {
		return nil, err
	}
	if err := s.renderer.Clear(); err != nil {
		return nil, err
	}
	if err := s.renderer.Copy(s.texture, nil, nil); err != nil {
		return nil, err
	}
	s.renderer.Present()

	var events []Event
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch t := ev.(type) {
		case *sdl.QuitEvent:
			events = append(events, Event{Action: action.Quit, Pressed: true})
		case *sdl.KeyboardEvent:
			if act, ok := translateScancode(t.Keysym.Scancode); ok {
				events = append(events, Event{Action: act, Pressed: t.Type == sdl.KEYDOWN})
			}
		}
	}
	return events, nil
}

func translateScancode(code sdl.Scancode) (action.Action, bool) {
	switch code {
	case sdl.SCANCODE_ESCAPE:
		return action.Quit, true
	case sdl.SCANCODE_UP:
		return action.Up, true
	case sdl.SCANCODE_DOWN:
		return action.Down, true
	case sdl.SCANCODE_LEFT:
		return action.Left, true
	case sdl.SCANCODE_RIGHT:
		return action.Right, true
	case sdl.SCANCODE_Z:
		return action.A, true
	case sdl.SCANCODE_X:
		return action.B, true
	case sdl.SCANCODE_A:
		return action.L, true
	case sdl.SCANCODE_S:
		return action.R, true
	case sdl.SCANCODE_RETURN:
		return action.Start, true
	case sdl.SCANCODE_BACKSPACE:
		return action.Select, true
	case sdl.SCANCODE_P:
		return action.Pause, true
	case sdl.SCANCODE_N:
		return action.FrameAdvance, true
	case sdl.SCANCODE_F11:
		return action.Fullscreen, true
	default:
		return 0, false
	}
}

func (s *SDL2) Close() error {
	if s.audio != 0 {
		sdl.CloseAudioDevice(s.audio)
	}
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}
