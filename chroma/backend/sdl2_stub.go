//go:build !sdl2

package backend

import (
	"fmt"

	"github.com/CaptainCaffeine/Chroma/chroma/display"
)

// SDL2 stub for builds without the SDL2 development libraries.
type SDL2 struct{}

// NewSDL2 creates a stub that fails at Init.
func NewSDL2() *SDL2 {
	return &SDL2{}
}

func (s *SDL2) Init(config Config) error {
	return fmt.Errorf("SDL2 backend not available, build with -tags sdl2 to enable")
}

func (s *SDL2) Update(frame *display.Frame, samples []uint8) ([]Event, error) {
	return nil, fmt.Errorf("SDL2 backend not available")
}

func (s *SDL2) Close() error { return nil }
