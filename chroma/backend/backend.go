// Package backend holds the host frontends: rendering, audio output and
// input translation. The core never imports a frontend; the loop feeds
// frames and samples in and gets input events back.
package backend

import (
	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
)

// Event is one translated host input event.
type Event struct {
	Action  action.Action
	Pressed bool
}

// Config selects the window parameters.
type Config struct {
	Title      string
	Width      int
	Height     int
	Scale      int
	Fullscreen bool
}

// Backend is a complete host platform: rendering, audio and input.
type Backend interface {
	// Init opens the window or output device.
	Init(config Config) error

	// Update presents a frame, queues audio samples and returns any
	// input events collected since the last call.
	Update(frame *display.Frame, samples []uint8) ([]Event, error)

	// Close releases host resources.
	Close() error
}
