package backend

import (
	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/display"
)

// Headless is the frontend used by tests and batch runs: frames and
// samples are counted and dropped, and a frame budget turns into a quit
// event.
type Headless struct {
	maxFrames  int
	frameCount int
	quit       bool
}

// NewHeadless runs for maxFrames frames (0 means forever).
func NewHeadless(maxFrames int) *Headless {
	return &Headless{maxFrames: maxFrames}
}

func (h *Headless) Init(config Config) error { return nil }

func (h *Headless) Update(frame *display.Frame, samples []uint8) ([]Event, error) {
	h.frameCount++
	if h.maxFrames > 0 && h.frameCount >= h.maxFrames {
		h.quit = true
		return []Event{{Action: action.Quit, Pressed: true}}, nil
	}
	return nil, nil
}

func (h *Headless) Close() error { return nil }

// FrameCount reports how many frames were presented.
func (h *Headless) FrameCount() int { return h.frameCount }
