package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/logging"
)

const sampleRate = beep.SampleRate(48000)

// Chime plays puzzle feedback sounds. Until Init succeeds every Play call
// is a no-op, so callers never need to check for an audio device.
type Chime struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	initialized bool
	log         log15.Logger
}

// NewChime creates a chime at the given linear volume (0 to 1)
func NewChime(volume float64, logger log15.Logger) *Chime {
	return &Chime{
		mixer:  &beep.Mixer{},
		volume: volume,
		log:    logging.OrDiscard(logger).New("component", "audio"),
	}
}

// Init opens the speaker
func (c *Chime) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		c.log.Warn("Audio unavailable, sounds disabled", "err", err)
		return err
	}
	speaker.Play(c.mixer)
	c.initialized = true
	return nil
}

// Enabled reports whether sounds are audible
func (c *Chime) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized && c.volume > 0
}

// PlaySnap plays the piece snap click
func (c *Chime) PlaySnap() { c.play(SnapSound(sampleRate, c.volume)) }

// PlayComplete plays the completion arpeggio
func (c *Chime) PlayComplete() { c.play(CompleteSound(sampleRate, c.volume)) }

// PlayReset plays the reset notes
func (c *Chime) PlayReset() { c.play(ResetSound(sampleRate, c.volume)) }

func (c *Chime) play(s beep.Streamer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized || c.volume <= 0 {
		return
	}
	speaker.Lock()
	c.mixer.Add(s)
	speaker.Unlock()
}

// Close stops all sounds
func (c *Chime) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return
	}
	speaker.Lock()
	c.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	c.initialized = false
}
