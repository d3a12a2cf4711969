package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// sine generates a sine tone for a fixed number of samples
type sine struct {
	freq     float64
	phase    float64
	duration int
	position int
	rate     beep.SampleRate
}

// NewTone creates a sine tone of freq Hz lasting duration
func NewTone(freq float64, duration time.Duration, rate beep.SampleRate) beep.Streamer {
	return &sine{
		freq:     freq,
		duration: rate.N(duration),
		rate:     rate,
	}
}

func (s *sine) Stream(samples [][2]float64) (n int, ok bool) {
	if s.position >= s.duration {
		return 0, false
	}
	for i := range samples {
		if s.position >= s.duration {
			return i, true
		}
		val := math.Sin(2 * math.Pi * s.phase)
		samples[i][0] = val
		samples[i][1] = val

		s.phase += s.freq / float64(s.rate)
		s.phase -= math.Floor(s.phase)
		s.position++
	}
	return len(samples), true
}

func (s *sine) Err() error { return nil }

// fade applies a linear attack and release to a stream of known length
type fade struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

// NewFade shapes s with a linear attack and release over total duration
func NewFade(s beep.Streamer, total, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &fade{
		streamer: s,
		attack:   rate.N(attack),
		release:  rate.N(release),
		total:    rate.N(total),
	}
}

func (f *fade) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = f.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := 1.0
		if f.position < f.attack && f.attack > 0 {
			vol = float64(f.position) / float64(f.attack)
		}
		if start := f.total - f.release; f.position >= start && f.release > 0 {
			vol = math.Max(0, float64(f.total-f.position)/float64(f.release))
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		f.position++
	}
	return n, ok
}

func (f *fade) Err() error { return f.streamer.Err() }

// withVolume scales s linearly; zero or less is silent.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// note is one shaped tone
func note(freq float64, d time.Duration, rate beep.SampleRate) beep.Streamer {
	return NewFade(NewTone(freq, d, rate), d, 5*time.Millisecond, d/2, rate)
}

// Arpeggio plays freqs one after another, each lasting step
func Arpeggio(freqs []float64, step time.Duration, rate beep.SampleRate) beep.Streamer {
	notes := make([]beep.Streamer, 0, len(freqs))
	for _, f := range freqs {
		notes = append(notes, note(f, step, rate))
	}
	return beep.Seq(notes...)
}

// Sound effects

// SnapSound is a short two-partial click for a piece locking into place
func SnapSound(rate beep.SampleRate, vol float64) beep.Streamer {
	d := 60 * time.Millisecond
	return withVolume(beep.Mix(
		withVolume(note(1318.51, d, rate), 0.7),
		withVolume(note(2637.02, d, rate), 0.3),
	), vol)
}

// CompleteSound is a rising C major arpeggio
func CompleteSound(rate beep.SampleRate, vol float64) beep.Streamer {
	return withVolume(Arpeggio([]float64{523.25, 659.25, 783.99, 1046.50}, 120*time.Millisecond, rate), vol)
}

// ResetSound is a short falling pair of notes
func ResetSound(rate beep.SampleRate, vol float64) beep.Streamer {
	return withVolume(Arpeggio([]float64{659.25, 440.00}, 90*time.Millisecond, rate), vol)
}
