// Package audio is the host beep player for the chip8 VM. The VM itself never makes sound; it only invokes
// a callback synchronously from TickTimers on the 1->0 edge of the sound timer. This package turns that
// callback into an actual tone via faiface/beep.
package audio

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)
	beepFreq   = 440.0
	beepDur    = 150 * time.Millisecond
)

// Player owns the decoded/synthesized beep streamer and the speaker it's wired to.
type Player struct {
	streamer beep.StreamSeeker
	format   beep.Format
}

// NewPlayer opens assetPath (conventionally "assets/beep.mp3") and decodes it as the beep tone. If the
// asset can't be opened or decoded, it falls back to a synthesized square wave so a host never hard-depends
// on bundling a media file to run with sound.
func NewPlayer(assetPath string) (*Player, error) {
	if f, err := os.Open(assetPath); err == nil {
		if streamer, format, err := mp3.Decode(f); err == nil {
			return &Player{streamer: streamer, format: format}, nil
		}
		f.Close()
	}
	return newSynthesizedPlayer()
}

func newSynthesizedPlayer() (*Player, error) {
	format := beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2}
	square, err := generators.SquareTone(sampleRate, beepFreq)
	if err != nil {
		return nil, err
	}
	n := sampleRate.N(beepDur)
	buf := beep.NewBuffer(format)
	buf.Append(beep.Take(n, square))
	return &Player{streamer: buf.Streamer(0, buf.Len()), format: format}, nil
}

// Init initializes the default speaker for this player's sample rate. Call once before the first Beep.
func (p *Player) Init() error {
	return speaker.Init(p.format.SampleRate, p.format.SampleRate.N(time.Second/10))
}

// Beep plays the tone once from the start. Intended to be passed (wrapped in a closure) as a chip8.VM beep
// callback: it is invoked synchronously from TickTimers, so it must return quickly, which is why it only
// schedules playback on the speaker's own mixing goroutine rather than blocking for the tone's duration.
func (p *Player) Beep() {
	p.streamer.Seek(0)
	speaker.Play(p.streamer)
}
