package feedback

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/neurolink/classifier"
	"github.com/lixenwraith/neurolink/mindwave"
)

// Output receives finished cue streams
type Output interface {
	Play(s beep.Streamer)
}

// SpeakerOutput mixes cues onto the system audio device
type SpeakerOutput struct {
	once  sync.Once
	err   error
	mixer *beep.Mixer
}

// Open initialises the speaker once; later calls return the first result
func (o *SpeakerOutput) Open() error {
	o.once.Do(func() {
		o.mixer = &beep.Mixer{}
		if err := speaker.Init(SampleRate, SampleRate.N(50*time.Millisecond)); err != nil {
			o.err = err
			return
		}
		speaker.Play(o.mixer)
	})
	return o.err
}

// Play implements Output; a no-op until Open succeeds
func (o *SpeakerOutput) Play(s beep.Streamer) {
	if o.mixer == nil || o.err != nil {
		return
	}
	speaker.Lock()
	o.mixer.Add(s)
	speaker.Unlock()
}

// Clear drops cues still playing
func (o *SpeakerOutput) Clear() {
	if o.mixer == nil || o.err != nil {
		return
	}
	speaker.Lock()
	o.mixer.Clear()
	speaker.Unlock()
}

// Player turns session events into cues
type Player struct {
	out    Output
	volume float64
	muted  atomic.Bool
	played atomic.Int64
}

// NewPlayer creates a player writing to out at volume in [0,1]
func NewPlayer(out Output, volume float64) *Player {
	return &Player{out: out, volume: clamp01(volume)}
}

// Play synthesises and emits cue unless muted
func (p *Player) Play(cue Cue, strength float64) {
	if p.muted.Load() {
		return
	}
	s := Synthesize(cue, strength, p.volume)
	if s == nil {
		return
	}
	p.played.Add(1)
	p.out.Play(s)
}

// SetMuted toggles output
func (p *Player) SetMuted(m bool) {
	p.muted.Store(m)
}

// Muted reports whether cues are suppressed
func (p *Player) Muted() bool {
	return p.muted.Load()
}

// Played returns the number of cues emitted
func (p *Player) Played() int64 {
	return p.played.Load()
}

// Listener maps session edges and blinks to cues
func (p *Player) Listener() mindwave.Listener {
	return mindwave.Listener{
		OnConnect:    func() { p.Play(CueConnect, 1) },
		OnDisconnect: func() { p.Play(CueDisconnect, 1) },
		OnTimeout:    func() { p.Play(CueTimeout, 1) },
		OnBlink:      func(v int) { p.Play(CueBlink, mindwave.BlinkRatio(v)) },
	}
}

// OnState plays the fear and calm cues; neutral is silent
func (p *Player) OnState(st classifier.State, _ float64) {
	switch st {
	case classifier.Fear:
		p.Play(CueFear, 1)
	case classifier.Calm:
		p.Play(CueCalm, 1)
	}
}
