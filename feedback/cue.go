package feedback

import (
	"time"

	"github.com/gopxl/beep"
)

// Cue is an audible notification for a session event
type Cue uint8

const (
	CueConnect Cue = iota
	CueDisconnect
	CueTimeout
	CueBlink
	CueFear
	CueCalm
)

func (c Cue) String() string {
	switch c {
	case CueConnect:
		return "connect"
	case CueDisconnect:
		return "disconnect"
	case CueTimeout:
		return "timeout"
	case CueBlink:
		return "blink"
	case CueFear:
		return "fear"
	case CueCalm:
		return "calm"
	default:
		return "unknown"
	}
}

// SampleRate of every synthesised cue
const SampleRate = beep.SampleRate(44100)

// Cue timings
const (
	chimeNote    = 90 * time.Millisecond
	chimeAttack  = 5 * time.Millisecond
	chimeRelease = 60 * time.Millisecond
	toneLength   = 250 * time.Millisecond
	toneRelease  = 150 * time.Millisecond
	buzzLength   = 400 * time.Millisecond
	buzzRelease  = 100 * time.Millisecond
	clickLength  = 25 * time.Millisecond
	clickRelease = 20 * time.Millisecond
	stateLength  = 600 * time.Millisecond
	stateAttack  = 150 * time.Millisecond
	stateRelease = 300 * time.Millisecond
)

// Synthesize builds the streamer for cue at volume in [0,1]
// strength scales the blink click and is ignored by the other cues
func Synthesize(cue Cue, strength, volume float64) beep.Streamer {
	rate := SampleRate
	switch cue {
	case CueConnect:
		// Rising fifth: A5 then E6
		lo := NewEnvelope(NewOscillator(880, chimeNote, WaveSine, rate), chimeNote, chimeAttack, chimeRelease, rate)
		hi := NewEnvelope(NewOscillator(1318.51, chimeNote, WaveSine, rate), chimeNote, chimeAttack, chimeRelease, rate)
		return withVolume(beep.Seq(lo, hi), volume)

	case CueDisconnect:
		tone := NewEnvelope(NewOscillator(330, toneLength, WaveSine, rate), toneLength, chimeAttack, toneRelease, rate)
		return withVolume(tone, volume)

	case CueTimeout:
		buzz := NewEnvelope(NewOscillator(110, buzzLength, WaveSaw, rate), buzzLength, chimeAttack, buzzRelease, rate)
		return withVolume(buzz, volume*0.6)

	case CueBlink:
		click := NewEnvelope(NewOscillator(0, clickLength, WaveNoise, rate), clickLength, 0, clickRelease, rate)
		return withVolume(click, volume*clamp01(strength))

	case CueFear:
		low := NewEnvelope(NewOscillator(146.83, stateLength, WaveSquare, rate), stateLength, stateAttack, stateRelease, rate)
		return withVolume(low, volume*0.4)

	case CueCalm:
		pad := beep.Mix(
			withVolume(NewEnvelope(NewOscillator(523.25, stateLength, WaveSine, rate), stateLength, stateAttack, stateRelease, rate), 0.6),
			withVolume(NewEnvelope(NewOscillator(659.25, stateLength, WaveSine, rate), stateLength, stateAttack, stateRelease, rate), 0.4),
		)
		return withVolume(pad, volume)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
