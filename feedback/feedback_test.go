package feedback

import (
	"io"
	"log"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/neurolink/classifier"
	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/mindwave"
)

// drain reads s to completion and returns every sample
func drain(s beep.Streamer) [][2]float64 {
	var out [][2]float64
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			return out
		}
	}
}

func peak(samples [][2]float64) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Abs(s[0]))
	}
	return p
}

// captureOutput records played streams without an audio device
type captureOutput struct {
	mu      sync.Mutex
	streams []beep.Streamer
}

func (c *captureOutput) Play(s beep.Streamer) {
	c.mu.Lock()
	c.streams = append(c.streams, s)
	c.mu.Unlock()
}

func (c *captureOutput) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

func TestOscillator_Length(t *testing.T) {
	osc := NewOscillator(440, 100*time.Millisecond, WaveSine, SampleRate)
	samples := drain(osc)
	assert.Len(t, samples, SampleRate.N(100*time.Millisecond))
	assert.LessOrEqual(t, peak(samples), 1.0)

	n, ok := osc.Stream(make([][2]float64, 8))
	assert.Zero(t, n)
	assert.False(t, ok)
}

func TestOscillator_SquareAlternates(t *testing.T) {
	// 4 samples per period at this frequency
	rate := beep.SampleRate(400)
	samples := drain(NewOscillator(100, 20*time.Millisecond, WaveSquare, rate))
	require.Len(t, samples, 8)
	assert.Equal(t, []float64{1, 1, -1, -1, 1, 1, -1, -1}, []float64{
		samples[0][0], samples[1][0], samples[2][0], samples[3][0],
		samples[4][0], samples[5][0], samples[6][0], samples[7][0],
	})
}

func TestEnvelope_ShapesEdges(t *testing.T) {
	rate := beep.SampleRate(1000)
	src := NewOscillator(0, 100*time.Millisecond, WaveSquare, rate) // constant 1
	samples := drain(NewEnvelope(src, 100*time.Millisecond, 10*time.Millisecond, 10*time.Millisecond, rate))

	require.Len(t, samples, 100)
	assert.Zero(t, samples[0][0], "attack starts silent")
	assert.InDelta(t, 1.0, samples[50][0], 1e-9)
	assert.InDelta(t, 0.1, samples[99][0], 1e-9)
}

func TestSynthesize_AllCues(t *testing.T) {
	for _, cue := range []Cue{CueConnect, CueDisconnect, CueTimeout, CueBlink, CueFear, CueCalm} {
		s := Synthesize(cue, 1, 1)
		require.NotNil(t, s, cue.String())
		assert.NotEmpty(t, drain(s), cue.String())
	}
	assert.Nil(t, Synthesize(Cue(99), 1, 1))
	assert.Equal(t, "unknown", Cue(99).String())
}

func TestSynthesize_ConnectIsTwoNotes(t *testing.T) {
	samples := drain(Synthesize(CueConnect, 1, 1))
	assert.Len(t, samples, 2*SampleRate.N(chimeNote))
}

func TestSynthesize_VolumeScales(t *testing.T) {
	loud := peak(drain(Synthesize(CueDisconnect, 1, 1)))
	quiet := peak(drain(Synthesize(CueDisconnect, 1, 0.25)))
	assert.InDelta(t, loud*0.25, quiet, 1e-6)

	assert.Zero(t, peak(drain(Synthesize(CueDisconnect, 1, 0))))
	assert.Zero(t, peak(drain(Synthesize(CueBlink, 0, 1))), "zero blink strength is silent")
}

func TestPlayer_ListenerAndMute(t *testing.T) {
	out := &captureOutput{}
	p := NewPlayer(out, 0.5)

	hub := mindwave.NewEventHub()
	hub.Subscribe(p.Listener())

	hub.EmitConnect()
	hub.EmitBlink(100)
	hub.EmitTimeout()
	hub.EmitDisconnect()
	hub.EmitRawEEG(5) // no cue
	assert.Equal(t, 4, out.count())
	assert.Equal(t, int64(4), p.Played())

	p.OnState(classifier.Fear, 0.9)
	p.OnState(classifier.Neutral, 0.4)
	p.OnState(classifier.Calm, 0.1)
	assert.Equal(t, 6, out.count())

	p.SetMuted(true)
	assert.True(t, p.Muted())
	hub.EmitConnect()
	assert.Equal(t, 6, out.count())
}

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestService_Lifecycle(t *testing.T) {
	cfg := config.Default()
	headset := mindwave.NewService(discard(), nil)
	out := &captureOutput{}

	svc := NewService(headset, nil, out, discard())
	assert.Equal(t, "feedback", svc.Name())
	assert.Equal(t, []string{"mindwave"}, svc.Dependencies())

	require.NoError(t, svc.Init(cfg))
	require.NoError(t, svc.Start())
	require.NotNil(t, svc.Player())

	headset.Events().EmitConnect()
	assert.Equal(t, 1, out.count())

	require.NoError(t, svc.Stop())
	assert.Nil(t, svc.Player())
	headset.Events().EmitConnect()
	assert.Equal(t, 1, out.count())
}

func TestService_MuteOverride(t *testing.T) {
	headset := mindwave.NewService(discard(), nil)
	svc := NewService(headset, nil, &captureOutput{}, discard())

	require.NoError(t, svc.Init(config.Default(), true))
	require.NoError(t, svc.Start())
	assert.Nil(t, svc.Player())
	assert.Error(t, svc.Init())
}

func TestService_AssessorDependency(t *testing.T) {
	headset := mindwave.NewService(discard(), nil)
	assessor := classifier.NewService(headset, discard())
	svc := NewService(headset, assessor, &captureOutput{}, discard())
	assert.Equal(t, []string{"mindwave", "assessor"}, svc.Dependencies())
}
