package mindwave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBand_ValueMapping(t *testing.T) {
	p := EegPower{Delta: 1, Theta: 2, LowAlpha: 3, HighAlpha: 4, LowBeta: 5, HighBeta: 6, LowGamma: 7, HighGamma: 8}
	for i, b := range Bands() {
		assert.Equal(t, i+1, p.Value(b), b.String())
	}
	assert.Equal(t, 0, p.Value(Band(42)))
	assert.Equal(t, [BandCount]int{1, 2, 3, 4, 5, 6, 7, 8}, p.Values())
}

func TestParseBand(t *testing.T) {
	for _, b := range Bands() {
		got, err := ParseBand(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}

	got, err := ParseBand("HIGHGAMMA")
	require.NoError(t, err)
	assert.Equal(t, HighGamma, got)

	_, err = ParseBand("omega")
	assert.Error(t, err)
	assert.Equal(t, "Band(9)", Band(9).String())
}

func TestRecord_NoSignal(t *testing.T) {
	assert.False(t, Record{PoorSignalLevel: 0}.NoSignal())
	assert.False(t, Record{PoorSignalLevel: 199}.NoSignal())
	assert.True(t, Record{PoorSignalLevel: 200}.NoSignal())
	assert.True(t, Record{PoorSignalLevel: 255}.NoSignal())
}

func TestRatios(t *testing.T) {
	e := ESense{Attention: 50, Meditation: 100}
	assert.InDelta(t, 0.5, e.AttentionRatio(), 1e-9)
	assert.InDelta(t, 1.0, e.MeditationRatio(), 1e-9)
	assert.InDelta(t, 0.25, BlinkRatio(50), 1e-9)
}
