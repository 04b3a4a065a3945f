package mindwave

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/neurolink/parameter"
)

// Band identifies one of the eight ASIC EEG power bands
type Band uint8

const (
	Delta Band = iota
	Theta
	LowAlpha
	HighAlpha
	LowBeta
	HighBeta
	LowGamma
	HighGamma

	bandCount
)

// Fails to compile if the enum and the wire keys diverge
var bandNames [bandCount]string = parameter.BandKeys

// BandCount is the number of power bands in a record
const BandCount = int(bandCount)

// Bands returns all bands in wire order
func Bands() []Band {
	bands := make([]Band, 0, bandCount)
	for b := Delta; b < bandCount; b++ {
		bands = append(bands, b)
	}
	return bands
}

// String returns the JSON key of the band
func (b Band) String() string {
	if b >= bandCount {
		return fmt.Sprintf("Band(%d)", uint8(b))
	}
	return bandNames[b]
}

// Valid reports whether b names a known band
func (b Band) Valid() bool {
	return b < bandCount
}

// ParseBand resolves a band from its JSON key, case-insensitive
func ParseBand(name string) (Band, error) {
	for b, n := range bandNames {
		if strings.EqualFold(n, name) {
			return Band(b), nil
		}
	}
	return 0, fmt.Errorf("unknown band %q", name)
}

// EegPower holds the eight band magnitudes in raw device units
type EegPower struct {
	Delta     int `json:"delta"`
	Theta     int `json:"theta"`
	LowAlpha  int `json:"lowAlpha"`
	HighAlpha int `json:"highAlpha"`
	LowBeta   int `json:"lowBeta"`
	HighBeta  int `json:"highBeta"`
	LowGamma  int `json:"lowGamma"`
	HighGamma int `json:"highGamma"`
}

// Value returns the magnitude of band b, 0 for an unknown band
func (p EegPower) Value(b Band) int {
	switch b {
	case Delta:
		return p.Delta
	case Theta:
		return p.Theta
	case LowAlpha:
		return p.LowAlpha
	case HighAlpha:
		return p.HighAlpha
	case LowBeta:
		return p.LowBeta
	case HighBeta:
		return p.HighBeta
	case LowGamma:
		return p.LowGamma
	case HighGamma:
		return p.HighGamma
	}
	return 0
}

// Values returns all magnitudes in wire order
func (p EegPower) Values() [BandCount]int {
	var v [BandCount]int
	for b := Delta; b < bandCount; b++ {
		v[b] = p.Value(b)
	}
	return v
}

// ESense holds the NeuroSky attention and meditation metrics (0-100)
type ESense struct {
	Attention  int `json:"attention"`
	Meditation int `json:"meditation"`
}

// AttentionRatio returns attention scaled to [0,1] by SenseMax
func (e ESense) AttentionRatio() float64 {
	return SenseRatio(e.Attention)
}

// MeditationRatio returns meditation scaled to [0,1] by SenseMax
func (e ESense) MeditationRatio() float64 {
	return SenseRatio(e.Meditation)
}

// Record is one full ThinkGear packet: band powers, eSense and signal quality
// Records are values; consumers never share mutable state through them
type Record struct {
	ESense          ESense   `json:"eSense"`
	EegPower        EegPower `json:"eegPower"`
	PoorSignalLevel int      `json:"poorSignalLevel"`
	Status          string   `json:"status,omitempty"`
}

// NoSignal reports whether the headset has lost skin contact
func (r Record) NoSignal() bool {
	return r.PoorSignalLevel >= parameter.NoSignalLevel
}

// SenseRatio scales an eSense value by SenseMax
func SenseRatio(v int) float64 {
	return float64(v) / parameter.SenseMax
}

// BlinkRatio scales a blink strength by BlinkMax
func BlinkRatio(v int) float64 {
	return float64(v) / parameter.BlinkMax
}
