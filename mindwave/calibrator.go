package mindwave

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/lixenwraith/neurolink/parameter"
)

// Mode selects how the calibrator derives a band's range
type Mode uint8

const (
	// Automatic derives min/max from the records in the window
	Automatic Mode = iota
	// Manual uses the configured per-band bounds
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "automatic"
}

// ParseMode resolves "automatic" or "manual", case-insensitive
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "automatic", "auto":
		return Automatic, nil
	case "manual":
		return Manual, nil
	}
	return Automatic, fmt.Errorf("unknown calibration mode %q", s)
}

// Bounds is an inclusive raw-value range for one band
type Bounds struct {
	Min int
	Max int
}

// ManualBounds holds one range per band, indexed by Band
type ManualBounds [BandCount]Bounds

// DefaultBounds returns the default range for every band
func DefaultBounds() ManualBounds {
	var b ManualBounds
	for i := range b {
		b[i] = Bounds{Min: parameter.DefaultBandMin, Max: parameter.DefaultBandMax}
	}
	return b
}

// CalibratorConfig configures a Calibrator
type CalibratorConfig struct {
	Mode         Mode
	WindowLength int
	Bounds       ManualBounds
}

// DefaultCalibratorConfig returns automatic mode with the default window and bounds
func DefaultCalibratorConfig() CalibratorConfig {
	return CalibratorConfig{
		Mode:         Automatic,
		WindowLength: parameter.DefaultWindowLength,
		Bounds:       DefaultBounds(),
	}
}

// BandStats summarises one band over the calibration window
// Weighted scales each value by an integer-truncated signal quality factor,
// so it only accumulates records received with a perfect signal
type BandStats struct {
	Count    int
	Min      int
	Max      int
	Weighted int
}

// Calibrator normalises raw band values into [0,1]
// Safe for concurrent use: the session feeds records while UI code evaluates ratios
type Calibrator struct {
	mu     sync.RWMutex
	mode   Mode
	bounds ManualBounds

	// Ring buffer of the most recent records; head is the oldest
	window []Record
	head   int
	count  int
}

// NewCalibrator creates an empty calibrator
// A negative window length is treated as zero, which retains no records
func NewCalibrator(cfg CalibratorConfig) *Calibrator {
	capacity := cfg.WindowLength
	if capacity < 0 {
		capacity = 0
	}
	return &Calibrator{
		mode:   cfg.Mode,
		bounds: cfg.Bounds,
		window: make([]Record, capacity),
	}
}

// RecordUpdate appends a record, evicting the oldest when the window is full
func (c *Calibrator) RecordUpdate(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	capacity := len(c.window)
	if capacity == 0 {
		return
	}

	if c.count == capacity {
		c.window[c.head] = r
		c.head = (c.head + 1) % capacity
		return
	}
	c.window[(c.head+c.count)%capacity] = r
	c.count++
}

// Listener returns a listener that feeds every dispatched record into the window
func (c *Calibrator) Listener() Listener {
	return Listener{OnRecord: c.RecordUpdate}
}

// EvaluateRatio maps a raw band value into [0,1] using the current mode
// Returns 0 when the range is degenerate (max == min) or the band is unknown
func (c *Calibrator) EvaluateRatio(b Band, value float64) float64 {
	if !b.Valid() {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var lo, hi int
	switch c.mode {
	case Manual:
		lo, hi = c.bounds[b].Min, c.bounds[b].Max
	default:
		st := c.statsLocked(b)
		lo, hi = st.Min, st.Max
	}

	diff := hi - lo
	if diff == 0 {
		return 0
	}
	return clamp01((value - float64(lo)) / float64(diff))
}

// Stats scans the window for band b
// Min and Max are -1 when the window is empty
func (c *Calibrator) Stats(b Band) BandStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsLocked(b)
}

func (c *Calibrator) statsLocked(b Band) BandStats {
	st := BandStats{Min: -1, Max: -1}
	capacity := len(c.window)
	for i := 0; i < c.count; i++ {
		rec := c.window[(c.head+i)%capacity]
		value := rec.EegPower.Value(b)

		// Integer division: any imperfect signal yields a zero weight
		quality := parameter.NoSignalLevel - rec.PoorSignalLevel
		st.Weighted += value * (quality / parameter.NoSignalLevel)

		if st.Min == -1 || value < st.Min {
			st.Min = value
		}
		if st.Max == -1 || value > st.Max {
			st.Max = value
		}
		st.Count++
	}
	return st
}

// Records returns the window contents, oldest first
func (c *Calibrator) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Record, c.count)
	for i := range out {
		out[i] = c.window[(c.head+i)%len(c.window)]
	}
	return out
}

// Len returns the number of records in the window
func (c *Calibrator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Capacity returns the window length
func (c *Calibrator) Capacity() int {
	return len(c.window)
}

// Mode returns the active calibration mode
func (c *Calibrator) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetMode switches the evaluation path; the window is kept
func (c *Calibrator) SetMode(m Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

// Bounds returns the manual range of band b
func (c *Calibrator) Bounds(b Band) Bounds {
	if !b.Valid() {
		return Bounds{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bounds[b]
}

// clamp01 also maps NaN to 0
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
