package thinkgear

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/lixenwraith/neurolink/mindwave"
)

// SyntheticConfig shapes the generated signal
type SyntheticConfig struct {
	RawRate        int           // Raw EEG samples per second, 0 disables raw output
	RecordInterval time.Duration // Interval between full records
	BlinkChance    float64       // Probability of a blink per record
	PoorSignal     int           // Poor signal level reported in records
	Seed           uint64
}

// DefaultSyntheticConfig mirrors the headset cadence: 512 Hz raw, 1 Hz records
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		RawRate:        512,
		RecordInterval: time.Second,
		BlinkChance:    0.1,
		Seed:           1,
	}
}

// Synthetic produces plausible headset packets
// Not safe for concurrent use
type Synthetic struct {
	cfg   SyntheticConfig
	rng   *rand.Rand
	phase float64
}

// NewSynthetic creates a generator seeded from cfg
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	return &Synthetic{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Raw returns the next raw EEG sample: a 10 Hz alpha-like sine plus noise
func (g *Synthetic) Raw() int {
	rate := g.cfg.RawRate
	if rate <= 0 {
		rate = 512
	}
	g.phase += 2 * math.Pi * 10 / float64(rate)
	if g.phase > 2*math.Pi {
		g.phase -= 2 * math.Pi
	}
	return int(120*math.Sin(g.phase) + g.rng.NormFloat64()*30)
}

// Record returns the next full record with log-normal band powers
func (g *Synthetic) Record() mindwave.Record {
	band := func(scale float64) int {
		return int(scale * math.Exp(g.rng.NormFloat64()*0.6))
	}
	return mindwave.Record{
		ESense: mindwave.ESense{
			Attention:  g.rng.IntN(101),
			Meditation: g.rng.IntN(101),
		},
		EegPower: mindwave.EegPower{
			Delta:     band(600000),
			Theta:     band(150000),
			LowAlpha:  band(38000),
			HighAlpha: band(35000),
			LowBeta:   band(29000),
			HighBeta:  band(23000),
			LowGamma:  band(14000),
			HighGamma: band(8600),
		},
		PoorSignalLevel: g.cfg.PoorSignal,
	}
}

// Blink reports whether a blink accompanies this record and its strength
func (g *Synthetic) Blink() (int, bool) {
	if g.rng.Float64() >= g.cfg.BlinkChance {
		return 0, false
	}
	return 1 + g.rng.IntN(255), true
}

// Run streams generated packets to srv until ctx is done
// Raw samples are batched per 20ms tick to keep writes coarse
func (g *Synthetic) Run(ctx context.Context, srv *Server) error {
	if !srv.IsRunning() {
		return ErrNotRunning
	}

	const tick = 20 * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	perTick := float64(g.cfg.RawRate) * tick.Seconds()
	var rawDebt float64
	nextRecord := time.Now().Add(g.cfg.RecordInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if !srv.IsRunning() {
				return ErrNotRunning
			}
			var packets []string

			rawDebt += perTick
			for ; rawDebt >= 1; rawDebt-- {
				packets = append(packets, RawPacket(g.Raw()))
			}

			if g.cfg.RecordInterval > 0 && !now.Before(nextRecord) {
				nextRecord = nextRecord.Add(g.cfg.RecordInterval)
				packets = append(packets, RecordPacket(g.Record()))
				if strength, ok := g.Blink(); ok {
					packets = append(packets, BlinkPacket(strength))
				}
			}

			if len(packets) > 0 {
				srv.Send(packets...)
			}
		}
	}
}
