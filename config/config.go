package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lixenwraith/neurolink/parameter"
)

// DefaultConfigPath is probed by LoadAuto when no explicit path is given
const DefaultConfigPath = "neurolink.toml"

// Config is the complete client configuration, one table per subsystem
// Durations are float seconds on disk; use Seconds to convert
type Config struct {
	Connection  ConnectionConfig  `toml:"connection"`
	Calibration CalibrationConfig `toml:"calibration"`
	Debug       DebugConfig       `toml:"debug"`
	Classifier  ClassifierConfig  `toml:"classifier"`
	Recorder    RecorderConfig    `toml:"recorder"`
	Feedback    FeedbackConfig    `toml:"feedback"`
	Bridge      BridgeConfig      `toml:"bridge"`
}

// ConnectionConfig controls the ThinkGear socket
type ConnectionConfig struct {
	Host             string  `toml:"host"`
	Port             int     `toml:"port"`
	AutoConnect      bool    `toml:"auto_connect"`
	Timeout          float64 `toml:"timeout"`
	ReadInterval     float64 `toml:"read_interval"`
	DialTimeout      float64 `toml:"dial_timeout"`
	ReadTimeout      float64 `toml:"read_timeout"`
	ReassembleFrames bool    `toml:"reassemble_frames"`
}

// CalibrationConfig selects the normalisation mode
// Bounds maps a band key to its [min, max] pair
type CalibrationConfig struct {
	Mode            string           `toml:"mode"`
	MaxWindowLength int              `toml:"max_window_length"`
	Bounds          map[string][]int `toml:"bounds"`
}

type DebugConfig struct {
	ShowDataPackets  bool   `toml:"show_data_packets"`
	ShowStreamErrors bool   `toml:"show_stream_errors"`
	LogFile          string `toml:"log_file"`
}

// ClassifierConfig holds the scaler and the logistic model parameters
// ScalerFile, when set, overrides Means and Stds
type ClassifierConfig struct {
	Enabled       bool      `toml:"enabled"`
	ScalerFile    string    `toml:"scaler_file"`
	Means         []float64 `toml:"means"`
	Stds          []float64 `toml:"stds"`
	Weights       []float64 `toml:"weights"`
	Bias          float64   `toml:"bias"`
	FearThreshold float64   `toml:"fear_threshold"`
	CalmThreshold float64   `toml:"calm_threshold"`
}

type RecorderConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type FeedbackConfig struct {
	Enabled bool    `toml:"enabled"`
	Volume  float64 `toml:"volume"`
}

type BridgeConfig struct {
	Enabled          bool    `toml:"enabled"`
	Address          string  `toml:"address"`
	SnapshotInterval float64 `toml:"snapshot_interval"`
}

// Default returns the production configuration
func Default() *Config {
	bounds := make(map[string][]int, len(parameter.BandKeys))
	for _, key := range parameter.BandKeys {
		bounds[key] = []int{parameter.DefaultBandMin, parameter.DefaultBandMax}
	}

	return &Config{
		Connection: ConnectionConfig{
			Host:         parameter.DefaultHost,
			Port:         parameter.DefaultPort,
			AutoConnect:  true, // Headless runs have no other connect trigger
			Timeout:      parameter.DefaultConnectionTimeout.Seconds(),
			ReadInterval: parameter.DefaultReadInterval.Seconds(),
			DialTimeout:  parameter.DefaultDialTimeout.Seconds(),
		},
		Calibration: CalibrationConfig{
			Mode:            "automatic",
			MaxWindowLength: parameter.DefaultWindowLength,
			Bounds:          bounds,
		},
		Classifier: ClassifierConfig{
			Enabled:       true,
			Means:         slices.Clone(parameter.DefaultScalerMeans[:]),
			Stds:          slices.Clone(parameter.DefaultScalerStds[:]),
			Weights:       slices.Clone(parameter.DefaultWeights[:]),
			Bias:          parameter.DefaultBias,
			FearThreshold: parameter.FearThreshold,
			CalmThreshold: parameter.CalmThreshold,
		},
		Recorder: RecorderConfig{
			Dir: ".",
		},
		Feedback: FeedbackConfig{
			Enabled: true,
			Volume:  0.5,
		},
		Bridge: BridgeConfig{
			Address:          parameter.DefaultBridgeAddress,
			SnapshotInterval: parameter.DefaultSnapshotSeconds,
		},
	}
}

// Load decodes path over the defaults and validates the result
// Keys the decoder does not recognise are rejected
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: %s: unknown keys %v", path, undecoded)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadAuto loads with priority: customPath > DefaultConfigPath > defaults
func LoadAuto(customPath string) (*Config, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return nil, fmt.Errorf("config file not found: %s", customPath)
		}
		return Load(customPath)
	}

	if fileExists(DefaultConfigPath) {
		return Load(DefaultConfigPath)
	}

	return Default(), nil
}

// Validate checks every range and returns all violations joined
func (c *Config) Validate() error {
	var errs []error
	bad := func(key string, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
	}

	conn := c.Connection
	if conn.Host == "" {
		bad("connection.host", "must not be empty")
	}
	if conn.Port < 1 || conn.Port > 65535 {
		bad("connection.port", "%d out of range 1-65535", conn.Port)
	}
	if conn.Timeout < 0 || conn.Timeout > parameter.MaxConnectionTimeout.Seconds() {
		bad("connection.timeout", "%g out of range 0-%g", conn.Timeout, parameter.MaxConnectionTimeout.Seconds())
	}
	if conn.ReadInterval < 0 || conn.ReadInterval > parameter.MaxReadInterval.Seconds() {
		bad("connection.read_interval", "%g out of range 0-%g", conn.ReadInterval, parameter.MaxReadInterval.Seconds())
	}
	if conn.DialTimeout < 0 {
		bad("connection.dial_timeout", "must not be negative")
	}
	if conn.ReadTimeout < 0 {
		bad("connection.read_timeout", "must not be negative")
	}

	cal := c.Calibration
	if cal.Mode != "automatic" && cal.Mode != "manual" {
		bad("calibration.mode", "%q is neither automatic nor manual", cal.Mode)
	}
	if cal.MaxWindowLength < 0 || cal.MaxWindowLength > parameter.MaxWindowLength {
		bad("calibration.max_window_length", "%d out of range 0-%d", cal.MaxWindowLength, parameter.MaxWindowLength)
	}
	for key, pair := range cal.Bounds {
		name := "calibration.bounds." + key
		if !isBandKey(key) {
			bad(name, "unknown band")
			continue
		}
		if len(pair) != 2 {
			bad(name, "want [min, max], got %d values", len(pair))
			continue
		}
		lo, hi := pair[0], pair[1]
		if lo < 0 || lo > parameter.MaxBandBound || hi < 0 || hi > parameter.MaxBandBound {
			bad(name, "[%d, %d] out of range 0-%d", lo, hi, parameter.MaxBandBound)
		} else if lo > hi {
			bad(name, "min %d above max %d", lo, hi)
		}
	}

	cls := c.Classifier
	for key, v := range map[string][]float64{
		"classifier.means":   cls.Means,
		"classifier.stds":    cls.Stds,
		"classifier.weights": cls.Weights,
	} {
		if len(v) != parameter.FeatureCount {
			bad(key, "want %d values, got %d", parameter.FeatureCount, len(v))
		}
	}
	if cls.CalmThreshold < 0 || cls.FearThreshold > 1 || cls.CalmThreshold > cls.FearThreshold {
		bad("classifier", "thresholds must satisfy 0 <= calm (%g) <= fear (%g) <= 1", cls.CalmThreshold, cls.FearThreshold)
	}

	if c.Recorder.Enabled && c.Recorder.Dir == "" {
		bad("recorder.dir", "must not be empty")
	}
	if c.Feedback.Volume < 0 || c.Feedback.Volume > 1 {
		bad("feedback.volume", "%g out of range 0-1", c.Feedback.Volume)
	}
	if c.Bridge.Enabled && c.Bridge.Address == "" {
		bad("bridge.address", "must not be empty")
	}
	if c.Bridge.SnapshotInterval <= 0 {
		bad("bridge.snapshot_interval", "must be positive")
	}

	return errors.Join(errs...)
}

// Seconds converts a float seconds setting to a duration
func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Bound returns the configured [min, max] of a band key, falling back to the defaults
func (c CalibrationConfig) Bound(key string) (int, int) {
	if pair, ok := c.Bounds[key]; ok && len(pair) == 2 {
		return pair[0], pair[1]
	}
	return parameter.DefaultBandMin, parameter.DefaultBandMax
}

func isBandKey(key string) bool {
	return slices.Contains(parameter.BandKeys[:], key)
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
