package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/parameter"
)

// Vector is one classifier input in training order:
// 8 bands, attention, meditation, latest raw EEG, latest blink strength
type Vector [parameter.FeatureCount]float64

// Features builds the input vector for a record and the latest samples
func Features(r mindwave.Record, rawEEG, blink int) Vector {
	var v Vector
	for i, p := range r.EegPower.Values() {
		v[i] = float64(p)
	}
	v[8] = float64(r.ESense.Attention)
	v[9] = float64(r.ESense.Meditation)
	v[10] = float64(rawEEG)
	v[11] = float64(blink)
	return v
}

// Standardizer applies (x - mean) / std per feature
type Standardizer struct {
	Means Vector
	Stds  Vector
}

// DefaultStandardizer returns the bundled scaler parameters
func DefaultStandardizer() Standardizer {
	return Standardizer{
		Means: parameter.DefaultScalerMeans,
		Stds:  parameter.DefaultScalerStds,
	}
}

// NewStandardizer builds a scaler from slices of FeatureCount values
func NewStandardizer(means, stds []float64) (Standardizer, error) {
	var s Standardizer
	if len(means) != parameter.FeatureCount || len(stds) != parameter.FeatureCount {
		return s, fmt.Errorf("classifier: scaler wants %d means and stds, got %d and %d",
			parameter.FeatureCount, len(means), len(stds))
	}
	copy(s.Means[:], means)
	copy(s.Stds[:], stds)
	return s, nil
}

// LoadStandardizer reads scaler_params.json: {"means":[...],"stds":[...]}
func LoadStandardizer(path string) (Standardizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Standardizer{}, fmt.Errorf("classifier: %w", err)
	}

	var raw struct {
		Means []float64 `json:"means"`
		Stds  []float64 `json:"stds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Standardizer{}, fmt.Errorf("classifier: %s: %w", path, err)
	}
	return NewStandardizer(raw.Means, raw.Stds)
}

// Apply standardises v; a zero std maps its feature to 0
func (s Standardizer) Apply(v Vector) Vector {
	var out Vector
	for i := range v {
		if s.Stds[i] == 0 {
			continue
		}
		out[i] = (v[i] - s.Means[i]) / s.Stds[i]
	}
	return out
}
