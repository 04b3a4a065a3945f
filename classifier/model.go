package classifier

import (
	"fmt"
	"math"

	"github.com/lixenwraith/neurolink/parameter"
)

// Model scores a standardised vector; 0 is calm, 1 is fear
// Implementations must be safe for concurrent use
type Model interface {
	Predict(x Vector) (float64, error)
}

// Logistic is a linear model squashed through the logistic function
type Logistic struct {
	Weights Vector
	Bias    float64
}

// DefaultLogistic returns the bundled reference model
func DefaultLogistic() Logistic {
	return Logistic{Weights: parameter.DefaultWeights, Bias: parameter.DefaultBias}
}

// NewLogistic builds a model from FeatureCount weights
func NewLogistic(weights []float64, bias float64) (Logistic, error) {
	var m Logistic
	if len(weights) != parameter.FeatureCount {
		return m, fmt.Errorf("classifier: model wants %d weights, got %d", parameter.FeatureCount, len(weights))
	}
	copy(m.Weights[:], weights)
	m.Bias = bias
	return m, nil
}

// Predict implements Model
func (m Logistic) Predict(x Vector) (float64, error) {
	z := m.Bias
	for i, w := range m.Weights {
		z += w * x[i]
	}
	if math.IsNaN(z) {
		return 0, fmt.Errorf("classifier: non-finite input")
	}
	return 1 / (1 + math.Exp(-z)), nil
}
