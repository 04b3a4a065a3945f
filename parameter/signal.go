package parameter

// Signal Scales
const (
	// SenseMax is the upper bound of attention and meditation eSense values
	SenseMax = 100

	// BlinkMax is the reference blink strength used for blink ratios
	BlinkMax = 200

	// NoSignalLevel is the poor signal level reported when the headset has no contact
	NoSignalLevel = 200
)

// Calibration Window
const (
	// DefaultWindowLength is the number of records kept by automatic calibration
	DefaultWindowLength = 100

	// MaxWindowLength is the upper bound accepted from configuration
	MaxWindowLength = 1000
)

// Manual Calibration Bounds
const (
	// DefaultBandMin is the default lower bound of each band
	DefaultBandMin = 0

	// DefaultBandMax is the default upper bound of each band
	DefaultBandMax = 2000000

	// MaxBandBound is the largest bound accepted from configuration
	MaxBandBound = 3000000
)

// Classifier Thresholds
const (
	// FearThreshold marks a prediction strictly above it as fear
	FearThreshold = 0.5

	// CalmThreshold marks a prediction strictly below it as calm
	CalmThreshold = 0.25
)

// FeatureCount is the length of the classifier input vector
const FeatureCount = 12

// BandKeys are the JSON keys of the eight EEG power bands in wire order
var BandKeys = [8]string{
	"delta",
	"theta",
	"lowAlpha",
	"highAlpha",
	"lowBeta",
	"highBeta",
	"lowGamma",
	"highGamma",
}
