package parameter

// Feature standardisation fitted on recorded play sessions
// Order: 8 bands, attention, meditation, raw EEG, blink strength
var (
	DefaultScalerMeans = [FeatureCount]float64{
		606613.29, 156660.35, 37944.38, 35300.97,
		29381.38, 23087.31, 13879.81, 8614.79,
		46.53, 54.74, 40.52, 53.71,
	}

	DefaultScalerStds = [FeatureCount]float64{
		689843.11, 252119.97, 75617.15, 82538.61,
		52459.55, 37342.76, 21381.26, 13010.53,
		23.45, 17.70, 218.40, 20.52,
	}
)

// Reference logistic model over standardised features
// Beta/gamma activity and attention raise the score, alpha and meditation lower it
var (
	DefaultWeights = [FeatureCount]float64{
		0.12, 0.18, -0.35, -0.30,
		0.42, 0.55, 0.38, 0.31,
		0.64, -0.82, 0.05, 0.27,
	}

	DefaultBias = -0.6
)

// Recorder
const (
	// RecorderFilePrefix and RecorderFileExt form mindwave_session{N}.csv
	RecorderFilePrefix = "mindwave_session"
	RecorderFileExt    = ".csv"
)

// Bridge
const (
	// DefaultBridgeAddress is the websocket feed listen address
	DefaultBridgeAddress = "127.0.0.1:8765"

	// DefaultSnapshotSeconds is the snapshot push period
	DefaultSnapshotSeconds = 0.2
)
