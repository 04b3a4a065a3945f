package status

import "sync/atomic"

// Metric keys published by the mindwave session
const (
	KeyConnected   = "mindwave.connected"
	KeyPending     = "mindwave.pending"
	KeyRecords     = "mindwave.records"
	KeyRawSamples  = "mindwave.raw_samples"
	KeyBlinks      = "mindwave.blinks"
	KeyParseErrors = "mindwave.parse_errors"
	KeyReadErrors  = "mindwave.read_errors"
	KeyTimeouts    = "mindwave.timeouts"
	KeyPoorSignal  = "mindwave.poor_signal"
	KeyStatus      = "mindwave.status"
)

// Metric keys published by the other services
const (
	KeyScore         = "classifier.score"
	KeyState         = "classifier.state"
	KeyRuns          = "classifier.runs"
	KeyRows          = "recorder.rows"
	KeyRecorderFile  = "recorder.file"
	KeyBridgeClients = "bridge.clients"
)

// Registry is the central metrics facade
// Producers cache pointers at construction and write atomics directly
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Snapshot copies metrics into a plain map keyed by metric name
// With no prefixes every metric is copied; otherwise only the key families
// named, e.g. Snapshot("mindwave.") for the session counters
func (r *Registry) Snapshot(prefixes ...string) map[string]any {
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	out := make(map[string]any)
	for _, p := range prefixes {
		r.Bools.RangePrefix(p, func(k string, v *atomic.Bool) { out[k] = v.Load() })
		r.Ints.RangePrefix(p, func(k string, v *atomic.Int64) { out[k] = v.Load() })
		r.Floats.RangePrefix(p, func(k string, v *AtomicFloat) { out[k] = v.Load() })
		r.Strings.RangePrefix(p, func(k string, v *AtomicString) { out[k] = v.Load() })
	}
	return out
}
