package classifier

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/parameter"
	"github.com/lixenwraith/neurolink/status"
)

// State is the assessed emotional state
type State uint8

const (
	Neutral State = iota
	Calm
	Fear
)

func (s State) String() string {
	switch s {
	case Calm:
		return "calm"
	case Fear:
		return "fear"
	default:
		return "neutral"
	}
}

// Thresholds map a score to a State: above Fear is fear, below Calm is calm
type Thresholds struct {
	Fear float64
	Calm float64
}

// DefaultThresholds returns fear > 0.5, calm < 0.25
func DefaultThresholds() Thresholds {
	return Thresholds{Fear: parameter.FearThreshold, Calm: parameter.CalmThreshold}
}

// Classify maps score onto a State
func (t Thresholds) Classify(score float64) State {
	switch {
	case score > t.Fear:
		return Fear
	case score < t.Calm:
		return Calm
	default:
		return Neutral
	}
}

// AssessorConfig wires an Assessor
type AssessorConfig struct {
	Scaler     Standardizer
	Model      Model
	Thresholds Thresholds

	// Connected gates inference; nil always runs
	Connected func() bool

	Logger  *log.Logger
	Metrics *status.Registry
}

// Assessor runs inference on every record received while connected
// Raw EEG and blink events update the latest samples fed as features
type Assessor struct {
	cfg AssessorConfig
	log *log.Logger

	rawEEG atomic.Int64
	blink  atomic.Int64

	mu      sync.Mutex
	state   State
	score   float64
	scored  bool
	onState []func(State, float64)

	statScore *status.AtomicFloat
	statState *status.AtomicString
	statRuns  *atomic.Int64
}

// NewAssessor creates an assessor in the Neutral state
func NewAssessor(cfg AssessorConfig) *Assessor {
	if cfg.Model == nil {
		cfg.Model = DefaultLogistic()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = status.NewRegistry()
	}

	a := &Assessor{
		cfg:       cfg,
		log:       logger,
		statScore: reg.Floats.Get(status.KeyScore),
		statState: reg.Strings.Get(status.KeyState),
		statRuns:  reg.Ints.Get(status.KeyRuns),
	}
	a.statState.Store(Neutral.String())
	return a
}

// Listener returns the hub subscription feeding this assessor
func (a *Assessor) Listener() mindwave.Listener {
	return mindwave.Listener{
		OnRecord: a.Assess,
		OnRawEEG: func(v int) { a.rawEEG.Store(int64(v)) },
		OnBlink:  func(v int) { a.blink.Store(int64(v)) },
	}
}

// OnState registers fn for state changes; fn runs on the inference goroutine
func (a *Assessor) OnState(fn func(State, float64)) {
	a.mu.Lock()
	a.onState = append(a.onState, fn)
	a.mu.Unlock()
}

// Assess scores r with the latest raw EEG and blink samples
func (a *Assessor) Assess(r mindwave.Record) {
	if a.cfg.Connected != nil && !a.cfg.Connected() {
		return
	}

	x := Features(r, int(a.rawEEG.Load()), int(a.blink.Load()))
	score, err := a.cfg.Model.Predict(a.cfg.Scaler.Apply(x))
	if err != nil {
		a.log.Printf("classifier: %v", err)
		return
	}
	a.statRuns.Add(1)
	a.statScore.Store(score)

	next := a.cfg.Thresholds.Classify(score)

	a.mu.Lock()
	a.score = score
	a.scored = true
	changed := next != a.state
	a.state = next
	handlers := a.onState
	a.mu.Unlock()

	if !changed {
		return
	}
	a.statState.Store(next.String())
	for _, fn := range handlers {
		fn(next, score)
	}
}

// State returns the current state and the score that produced it
// ok is false until the first inference
func (a *Assessor) State() (state State, score float64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.score, a.scored
}

// Latest returns the raw EEG and blink values used as features
func (a *Assessor) Latest() (rawEEG, blink int) {
	return int(a.rawEEG.Load()), int(a.blink.Load())
}
