package classifier

import (
	"fmt"
	"log"

	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/status"
)

// Service runs an Assessor against the headset event stream
// Disabled by [classifier] enabled = false; Assessor is then nil
type Service struct {
	headset  *mindwave.Service
	log      *log.Logger
	metrics  *status.Registry
	assessor *Assessor
	sub      mindwave.Subscription
}

// NewService creates the assessor service over headset
func NewService(headset *mindwave.Service, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{headset: headset, log: logger, metrics: headset.Metrics()}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "assessor"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"mindwave"}
}

// Init implements service.Service
// args[0]: *config.Config
func (s *Service) Init(args ...any) error {
	if len(args) == 0 {
		return fmt.Errorf("assessor: missing *config.Config init arg")
	}
	cfg, ok := args[0].(*config.Config)
	if !ok || cfg == nil {
		return fmt.Errorf("assessor: init arg is %T, want *config.Config", args[0])
	}

	cc := cfg.Classifier
	if !cc.Enabled {
		s.assessor = nil
		return nil
	}

	var scaler Standardizer
	var err error
	if cc.ScalerFile != "" {
		scaler, err = LoadStandardizer(cc.ScalerFile)
	} else {
		scaler, err = NewStandardizer(cc.Means, cc.Stds)
	}
	if err != nil {
		return err
	}

	model, err := NewLogistic(cc.Weights, cc.Bias)
	if err != nil {
		return err
	}

	s.assessor = NewAssessor(AssessorConfig{
		Scaler:     scaler,
		Model:      model,
		Thresholds: Thresholds{Fear: cc.FearThreshold, Calm: cc.CalmThreshold},
		Connected: func() bool {
			session := s.headset.Session()
			return session != nil && session.IsConnected()
		},
		Logger:  s.log,
		Metrics: s.metrics,
	})
	s.assessor.OnState(func(st State, score float64) {
		s.log.Printf("classifier: state %s (score %.3f)", st, score)
	})
	return nil
}

// Start implements service.Service
func (s *Service) Start() error {
	if s.assessor == nil {
		return nil
	}
	s.sub.Unsubscribe()
	s.sub = s.headset.Events().Subscribe(s.assessor.Listener())
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	s.sub.Unsubscribe()
	s.sub = mindwave.Subscription{}
	return nil
}

// Assessor returns the running assessor, nil when disabled
func (s *Service) Assessor() *Assessor {
	return s.assessor
}
