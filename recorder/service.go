package recorder

import (
	"fmt"
	"log"

	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/mindwave"
)

// Service records the headset stream to CSV while running
type Service struct {
	headset *mindwave.Service
	log     *log.Logger

	enabled bool
	dir     string
	rec     *Recorder
	sub     mindwave.Subscription
}

// NewService creates the recorder service over headset
func NewService(headset *mindwave.Service, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{headset: headset, log: logger}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "recorder"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"mindwave"}
}

// Init implements service.Service
// args[0]: *config.Config
func (s *Service) Init(args ...any) error {
	if len(args) == 0 {
		return fmt.Errorf("recorder: missing *config.Config init arg")
	}
	cfg, ok := args[0].(*config.Config)
	if !ok || cfg == nil {
		return fmt.Errorf("recorder: init arg is %T, want *config.Config", args[0])
	}
	s.enabled = cfg.Recorder.Enabled
	s.dir = cfg.Recorder.Dir
	return nil
}

// Start implements service.Service
// Opens a new session file; each Start gets its own file
func (s *Service) Start() error {
	if !s.enabled || s.rec != nil {
		return nil
	}
	rec, err := Open(s.dir, s.log, s.headset.Metrics())
	if err != nil {
		return err
	}
	s.rec = rec
	s.sub = s.headset.Events().Subscribe(rec.Listener())
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	s.sub.Unsubscribe()
	s.sub = mindwave.Subscription{}
	if s.rec == nil {
		return nil
	}
	err := s.rec.Close()
	s.rec = nil
	return err
}

// Recorder returns the open recorder, nil when disabled or stopped
func (s *Service) Recorder() *Recorder {
	return s.rec
}
