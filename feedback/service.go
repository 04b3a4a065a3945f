package feedback

import (
	"fmt"
	"log"

	"github.com/lixenwraith/neurolink/classifier"
	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/mindwave"
)

// Service plays cues for headset and assessor events
// Audio failures disable the service instead of failing startup
type Service struct {
	headset  *mindwave.Service
	assessor *classifier.Service
	log      *log.Logger
	out      Output

	enabled bool
	volume  float64
	player  *Player
	sub     mindwave.Subscription
}

// NewService creates the feedback service; assessor may be nil
// A nil out selects the system speaker
func NewService(headset *mindwave.Service, assessor *classifier.Service, out Output, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{headset: headset, assessor: assessor, out: out, log: logger}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "feedback"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	if s.assessor != nil {
		return []string{"mindwave", "assessor"}
	}
	return []string{"mindwave"}
}

// Init implements service.Service
// args[0]: *config.Config
// args[1]: bool - mute override (true = muted)
func (s *Service) Init(args ...any) error {
	if len(args) == 0 {
		return fmt.Errorf("feedback: missing *config.Config init arg")
	}
	cfg, ok := args[0].(*config.Config)
	if !ok || cfg == nil {
		return fmt.Errorf("feedback: init arg is %T, want *config.Config", args[0])
	}
	s.enabled = cfg.Feedback.Enabled
	s.volume = cfg.Feedback.Volume
	if len(args) > 1 {
		if muted, ok := args[1].(bool); ok && muted {
			s.enabled = false
		}
	}
	return nil
}

// Start implements service.Service
func (s *Service) Start() error {
	if !s.enabled || s.player != nil {
		return nil
	}

	out := s.out
	if out == nil {
		spk := &SpeakerOutput{}
		if err := spk.Open(); err != nil {
			s.log.Printf("feedback: audio unavailable, cues disabled: %v", err)
			s.enabled = false
			return nil
		}
		s.out = spk
		out = spk
	}

	s.player = NewPlayer(out, s.volume)
	s.sub = s.headset.Events().Subscribe(s.player.Listener())
	if s.assessor != nil && s.assessor.Assessor() != nil {
		s.assessor.Assessor().OnState(s.player.OnState)
	}
	return nil
}

// Stop implements service.Service
// The assessor keeps its state handler; a stopped player is muted instead
func (s *Service) Stop() error {
	s.sub.Unsubscribe()
	s.sub = mindwave.Subscription{}
	if s.player != nil {
		s.player.SetMuted(true)
		s.player = nil
	}
	if spk, ok := s.out.(*SpeakerOutput); ok {
		spk.Clear()
	}
	return nil
}

// Player returns the active player, nil when disabled
func (s *Service) Player() *Player {
	return s.player
}
