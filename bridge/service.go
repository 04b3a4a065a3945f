package bridge

import (
	"fmt"
	"log"

	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/mindwave"
)

// Service runs the websocket bridge when [bridge] enabled = true
type Service struct {
	headset *mindwave.Service
	log     *log.Logger

	cfg    Config
	on     bool
	server *Server
	sub    mindwave.Subscription
}

// NewService creates the bridge service over headset
func NewService(headset *mindwave.Service, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{headset: headset, log: logger}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "bridge"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"mindwave"}
}

// Init implements service.Service
// args[0]: *config.Config
func (s *Service) Init(args ...any) error {
	if len(args) == 0 {
		return fmt.Errorf("bridge: missing *config.Config init arg")
	}
	cfg, ok := args[0].(*config.Config)
	if !ok || cfg == nil {
		return fmt.Errorf("bridge: init arg is %T, want *config.Config", args[0])
	}
	s.on = cfg.Bridge.Enabled
	s.cfg = Config{
		Address:          cfg.Bridge.Address,
		SnapshotInterval: config.Seconds(cfg.Bridge.SnapshotInterval),
		Logger:           s.log,
		Metrics:          s.headset.Metrics(),
	}
	return nil
}

// Start implements service.Service
func (s *Service) Start() error {
	if !s.on || s.server != nil {
		return nil
	}
	srv := NewServer(s.cfg, s.headset)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	s.server = srv
	s.sub = s.headset.Events().Subscribe(srv.Listener())
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	s.sub.Unsubscribe()
	s.sub = mindwave.Subscription{}
	if s.server == nil {
		return nil
	}
	err := s.server.Stop()
	s.server = nil
	return err
}

// Server returns the running bridge, nil when disabled or stopped
func (s *Service) Server() *Server {
	return s.server
}
