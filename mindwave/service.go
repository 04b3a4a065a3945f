package mindwave

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/status"
)

// watchdogTick is how often the service advances the connection watchdog
const watchdogTick = 50 * time.Millisecond

// SessionConfigFrom maps the [connection] and [debug] tables onto session options
func SessionConfigFrom(cfg *config.Config) SessionConfig {
	conn := cfg.Connection
	return SessionConfig{
		Host:             conn.Host,
		Port:             conn.Port,
		Timeout:          config.Seconds(conn.Timeout),
		ReadInterval:     config.Seconds(conn.ReadInterval),
		DialTimeout:      config.Seconds(conn.DialTimeout),
		ReadTimeout:      config.Seconds(conn.ReadTimeout),
		Reassemble:       conn.ReassembleFrames,
		ShowDataPackets:  cfg.Debug.ShowDataPackets,
		ShowStreamErrors: cfg.Debug.ShowStreamErrors,
	}
}

// CalibratorConfigFrom maps the [calibration] table onto calibrator options
// An unrecognised mode falls back to automatic; Validate rejects it earlier
func CalibratorConfigFrom(cfg *config.Config) CalibratorConfig {
	cal := cfg.Calibration
	mode, _ := ParseMode(cal.Mode)

	var bounds ManualBounds
	for _, b := range Bands() {
		lo, hi := cal.Bound(b.String())
		bounds[b] = Bounds{Min: lo, Max: hi}
	}
	return CalibratorConfig{
		Mode:         mode,
		WindowLength: cal.MaxWindowLength,
		Bounds:       bounds,
	}
}

// Service owns the session, its event hub and the calibrator
type Service struct {
	log     *log.Logger
	metrics *status.Registry

	events     *EventHub
	session    *Session
	calibrator *Calibrator
	calSub     Subscription
	auto       bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates the headset service; logger and metrics may be nil
func NewService(logger *log.Logger, metrics *status.Registry) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if metrics == nil {
		metrics = status.NewRegistry()
	}
	return &Service{
		log:     logger,
		metrics: metrics,
		events:  NewEventHub(),
	}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "mindwave"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"status"}
}

// Init implements service.Service
// args[0]: *config.Config
func (s *Service) Init(args ...any) error {
	cfg, err := configArg(args)
	if err != nil {
		return err
	}

	sc := SessionConfigFrom(cfg)
	sc.Logger = s.log
	sc.Metrics = s.metrics

	s.calSub.Unsubscribe()
	s.session = NewSession(sc, s.events)
	s.calibrator = NewCalibrator(CalibratorConfigFrom(cfg))
	s.calSub = s.events.Subscribe(s.calibrator.Listener())
	s.auto = cfg.Connection.AutoConnect
	return nil
}

// Start implements service.Service
// Launches the watchdog and, when configured, connects. A failed
// auto-connect is logged; the host may retry with Connect
func (s *Service) Start() error {
	if s.session == nil {
		return fmt.Errorf("mindwave: service not initialized")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.session.RunWatchdog(ctx, watchdogTick)
	}()

	if s.auto {
		if err := s.Connect(ctx); err != nil {
			s.log.Printf("mindwave: auto-connect: %v", err)
		}
	}
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if s.session != nil {
		s.session.Disconnect()
		s.session.Wait()
	}
	return nil
}

// Connect dials the headset using the configured dial timeout
func (s *Service) Connect(ctx context.Context) error {
	return s.session.Connect(ctx)
}

// Disconnect closes the headset connection
func (s *Service) Disconnect() {
	s.session.Disconnect()
}

// ToggleMode flips the calibration mode and returns the new one
func (s *Service) ToggleMode() Mode {
	next := Manual
	if s.calibrator.Mode() == Manual {
		next = Automatic
	}
	s.SetMode(next)
	return next
}

// SetMode sets the calibration mode
func (s *Service) SetMode(m Mode) {
	s.calibrator.SetMode(m)
	s.log.Printf("mindwave: calibration mode %s", m)
}

// Mode returns the calibration mode
func (s *Service) Mode() Mode {
	return s.calibrator.Mode()
}

// State returns the session lifecycle state
func (s *Service) State() State {
	return s.session.State()
}

// Session returns the headset session, nil before Init
func (s *Service) Session() *Session {
	return s.session
}

// Calibrator returns the band calibrator, nil before Init
func (s *Service) Calibrator() *Calibrator {
	return s.calibrator
}

// Events returns the hub every consumer subscribes to
func (s *Service) Events() *EventHub {
	return s.events
}

// Metrics returns the registry the session publishes to
func (s *Service) Metrics() *status.Registry {
	return s.metrics
}

func configArg(args []any) (*config.Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("mindwave: missing *config.Config init arg")
	}
	cfg, ok := args[0].(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("mindwave: init arg is %T, want *config.Config", args[0])
	}
	return cfg, nil
}
