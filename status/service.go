package status

// StatusService wraps Registry as a Service
// Registry is stateless at init; the wrapper provides lifecycle conformance
type StatusService struct {
	registry *Registry
}

// NewService creates a status service around reg, or a fresh registry when nil
func NewService(reg *Registry) *StatusService {
	if reg == nil {
		reg = NewRegistry()
	}
	return &StatusService{registry: reg}
}

// Name implements service.Service
func (s *StatusService) Name() string {
	return "status"
}

// Dependencies implements service.Service
func (s *StatusService) Dependencies() []string {
	return nil
}

// Init implements service.Service
func (s *StatusService) Init(args ...any) error {
	return nil
}

// Start implements service.Service
func (s *StatusService) Start() error {
	return nil
}

// Stop implements service.Service
func (s *StatusService) Stop() error {
	return nil
}

// Registry returns the underlying metrics registry
func (s *StatusService) Registry() *Registry {
	return s.registry
}
