package service

// Service is the lifecycle contract of a long-lived subsystem: the headset
// session, the recorder, the audio cues, the websocket bridge
//
// Lifecycle:
//  1. Construction (via NewService of the owning package)
//  2. Init(args...) - configuration, usually the loaded *config.Config
//  3. Start() - open sockets, files or devices and launch goroutines
//  4. [runtime operation]
//  5. Stop() - halt goroutines, release resources
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must Init before this one
	Dependencies() []string

	// Init configures the service; every service receives the same args
	Init(args ...any) error

	// Start is called after all services have initialized
	Start() error

	// Stop must be idempotent
	Stop() error
}
