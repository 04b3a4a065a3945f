package mindwave

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/neurolink/parameter"
	"github.com/lixenwraith/neurolink/status"
)

// ErrConnectAborted is returned by Connect when Disconnect runs while the
// dial or handshake is in flight
var ErrConnectAborted = errors.New("mindwave: connect aborted by disconnect")

// State is the observable connection lifecycle
type State uint8

const (
	StateDisconnected State = iota
	StatePendingConnection
	StateConnected
)

func (s State) String() string {
	switch s {
	case StatePendingConnection:
		return "pending"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// SessionConfig holds connection and diagnostics settings
type SessionConfig struct {
	Host string
	Port int

	// Timing
	Timeout      time.Duration // Pending window before the watchdog fires
	ReadInterval time.Duration // Delay between read cycles
	DialTimeout  time.Duration // 0 = no dial timeout
	ReadTimeout  time.Duration // Socket read deadline per cycle, 0 = none

	// Reassemble holds partial packets across reads instead of dropping them
	Reassemble bool

	// Diagnostics
	ShowDataPackets  bool // Log every raw read batch
	ShowStreamErrors bool // Log parse and stream I/O errors
	Logger           *log.Logger
	Metrics          *status.Registry
}

// DefaultSessionConfig returns the ThinkGear Connector defaults
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Host:         parameter.DefaultHost,
		Port:         parameter.DefaultPort,
		Timeout:      parameter.DefaultConnectionTimeout,
		ReadInterval: parameter.DefaultReadInterval,
		DialTimeout:  parameter.DefaultDialTimeout,
	}
}

// Address returns host:port
func (c SessionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// readTask is the cancellation handle of one scheduled read cycle
type readTask struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newReadTask() *readTask {
	return &readTask{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (t *readTask) cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *readTask) cancelled() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// Session is a ThinkGear JSON stream client
//
// Lifecycle: Connect dials, sends the handshake and schedules the read cycle;
// Disconnect cancels it and closes the socket. The host drives the connection
// watchdog by calling Update with the elapsed frame time
//
// Every event is queued under the session lock together with the state
// change that caused it, so subscribers see edges in state order whichever
// goroutine raised them. No lock is held while handlers run
type Session struct {
	cfg    SessionConfig
	events *EventHub
	log    *log.Logger
	dial   func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error)

	// connectMu serialises Connect so two callers cannot dial concurrently
	connectMu sync.Mutex

	mu         sync.Mutex
	conn       net.Conn
	task       *readTask // Non-nil while a read cycle is scheduled
	lastDone   chan struct{}
	connected  bool
	pending    bool
	elapsed    time.Duration
	gen        uint64             // Bumped by every Disconnect
	dialCancel context.CancelFunc // Non-nil while Connect is dialing

	// Cached metric pointers
	statConnected  *atomic.Bool
	statPending    *atomic.Bool
	statRecords    *atomic.Int64
	statRawSamples *atomic.Int64
	statBlinks     *atomic.Int64
	statParseErrs  *atomic.Int64
	statReadErrs   *atomic.Int64
	statTimeouts   *atomic.Int64
	statPoorSignal *atomic.Int64
	statStatus     *status.AtomicString
}

// NewSession creates a disconnected session publishing to events
// A nil hub gets a fresh one, reachable through Events
func NewSession(cfg SessionConfig, events *EventHub) *Session {
	if events == nil {
		events = NewEventHub()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = status.NewRegistry()
	}

	return &Session{
		cfg:            cfg,
		events:         events,
		log:            logger,
		dial:           dial,
		statConnected:  reg.Bools.Get(status.KeyConnected),
		statPending:    reg.Bools.Get(status.KeyPending),
		statRecords:    reg.Ints.Get(status.KeyRecords),
		statRawSamples: reg.Ints.Get(status.KeyRawSamples),
		statBlinks:     reg.Ints.Get(status.KeyBlinks),
		statParseErrs:  reg.Ints.Get(status.KeyParseErrors),
		statReadErrs:   reg.Ints.Get(status.KeyReadErrors),
		statTimeouts:   reg.Ints.Get(status.KeyTimeouts),
		statPoorSignal: reg.Ints.Get(status.KeyPoorSignal),
		statStatus:     reg.Strings.Get(status.KeyStatus),
	}
}

// Events returns the hub this session publishes to
func (s *Session) Events() *EventHub {
	return s.events
}

// Config returns the session configuration
func (s *Session) Config() SessionConfig {
	return s.cfg
}

// Connect dials the configured endpoint and starts the read cycle
// No-op while a read cycle is already scheduled. Dial and handshake errors
// are returned to the caller; nothing is retried. A Disconnect while the
// dial is in flight cancels it and Connect returns ErrConnectAborted
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.task != nil {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	s.dialCancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.dialCancel = nil
		s.mu.Unlock()
	}()

	addr := s.cfg.Address()
	conn, err := s.dial(ctx, addr, s.cfg.DialTimeout)
	if err != nil {
		if s.aborted(gen) {
			return ErrConnectAborted
		}
		return fmt.Errorf("mindwave: dial %s: %w", addr, err)
	}
	if s.aborted(gen) {
		conn.Close()
		return ErrConnectAborted
	}

	if _, err := conn.Write([]byte(parameter.Handshake)); err != nil {
		conn.Close()
		if s.aborted(gen) {
			return ErrConnectAborted
		}
		return fmt.Errorf("mindwave: handshake: %w", err)
	}

	task := newReadTask()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		conn.Close()
		return ErrConnectAborted
	}
	s.conn = conn
	s.task = task
	s.lastDone = task.done
	s.setPendingLocked(true)
	s.mu.Unlock()

	go s.run(task, conn)
	return nil
}

func (s *Session) aborted(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

// Disconnect cancels the read cycle or an in-flight dial, clears the
// connection flags and closes the socket. Idempotent
func (s *Session) Disconnect() {
	s.mu.Lock()
	task, conn := s.disconnectLocked()
	s.mu.Unlock()

	s.release(task, conn)
	s.events.flush()
}

// disconnectLocked detaches the read task and queues the disconnect edge
// The caller releases the returned task and socket after unlocking
func (s *Session) disconnectLocked() (*readTask, net.Conn) {
	task, conn := s.task, s.conn
	s.task, s.conn = nil, nil
	s.gen++
	if s.dialCancel != nil {
		s.dialCancel()
	}
	s.setPendingLocked(false)
	if s.setConnectedLocked(false) {
		s.events.post(event{kind: eventDisconnect})
	}
	return task, conn
}

func (s *Session) release(task *readTask, conn net.Conn) {
	if task != nil {
		task.cancel()
	}
	if conn != nil {
		// Unblocks a read in flight
		conn.Close()
	}
}

// Wait blocks until the most recent read cycle has exited
// Must not be called from an event handler
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.lastDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Update advances the connection watchdog by dt
// While pending, once the accumulated time reaches the timeout the session
// raises a timeout event and disconnects
func (s *Session) Update(dt time.Duration) {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	s.elapsed += dt
	if s.elapsed < s.cfg.Timeout {
		s.mu.Unlock()
		return
	}
	s.setPendingLocked(false)
	s.statTimeouts.Add(1)
	s.events.post(event{kind: eventTimeout})
	task, conn := s.disconnectLocked()
	s.mu.Unlock()

	s.release(task, conn)
	s.events.flush()
}

// RunWatchdog calls Update on every tick until ctx is done
// For hosts without a frame loop of their own
func (s *Session) RunWatchdog(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Update(now.Sub(last))
			last = now
		}
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.pending:
		return StatePendingConnection
	case s.connected:
		return StateConnected
	default:
		return StateDisconnected
	}
}

// IsConnecting reports whether the session awaits its first valid record
func (s *Session) IsConnecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// IsConnected reports whether the headset is delivering a usable signal
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// IsRunning reports whether a read cycle is scheduled
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task != nil
}

// TimeoutElapsed returns the time accumulated while pending
func (s *Session) TimeoutElapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// TimeoutDelay returns the configured pending window
func (s *Session) TimeoutDelay() time.Duration {
	return s.cfg.Timeout
}

// setPendingLocked resets the watchdog on the false->true edge
func (s *Session) setPendingLocked(v bool) {
	if s.pending == v {
		return
	}
	s.pending = v
	s.statPending.Store(v)
	if v {
		s.elapsed = 0
	}
}

// setConnectedLocked returns true when the flag changed
func (s *Session) setConnectedLocked(v bool) bool {
	if s.connected == v {
		return false
	}
	s.connected = v
	s.statConnected.Store(v)
	return true
}

// run is the read task: one cycle, then re-arm the interval timer
func (s *Session) run(task *readTask, conn net.Conn) {
	defer close(task.done)

	buf := make([]byte, parameter.ReadBufferLength)
	var frames *FrameBuffer
	if s.cfg.Reassemble {
		frames = &FrameBuffer{}
	}

	timer := time.NewTimer(s.cfg.ReadInterval)
	timer.Stop()
	defer timer.Stop()

	for {
		s.cycle(task, conn, buf, frames)
		if task.cancelled() {
			return
		}

		timer.Reset(s.cfg.ReadInterval)
		select {
		case <-task.stop:
			return
		case <-timer.C:
		}
	}
}

// cycle performs one bounded read and dispatches every packet in it
func (s *Session) cycle(task *readTask, conn net.Conn, buf []byte, frames *FrameBuffer) {
	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	n, err := conn.Read(buf)
	if n > 0 {
		if s.cfg.ShowDataPackets {
			s.log.Printf("mindwave: %q", buf[:n])
		}

		packets := Frames(buf, n)
		if frames != nil {
			packets = frames.Feed(buf[:n])
		}
		for packet := range packets {
			if task.cancelled() {
				return
			}
			s.dispatch(task, packet)
		}
	}

	if err != nil {
		if task.cancelled() {
			return
		}
		s.statReadErrs.Add(1)
		if s.cfg.ShowStreamErrors {
			s.log.Printf("mindwave: stream error: %v", err)
		}
		s.applyConnected(task, false)
	}
}

// dispatch classifies one packet and raises its events
// A panicking handler is contained to the packet that triggered it
func (s *Session) dispatch(task *readTask, packet string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Printf("mindwave: error processing packet %q: %v", packet, r)
		}
	}()

	pkt, err := Classify(packet)
	if err != nil {
		s.statParseErrs.Add(1)
		if s.cfg.ShowStreamErrors {
			s.log.Printf("mindwave: %v", err)
		}
		return
	}

	switch pkt.Kind {
	case KindRecord:
		rec := pkt.Record
		s.statRecords.Add(1)
		s.statPoorSignal.Store(int64(rec.PoorSignalLevel))
		if rec.Status != "" {
			s.statStatus.Store(rec.Status)
		}

		if rec.NoSignal() {
			s.applyConnected(task, false)
			return
		}
		s.applySignal(task, rec)

	case KindRawEEG:
		s.statRawSamples.Add(1)
		s.raise(task, event{kind: eventRawEEG, value: pkt.Value})

	case KindBlink:
		s.statBlinks.Add(1)
		s.raise(task, event{kind: eventBlink, value: pkt.Value})
	}
}

// raise queues ev on behalf of task and delivers it
// Dropped once task has been cancelled
func (s *Session) raise(task *readTask, ev event) {
	s.mu.Lock()
	if s.task != task {
		s.mu.Unlock()
		return
	}
	s.events.post(ev)
	s.mu.Unlock()
	s.events.flush()
}

// applyConnected sets the connected flag on behalf of task
// Ignored once task has been cancelled
func (s *Session) applyConnected(task *readTask, v bool) {
	s.mu.Lock()
	if s.task != task {
		s.mu.Unlock()
		return
	}
	if s.setConnectedLocked(v) {
		kind := eventDisconnect
		if v {
			kind = eventConnect
		}
		s.events.post(event{kind: kind})
	}
	s.mu.Unlock()
	s.events.flush()
}

// applySignal marks a valid record: connected, no longer pending
// The connect edge, if any, is queued ahead of the record itself
func (s *Session) applySignal(task *readTask, rec Record) {
	s.mu.Lock()
	if s.task != task {
		s.mu.Unlock()
		return
	}
	if s.setConnectedLocked(true) {
		s.events.post(event{kind: eventConnect})
	}
	s.setPendingLocked(false)
	s.events.post(event{kind: eventRecord, record: rec})
	s.mu.Unlock()
	s.events.flush()
}

// dial establishes the TCP connection
func dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: timeout,
	}
	return dialer.DialContext(ctx, "tcp", addr)
}
