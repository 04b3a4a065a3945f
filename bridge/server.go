package bridge

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/status"
)

// Headset is what remote clients observe and control
type Headset interface {
	Connect(ctx context.Context) error
	Disconnect()
	SetMode(m mindwave.Mode)
	State() mindwave.State
	Mode() mindwave.Mode
}

// Config holds bridge settings
type Config struct {
	Address          string
	SnapshotInterval time.Duration
	Logger           *log.Logger
	Metrics          *status.Registry
}

const (
	sendQueueSize = 64
	writeTimeout  = 2 * time.Second
	connectWait   = 10 * time.Second
)

// Server is a websocket feed of the session at /ws
type Server struct {
	cfg      Config
	headset  Headset
	log      *log.Logger
	metrics  *status.Registry
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	http     *http.Server
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	statClients *atomic.Int64
}

type client struct {
	conn    *websocket.Conn
	send    chan Message
	done    chan struct{}
	filters atomic.Pointer[[]string] // Metric key prefixes, nil = all
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewServer creates a stopped bridge over headset
func NewServer(cfg Config, headset Headset) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = status.NewRegistry()
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = 200 * time.Millisecond
	}

	return &Server{
		cfg:     cfg,
		headset: headset,
		log:     logger,
		metrics: reg,
		upgrader: websocket.Upgrader{
			// Local dashboards are served from arbitrary origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:     make(map[*client]struct{}),
		statClients: reg.Ints.Get(status.KeyBridgeClients),
	}
}

// Handler returns the HTTP routes, usable without Start
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.listener = ln
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Printf("bridge: serve: %v", err)
		}
	}()
	s.log.Printf("bridge: websocket feed at ws://%s/ws", ln.Addr())
	return nil
}

// Addr returns the bound address, nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes every client and the listener; idempotent
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		s.closeClients()
		return nil
	}

	s.closeClients()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.http.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for c := range clients {
		c.close()
	}
	s.statClients.Store(0)
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast queues msg for every client; slow clients drop messages
func (s *Server) Broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Listener forwards records, blinks and connection edges
// Raw EEG is not forwarded; snapshots carry the sample counters instead
func (s *Server) Listener() mindwave.Listener {
	return mindwave.Listener{
		OnConnect:    func() { s.Broadcast(Message{Type: TypeEvent, Event: EventConnect}) },
		OnDisconnect: func() { s.Broadcast(Message{Type: TypeEvent, Event: EventDisconnect}) },
		OnTimeout:    func() { s.Broadcast(Message{Type: TypeEvent, Event: EventTimeout}) },
		OnRecord: func(r mindwave.Record) {
			s.Broadcast(Message{Type: TypeRecord, Record: &r})
		},
		OnBlink: func(v int) { s.Broadcast(Message{Type: TypeBlink, Value: &v}) },
	}
}

// Snapshot builds the periodic state message
// prefixes restrict the metrics to those key families
func (s *Server) Snapshot(prefixes ...string) Message {
	return Message{
		Type:    TypeSnapshot,
		State:   s.headset.State().String(),
		Mode:    s.headset.Mode().String(),
		Metrics: s.metrics.Snapshot(prefixes...),
	}
}

func (s *Server) snapshotFor(c *client) Message {
	if f := c.filters.Load(); f != nil {
		return s.Snapshot(*f...)
	}
	return s.Snapshot()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Message, sendQueueSize),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.statClients.Store(int64(len(s.clients)))
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.statClients.Store(int64(len(s.clients)))
		s.mu.Unlock()
		c.close()
	}()

	go s.writeLoop(c)

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.apply(c, cmd)
	}
}

// writeLoop is the only writer of c.conn
func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()

	write := func(msg Message) bool {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.close()
			return false
		}
		return true
	}

	if !write(s.snapshotFor(c)) {
		return
	}
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			if !write(s.snapshotFor(c)) {
				return
			}
		}
	}
}

func (s *Server) apply(c *client, cmd Command) {
	if cmd.Metrics != nil {
		if len(*cmd.Metrics) == 0 {
			c.filters.Store(nil)
		} else {
			prefixes := slices.Clone(*cmd.Metrics)
			c.filters.Store(&prefixes)
		}
	}
	if cmd.Disconnect {
		s.headset.Disconnect()
	}
	if cmd.Connect {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), connectWait)
			defer cancel()
			if err := s.headset.Connect(ctx); err != nil {
				s.log.Printf("bridge: connect: %v", err)
			}
		}()
	}
	if cmd.Mode != "" {
		mode, err := mindwave.ParseMode(cmd.Mode)
		if err != nil {
			s.log.Printf("bridge: %v", err)
			return
		}
		s.headset.SetMode(mode)
	}
}
