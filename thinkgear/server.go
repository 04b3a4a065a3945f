package thinkgear

import (
	"bytes"
	"errors"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/neurolink/parameter"
)

// ErrNotRunning is returned by operations that need a started server
var ErrNotRunning = errors.New("thinkgear: server not running")

// Config holds simulator server settings
type Config struct {
	// Address to bind; port 0 picks a free port
	Address string

	// HandshakeTimeout bounds the wait for a client's stream configuration
	HandshakeTimeout time.Duration

	// RequireJSON drops clients whose handshake does not request JSON format
	RequireJSON bool

	Logger *log.Logger
}

// DefaultConfig returns a server bound to the ThinkGear Connector port
func DefaultConfig() Config {
	return Config{
		Address:          net.JoinHostPort(parameter.DefaultHost, strconv.Itoa(parameter.DefaultPort)),
		HandshakeTimeout: 5 * time.Second,
		RequireJSON:      true,
	}
}

type client struct {
	id   uint32
	conn net.Conn
	mu   sync.Mutex // Serialises writes
}

// Server emulates the ThinkGear Connector JSON socket
// Packets passed to Send reach every client that completed its handshake
type Server struct {
	cfg      Config
	log      *log.Logger
	listener net.Listener

	mu      sync.RWMutex
	clients map[uint32]*client
	nextID  atomic.Uint32

	handshakes chan string

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewServer creates a stopped server
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:        cfg,
		log:        logger,
		clients:    make(map[uint32]*client),
		handshakes: make(chan string, 16),
		stopCh:     make(chan struct{}),
	}
}

// Start binds the listener and begins accepting clients
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

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound address, nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handshakes delivers the configuration text each client sent
// Buffered; handshakes beyond the buffer are not reported
func (s *Server) Handshakes() <-chan string {
	return s.handshakes
}

// ClientCount returns the number of clients ready to receive packets
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Send frames packets and writes them to every ready client in a single write
// Returns the number of clients written to
func (s *Server) Send(packets ...string) int {
	return s.SendRaw(Frame(packets...))
}

// SendRaw writes bytes as-is, allowing packets split across writes
func (s *Server) SendRaw(data []byte) int {
	s.mu.RLock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		c.mu.Lock()
		_, err := c.conn.Write(data)
		c.mu.Unlock()
		if err != nil {
			s.drop(c)
			continue
		}
		sent++
	}
	return sent
}

// DropClients closes every client connection; the listener keeps accepting
func (s *Server) DropClients() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[uint32]*client)
	s.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

// Stop closes the listener and all clients
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	close(s.stopCh)
	if s.listener != nil {
		s.listener.Close()
	}
	s.DropClients()
	s.wg.Wait()

	// A handshake completing during shutdown may have registered late
	s.DropClients()
	return nil
}

// IsRunning returns server state
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// acceptLoop handles incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				continue
			}
		}

		s.wg.Add(1)
		go s.handshake(conn)
	}
}

// handshake reads the client's stream configuration and registers it
func (s *Server) handshake(conn net.Conn) {
	defer s.wg.Done()

	if s.cfg.HandshakeTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	}
	buf := make([]byte, parameter.ReadBufferLength)
	n, err := conn.Read(buf)
	if err != nil {
		s.log.Printf("thinkgear: handshake from %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	text := string(buf[:n])
	if s.cfg.RequireJSON && !bytes.Contains(bytes.ReplaceAll(buf[:n], []byte(" "), nil), []byte(`"format":"Json"`)) {
		s.log.Printf("thinkgear: %s did not request JSON output", conn.RemoteAddr())
		conn.Close()
		return
	}

	select {
	case <-s.stopCh:
		conn.Close()
		return
	default:
	}

	c := &client{id: s.nextID.Add(1), conn: conn}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	select {
	case s.handshakes <- text:
	default:
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.conn.Close()
}
