package bridge

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/neurolink/config"
	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/status"
)

type fakeHeadset struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	mode        mindwave.Mode
	state       mindwave.State
}

func (f *fakeHeadset) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.state = mindwave.StatePendingConnection
	return nil
}

func (f *fakeHeadset) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.state = mindwave.StateDisconnected
}

func (f *fakeHeadset) SetMode(m mindwave.Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
}

func (f *fakeHeadset) State() mindwave.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeHeadset) Mode() mindwave.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeHeadset) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects
}

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func dialTest(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

// readUntil reads messages until one of type typ arrives
func readUntil(t *testing.T, conn *websocket.Conn, typ string) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestServer_SnapshotOnConnect(t *testing.T) {
	reg := status.NewRegistry()
	reg.Ints.Get(status.KeyRecords).Store(12)
	headset := &fakeHeadset{mode: mindwave.Manual}

	srv := NewServer(Config{SnapshotInterval: 20 * time.Millisecond, Logger: discard(), Metrics: reg}, headset)
	conn := dialTest(t, srv)

	msg := readUntil(t, conn, TypeSnapshot)
	assert.Equal(t, "disconnected", msg.State)
	assert.Equal(t, "manual", msg.Mode)
	assert.Equal(t, float64(12), msg.Metrics[status.KeyRecords])
	assert.Equal(t, float64(1), msg.Metrics[status.KeyBridgeClients])

	// Snapshots keep coming on the interval
	readUntil(t, conn, TypeSnapshot)
}

func TestServer_ForwardsEvents(t *testing.T) {
	srv := NewServer(Config{SnapshotInterval: time.Hour, Logger: discard()}, &fakeHeadset{})
	conn := dialTest(t, srv)
	readUntil(t, conn, TypeSnapshot)

	hub := mindwave.NewEventHub()
	hub.Subscribe(srv.Listener())

	hub.EmitConnect()
	hub.EmitRecord(mindwave.Record{ESense: mindwave.ESense{Attention: 77}, PoorSignalLevel: 0})
	hub.EmitBlink(140)
	hub.EmitRawEEG(3)
	hub.EmitTimeout()

	ev := readUntil(t, conn, TypeEvent)
	assert.Equal(t, EventConnect, ev.Event)

	rec := readUntil(t, conn, TypeRecord)
	require.NotNil(t, rec.Record)
	assert.Equal(t, 77, rec.Record.ESense.Attention)

	blink := readUntil(t, conn, TypeBlink)
	require.NotNil(t, blink.Value)
	assert.Equal(t, 140, *blink.Value)

	ev = readUntil(t, conn, TypeEvent)
	assert.Equal(t, EventTimeout, ev.Event)
}

func TestServer_MetricFilter(t *testing.T) {
	reg := status.NewRegistry()
	reg.Ints.Get(status.KeyRecords).Store(3)
	reg.Ints.Get(status.KeyRows).Store(2)
	srv := NewServer(Config{SnapshotInterval: 10 * time.Millisecond, Logger: discard(), Metrics: reg}, &fakeHeadset{})
	conn := dialTest(t, srv)

	first := readUntil(t, conn, TypeSnapshot)
	assert.Len(t, first.Metrics, 3)

	require.NoError(t, conn.WriteJSON(Command{Metrics: &[]string{"recorder."}}))
	for {
		msg := readUntil(t, conn, TypeSnapshot)
		if len(msg.Metrics) == 1 {
			assert.Equal(t, float64(2), msg.Metrics[status.KeyRows])
			break
		}
	}

	require.NoError(t, conn.WriteJSON(Command{Metrics: &[]string{}}))
	for {
		if msg := readUntil(t, conn, TypeSnapshot); len(msg.Metrics) == 3 {
			break
		}
	}
}

func TestServer_ZeroBlinkKeepsValue(t *testing.T) {
	srv := NewServer(Config{SnapshotInterval: time.Hour, Logger: discard()}, &fakeHeadset{})
	conn := dialTest(t, srv)
	readUntil(t, conn, TypeSnapshot)

	srv.Listener().OnBlink(0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"blink","value":0}`, string(data))
}

func TestServer_Commands(t *testing.T) {
	headset := &fakeHeadset{}
	srv := NewServer(Config{SnapshotInterval: time.Hour, Logger: discard()}, headset)
	conn := dialTest(t, srv)

	require.NoError(t, conn.WriteJSON(Command{Connect: true}))
	require.Eventually(t, func() bool { c, _ := headset.counts(); return c == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Mode: "manual"}))
	require.Eventually(t, func() bool { return headset.Mode() == mindwave.Manual }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Mode: "sideways"}))
	require.NoError(t, conn.WriteJSON(Command{Disconnect: true}))
	require.Eventually(t, func() bool { _, d := headset.counts(); return d == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, mindwave.Manual, headset.Mode())
}

func TestServer_ClientLeaves(t *testing.T) {
	srv := NewServer(Config{Logger: discard()}, &fakeHeadset{})
	conn := dialTest(t, srv)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(Config{Address: "127.0.0.1:0", Logger: discard()}, &fakeHeadset{})
	require.NoError(t, srv.Start())
	require.NotNil(t, srv.Addr())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Stop())
	assert.Zero(t, srv.ClientCount())

	// The closed connection surfaces as a read error
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
	}
}

func TestService_Lifecycle(t *testing.T) {
	cfg := config.Default()
	cfg.Bridge.Enabled = true
	cfg.Bridge.Address = "127.0.0.1:0"

	headset := mindwave.NewService(discard(), nil)
	require.NoError(t, headset.Init(cfg))
	base := headset.Events().Len()

	svc := NewService(headset, discard())
	assert.Equal(t, "bridge", svc.Name())
	assert.Equal(t, []string{"mindwave"}, svc.Dependencies())

	require.NoError(t, svc.Init(cfg))
	require.NoError(t, svc.Start())
	require.NotNil(t, svc.Server())
	assert.Equal(t, base+1, headset.Events().Len())

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())
	assert.Nil(t, svc.Server())
	assert.Equal(t, base, headset.Events().Len())
}

func TestService_Disabled(t *testing.T) {
	svc := NewService(mindwave.NewService(discard(), nil), discard())
	require.NoError(t, svc.Init(config.Default()))
	require.NoError(t, svc.Start())
	assert.Nil(t, svc.Server())
	assert.Error(t, svc.Init())
}
