package bridge

import "github.com/lixenwraith/neurolink/mindwave"

// Message types pushed to clients
const (
	TypeSnapshot = "snapshot"
	TypeRecord   = "record"
	TypeBlink    = "blink"
	TypeEvent    = "event"
)

// Event names carried by TypeEvent messages
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventTimeout    = "timeout"
)

// Message is one server-to-client JSON frame
type Message struct {
	Type    string           `json:"type"`
	State   string           `json:"state,omitempty"`
	Mode    string           `json:"mode,omitempty"`
	Metrics map[string]any   `json:"metrics,omitempty"`
	Record  *mindwave.Record `json:"record,omitempty"`
	Value   *int             `json:"value,omitempty"` // Blink strength; present even when 0
	Event   string           `json:"event,omitempty"`
}

// Command is one client-to-server JSON frame; fields may be combined
type Command struct {
	Connect    bool   `json:"connect,omitempty"`
	Disconnect bool   `json:"disconnect,omitempty"`
	Mode       string `json:"mode,omitempty"`

	// Metrics limits this client's snapshots to the named key families,
	// e.g. ["mindwave."]; an empty list restores every metric
	Metrics *[]string `json:"metrics,omitempty"`
}
