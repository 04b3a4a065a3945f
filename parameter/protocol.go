package parameter

import "time"

// ThinkGear Connector Endpoint
const (
	// DefaultHost is the loopback address the ThinkGear Connector binds to
	DefaultHost = "127.0.0.1"

	// DefaultPort is the ThinkGear Connector JSON socket port
	DefaultPort = 13854
)

// Handshake is sent once after dialing; requests raw EEG output in JSON format
const Handshake = `{"enableRawOutput": true, "format": "Json"}`

// PacketDelimiter separates JSON objects on the stream
const PacketDelimiter = '\r'

// Packet Keys used for classification, checked in this order
const (
	PoorSignalKey    = "poorSignalLevel"
	RawEEGKey        = "rawEeg"
	BlinkStrengthKey = "blinkStrength"
)

// Stream I/O
const (
	// ReadBufferLength is the maximum bytes consumed per read cycle
	ReadBufferLength = 1024

	// MaxFragmentLength caps a partial packet held across reads by the reassembler
	MaxFragmentLength = 4 * ReadBufferLength
)

// Session Timing
const (
	// DefaultConnectionTimeout is the pending-connection window before a timeout fires
	DefaultConnectionTimeout = 10 * time.Second

	// MaxConnectionTimeout is the upper bound accepted from configuration
	MaxConnectionTimeout = 30 * time.Second

	// DefaultReadInterval is the delay between two read cycles
	DefaultReadInterval = 20 * time.Millisecond

	// MaxReadInterval is the upper bound accepted from configuration
	MaxReadInterval = 1 * time.Second

	// DefaultDialTimeout bounds the TCP dial
	DefaultDialTimeout = 5 * time.Second
)
