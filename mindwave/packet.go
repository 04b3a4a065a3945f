package mindwave

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/lixenwraith/neurolink/parameter"
)

var (
	// ErrMalformedPacket is returned for text that is not a JSON object or does not fit the record shape
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrInvalidValue is returned when a raw EEG or blink value is not an integer
	ErrInvalidValue = errors.New("invalid packet value")
)

// PacketKind identifies what a classified packet carries
type PacketKind uint8

const (
	KindUnknown PacketKind = iota // Recognised JSON without a known key
	KindRecord                    // Full eSense/EEG power record
	KindRawEEG                    // Single raw EEG sample
	KindBlink                     // Blink strength event
)

func (k PacketKind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindRawEEG:
		return "rawEeg"
	case KindBlink:
		return "blink"
	default:
		return "unknown"
	}
}

// Packet is the typed result of classifying one stream packet
// Record is set for KindRecord, Value for KindRawEEG and KindBlink
type Packet struct {
	Kind   PacketKind
	Record Record
	Value  int
}

// Classify parses one packet and determines its kind
// Key precedence: poorSignalLevel, rawEeg, blinkStrength; first match wins
// Unrecognised objects return KindUnknown with no error
func Classify(packet string) (Packet, error) {
	raw := []byte(packet)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}

	if _, ok := fields[parameter.PoorSignalKey]; ok {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Packet{}, fmt.Errorf("%w: record: %v", ErrMalformedPacket, err)
		}
		return Packet{Kind: KindRecord, Record: rec}, nil
	}

	if v, ok := fields[parameter.RawEEGKey]; ok {
		n, err := parseInt(v)
		if err != nil {
			return Packet{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, parameter.RawEEGKey, err)
		}
		return Packet{Kind: KindRawEEG, Value: n}, nil
	}

	if v, ok := fields[parameter.BlinkStrengthKey]; ok {
		n, err := parseInt(v)
		if err != nil {
			return Packet{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, parameter.BlinkStrengthKey, err)
		}
		return Packet{Kind: KindBlink, Value: n}, nil
	}

	return Packet{Kind: KindUnknown}, nil
}

// parseInt accepts a bare JSON integer or a quoted one
func parseInt(v json.RawMessage) (int, error) {
	text := bytes.TrimSpace(v)
	if len(text) > 0 && text[0] == '"' {
		var s string
		if err := json.Unmarshal(text, &s); err != nil {
			return 0, err
		}
		text = []byte(s)
	}
	return strconv.Atoi(string(text))
}
