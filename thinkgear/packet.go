package thinkgear

import (
	"encoding/json"
	"strconv"

	"github.com/lixenwraith/neurolink/mindwave"
	"github.com/lixenwraith/neurolink/parameter"
)

// RecordPacket encodes a full eSense/EEG power packet
func RecordPacket(rec mindwave.Record) string {
	b, err := json.Marshal(rec)
	if err != nil {
		// Record holds only ints and a string
		panic(err)
	}
	return string(b)
}

// RawPacket encodes a raw EEG sample packet
func RawPacket(v int) string {
	return `{"` + parameter.RawEEGKey + `":` + strconv.Itoa(v) + `}`
}

// BlinkPacket encodes a blink strength packet
func BlinkPacket(v int) string {
	return `{"` + parameter.BlinkStrengthKey + `":` + strconv.Itoa(v) + `}`
}

// Frame terminates packets with the stream delimiter and concatenates them
func Frame(packets ...string) []byte {
	n := 0
	for _, p := range packets {
		n += len(p) + 1
	}
	out := make([]byte, 0, n)
	for _, p := range packets {
		out = append(out, p...)
		out = append(out, parameter.PacketDelimiter)
	}
	return out
}
