package mindwave

import (
	"bytes"
	"iter"

	"github.com/lixenwraith/neurolink/parameter"
)

// Frames splits the first n bytes of buf into delimiter-separated packets
// Empty packets are skipped. The sequence holds no state across reads: a packet
// cut at the end of buf is yielded as a fragment and fails classification
// Ranging over the result more than once yields the same packets
func Frames(buf []byte, n int) iter.Seq[string] {
	if n > len(buf) {
		n = len(buf)
	}
	if n < 0 {
		n = 0
	}
	data := buf[:n]

	return func(yield func(string) bool) {
		rest := data
		for len(rest) > 0 {
			i := bytes.IndexByte(rest, parameter.PacketDelimiter)
			var chunk []byte
			if i < 0 {
				chunk, rest = rest, nil
			} else {
				chunk, rest = rest[:i], rest[i+1:]
			}
			if len(chunk) == 0 {
				continue
			}
			if !yield(string(chunk)) {
				return
			}
		}
	}
}

// FrameBuffer reassembles packets split across reads
// Bytes after the last delimiter are held until the next Feed completes them
// Not safe for concurrent use; owned by a single read task
type FrameBuffer struct {
	pending []byte
	dropped int
}

// Feed appends data and yields every packet terminated so far
// The returned sequence must be consumed before the next Feed
func (fb *FrameBuffer) Feed(data []byte) iter.Seq[string] {
	fb.pending = append(fb.pending, data...)

	last := bytes.LastIndexByte(fb.pending, parameter.PacketDelimiter)
	var complete []byte
	if last >= 0 {
		complete = bytes.Clone(fb.pending[:last+1])
		fb.pending = append(fb.pending[:0], fb.pending[last+1:]...)
	}

	// Unterminated garbage must not grow without bound
	if len(fb.pending) > parameter.MaxFragmentLength {
		fb.dropped++
		fb.pending = fb.pending[:0]
	}

	return Frames(complete, len(complete))
}

// Pending returns the number of buffered bytes awaiting a delimiter
func (fb *FrameBuffer) Pending() int {
	return len(fb.pending)
}

// Dropped returns how many oversize fragments were discarded
func (fb *FrameBuffer) Dropped() int {
	return fb.dropped
}

// Reset discards any held fragment
func (fb *FrameBuffer) Reset() {
	fb.pending = fb.pending[:0]
}
