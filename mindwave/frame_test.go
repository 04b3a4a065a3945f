package mindwave

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrames_SplitsOnCarriageReturn(t *testing.T) {
	buf := []byte("{\"a\":1}\r{\"b\":2}\r")
	got := slices.Collect(Frames(buf, len(buf)))
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
}

func TestFrames_DelimitersOnly(t *testing.T) {
	buf := []byte("\r\r\r")
	assert.Empty(t, slices.Collect(Frames(buf, len(buf))))
}

func TestFrames_RespectsByteCount(t *testing.T) {
	buf := make([]byte, 64)
	n := copy(buf, "{\"a\":1}\r{\"b\"")
	got := slices.Collect(Frames(buf, n))
	// The cut packet is yielded as a fragment, the zero tail is never read
	assert.Equal(t, []string{`{"a":1}`, `{"b"`}, got)

	assert.Empty(t, slices.Collect(Frames(buf, 0)))
	assert.Empty(t, slices.Collect(Frames(buf, -1)))
	assert.Len(t, slices.Collect(Frames([]byte("x\ry"), 99)), 2)
}

func TestFrames_Restartable(t *testing.T) {
	buf := []byte("a\rb\r\rc")
	seq := Frames(buf, len(buf))
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, []string{"a", "b", "c"}, first)
	assert.Equal(t, first, second)
}

func TestFrames_EarlyBreak(t *testing.T) {
	buf := []byte("a\rb\rc\r")
	var got []string
	for p := range Frames(buf, len(buf)) {
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFrameBuffer_ReassemblesAcrossReads(t *testing.T) {
	var fb FrameBuffer

	assert.Equal(t, []string{`{"a":1}`}, slices.Collect(fb.Feed([]byte("{\"a\":1}\r{\"blink"))))
	assert.Equal(t, len(`{"blink`), fb.Pending())

	assert.Empty(t, slices.Collect(fb.Feed([]byte("Strength\":"))))
	assert.Equal(t, []string{`{"blinkStrength":42}`, `{"rawEeg":3}`}, slices.Collect(fb.Feed([]byte("42}\r{\"rawEeg\":3}\r"))))
	assert.Zero(t, fb.Pending())
}

func TestFrameBuffer_DropsOversizeFragment(t *testing.T) {
	var fb FrameBuffer
	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'x'
	}
	assert.Empty(t, slices.Collect(fb.Feed(big)))
	assert.Zero(t, fb.Pending())
	assert.Equal(t, 1, fb.Dropped())

	fb.Feed([]byte("partial"))
	fb.Reset()
	assert.Zero(t, fb.Pending())
}
