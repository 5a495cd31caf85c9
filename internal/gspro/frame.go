package gspro

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// MaxFrameSize bounds how much of an unfinished frame the decoder buffers.
const MaxFrameSize = 1 << 20

var (
	// ErrFrameDesync means the stream is not positioned at the start of an
	// object. The decoder cannot recover from it.
	ErrFrameDesync = errors.New("frame does not start with '{'")
	// ErrMalformedFrame means a brace-balanced frame is not valid JSON.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrIncompleteFrame is returned by DecodeFrames when the buffer ends
	// inside an object.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrFrameTooLarge means an unfinished frame grew past MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// FrameDecoder splits a stream of back-to-back JSON objects into frames.
//
// It scans each byte once, tracking brace depth and whether it is inside a
// string (and after a backslash), so braces inside string values never end
// a frame. An object cut off at the end of one Feed is completed by the next.
// Errors are sticky.
type FrameDecoder struct {
	// buf holds unscanned bytes; an unfinished frame always starts at buf[0].
	buf      []byte
	pos      int
	depth    int
	inString bool
	escaped  bool
	maxSize  int
	err      error
}

// NewFrameDecoder returns a decoder with an empty buffer.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{maxSize: MaxFrameSize}
}

// Feed appends p to the stream and returns every frame it completes, in
// order. Frames decoded before an error are still returned.
func (d *FrameDecoder) Feed(p []byte) ([]json.RawMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.buf = append(d.buf, p...)

	var frames []json.RawMessage
	start := 0
	for ; d.pos < len(d.buf); d.pos++ {
		c := d.buf[d.pos]

		if d.depth == 0 {
			if isSpace(c) {
				start = d.pos + 1
				continue
			}
			if c != '{' {
				d.err = fmt.Errorf("%w: got %q at offset %d", ErrFrameDesync, c, d.pos)
				return frames, d.err
			}
			start = d.pos
			d.depth = 1
			continue
		}

		switch {
		case d.escaped:
			d.escaped = false
		case d.inString:
			if c == '\\' {
				d.escaped = true
			} else if c == '"' {
				d.inString = false
			}
		case c == '"':
			d.inString = true
		case c == '{':
			d.depth++
		case c == '}':
			d.depth--
			if d.depth > 0 {
				continue
			}
			frame := d.buf[start : d.pos+1]
			if !gjson.ValidBytes(frame) {
				d.err = fmt.Errorf("%w: %q", ErrMalformedFrame, truncate(frame, 64))
				return frames, d.err
			}
			frames = append(frames, json.RawMessage(append([]byte(nil), frame...)))
			start = d.pos + 1
		}
	}

	if d.depth == 0 {
		d.buf = d.buf[:0]
		d.pos = 0
		return frames, nil
	}

	n := copy(d.buf, d.buf[start:])
	d.buf = d.buf[:n]
	d.pos -= start
	if len(d.buf) > d.maxSize {
		d.err = fmt.Errorf("%w: %d bytes pending", ErrFrameTooLarge, len(d.buf))
		return frames, d.err
	}
	return frames, nil
}

// Pending returns the number of buffered bytes of an unfinished frame.
func (d *FrameDecoder) Pending() int {
	return len(d.buf)
}

// Reset discards buffered data and clears any error.
func (d *FrameDecoder) Reset() {
	d.buf = d.buf[:0]
	d.pos = 0
	d.depth = 0
	d.inString = false
	d.escaped = false
	d.err = nil
}

// DecodeFrames splits a complete buffer into frames. Empty input yields no
// frames; input ending inside an object yields ErrIncompleteFrame.
func DecodeFrames(buf []byte) ([]json.RawMessage, error) {
	d := NewFrameDecoder()
	frames, err := d.Feed(buf)
	if err != nil {
		return nil, err
	}
	if d.Pending() > 0 {
		return nil, fmt.Errorf("%w: %d bytes left", ErrIncompleteFrame, d.Pending())
	}
	return frames, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
