package mcp

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// maxLineSize bounds one SSE line. Tool results can be large JSON blobs.
const maxLineSize = 4 * 1024 * 1024

// decoderState tracks the incremental SSE parse.
type decoderState int

const (
	awaitingField decoderState = iota
	accumulatingData
)

// Decoder incrementally parses a Server-Sent-Events byte stream into
// JSON-RPC frames. It is independent of the HTTP client: any io.Reader
// works, which keeps it testable against synthetic streams.
//
// Per the SSE format, consecutive "data:" lines of one event are joined
// with newlines and dispatched on the first blank line; ":" comment lines
// and non-data fields are ignored; a trailing unterminated buffer is
// flushed at EOF. Payloads that are not valid JSON (keepalives, partials)
// are skipped silently.
type Decoder struct {
	scanner *bufio.Scanner
	state   decoderState
	data    []string
	eof     bool
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: sc}
}

// Next returns the next decoded frame. It returns io.EOF once the stream is
// exhausted, or the underlying read error.
func (d *Decoder) Next() (*Frame, error) {
	for {
		if d.eof {
			return d.flush()
		}

		if !d.scanner.Scan() {
			d.eof = true
			if err := d.scanner.Err(); err != nil {
				return nil, err
			}
			continue
		}

		line := strings.TrimRight(d.scanner.Text(), "\r")

		if line == "" {
			// End of one SSE event: dispatch the accumulated buffer.
			if frame := d.dispatch(); frame != nil {
				return frame, nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			// Comment/keepalive line.
			continue
		}

		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			d.data = append(d.data, strings.TrimPrefix(rest, " "))
			d.state = accumulatingData
			continue
		}

		// Other SSE fields (event:, id:, retry:) carry nothing we consume.
	}
}

// dispatch decodes the buffered data lines into a frame, or nil if the
// buffer is empty or not valid JSON.
func (d *Decoder) dispatch() *Frame {
	if len(d.data) == 0 {
		return nil
	}
	payload := strings.Join(d.data, "\n")
	d.data = nil
	d.state = awaitingField

	var frame Frame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return nil
	}
	return &frame
}

// flush drains any trailing buffer once the stream has ended.
func (d *Decoder) flush() (*Frame, error) {
	if frame := d.dispatch(); frame != nil {
		return frame, nil
	}
	return nil, io.EOF
}

// DecodeAll reads the stream to completion and returns every frame in
// arrival order.
func DecodeAll(r io.Reader) ([]Frame, error) {
	d := NewDecoder(r)
	var frames []Frame
	for {
		frame, err := d.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, *frame)
	}
}
