package gateway

import (
	"bytes"
	"errors"

	"pathprobe/internal/shared/types"
)

// ErrLineTooLong is returned when a line exceeds the configured limit before a terminator arrives.
var ErrLineTooLong = errors.New("request line exceeds max_line_bytes")

var errFramerClosed = errors.New("framer is closed")

type frameState uint8

const (
	stateAwaitingLine frameState = iota
	stateLineReady
	stateClosed
)

func (s frameState) String() string {
	switch s {
	case stateAwaitingLine:
		return "awaiting_line"
	case stateLineReady:
		return "line_ready"
	default:
		return "closed"
	}
}

// framer turns raw socket reads into request lines for a single connection.
//
// In line mode bytes accumulate until '\n'; the terminator and one preceding
// '\r' are stripped. In chunk mode every read is one request, verbatim.
// It is not safe for concurrent use; each connection owns one.
type framer struct {
	mode    string
	maxLine int
	state   frameState
	pending []byte
	ready   []string
}

func newFramer(mode string, maxLine int) *framer {
	return &framer{
		mode:    mode,
		maxLine: maxLine,
		state:   stateAwaitingLine,
	}
}

// Feed consumes one read. Lines completed by it become available through Next.
func (f *framer) Feed(p []byte) error {
	if f.state == stateClosed {
		return errFramerClosed
	}
	if len(p) == 0 {
		return nil
	}

	if f.mode == types.FramingChunk {
		f.push(string(p))
		return nil
	}

	f.pending = append(f.pending, p...)
	for {
		idx := bytes.IndexByte(f.pending, '\n')
		if idx < 0 {
			break
		}
		line := f.pending[:idx]
		if len(line) > f.maxLine {
			f.fail()
			return ErrLineTooLong
		}
		f.push(string(bytes.TrimSuffix(line, []byte{'\r'})))
		f.pending = append(f.pending[:0], f.pending[idx+1:]...)
	}
	if len(f.pending) > f.maxLine {
		f.fail()
		return ErrLineTooLong
	}
	return nil
}

// Next pops the oldest complete line.
func (f *framer) Next() (string, bool) {
	if len(f.ready) == 0 {
		return "", false
	}
	line := f.ready[0]
	f.ready = f.ready[1:]
	if len(f.ready) == 0 && f.state == stateLineReady {
		f.state = stateAwaitingLine
	}
	return line, true
}

// Close marks the end of input. A non-empty unterminated remainder in line
// mode is delivered as a final line.
func (f *framer) Close() {
	if f.state == stateClosed {
		return
	}
	if len(f.pending) > 0 {
		f.ready = append(f.ready, string(bytes.TrimSuffix(f.pending, []byte{'\r'})))
		f.pending = nil
	}
	f.state = stateClosed
}

func (f *framer) State() frameState {
	return f.state
}

func (f *framer) push(line string) {
	f.ready = append(f.ready, line)
	f.state = stateLineReady
}

// fail drops any buffered input after a framing error.
func (f *framer) fail() {
	f.pending = nil
	f.state = stateClosed
}
