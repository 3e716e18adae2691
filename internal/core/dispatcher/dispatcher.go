package dispatcher

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"pathprobe/internal/core/fsprobe"
	"pathprobe/internal/core/request"
)

// Literal status lines. No CRLF, no headers, no body.
// 400 is paired with NOT FOUND on purpose; clients depend on these exact bytes.
const (
	StatusFound    = "HTTP/1.0 200 OK"
	StatusNotFound = "HTTP/1.0 400 NOT FOUND"
)

// Response is the action chosen for one request.
type Response int

const (
	// None means nothing is written to the client.
	None Response = iota
	Found
	NotFound
)

func (r Response) String() string {
	switch r {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "none"
	}
}

// Bytes returns the wire form of the response. None renders as nil.
func (r Response) Bytes() []byte {
	switch r {
	case Found:
		return []byte(StatusFound)
	case NotFound:
		return []byte(StatusNotFound)
	default:
		return nil
	}
}

// Dispatcher maps a parsed request onto one of the fixed responses.
// It holds no per-request state and is safe for concurrent use.
type Dispatcher struct {
	root    string
	checker fsprobe.Checker
}

// New creates a Dispatcher. root is prefixed literally to every request path
// ("." + "/index.html" -> "./index.html"); it is not a path join.
func New(root string, checker fsprobe.Checker) *Dispatcher {
	return &Dispatcher{
		root:    root,
		checker: checker,
	}
}

// LookupPath returns the key handed to the existence checker for a request path.
// Traversal segments are passed through untouched.
func (d *Dispatcher) LookupPath(path string) string {
	return d.root + path
}

// Decide selects the response for req without writing anything.
func (d *Dispatcher) Decide(ctx context.Context, req *request.Request) Response {
	l := zerolog.Ctx(ctx)

	switch req.Method {
	case "GET":
		lookup := d.LookupPath(req.Path)
		if d.checker.Exists(lookup) {
			l.Debug().Str("lookup", lookup).Msg("Dispatcher: path exists")
			return Found
		}
		l.Debug().Str("lookup", lookup).Msg("Dispatcher: path does not exist")
		return NotFound
	}

	// Other methods fall through silently.
	l.Debug().Str("method", req.Method).Msg("Dispatcher: no handler for method, ignoring")
	return None
}

// Handle decides the response for req and writes it to w.
// The writer is never closed here; the connection owner decides its lifetime.
func (d *Dispatcher) Handle(ctx context.Context, w io.Writer, req *request.Request) (Response, error) {
	resp := d.Decide(ctx, req)
	payload := resp.Bytes()
	if len(payload) == 0 {
		return resp, nil
	}
	if _, err := w.Write(payload); err != nil {
		return resp, fmt.Errorf("failed to write %s response: %w", resp, err)
	}
	return resp, nil
}
