package dispatcher

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"pathprobe/internal/core/request"
)

// mockChecker records every lookup and answers from a fixed set.
type mockChecker struct {
	existing map[string]bool
	lookups  []string
}

func (m *mockChecker) Exists(path string) bool {
	m.lookups = append(m.lookups, path)
	return m.existing[path]
}

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func setupTestDispatcher(existing ...string) (*Dispatcher, *mockChecker) {
	checker := &mockChecker{existing: make(map[string]bool)}
	for _, p := range existing {
		checker.existing[p] = true
	}
	return New(".", checker), checker
}

// --- Test Cases ---

func TestHandle_GetExistingFile(t *testing.T) {
	d, checker := setupTestDispatcher("./index.html")
	var out bytes.Buffer

	resp, err := d.Handle(context.Background(), &out, &request.Request{Method: "GET", Path: "/index.html", Protocol: "HTTP/1.0"})
	if err != nil {
		t.Fatalf("Handle() returned an error: %v", err)
	}
	if resp != Found {
		t.Errorf("Expected response 'found', but got '%s'", resp)
	}
	if out.String() != "HTTP/1.0 200 OK" {
		t.Errorf("Expected exactly 'HTTP/1.0 200 OK', but got %q", out.String())
	}
	if len(checker.lookups) != 1 || checker.lookups[0] != "./index.html" {
		t.Errorf("Expected a single lookup of './index.html', got %v", checker.lookups)
	}
}

func TestHandle_GetMissingFile(t *testing.T) {
	d, _ := setupTestDispatcher()
	var out bytes.Buffer

	resp, err := d.Handle(context.Background(), &out, &request.Request{Method: "GET", Path: "/missing", Protocol: "HTTP/1.0"})
	if err != nil {
		t.Fatalf("Handle() returned an error: %v", err)
	}
	if resp != NotFound {
		t.Errorf("Expected response 'not_found', but got '%s'", resp)
	}
	if out.String() != "HTTP/1.0 400 NOT FOUND" {
		t.Errorf("Expected exactly 'HTTP/1.0 400 NOT FOUND', but got %q", out.String())
	}
}

func TestHandle_NonGetIsSilent(t *testing.T) {
	d, checker := setupTestDispatcher("./index.html")

	for _, method := range []string{"POST", "HEAD", "get", "DELETE", ""} {
		var out bytes.Buffer
		resp, err := d.Handle(context.Background(), &out, &request.Request{Method: method, Path: "/index.html", Protocol: "HTTP/1.0"})
		if err != nil {
			t.Fatalf("Handle(%q) returned an error: %v", method, err)
		}
		if resp != None {
			t.Errorf("Expected no response for method %q, got '%s'", method, resp)
		}
		if out.Len() != 0 {
			t.Errorf("Expected no bytes for method %q, got %q", method, out.String())
		}
	}
	if len(checker.lookups) != 0 {
		t.Errorf("Non-GET methods must not consult the filesystem, got lookups %v", checker.lookups)
	}
}

func TestHandle_PathIsConcatenatedLiterally(t *testing.T) {
	d, checker := setupTestDispatcher()
	var out bytes.Buffer

	_, _ = d.Handle(context.Background(), &out, &request.Request{Method: "GET", Path: "/../etc/passwd", Protocol: "HTTP/1.0"})
	_, _ = d.Handle(context.Background(), &out, &request.Request{Method: "GET", Path: "relative", Protocol: "HTTP/1.0"})

	expected := []string{"./../etc/passwd", ".relative"}
	if len(checker.lookups) != len(expected) {
		t.Fatalf("Expected %d lookups, got %v", len(expected), checker.lookups)
	}
	for i, want := range expected {
		if checker.lookups[i] != want {
			t.Errorf("Lookup %d: expected '%s', got '%s'", i, want, checker.lookups[i])
		}
	}
}

func TestHandle_CustomRoot(t *testing.T) {
	checker := &mockChecker{existing: map[string]bool{"/srv/www/a.txt": true}}
	d := New("/srv/www", checker)

	if got := d.Decide(context.Background(), &request.Request{Method: "GET", Path: "/a.txt"}); got != Found {
		t.Errorf("Expected 'found' under custom root, got '%s'", got)
	}
}

func TestHandle_Stateless(t *testing.T) {
	d, _ := setupTestDispatcher("./a")
	req := &request.Request{Method: "GET", Path: "/a", Protocol: "HTTP/1.0"}

	var first, second bytes.Buffer
	if _, err := d.Handle(context.Background(), &first, req); err != nil {
		t.Fatalf("first Handle() returned an error: %v", err)
	}
	if _, err := d.Handle(context.Background(), &second, req); err != nil {
		t.Fatalf("second Handle() returned an error: %v", err)
	}
	if first.String() != second.String() {
		t.Errorf("Identical requests produced different responses: %q vs %q", first.String(), second.String())
	}
}

func TestHandle_WriteError(t *testing.T) {
	d, _ := setupTestDispatcher()

	resp, err := d.Handle(context.Background(), failingWriter{}, &request.Request{Method: "GET", Path: "/x", Protocol: "HTTP/1.0"})
	if err == nil {
		t.Fatal("Expected write error to be returned")
	}
	if resp != NotFound {
		t.Errorf("Expected decided response to be reported even on error, got '%s'", resp)
	}
}

func TestResponse_Bytes(t *testing.T) {
	if None.Bytes() != nil {
		t.Errorf("Expected None to render no bytes")
	}
	if string(Found.Bytes()) != StatusFound {
		t.Errorf("Unexpected Found bytes: %q", Found.Bytes())
	}
	if string(NotFound.Bytes()) != StatusNotFound {
		t.Errorf("Unexpected NotFound bytes: %q", NotFound.Bytes())
	}
}
