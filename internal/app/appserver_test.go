package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"pathprobe/internal/core/dispatcher"
	"pathprobe/internal/core/fsprobe"
	"pathprobe/internal/service/web"
	"pathprobe/internal/shared/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func startTestServer(t *testing.T, webPort int, existing ...string) (*AppServer, int, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.LocalConf.Port = 0
	cfg.LocalConf.WebPort = webPort

	set := make(map[string]bool)
	for _, p := range existing {
		set[p] = true
	}
	s, err := New(cfg, fsprobe.Func(func(path string) bool { return set[path] }))
	if err != nil {
		t.Fatalf("New() returned an error: %v", err)
	}
	banner := &bytes.Buffer{}
	s.out = banner
	s.statsInterval = 20 * time.Millisecond

	port, err := s.Start()
	if err != nil {
		t.Fatalf("Start() returned an error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() returned an error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("Run() did not return after cancel")
		}
	})
	return s, port, banner
}

func send(t *testing.T, port int, payload string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write([]byte(payload))
	conn.(*net.TCPConn).CloseWrite()
	data, _ := io.ReadAll(conn)
	return string(data)
}

func TestAppServer_ServesRequests(t *testing.T) {
	s, port, banner := startTestServer(t, 0, "./index.html")

	if !strings.Contains(banner.String(), fmt.Sprintf("Server listening on port %d", port)) {
		t.Errorf("Expected startup line with port %d, got %q", port, banner.String())
	}

	if got := send(t, port, "GET /index.html HTTP/1.0\n"); got != dispatcher.StatusFound {
		t.Errorf("Expected %q, got %q", dispatcher.StatusFound, got)
	}
	if got := send(t, port, "GET /missing HTTP/1.0\n"); got != dispatcher.StatusNotFound {
		t.Errorf("Expected %q, got %q", dispatcher.StatusNotFound, got)
	}
	if got := send(t, port, "PUT /index.html HTTP/1.0\n"); got != "" {
		t.Errorf("Expected silence for PUT, got %q", got)
	}
	if got := send(t, port, "nonsense\n"); got != "" {
		t.Errorf("Expected silence for malformed input, got %q", got)
	}

	snap := s.Metrics().Snapshot()
	if snap.Found != 1 || snap.NotFound != 1 || snap.Ignored != 1 || snap.ParseFailures != 1 {
		t.Errorf("Unexpected metrics: %+v", snap)
	}
	if snap.TotalConnections != 4 {
		t.Errorf("Expected 4 connections, got %d", snap.TotalConnections)
	}
}

func TestAppServer_StopEndsRun(t *testing.T) {
	cfg := config.Default()
	cfg.LocalConf.Port = 0
	s, err := New(cfg, fsprobe.Func(func(string) bool { return false }))
	if err != nil {
		t.Fatalf("New() returned an error: %v", err)
	}
	s.out = io.Discard

	port, err := s.Start()
	if err != nil {
		t.Fatalf("Start() returned an error: %v", err)
	}
	again, err := s.Start()
	if err != nil || again != port {
		t.Errorf("Second Start() should be a no-op, got port %d err %v", again, err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	// Wait until the server answers before stopping it.
	if got := send(t, port, "GET /x HTTP/1.0\n"); got != dispatcher.StatusNotFound {
		t.Fatalf("Expected server to be up, got %q", got)
	}
	s.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() returned an error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after Stop()")
	}
}

func TestAppServer_WebMonitor(t *testing.T) {
	webPort := freePort(t)
	_, port, _ := startTestServer(t, webPort, "./a")

	send(t, port, "GET /a HTTP/1.0\n")

	url := fmt.Sprintf("http://127.0.0.1:%d/api/status", webPort)
	var status web.StatusResponse
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			err = json.NewDecoder(resp.Body).Decode(&status)
			resp.Body.Close()
			if err == nil {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("web monitor never became ready: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if status.Metrics.Found != 1 {
		t.Errorf("Expected one found request in status, got %+v", status.Metrics)
	}
	if !strings.HasPrefix(status.GlobalStatus, "Listening on port") {
		t.Errorf("Unexpected global status %q", status.GlobalStatus)
	}
}

func TestAppServer_BindFailure(t *testing.T) {
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("failed to occupy a port: %v", err)
	}
	defer l.Close()

	cfg := config.Default()
	cfg.LocalConf.Port = l.Addr().(*net.TCPAddr).Port
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() returned an error: %v", err)
	}
	s.out = io.Discard

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Expected Run() to fail when the port is taken")
	}
}
