package shared

import (
	"io"
	"net"
	"sync/atomic"
	"testing"
)

func TestCountedConn_CountsBothDirections(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	var uplink, downlink atomic.Uint64
	conn := NewCountedConn(server, &uplink, &downlink)
	defer conn.Close()

	go func() {
		client.Write([]byte("GET / HTTP/1.0"))
		buf := make([]byte, 15)
		io.ReadFull(client, buf)
	}()

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read() returned an error: %v", err)
	}
	if n != 14 {
		t.Fatalf("Expected to read 14 bytes, got %d", n)
	}
	if _, err := conn.Write([]byte("HTTP/1.0 200 OK")); err != nil {
		t.Fatalf("Write() returned an error: %v", err)
	}

	if downlink.Load() != 14 {
		t.Errorf("Expected downlink 14, got %d", downlink.Load())
	}
	if uplink.Load() != 15 {
		t.Errorf("Expected uplink 15, got %d", uplink.Load())
	}
}
