package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pathprobe/internal/core/dispatcher"
	"pathprobe/internal/core/request"
	"pathprobe/internal/service/web"
	"pathprobe/internal/shared"
	"pathprobe/internal/shared/logger"
	"pathprobe/internal/shared/types"
)

// RequestHandler decides and writes the response for one parsed request.
type RequestHandler interface {
	Handle(ctx context.Context, w io.Writer, req *request.Request) (dispatcher.Response, error)
}

// Options control per-connection framing.
type Options struct {
	Framing      string
	MaxLineBytes int
	ReadBuffer   int
}

// OptionsFromConfig copies the framing settings out of the probe section.
func OptionsFromConfig(cfg types.ProbeConf) Options {
	return Options{
		Framing:      cfg.Framing,
		MaxLineBytes: cfg.MaxLineBytes,
		ReadBuffer:   cfg.ReadBuffer,
	}
}

type Gateway struct {
	listener     net.Listener
	listenerInfo *types.ListenerInfo
	handler      RequestHandler
	hub          *web.Hub
	metrics      *types.Metrics
	opts         Options
	listenPort   int

	closeOnce sync.Once
	waitGroup sync.WaitGroup

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	closed  bool
}

// New creates a Gateway. hub may be nil when the web monitor is disabled.
func New(listenPort int, opts Options, handler RequestHandler, hub *web.Hub, metrics *types.Metrics) *Gateway {
	if metrics == nil {
		metrics = &types.Metrics{}
	}
	return &Gateway{
		listenPort: listenPort,
		opts:       opts,
		handler:    handler,
		hub:        hub,
		metrics:    metrics,
		conns:      make(map[net.Conn]struct{}),
	}
}

// InitializeListener 负责监听端口并准备服务，但不阻塞。
// 它返回实际监听的端口号。
func (g *Gateway) InitializeListener() (int, error) {
	// 如果 listenPort 为 0, net.Listen 会选择一个可用的动态端口
	listenAddr := fmt.Sprintf("0.0.0.0:%d", g.listenPort)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return 0, fmt.Errorf("gateway failed to listen on %s: %w", listenAddr, err)
	}
	g.listener = listener

	tcpAddr := g.listener.Addr().(*net.TCPAddr)
	g.listenerInfo = &types.ListenerInfo{
		Address: tcpAddr.IP.String(),
		Port:    tcpAddr.Port,
	}
	logger.Info().Str("listen_addr", g.listener.Addr().String()).Msg(">>> Gateway is listening.")

	return g.listenerInfo.Port, nil
}

// Serve 启动阻塞的 accept 循环。必须在 InitializeListener 之后调用。
func (g *Gateway) Serve() {
	if g.listener == nil {
		logger.Error().Msg("Gateway.Serve() called before InitializeListener()")
		return
	}
	g.waitGroup.Add(1)
	g.acceptLoop()
}

// GetListenerInfo 返回网关的监听信息。
func (g *Gateway) GetListenerInfo() *types.ListenerInfo {
	return g.listenerInfo
}

// Close stops accepting, closes every open client connection and waits for
// their handlers to return.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		g.connsMu.Lock()
		g.closed = true
		if g.listener != nil {
			g.listener.Close()
		}
		for conn := range g.conns {
			conn.Close()
		}
		g.connsMu.Unlock()

		g.waitGroup.Wait()
		logger.Info().Msg("Gateway closed.")
	})
}

func (g *Gateway) acceptLoop() {
	defer g.waitGroup.Done()
	for {
		conn, err := g.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Info().Msg("Gateway listener is closing.")
				return
			}
			logger.Warn().Err(err).Msg("Gateway failed to accept connection")
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if !g.track(conn) {
			conn.Close()
			return
		}
		g.waitGroup.Add(1)
		go g.handleConnection(conn)
	}
}

func (g *Gateway) track(conn net.Conn) bool {
	g.connsMu.Lock()
	defer g.connsMu.Unlock()
	if g.closed {
		return false
	}
	g.conns[conn] = struct{}{}
	return true
}

func (g *Gateway) untrack(conn net.Conn) {
	g.connsMu.Lock()
	delete(g.conns, conn)
	g.connsMu.Unlock()
}

// handleConnection owns inboundConn. Any failure here, including a panic,
// ends this connection only.
func (g *Gateway) handleConnection(inboundConn net.Conn) {
	defer g.waitGroup.Done()
	defer g.untrack(inboundConn)
	defer inboundConn.Close()

	g.metrics.ActiveConnections.Add(1)
	defer g.metrics.ActiveConnections.Add(-1)
	g.metrics.TotalConnections.Add(1)

	traceID := uuid.NewString()
	clientIP := inboundConn.RemoteAddr().String()
	l := log.With().Str("trace_id", traceID).Str("client_ip", clientIP).Logger()
	ctx := l.WithContext(context.Background())

	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("Gateway: connection handler panicked")
		}
	}()

	l.Debug().Msg("Gateway: connection accepted")

	conn := shared.NewCountedConn(inboundConn, &g.metrics.Uplink, &g.metrics.Downlink)
	fr := newFramer(g.opts.Framing, g.opts.MaxLineBytes)
	buf := make([]byte, g.opts.ReadBuffer)

	for {
		n, readErr := conn.Read(buf)
		if n > 0 {
			feedErr := fr.Feed(buf[:n])
			if !g.drain(ctx, conn, fr, traceID, clientIP) {
				return
			}
			if feedErr != nil {
				l.Warn().Err(feedErr).Int("max_line_bytes", g.opts.MaxLineBytes).Msg("Gateway: framing error, closing connection")
				g.reject(traceID, clientIP, feedErr)
				return
			}
		}
		if readErr != nil {
			fr.Close()
			g.drain(ctx, conn, fr, traceID, clientIP)
			if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, net.ErrClosed) {
				l.Debug().Err(readErr).Msg("Gateway: read failed")
			}
			l.Debug().Str("state", fr.State().String()).Msg("Gateway: connection finished")
			return
		}
	}
}

// drain serves every complete line. It returns false once the connection must be closed.
func (g *Gateway) drain(ctx context.Context, conn net.Conn, fr *framer, traceID, clientIP string) bool {
	for {
		line, ok := fr.Next()
		if !ok {
			return true
		}
		if !g.serveLine(ctx, conn, line, traceID, clientIP) {
			return false
		}
	}
}

func (g *Gateway) serveLine(ctx context.Context, conn net.Conn, line, traceID, clientIP string) bool {
	l := zerolog.Ctx(ctx)

	req, err := request.Parse(line)
	if err != nil {
		l.Warn().Err(err).Str("input", line).Msg("Gateway: rejecting malformed request")
		g.reject(traceID, clientIP, err)
		return false
	}

	g.metrics.Requests.Add(1)
	l.Info().
		Str("method", req.Method).
		Str("path", req.Path).
		Str("protocol", req.Protocol).
		Msg("Gateway: request received")

	resp, err := g.handler.Handle(ctx, conn, req)

	action := web.ActionIgnored
	switch resp {
	case dispatcher.Found:
		g.metrics.Found.Add(1)
		action = web.ActionFound
	case dispatcher.NotFound:
		g.metrics.NotFound.Add(1)
		action = web.ActionNotFound
	default:
		g.metrics.Ignored.Add(1)
	}

	entry := &web.RequestLogEntry{
		Timestamp: time.Now(),
		TraceID:   traceID,
		ClientIP:  clientIP,
		Method:    req.Method,
		Path:      req.Path,
		Protocol:  req.Protocol,
		Action:    action,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	g.broadcast(entry)

	if err != nil {
		l.Warn().Err(err).Msg("Gateway: failed to write response")
		return false
	}
	return true
}

// reject records a request that never reached the dispatcher. Nothing is written to the client.
func (g *Gateway) reject(traceID, clientIP string, err error) {
	g.metrics.ParseFailures.Add(1)
	g.broadcast(&web.RequestLogEntry{
		Timestamp: time.Now(),
		TraceID:   traceID,
		ClientIP:  clientIP,
		Action:    web.ActionRejected,
		Error:     err.Error(),
	})
}

func (g *Gateway) broadcast(entry *web.RequestLogEntry) {
	if g.hub != nil {
		g.hub.BroadcastRequestLog(entry)
	}
}
