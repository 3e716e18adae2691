package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"pathprobe/internal/core/dispatcher"
	"pathprobe/internal/core/fsprobe"
	"pathprobe/internal/core/gateway"
	"pathprobe/internal/service/web"
	"pathprobe/internal/shared/globalstate"
	"pathprobe/internal/shared/logger"
	"pathprobe/internal/shared/types"
)

const defaultStatsInterval = 2 * time.Second

// AppServer is the application's main struct.
type AppServer struct {
	cfg     *types.Config
	metrics *types.Metrics
	hub     *web.Hub

	dispatcher *dispatcher.Dispatcher
	gateway    *gateway.Gateway
	webServer  *web.Server

	// Banner output; stdout unless overridden in tests.
	out           io.Writer
	statsInterval time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New wires the gateway, dispatcher and optional web monitor from cfg.
// The existence checker defaults to the host filesystem when nil.
func New(cfg *types.Config, checker fsprobe.Checker) (*AppServer, error) {
	if checker == nil {
		checker = fsprobe.New()
	}

	s := &AppServer{
		cfg:           cfg,
		metrics:       &types.Metrics{},
		hub:           web.NewHub(),
		out:           os.Stdout,
		statsInterval: defaultStatsInterval,
	}

	s.dispatcher = dispatcher.New(cfg.ProbeConf.Root, checker)
	s.gateway = gateway.New(cfg.LocalConf.Port, gateway.OptionsFromConfig(cfg.ProbeConf), s.dispatcher, s.hub, s.metrics)

	if cfg.LocalConf.WebPort > 0 {
		ws, err := web.NewServer(cfg, s.metrics, s.hub)
		if err != nil {
			return nil, fmt.Errorf("failed to create web monitor: %w", err)
		}
		s.webServer = ws
	}

	return s, nil
}

// Metrics exposes the live counters.
func (s *AppServer) Metrics() *types.Metrics {
	return s.metrics
}

// Start binds the listener and prints the startup line. It returns the bound
// port, which differs from the configured one when port 0 is used.
func (s *AppServer) Start() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return s.gateway.GetListenerInfo().Port, nil
	}

	port, err := s.gateway.InitializeListener()
	if err != nil {
		return 0, err
	}
	s.started = true

	globalstate.GlobalStatus.Set(fmt.Sprintf("Listening on port %d", port))
	color.New(color.FgGreen).Fprintf(s.out, "Server listening on port %d\n", port)
	return port, nil
}

// Run serves until ctx is cancelled, Stop is called, or a component fails.
// Start is called first if it has not been already.
func (s *AppServer) Run(ctx context.Context) error {
	if _, err := s.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	logger.Info().
		Str("root", s.cfg.ProbeConf.Root).
		Str("framing", s.cfg.ProbeConf.Framing).
		Msg("Starting pathprobe...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.gateway.Serve()
		return nil
	})
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.statsLoop(gctx)
		return nil
	})
	if s.webServer != nil {
		g.Go(s.webServer.ListenAndServe)
	} else {
		logger.Info().Msg("Web monitor is disabled (web_port is 0 or not set).")
	}

	g.Go(func() error {
		<-gctx.Done()
		globalstate.GlobalStatus.Set("Stopping")
		s.gateway.Close()
		if s.webServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.webServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("Web monitor shutdown failed")
			}
		}
		return nil
	})

	err := g.Wait()
	globalstate.GlobalStatus.Set("Stopped")
	logger.Info().Msg("pathprobe stopped.")
	return err
}

// Stop asks a running server to shut down. Run returns once everything is closed.
func (s *AppServer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// statsLoop 定期向 web 监控推送统计数据
func (s *AppServer) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	var last types.MetricsSnapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.metrics.Snapshot()
			s.hub.BroadcastDashboardUpdate(&snap)
			if snap.Requests != last.Requests || snap.ParseFailures != last.ParseFailures {
				logger.Debug().
					Int("active", int(snap.ActiveConnections)).
					Int("requests", int(snap.Requests)).
					Int("rejected", int(snap.ParseFailures)).
					Msg("[AppServer] stats")
			}
			last = snap
		}
	}
}
