// Package server provides the HTTP control server for presenced.
//
// The server owns the presence actor and exposes a small REST API so local
// programs can drive the displayed activity.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /api/status - Presence status, reconnect schedule, build info, recent logs
//   - POST /connect - Enqueues Connect
//   - POST /disconnect - Enqueues Disconnect
//   - PUT /activity - Enqueues UpdateActivity, empty fields keep their value
//   - DELETE /activity - Enqueues ClearActivity
//   - GET /config - Returns current configuration as YAML
//   - POST /reload - Reloads configuration from disk and republishes the activity
//   - GET /metrics - Prometheus exposition, scrape mode only
//
// # Lifecycle
//
// The presence worker outlives the HTTP listener: on shutdown the listener is
// closed first, then the last presence handle is released so the worker
// disconnects cleanly. If that takes longer than the shutdown timeout the
// worker is aborted, which still closes an open connection.
//
// # Example
//
//	srv, err := server.New("/etc/presenced/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nomis52/presenced/clients/discordclient"
	"github.com/nomis52/presenced/config"
	"github.com/nomis52/presenced/logging"
	"github.com/nomis52/presenced/metrics"
	"github.com/nomis52/presenced/presence"
	"github.com/nomis52/presenced/server/cron"
	"github.com/nomis52/presenced/server/handlers"
	"github.com/nomis52/presenced/watcher"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	// Component names used for captured logs.
	componentPresence  = "presence"
	componentReconnect = "reconnect"
	componentWatcher   = "watcher"
)

// Server is the presenced control server.
type Server struct {
	addr            string
	configPath      string
	shutdownTimeout time.Duration

	logger    *slog.Logger
	logLevel  func(slog.Level)
	collector *logging.LogCollector
	hook      logging.LoggerHook
	clock     clockwork.Clock

	config atomic.Pointer[config.Config]

	client         presence.Client
	presence       *presence.Handle
	cancelPresence context.CancelFunc

	scrape *metrics.ScrapeRegistry
	push   *metrics.PushRegistry

	reconnect       *cron.ReconnectTrigger
	reconnectHandle *presence.Handle
	watcher         *watcher.Watcher

	httpServer *http.Server
	listening  chan struct{}
	boundAddr  atomic.Value // string
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr overrides the listener address from the configuration.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithLogger sets the server logger. By default a logger is built from the
// logging section of the configuration.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) error {
		s.logger = logger.Logger
		s.logLevel = logger.SetLevel
		return nil
	}
}

// WithPresenceClient replaces the Discord IPC client, mainly for tests.
func WithPresenceClient(client presence.Client) Option {
	return func(s *Server) error {
		s.client = client
		return nil
	}
}

// WithClock sets the clock used by the reconnect trigger, config watcher and
// fault timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) error {
		s.clock = clock
		return nil
	}
}

// WithShutdownTimeout bounds how long Run waits for the presence worker to
// disconnect on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.shutdownTimeout = d
		return nil
	}
}

// New loads the configuration at configPath, starts the presence worker and
// prepares the HTTP server. The caller must call Run, or Close if Run is never
// called, to release the worker.
func New(configPath string, opts ...Option) (*Server, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	s := &Server{
		addr:            cfg.Listener.Addr,
		configPath:      configPath,
		shutdownTimeout: defaultShutdownTimeout,
		collector:       logging.NewLogCollector(logging.DefaultMaxEntries),
		clock:           clockwork.NewRealClock(),
		listening:       make(chan struct{}),
	}
	s.hook = logging.NewCapturingLoggerHook(s.collector)
	s.config.Store(&cfg)

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.logger == nil {
		logger, err := logging.New(loggingConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
		s.logger = logger.Logger
		s.logLevel = logger.SetLevel
	}

	registry, err := s.newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	presenceMetrics, err := presence.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating presence metrics: %w", err)
	}

	presenceLogger := s.hook.LoggerForComponent(s.logger, componentPresence)
	if s.client == nil {
		s.client = discordclient.New(cfg.Presence.AppID,
			discordclient.WithLogger(presenceLogger),
			discordclient.WithTimeout(cfg.Presence.Timeout),
		)
	}

	presenceCtx, cancel := context.WithCancel(context.Background())
	s.cancelPresence = cancel
	s.presence = presence.New(presenceCtx, cfg.PresenceActor(), s.client,
		presence.WithLogger(presenceLogger),
		presence.WithMetrics(presenceMetrics),
		presence.WithClock(s.clock),
	)

	if cfg.Presence.ReconnectSchedule != "" {
		s.reconnectHandle = s.presence.Clone()
		trigger, err := cron.NewReconnectTrigger(cfg.Presence.ReconnectSchedule, s.reconnectHandle,
			cron.WithLogger(s.hook.LoggerForComponent(s.logger, componentReconnect)),
			cron.WithClock(s.clock),
		)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating reconnect trigger: %w", err)
		}
		s.reconnect = trigger
	}

	if cfg.Watch.Enabled {
		s.watcher = watcher.New(configPath, cfg.Watch.Debounce, s.onConfigChanged,
			watcher.WithLogger(s.hook.LoggerForComponent(s.logger, componentWatcher)),
			watcher.WithClock(s.clock),
		)
	}

	if cfg.Presence.ConnectOnStart {
		if err := s.presence.Connect(); err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting on start: %w", err)
		}
	}

	return s, nil
}

func loggingConfig(cfg config.Config) logging.Config {
	return logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	}
}

func (s *Server) newRegistry(cfg config.Config) (metrics.Registry, error) {
	switch cfg.Monitoring.Mode {
	case config.MonitoringScrape:
		reg, err := metrics.NewScrapeRegistry(cfg.Monitoring.MetricsPrefix)
		if err != nil {
			return nil, fmt.Errorf("creating scrape registry: %w", err)
		}
		s.scrape = reg
		return reg, nil
	case config.MonitoringPush:
		s.push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:    cfg.Monitoring.PushURL,
			Prefix: cfg.Monitoring.MetricsPrefix,
			Job:    cfg.Monitoring.JobName,
			Logger: s.logger,
		})
		return s.push, nil
	default:
		return metrics.Discard, nil
	}
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.config.Load()
}

// Presence returns the server's presence handle. Callers that keep it beyond
// the server's lifetime should Clone it.
func (s *Server) Presence() *presence.Handle {
	return s.presence
}

// Reload reads the config from disk and republishes the configured activity.
// The application id and the listener, monitoring and reconnect settings only
// take effect after a restart; the stored config keeps the running app_id.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}

	old := s.config.Load()
	if old.Presence.AppID != cfg.Presence.AppID {
		s.logger.Warn("presence app_id changed, restart to apply",
			"running", old.Presence.AppID,
			"configured", cfg.Presence.AppID,
		)
		cfg.Presence.AppID = old.Presence.AppID
	}
	s.config.Store(&cfg)

	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil && s.logLevel != nil {
		s.logLevel(level)
	}

	s.logger.Info("configuration loaded", "config_path", s.configPath)

	err = s.presence.SetActivity(cfg.Presence.Title, cfg.Presence.Subtitle, cfg.Presence.Icon)
	if err != nil {
		return fmt.Errorf("republishing activity: %w", err)
	}
	return nil
}

func (s *Server) onConfigChanged() {
	if err := s.Reload(); err != nil {
		s.logger.Error("reload after config change failed", "error", err)
	}
}

// PresenceStatus returns the presence worker's status.
func (s *Server) PresenceStatus() presence.Status {
	return s.presence.Status()
}

// Reconnect describes the reconnect schedule.
func (s *Server) Reconnect() handlers.ReconnectInfo {
	if s.reconnect == nil {
		return handlers.ReconnectInfo{}
	}
	info := handlers.ReconnectInfo{
		Scheduled: true,
		Spec:      s.reconnect.Spec(),
		Attempts:  s.reconnect.Attempts(),
	}
	next := s.reconnect.NextRun()
	info.NextRun = &next
	if last := s.reconnect.LastRun(); !last.IsZero() {
		info.LastRun = &last
	}
	return info
}

// RecentLogs returns the captured log entries of every component, oldest
// first, limited to the newest logging.DefaultMaxEntries.
func (s *Server) RecentLogs() []logging.LogEntry {
	var entries []logging.LogEntry
	for _, logs := range s.collector.GetAllLogs() {
		entries = append(entries, logs...)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	if len(entries) > logging.DefaultMaxEntries {
		entries = entries[len(entries)-logging.DefaultMaxEntries:]
	}
	return entries
}

// Handler returns the HTTP handler serving the control API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Addr returns the address the server is listening on, once Run has bound it.
func (s *Server) Addr() string {
	if v, ok := s.boundAddr.Load().(string); ok {
		return v
	}
	return ""
}

// Listening is closed once Run has bound its listener.
func (s *Server) Listening() <-chan struct{} {
	return s.listening
}

// Run starts the HTTP server and background tasks and blocks until ctx is
// cancelled or the listener fails. It then shuts down the listener and
// releases the presence worker.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.Close()
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.boundAddr.Store(ln.Addr().String())
	close(s.listening)

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()

	if s.reconnect != nil {
		s.logger.Info("starting reconnect trigger",
			"schedule", s.reconnect.Spec(),
			"next_run", s.reconnect.NextRun(),
		)
		s.reconnect.Start(bgCtx)
	}
	if s.watcher != nil {
		go func() {
			if err := s.watcher.Run(bgCtx); err != nil {
				s.logger.Error("config watcher failed", "error", err)
			}
		}()
	}
	// Pushing outlives bgCtx so the worker's final state is flushed.
	pushCtx, cancelPush := context.WithCancel(context.Background())
	defer cancelPush()
	pushDone := make(chan struct{})
	if s.push != nil {
		go func() {
			defer close(pushDone)
			s.push.Run(pushCtx)
		}()
	} else {
		close(pushDone)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", ln.Addr().String(),
			"config_path", s.configPath,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", "error", err)
	}
	cancelBg()

	if err := s.shutdownPresence(shutdownCtx); err != nil {
		s.logger.Warn("presence worker did not stop cleanly", "error", err)
	}
	cancelPush()
	<-pushDone
	return serveErr
}

// shutdownPresence releases every handle and waits for the worker. If ctx
// expires first the worker is aborted, which closes an open connection.
func (s *Server) shutdownPresence(ctx context.Context) error {
	if s.reconnectHandle != nil {
		_ = s.reconnectHandle.Close()
	}
	err := s.presence.Shutdown(ctx)
	if err != nil {
		s.cancelPresence()
		<-s.presence.Done()
	}
	s.cancelPresence()
	return err
}

// Close releases the presence worker without waiting. It is only needed when
// Run is never called.
func (s *Server) Close() {
	if s.reconnectHandle != nil {
		_ = s.reconnectHandle.Close()
	}
	_ = s.presence.Close()
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	apiLogger := s.logger.With("component", "api")

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s))
	mux.Handle("POST /connect", handlers.NewCommandHandler(apiLogger, s.presence, presence.Connect{}))
	mux.Handle("POST /disconnect", handlers.NewCommandHandler(apiLogger, s.presence, presence.Disconnect{}))
	mux.Handle("PUT /activity", handlers.NewActivityHandler(apiLogger, s.presence))
	mux.Handle("DELETE /activity", handlers.NewCommandHandler(apiLogger, s.presence, presence.ClearActivity{}))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger, s))

	if s.scrape != nil {
		mux.Handle("GET /metrics", s.scrape.Handler())
	}
}
