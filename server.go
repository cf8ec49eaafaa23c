package webchat

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webchat/core"
	"pkt.systems/webchat/httpapi"
	"pkt.systems/webchat/internal/eventbus"
	"pkt.systems/webchat/internal/panelshell"
	"pkt.systems/webchat/schema"
)

// Server composes the coordinator with its transports and host shell.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	Coordinator() *core.Coordinator
	Bus() *eventbus.Bus
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Coordinator schema.CoordinatorConfig
	HTTP        httpapi.Config
	Shell       ShellConfig
}

// ShellConfig configures the browser host shell.
type ShellConfig struct {
	PanelURL string
	Headless bool
	ExecPath string
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	Store  core.KVStore
	Opener core.ConsumerOpener
	Sink   core.EventSink
	Clock  core.Clock
	Logger pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP    bool
	enableBus     bool
	enableBrowser bool
}

// WithHTTP enables the HTTP API, event streams and panel page.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithEventBus enables in-process subscribers.
func WithEventBus() ServerOption {
	return func(o *serverOptions) { o.enableBus = true }
}

// WithBrowserShell opens the panel in a DevTools-driven browser on open requests.
func WithBrowserShell() ServerOption {
	return func(o *serverOptions) { o.enableBrowser = true }
}

// New constructs a composable relay server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableBus {
		return nil, errors.New("no transports enabled")
	}
	normalized, err := schema.NormalizeCoordinatorConfig(cfg.Coordinator)
	if err != nil {
		return nil, err
	}
	cfg.Coordinator = normalized

	var hub *httpapi.Hub
	var bus *eventbus.Bus
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HTTP.HistorySize, deps.Logger)
	}
	if options.enableBus {
		bus = eventbus.New(deps.Logger)
	}
	sinks := make([]core.EventSink, 0, 3)
	if deps.Sink != nil {
		sinks = append(sinks, deps.Sink)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if bus != nil {
		sinks = append(sinks, bus)
	}
	var sink core.EventSink
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = eventFanout{sinks: sinks}
	}

	var browser *panelshell.Browser
	openers := make([]core.ConsumerOpener, 0, 2)
	if deps.Opener != nil {
		openers = append(openers, deps.Opener)
	}
	if options.enableBrowser {
		if cfg.Shell.PanelURL == "" {
			return nil, errors.New("browser shell requires a panel url")
		}
		browser, err = panelshell.New(panelshell.Options{
			PanelURL: cfg.Shell.PanelURL,
			Headless: cfg.Shell.Headless,
			ExecPath: cfg.Shell.ExecPath,
			Logger:   deps.Logger,
		})
		if err != nil {
			return nil, err
		}
		openers = append(openers, browser)
	}
	var opener core.ConsumerOpener
	switch len(openers) {
	case 0:
	case 1:
		opener = openers[0]
	default:
		opener = openerChain(openers)
	}

	coord, err := core.NewCoordinator(cfg.Coordinator, core.Deps{
		Sink:   sink,
		Opener: opener,
		Store:  deps.Store,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	var httpSrv *httpapi.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, coord, hub)
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		coord:   coord,
		bus:     bus,
		httpSrv: httpSrv,
		browser: browser,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	coord   *core.Coordinator
	bus     *eventbus.Bus
	httpSrv *httpapi.Server
	browser *panelshell.Browser
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Coordinator() *core.Coordinator {
	return s.coord
}

func (s *compositeServer) Bus() *eventbus.Bus {
	return s.bus
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"bus", s.options.enableBus,
		"browser", s.options.enableBrowser,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"open_timeout", s.cfg.Coordinator.OpenTimeout,
		"debounce", s.cfg.Coordinator.DebounceWindow,
	)
	// A broken store degrades tools to an empty list; the relay still runs.
	if err := s.coord.InitTools(s.ctx); err != nil {
		log.Warn("server tools init failed", "err", err)
	}
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested", "queued", s.coord.QueueSize())
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Warn("server browser close failed", "err", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
