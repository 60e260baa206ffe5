package app

import (
	"context"
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"taskbot/internal/config"
	"taskbot/internal/server"
	"taskbot/internal/transport/natsbus"
	"taskbot/pkg/logging"
)

// Application runs the bot's network surfaces on top of Services.
type Application struct {
	opts       Options
	configPath string
	services   *Services
	server     *server.Server
}

// NewApplication loads the configuration, initializes logging and builds
// the services and the HTTP server.
func NewApplication(opts Options) (*Application, error) {
	cfg, path, err := LoadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	InitLogging(cfg.Logging, opts.Debug, opts.LogOutput)
	logging.Info("Bootstrap", "Loaded configuration from %s", path)

	return New(opts, path, cfg)
}

// New builds an application from an already loaded configuration. path is
// the file watched when opts.Watch is set.
func New(opts Options, path string, cfg config.Config) (*Application, error) {
	services, err := NewServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps := server.Deps{
		Callback:  services.Callback,
		Messenger: services.Messenger,
		Metrics:   services.Metrics.Handler(),
	}
	if cfg.Server.Ingress {
		deps.Activities = services.Bot
	}
	srv := server.New(server.Config{
		Addr:          cfg.Server.Addr,
		CallbackPath:  cfg.Server.CallbackPath,
		CallbackRate:  cfg.Server.CallbackRate,
		CallbackBurst: cfg.Server.CallbackBurst,
	}, deps)

	return &Application{opts: opts, configPath: path, services: services, server: srv}, nil
}

// Services returns the wired components.
func (a *Application) Services() *Services { return a.services }

// Run serves until ctx is cancelled or a surface fails.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.services.Config.Server.Addr)
	if err != nil {
		a.services.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.services.Config.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	defer a.services.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Serve(gctx, ln)
	})

	if a.services.NATS != nil {
		sub := natsbus.NewSubscriber(a.services.NATS, a.services.natsConfig(), a.services.Bot, a.services.Messenger)
		g.Go(func() error {
			return sub.Run(gctx)
		})
	}

	if a.opts.Watch && a.configPath != "" {
		if err := config.Watch(gctx, a.configPath, a.services.Apply); err != nil {
			logging.Warn("Bootstrap", "Configuration changes will not be picked up: %v", err)
		}
	}

	notify(daemon.SdNotifyReady)
	logging.Info("Bootstrap", "taskbot is running on %s", ln.Addr())

	err := g.Wait()
	notify(daemon.SdNotifyStopping)
	logging.Info("Bootstrap", "Shutting down, waiting for pending sign-ins")
	return err
}

func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("Bootstrap", "systemd notification %q failed: %v", state, err)
		return
	}
	if sent {
		logging.Debug("Bootstrap", "Notified systemd: %s", state)
	}
}
