package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"taskbot/internal/auth"
	"taskbot/internal/bot"
	"taskbot/internal/callback"
	"taskbot/internal/config"
	"taskbot/internal/conversation"
	"taskbot/internal/dispatch"
	"taskbot/internal/identity"
	"taskbot/internal/messages"
	"taskbot/internal/metrics"
	"taskbot/internal/pending"
	"taskbot/internal/session"
	"taskbot/internal/transport/natsbus"
	"taskbot/internal/workitem"
	"taskbot/pkg/logging"
)

const redisPingTimeout = 5 * time.Second

// Services holds the wired components.
type Services struct {
	Config       config.Config
	Catalogue    *messages.Catalogue
	Metrics      *metrics.Collector
	Registry     *pending.Registry
	Identity     *identity.Client
	Store        session.Store
	Policy       *auth.Policy
	Orchestrator *auth.Orchestrator
	Callback     *callback.Handler
	Dispatcher   *dispatch.Dispatcher
	Bot          *bot.Bot

	// Messenger delivers replies for activities arriving over HTTP or
	// NATS: the NATS outbound subjects when NATS is enabled, the log
	// otherwise.
	Messenger conversation.Messenger
	NATS      *nats.Conn

	redis  *redis.Client
	cancel context.CancelFunc
}

// NewServices builds every component described by cfg. Close releases them.
func NewServices(cfg config.Config) (*Services, error) {
	catalogue, err := messages.New(cfg.Messages)
	if err != nil {
		return nil, fmt.Errorf("invalid message overrides: %w", err)
	}

	// Sign-in goroutines outlive the requests that start them and stop
	// only when Close cancels this context.
	ctx, cancel := context.WithCancel(context.Background())
	s := &Services{
		Config:    cfg,
		Catalogue: catalogue,
		Metrics:   metrics.New(),
		cancel:    cancel,
	}

	s.Registry = pending.NewRegistry(
		pending.WithRejectSuperseded(cfg.OAuth.RejectSuperseded),
		pending.WithObserver(s.Metrics),
	)

	s.Identity = identity.NewClient(identity.Config{
		AppID:          cfg.OAuth.AppID,
		AppSecret:      cfg.OAuth.AppSecret,
		CallbackURL:    cfg.OAuth.CallbackURL,
		AuthorizeURL:   cfg.OAuth.AuthorizeURL,
		TokenURL:       cfg.OAuth.TokenURL,
		ProfileURL:     cfg.OAuth.ProfileURL,
		Scope:          cfg.OAuth.Scope,
		TokenTimeout:   cfg.OAuth.TokenTimeout,
		ProfileTimeout: cfg.OAuth.ProfileTimeout,
	})

	if err := s.openStore(cfg.Store); err != nil {
		s.Close()
		return nil, err
	}

	var items workitem.Service
	if cfg.WorkItems.Enabled() {
		client, err := workitem.NewClient(workitem.Config{
			OrganizationURL: cfg.WorkItems.OrganizationURL,
			Project:         cfg.WorkItems.Project,
			Token:           cfg.WorkItems.Token,
			Timeout:         cfg.WorkItems.Timeout,
			Observer:        s.Metrics,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create work item client: %w", err)
		}
		items = client
	} else {
		logging.Warn("Services", "No work item organization configured, work item commands are disabled")
	}

	s.Policy = auth.NewPolicy(cfg.OAuth.AllowedDomains...)
	s.Orchestrator = auth.NewOrchestrator(ctx, auth.Config{
		Identity: s.Identity,
		Registry: s.Registry,
		Store:    s.Store,
		Messages: catalogue,
		Policy:   s.Policy,
		Timeout:  cfg.OAuth.AuthTimeout,
		Observer: s.Metrics,
	})
	s.Callback = callback.NewHandler(ctx, s.Identity, s.Registry, catalogue, s.Metrics)
	s.Dispatcher = dispatch.New(s.Orchestrator, items, catalogue, s.Metrics)
	s.Bot = bot.New(s.Store, s.Dispatcher)

	if cfg.NATS.Enabled {
		conn, err := natsbus.Connect(s.natsConfig())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.NATS = conn
		s.Messenger = natsbus.NewMessenger(conn, cfg.NATS.OutboundPrefix)
	} else {
		s.Messenger = conversation.LogMessenger{}
	}

	logging.Info("Services", "Initialized (store=%s, nats=%t, workItems=%t, domains=%v)",
		cfg.Store.Backend, cfg.NATS.Enabled, items != nil, s.Policy.Domains())
	return s, nil
}

func (s *Services) openStore(cfg config.StoreConfig) error {
	if cfg.Backend != config.StoreRedis {
		s.Store = session.NewMemoryStore()
		return nil
	}

	s.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	s.Store = session.NewRedisStore(s.redis, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
	logging.Info("Services", "Using redis session store at %s", cfg.Redis.Addr)
	return nil
}

func (s *Services) natsConfig() natsbus.Config {
	return natsbus.Config{
		URL:            s.Config.NATS.URL,
		InboundSubject: s.Config.NATS.InboundSubject,
		OutboundPrefix: s.Config.NATS.OutboundPrefix,
		QueueGroup:     s.Config.NATS.QueueGroup,
	}
}

// Apply updates the parts of the configuration that can change at
// runtime: the allowed domains and the message overrides.
func (s *Services) Apply(cfg config.Config) {
	s.Policy.SetDomains(cfg.OAuth.AllowedDomains)
	if err := s.Catalogue.Update(cfg.Messages); err != nil {
		logging.Warn("Services", "Keeping previous messages: %v", err)
	}
	logging.Info("Services", "Applied configuration change (domains=%v)", s.Policy.Domains())
}

// Close stops background sign-ins, waits for them and releases
// connections. It is safe to call on a partially built Services.
func (s *Services) Close() {
	s.cancel()
	if s.Orchestrator != nil {
		s.Orchestrator.Wait()
	}
	if s.Callback != nil {
		s.Callback.Wait()
	}
	if s.NATS != nil {
		if err := s.NATS.Drain(); err != nil {
			logging.Warn("Services", "NATS drain failed: %v", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logging.Warn("Services", "Redis close failed: %v", err)
		}
	}
}
