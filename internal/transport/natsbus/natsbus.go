// Package natsbus carries activities and replies over NATS.
//
// Inbound activities arrive as JSON on a queue subscription, so several bot
// instances can share the load. Replies are published as JSON to
// "{outboundPrefix}.{channelId}", where channel connectors pick them up.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"taskbot/internal/bot"
	"taskbot/internal/conversation"
	"taskbot/pkg/logging"
)

const (
	DefaultInboundSubject = "taskbot.activities"
	DefaultOutboundPrefix = "taskbot.outbound"
	DefaultQueueGroup     = "taskbot"

	handleTimeout = 2 * time.Minute
)

// Config configures the NATS transport.
type Config struct {
	URL            string
	InboundSubject string
	OutboundPrefix string
	QueueGroup     string
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.InboundSubject == "" {
		c.InboundSubject = DefaultInboundSubject
	}
	if c.OutboundPrefix == "" {
		c.OutboundPrefix = DefaultOutboundPrefix
	}
	if c.QueueGroup == "" {
		c.QueueGroup = DefaultQueueGroup
	}
}

// Connect opens a connection that keeps reconnecting in the background.
func Connect(cfg Config) (*nats.Conn, error) {
	cfg.applyDefaults()
	nc, err := nats.Connect(cfg.URL,
		nats.Name("taskbot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn("NATS", "Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info("NATS", "Reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	return nc, nil
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Messenger publishes outbound messages.
type Messenger struct {
	pub    publisher
	prefix string
}

// NewMessenger creates a messenger publishing under prefix.
func NewMessenger(conn *nats.Conn, prefix string) *Messenger {
	if prefix == "" {
		prefix = DefaultOutboundPrefix
	}
	return &Messenger{pub: conn, prefix: prefix}
}

// Subject returns the subject messages for channelID are published to.
func (m *Messenger) Subject(channelID string) string {
	return m.prefix + "." + subjectToken(channelID)
}

func (m *Messenger) Send(_ context.Context, msg conversation.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := m.pub.Publish(m.Subject(msg.Address.ChannelID), data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// subjectToken makes s usable as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// Handler processes inbound activities.
type Handler interface {
	Handle(ctx context.Context, act bot.Activity, messenger conversation.Messenger) error
}

// Subscriber feeds inbound activities to a Handler.
type Subscriber struct {
	conn      *nats.Conn
	cfg       Config
	handler   Handler
	messenger conversation.Messenger
}

// NewSubscriber creates a subscriber. Replies to the activities it handles
// go through messenger.
func NewSubscriber(conn *nats.Conn, cfg Config, handler Handler, messenger conversation.Messenger) *Subscriber {
	cfg.applyDefaults()
	return &Subscriber{conn: conn, cfg: cfg, handler: handler, messenger: messenger}
}

// Run subscribes and handles activities until ctx is cancelled, then
// drains the subscription.
func (s *Subscriber) Run(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.cfg.InboundSubject, s.cfg.QueueGroup, func(msg *nats.Msg) {
		s.handleMessage(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.InboundSubject, err)
	}
	logging.Info("NATS", "Subscribed to %s (queue %s)", s.cfg.InboundSubject, s.cfg.QueueGroup)

	<-ctx.Done()

	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}
	return nil
}

// handleMessage runs on the subscription's delivery goroutine, so
// activities are handled one at a time per connection.
func (s *Subscriber) handleMessage(ctx context.Context, data []byte) {
	var act bot.Activity
	if err := json.Unmarshal(data, &act); err != nil {
		logging.Warn("NATS", "Dropping malformed activity: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if err := s.handler.Handle(ctx, act, s.messenger); err != nil {
		logging.Error("NATS", err, "Failed to handle activity %s", act.ID)
	}
}
