// Package bot turns inbound activities into dispatched commands.
package bot

import (
	"context"
	"errors"
	"fmt"

	"taskbot/internal/command"
	"taskbot/internal/conversation"
	"taskbot/internal/dispatch"
	"taskbot/internal/session"
	"taskbot/pkg/logging"
)

// IntentExecuteCommands is the only intent the bot acts on.
const IntentExecuteCommands = "ExecuteCommands"

// Activity is one inbound message after intent recognition.
type Activity struct {
	ID       string               `json:"id,omitempty"`
	Address  conversation.Address `json:"address"`
	Intent   string               `json:"intent"`
	Commands []command.Raw        `json:"commands"`
}

// Validate checks the fields every activity needs.
func (a *Activity) Validate() error {
	if a.Address.User.ID == "" {
		return errors.New("activity has no user id")
	}
	if a.Address.ChannelID == "" {
		return errors.New("activity has no channel id")
	}
	return nil
}

// Bot handles activities.
type Bot struct {
	store      session.Store
	dispatcher *dispatch.Dispatcher
}

// New creates a bot.
func New(store session.Store, dispatcher *dispatch.Dispatcher) *Bot {
	return &Bot{store: store, dispatcher: dispatcher}
}

// Handle opens the session for the activity, dispatches its commands and
// saves what they changed. Replies go out through messenger.
func (b *Bot) Handle(ctx context.Context, act Activity, messenger conversation.Messenger) error {
	if act.Intent != IntentExecuteCommands {
		logging.Debug("Bot", "Ignoring activity %s with intent %q", act.ID, act.Intent)
		return nil
	}
	if err := act.Validate(); err != nil {
		return err
	}

	cmds := command.DecodeAll(act.Commands)
	return b.Run(ctx, act.Address, cmds, messenger)
}

// Run dispatches already decoded commands for addr.
func (b *Bot) Run(ctx context.Context, addr conversation.Address, cmds []command.Command, messenger conversation.Messenger) error {
	sess, err := session.Open(ctx, b.store, addr.User.ID, addr.ConversationID())
	if err != nil {
		return err
	}

	turn := &conversation.Turn{Address: addr, Session: sess, Messenger: messenger}
	dispatchErr := b.dispatcher.Dispatch(ctx, turn, cmds)

	if err := sess.Save(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if errors.Is(dispatchErr, dispatch.ErrUnauthenticated) {
		logging.Debug("Bot", "Stopped commands from unauthenticated user=%s", logging.Truncate(addr.User.ID))
		return nil
	}
	return dispatchErr
}
