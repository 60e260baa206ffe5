package conversation

import (
	"context"

	"taskbot/internal/session"
)

// Turn is the context for handling one inbound message: where it came from,
// the session it operates on, and how to answer.
type Turn struct {
	Address   Address
	Session   *session.Session
	Messenger Messenger
}

// Reply sends text back to the address the message came from.
func (t *Turn) Reply(ctx context.Context, text string) error {
	return t.Messenger.Send(ctx, NewText(t.Address, text))
}

// SendTo sends msg through the turn's messenger.
func (t *Turn) SendTo(ctx context.Context, msg Message) error {
	return t.Messenger.Send(ctx, msg)
}
