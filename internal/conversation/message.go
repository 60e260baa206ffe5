package conversation

import (
	"context"

	"github.com/google/uuid"
)

// SigninCard is a rich attachment with a single sign-in button.
type SigninCard struct {
	Text        string `json:"text"`
	ButtonLabel string `json:"buttonLabel"`
	URL         string `json:"url"`
}

// Message is one outbound message.
type Message struct {
	ID      string      `json:"id"`
	Address Address     `json:"address"`
	Text    string      `json:"text,omitempty"`
	Card    *SigninCard `json:"card,omitempty"`
}

// NewText builds a text message to addr.
func NewText(addr Address, text string) Message {
	return Message{ID: uuid.NewString(), Address: addr, Text: text}
}

// NewSignin builds a sign-in card message to addr.
func NewSignin(addr Address, card SigninCard) Message {
	return Message{ID: uuid.NewString(), Address: addr, Card: &card}
}

// Messenger delivers outbound messages to a channel.
type Messenger interface {
	Send(ctx context.Context, msg Message) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f MessengerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
