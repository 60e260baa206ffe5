package conversation

import (
	"context"

	"taskbot/pkg/logging"
)

// LogMessenger writes outbound messages to the log instead of delivering
// them. It is used when no outbound transport is configured.
type LogMessenger struct{}

func (LogMessenger) Send(_ context.Context, msg Message) error {
	if msg.Card != nil {
		logging.Info("Outbound", "channel=%s user=%s card=%q url=%s",
			msg.Address.ChannelID, logging.Truncate(msg.Address.User.ID), msg.Card.Text, msg.Card.URL)
		return nil
	}
	logging.Info("Outbound", "channel=%s user=%s conversation=%s text=%q",
		msg.Address.ChannelID, logging.Truncate(msg.Address.User.ID), msg.Address.ConversationID(), msg.Text)
	return nil
}
