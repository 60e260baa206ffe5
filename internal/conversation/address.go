// Package conversation models where messages come from and go to, and the
// context of handling one inbound message.
package conversation

// Account identifies a participant on a channel.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies a conversation on a channel.
type ConversationAccount struct {
	ID      string `json:"id"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// Address is where a message was received from and where replies go.
type Address struct {
	ChannelID    string               `json:"channelId"`
	ServiceURL   string               `json:"serviceUrl,omitempty"`
	Bot          Account              `json:"bot"`
	User         Account              `json:"user"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
}

// IsGroup reports whether the address points at a multi-party conversation.
func (a Address) IsGroup() bool {
	return a.Conversation != nil && a.Conversation.IsGroup
}

// ConversationID returns the conversation id, or "" for a user address.
func (a Address) ConversationID() string {
	if a.Conversation == nil {
		return ""
	}
	return a.Conversation.ID
}

// UserAddress returns the address of a private message to the user: the
// same channel and participants, without the conversation.
func (a Address) UserAddress() Address {
	a.Conversation = nil
	return a
}
