package session

import (
	"context"
	"fmt"
)

// Session is the state one inbound message operates on.
type Session struct {
	store          Store
	userID         string
	conversationID string

	User         *UserRecord
	Conversation Data

	userDirty         bool
	conversationDirty bool
}

// Open loads the user's record and, when conversationID is set, the
// conversation's data.
func Open(ctx context.Context, store Store, userID, conversationID string) (*Session, error) {
	rec, err := store.LoadUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user data: %w", err)
	}

	conv := Data{}
	if conversationID != "" {
		conv, err = store.LoadConversation(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation data: %w", err)
		}
	}

	return &Session{
		store:          store,
		userID:         userID,
		conversationID: conversationID,
		User:           rec,
		Conversation:   conv,
	}, nil
}

// UserID returns the id the user record is stored under.
func (s *Session) UserID() string { return s.userID }

// Authenticated reports whether the user record carries a profile.
func (s *Session) Authenticated() bool {
	return s.User != nil && s.User.Profile != nil
}

// SetUserValue stores v under name in the user data and returns the
// previous value.
func (s *Session) SetUserValue(name string, v any) (prev any, existed bool) {
	prev, existed = s.User.Data[name]
	s.User.Data[name] = v
	s.userDirty = true
	return prev, existed
}

// SetConversationValue stores v under name in the conversation data and
// returns the previous value.
func (s *Session) SetConversationValue(name string, v any) (prev any, existed bool) {
	prev, existed = s.Conversation[name]
	s.Conversation[name] = v
	s.conversationDirty = true
	return prev, existed
}

// ConversationValue returns the conversation value stored under name.
func (s *Session) ConversationValue(name string) (any, bool) {
	v, ok := s.Conversation[name]
	return v, ok
}

// Save persists what changed since the last save. The user's profile is
// never written from here: it belongs to the authentication flow, which may
// have updated it while this session was open.
func (s *Session) Save(ctx context.Context) error {
	if s.userDirty {
		data := s.User.Data.Clone()
		err := s.store.UpdateUser(ctx, s.userID, func(rec *UserRecord) error {
			rec.Data = data
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to save user data: %w", err)
		}
		s.userDirty = false
	}

	if s.conversationDirty && s.conversationID != "" {
		if err := s.store.SaveConversation(ctx, s.conversationID, s.Conversation.Clone()); err != nil {
			return fmt.Errorf("failed to save conversation data: %w", err)
		}
		s.conversationDirty = false
	}
	return nil
}
