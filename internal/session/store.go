package session

import (
	"context"
	"encoding/json"
	"errors"

	"taskbot/internal/identity"
)

// ErrEmptyKey is returned when a record is addressed without an id.
var ErrEmptyKey = errors.New("session key must not be empty")

// Data is a bag of named values.
type Data map[string]any

// Clone returns a shallow copy of d. It never returns nil.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// UserRecord is everything stored about one user.
type UserRecord struct {
	Profile *identity.Profile `json:"authenticatedProfile,omitempty"`
	Data    Data              `json:"userData,omitempty"`
}

// Store persists user records and conversation data. Loading something that
// was never saved returns an empty value, not an error.
type Store interface {
	LoadUser(ctx context.Context, userID string) (*UserRecord, error)
	SaveUser(ctx context.Context, userID string, rec *UserRecord) error
	// UpdateUser applies fn to the current record and saves the result
	// atomically with respect to other updates of the same user.
	UpdateUser(ctx context.Context, userID string, fn func(*UserRecord) error) error

	LoadConversation(ctx context.Context, conversationID string) (Data, error)
	SaveConversation(ctx context.Context, conversationID string, data Data) error
}

func decodeUser(raw []byte) (*UserRecord, error) {
	rec := &UserRecord{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, err
		}
	}
	if rec.Data == nil {
		rec.Data = Data{}
	}
	return rec, nil
}

func decodeData(raw []byte) (Data, error) {
	data := Data{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
	}
	return data, nil
}
