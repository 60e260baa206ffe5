package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/identity"
)

func TestOpen_LoadsBothParts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveUser(ctx, "u1", &UserRecord{
		Profile: &identity.Profile{EmailAddress: "ann@microsoft.com"},
		Data:    Data{"lang": "en"},
	}))
	require.NoError(t, store.SaveConversation(ctx, "c1", Data{"color": "red"}))

	s, err := Open(ctx, store, "u1", "c1")
	require.NoError(t, err)

	assert.True(t, s.Authenticated())
	assert.Equal(t, "u1", s.UserID())
	assert.Equal(t, "en", s.User.Data["lang"])
	v, ok := s.ConversationValue("color")
	assert.True(t, ok)
	assert.Equal(t, "red", v)
}

func TestSession_SetReturnsPrevious(t *testing.T) {
	s, err := Open(context.Background(), NewMemoryStore(), "u1", "c1")
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	prev, existed := s.SetConversationValue("color", "red")
	assert.False(t, existed)
	assert.Nil(t, prev)

	prev, existed = s.SetConversationValue("color", "blue")
	assert.True(t, existed)
	assert.Equal(t, "red", prev)

	prev, existed = s.SetUserValue("lang", "en")
	assert.False(t, existed)
	assert.Nil(t, prev)
}

func TestSession_SaveKeepsConcurrentProfile(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := Open(ctx, store, "u1", "c1")
	require.NoError(t, err)
	s.SetUserValue("lang", "en")

	// The authentication flow writes the profile while the session is open.
	require.NoError(t, store.UpdateUser(ctx, "u1", func(rec *UserRecord) error {
		rec.Profile = &identity.Profile{EmailAddress: "ann@microsoft.com"}
		return nil
	}))

	require.NoError(t, s.Save(ctx))

	rec, err := store.LoadUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec.Profile)
	assert.Equal(t, "ann@microsoft.com", rec.Profile.EmailAddress)
	assert.Equal(t, "en", rec.Data["lang"])
}

func TestSession_SaveConversation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := Open(ctx, store, "u1", "c1")
	require.NoError(t, err)
	s.SetConversationValue("color", "blue")
	require.NoError(t, s.Save(ctx))

	data, err := store.LoadConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "blue", data["color"])
}

func TestSession_NoConversation(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryStore(), "u1", "")
	require.NoError(t, err)

	s.SetConversationValue("color", "blue")
	assert.NoError(t, s.Save(ctx))
	v, _ := s.ConversationValue("color")
	assert.Equal(t, "blue", v)
}
