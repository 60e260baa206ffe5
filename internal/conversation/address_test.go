package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupAddress() Address {
	return Address{
		ChannelID:    "teams",
		ServiceURL:   "https://smba.example.com",
		Bot:          Account{ID: "bot"},
		User:         Account{ID: "u1", Name: "Ann"},
		Conversation: &ConversationAccount{ID: "c1", IsGroup: true},
	}
}

func TestAddress_UserAddress(t *testing.T) {
	addr := groupAddress()
	user := addr.UserAddress()

	assert.Nil(t, user.Conversation)
	assert.False(t, user.IsGroup())
	assert.Equal(t, "", user.ConversationID())
	assert.Equal(t, addr.User, user.User)
	assert.Equal(t, addr.ChannelID, user.ChannelID)

	// The original keeps its conversation.
	assert.True(t, addr.IsGroup())
	assert.Equal(t, "c1", addr.ConversationID())
}

func TestMessages_HaveIDs(t *testing.T) {
	a := NewText(groupAddress(), "hi")
	b := NewSignin(groupAddress(), SigninCard{Text: "sign in", ButtonLabel: "Sign-in", URL: "https://x"})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	require.NotNil(t, b.Card)
	assert.Equal(t, "https://x", b.Card.URL)
}

func TestTurn_Reply(t *testing.T) {
	rec := NewRecorder()
	turn := &Turn{Address: groupAddress(), Messenger: rec}

	require.NoError(t, turn.Reply(context.Background(), "hello"))
	require.NoError(t, turn.SendTo(context.Background(), NewSignin(groupAddress().UserAddress(), SigninCard{Text: "card"})))

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "c1", msgs[0].Address.ConversationID())
	assert.Nil(t, msgs[1].Address.Conversation)
	assert.Equal(t, []string{"hello", "card"}, rec.Texts())

	assert.Len(t, rec.Drain(), 2)
	assert.Empty(t, rec.Messages())
}
