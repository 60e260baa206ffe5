package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/bot"
	"taskbot/internal/conversation"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func TestMessenger_Send(t *testing.T) {
	pub := &fakePublisher{}
	m := &Messenger{pub: pub, prefix: "bots.out"}

	addr := conversation.Address{ChannelID: "ms.teams", User: conversation.Account{ID: "u1"}}
	require.NoError(t, m.Send(context.Background(), conversation.NewText(addr, "hello")))

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "bots.out.ms_teams", pub.subjects[0])

	var got conversation.Message
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "u1", got.Address.User.ID)
	assert.NotEmpty(t, got.ID)
}

func TestMessenger_PublishError(t *testing.T) {
	boom := errors.New("closed")
	m := &Messenger{pub: &fakePublisher{err: boom}, prefix: "p"}
	err := m.Send(context.Background(), conversation.NewText(conversation.Address{ChannelID: "c"}, "x"))
	assert.ErrorIs(t, err, boom)
}

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "unknown", subjectToken(""))
	assert.Equal(t, "a_b_c_d", subjectToken("a.b*c>d"))
	assert.Equal(t, "slack", subjectToken("slack"))
}

type recordingHandler struct {
	acts []bot.Activity
	err  error
}

func (r *recordingHandler) Handle(_ context.Context, act bot.Activity, _ conversation.Messenger) error {
	r.acts = append(r.acts, act)
	return r.err
}

func TestSubscriber_HandleMessage(t *testing.T) {
	h := &recordingHandler{}
	s := NewSubscriber(nil, Config{}, h, conversation.NewRecorder())

	s.handleMessage(context.Background(), []byte(`{"id":"a1","intent":"ExecuteCommands","address":{"channelId":"teams","user":{"id":"u1"}}}`))
	s.handleMessage(context.Background(), []byte(`not json`))

	h.err = errors.New("failed")
	s.handleMessage(context.Background(), []byte(`{"id":"a2"}`))

	require.Len(t, h.acts, 2)
	assert.Equal(t, "a1", h.acts[0].ID)
	assert.Equal(t, "a2", h.acts[1].ID)
}

func TestConfigDefaults(t *testing.T) {
	s := NewSubscriber(nil, Config{}, &recordingHandler{}, nil)
	assert.Equal(t, DefaultInboundSubject, s.cfg.InboundSubject)
	assert.Equal(t, DefaultQueueGroup, s.cfg.QueueGroup)
	assert.Equal(t, "nats://127.0.0.1:4222", s.cfg.URL)
}
