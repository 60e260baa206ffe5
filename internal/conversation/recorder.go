package conversation

import (
	"context"
	"sync"
)

// Recorder is a Messenger that keeps every message in memory. The console
// and tests use it.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	notify   chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Send records msg.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Texts returns the text of every recorded message; cards contribute their text.
func (r *Recorder) Texts() []string {
	msgs := r.Messages()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Card != nil {
			out = append(out, m.Card.Text)
			continue
		}
		out = append(out, m.Text)
	}
	return out
}

// Drain returns and forgets everything recorded so far.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}

// Notify is signalled after each Send. It is buffered with one slot, so a
// reader that falls behind sees one signal for several messages.
func (r *Recorder) Notify() <-chan struct{} {
	return r.notify
}
