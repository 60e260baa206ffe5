package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskbot/internal/conversation"
	"taskbot/internal/identity"
	"taskbot/internal/messages"
	"taskbot/internal/pending"
	"taskbot/internal/session"
	"taskbot/pkg/logging"
)

// Outcomes reported to the Observer.
const (
	ResultAuthenticated = "authenticated"
	ResultDenied        = "denied"
	ResultFailed        = "failed"
	ResultTimeout       = "timeout"
)

// URLBuilder builds the provider sign-in URL for a correlation state.
type URLBuilder interface {
	AuthorizationURL(state string) string
}

// Observer is told about started and finished attempts.
type Observer interface {
	AuthStarted()
	AuthFinished(result string)
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Identity URLBuilder
	Registry *pending.Registry
	Store    session.Store
	Messages *messages.Catalogue
	Policy   *Policy
	// Timeout is how long an attempt waits for its callback.
	Timeout  time.Duration
	Observer Observer
}

// Orchestrator starts authentication attempts and reports their outcome.
type Orchestrator struct {
	identity URLBuilder
	registry *pending.Registry
	store    session.Store
	messages *messages.Catalogue
	policy   *Policy
	timeout  time.Duration
	observer Observer

	ctx context.Context
	wg  sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. ctx bounds the goroutines that
// wait for attempts; cancel it on shutdown and call Wait.
func NewOrchestrator(ctx context.Context, cfg Config) *Orchestrator {
	if cfg.Messages == nil {
		cfg.Messages = messages.Default()
	}
	if cfg.Policy == nil {
		cfg.Policy = NewPolicy()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = pending.DefaultTimeout
	}
	return &Orchestrator{
		identity: cfg.Identity,
		registry: cfg.Registry,
		store:    cfg.Store,
		messages: cfg.Messages,
		policy:   cfg.Policy,
		timeout:  cfg.Timeout,
		observer: cfg.Observer,
		ctx:      ctx,
	}
}

// Policy returns the domain policy in use.
func (o *Orchestrator) Policy() *Policy { return o.policy }

// StartAuthentication begins an attempt for the turn's user and returns
// without waiting for it.
func (o *Orchestrator) StartAuthentication(ctx context.Context, turn *conversation.Turn) error {
	userID := turn.Address.User.ID
	if userID == "" {
		return errors.New("cannot authenticate: message has no user id")
	}
	userAddr := turn.Address.UserAddress()

	signinURL := o.identity.AuthorizationURL(userID)

	// Registered before the card goes out, so a quick sign-in cannot reach
	// the callback ahead of the registration.
	handle := o.registry.Register(userID, o.timeout)
	if o.observer != nil {
		o.observer.AuthStarted()
	}

	o.wg.Add(1)
	go o.await(handle, userAddr, turn.Messenger)

	logging.Info("Auth", "Starting authentication for user=%s group=%t", logging.Truncate(userID), turn.Address.IsGroup())

	if turn.Address.IsGroup() {
		if err := turn.Reply(ctx, o.messages.Render(messages.GroupNotice, nil)); err != nil {
			logging.Warn("Auth", "Failed to send 1:1 notice to conversation=%s: %v", turn.Address.ConversationID(), err)
		}
	}

	card := conversation.NewSignin(userAddr, conversation.SigninCard{
		Text:        o.messages.Render(messages.SigninText, nil),
		ButtonLabel: o.messages.Render(messages.SigninButton, nil),
		URL:         signinURL,
	})
	if err := turn.SendTo(ctx, card); err != nil {
		err = fmt.Errorf("failed to send sign-in card: %w", err)
		o.registry.Reject(userID, err)
		return err
	}
	return nil
}

// Wait blocks until every attempt started so far has been reported.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) await(handle *pending.Handle, userAddr conversation.Address, messenger conversation.Messenger) {
	defer o.wg.Done()
	userID := handle.UserID()

	profile, err := handle.Await(o.ctx)
	if err != nil {
		if o.ctx.Err() != nil {
			logging.Debug("Auth", "Stopped waiting for user=%s: %v", logging.Truncate(userID), err)
			return
		}
		o.finished(ResultFailed, err)
		logging.Info("Auth", "Authentication failed for user=%s: %v", logging.Truncate(userID), err)
		o.send(messenger, userAddr, o.messages.Render(messages.AuthFailed, map[string]string{
			"Error": Sanitize(err.Error()),
		}))
		return
	}

	data := map[string]string{"Email": profile.EmailAddress, "Name": profile.DisplayName}

	if err := o.policy.Check(profile); err != nil {
		o.finished(ResultDenied, nil)
		logging.Warn("Auth", "Denied access to user=%s: %v", logging.Truncate(userID), err)
		if uerr := o.setProfile(userID, nil); uerr != nil {
			logging.Error("Auth", uerr, "Failed to clear profile for user=%s", logging.Truncate(userID))
		}
		o.send(messenger, userAddr, o.messages.Render(messages.AccessDenied, data))
		return
	}

	if err := o.setProfile(userID, profile); err != nil {
		o.finished(ResultFailed, err)
		logging.Error("Auth", err, "Failed to store profile for user=%s", logging.Truncate(userID))
		o.send(messenger, userAddr, o.messages.Render(messages.AuthFailed, map[string]string{
			"Error": Sanitize(err.Error()),
		}))
		return
	}

	o.finished(ResultAuthenticated, nil)
	logging.Info("Auth", "Authenticated user=%s", logging.Truncate(userID))
	o.send(messenger, userAddr, o.messages.Render(messages.Authenticated, data))
}

func (o *Orchestrator) setProfile(userID string, profile *identity.Profile) error {
	return o.store.UpdateUser(o.ctx, userID, func(rec *session.UserRecord) error {
		rec.Profile = profile
		return nil
	})
}

func (o *Orchestrator) send(messenger conversation.Messenger, addr conversation.Address, text string) {
	if err := messenger.Send(o.ctx, conversation.NewText(addr, text)); err != nil {
		logging.Error("Auth", err, "Failed to send authentication outcome to user=%s", logging.Truncate(addr.User.ID))
	}
}

func (o *Orchestrator) finished(result string, err error) {
	if o.observer == nil {
		return
	}
	if errors.Is(err, pending.ErrAuthTimeout) {
		result = ResultTimeout
	}
	o.observer.AuthFinished(result)
}
