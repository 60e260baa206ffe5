// Package callback serves the identity provider's redirect after the user
// signs in.
//
// The handler answers the browser at once and finishes the code exchange in
// the background, completing the user's pending attempt in the registry.
// A callback whose state matches no pending attempt is answered with
// "Wrong callback" and otherwise ignored.
package callback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"taskbot/internal/identity"
	"taskbot/internal/messages"
	"taskbot/internal/pending"
	"taskbot/pkg/logging"
)

// Results reported to the Observer.
const (
	ResultAccepted = "accepted"
	ResultWrong    = "wrong"
)

// Exchanger turns an authorization code into a profile.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*identity.Profile, error)
}

// Observer is told about every callback received.
type Observer interface {
	CallbackReceived(result string)
}

// Handler handles GET requests on the OAuth callback path.
type Handler struct {
	exchanger Exchanger
	registry  *pending.Registry
	messages  *messages.Catalogue
	observer  Observer

	ctx context.Context
	wg  sync.WaitGroup
}

// NewHandler creates a handler. ctx bounds the background exchanges.
func NewHandler(ctx context.Context, exchanger Exchanger, registry *pending.Registry, catalogue *messages.Catalogue, observer Observer) *Handler {
	if catalogue == nil {
		catalogue = messages.Default()
	}
	return &Handler{
		exchanger: exchanger,
		registry:  registry,
		messages:  catalogue,
		observer:  observer,
		ctx:       ctx,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("state")
	code := query.Get("code")
	providerErr := query.Get("error")
	providerErrDesc := query.Get("error_description")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if userID == "" || !h.registry.Pending(userID) {
		logging.Warn("Callback", "Callback without pending authentication for state=%s", logging.Truncate(userID))
		h.observe(ResultWrong)
		fmt.Fprint(w, h.messages.Render(messages.WrongCallback, nil))
		return
	}

	h.observe(ResultAccepted)
	fmt.Fprint(w, h.messages.Render(messages.CallbackAck, nil))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.complete(userID, code, providerErr, providerErrDesc)
	}()
}

// Wait blocks until every background exchange has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) complete(userID, code, providerErr, providerErrDesc string) {
	if providerErr != "" {
		reason := providerErr
		if providerErrDesc != "" {
			reason = providerErrDesc
		}
		logging.Warn("Callback", "Provider returned error for user=%s: %s", logging.Truncate(userID), providerErr)
		h.registry.Reject(userID, fmt.Errorf("Provider refused sign-in: %s", reason))
		return
	}
	if code == "" {
		h.registry.Reject(userID, errors.New("Callback carried no authorization code"))
		return
	}

	token, err := h.exchanger.ExchangeCode(h.ctx, code)
	if err != nil {
		logging.Error("Callback", err, "Failed to exchange code for user=%s", logging.Truncate(userID))
		h.registry.Reject(userID, fmt.Errorf("Cannot get OAuth token: %w", err))
		return
	}

	profile, err := h.exchanger.FetchProfile(h.ctx, token)
	if err != nil {
		logging.Error("Callback", err, "Failed to fetch profile for user=%s", logging.Truncate(userID))
		h.registry.Reject(userID, fmt.Errorf("Cannot get VSO profile: %w", err))
		return
	}

	if !h.registry.Resolve(userID, profile) {
		logging.Debug("Callback", "Attempt for user=%s ended before the exchange finished", logging.Truncate(userID))
	}
}

func (h *Handler) observe(result string) {
	if h.observer != nil {
		h.observer.CallbackReceived(result)
	}
}
