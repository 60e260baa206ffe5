package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"taskbot/pkg/logging"
)

const (
	// DefaultAuthorizeURL is the VSO authorization endpoint.
	DefaultAuthorizeURL = "https://app.vssps.visualstudio.com/oauth2/authorize"
	// DefaultTokenURL is the VSO token endpoint.
	DefaultTokenURL = "https://app.vssps.visualstudio.com/oauth2/token"
	// DefaultProfileURL returns the profile of the token's owner.
	DefaultProfileURL = "https://app.vssps.visualstudio.com/_apis/profile/profiles/me?api-version=1.0"
	// DefaultScope is the only scope the bot needs.
	DefaultScope = "vso.profile"

	// DefaultTokenTimeout bounds the token request.
	DefaultTokenTimeout = time.Second
	// DefaultProfileTimeout bounds the profile request.
	DefaultProfileTimeout = 5 * time.Second

	responseTypeAssertion = "Assertion"
	clientAssertionType   = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	jwtBearerGrantType    = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	maxProfileBytes = 1 << 20
)

// Config configures the identity client.
type Config struct {
	AppID          string
	AppSecret      string
	CallbackURL    string
	AuthorizeURL   string
	TokenURL       string
	ProfileURL     string
	Scope          string
	TokenTimeout   time.Duration
	ProfileTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.ProfileURL == "" {
		c.ProfileURL = DefaultProfileURL
	}
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.TokenTimeout <= 0 {
		c.TokenTimeout = DefaultTokenTimeout
	}
	if c.ProfileTimeout <= 0 {
		c.ProfileTimeout = DefaultProfileTimeout
	}
}

// Client performs the provider round trips.
type Client struct {
	authorize  oauth2.Config
	exchange   oauth2.Config
	secret     string
	profileURL string

	tokenHTTP   *http.Client
	profileHTTP *http.Client
}

// NewClient creates a client for the configured provider.
func NewClient(cfg Config) *Client {
	cfg.applyDefaults()

	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.AuthorizeURL,
		TokenURL: cfg.TokenURL,
		// The assertion flow authenticates the app through client_assertion,
		// so no client_id/client_secret pair is added to the token request.
		AuthStyle: oauth2.AuthStyleInParams,
	}

	return &Client{
		authorize: oauth2.Config{
			ClientID:    cfg.AppID,
			Endpoint:    endpoint,
			RedirectURL: cfg.CallbackURL,
			Scopes:      []string{cfg.Scope},
		},
		exchange: oauth2.Config{
			Endpoint:    endpoint,
			RedirectURL: cfg.CallbackURL,
		},
		secret:      cfg.AppSecret,
		profileURL:  cfg.ProfileURL,
		tokenHTTP:   &http.Client{Timeout: cfg.TokenTimeout},
		profileHTTP: &http.Client{Timeout: cfg.ProfileTimeout},
	}
}

// AuthorizationURL returns the provider sign-in URL. state is echoed back
// unchanged on the callback and is the correlation key for the attempt.
func (c *Client) AuthorizationURL(state string) string {
	return c.authorize.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", responseTypeAssertion))
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.tokenHTTP)

	// Exchange also sends code=<code>. The jwt-bearer grant reads the
	// code from assertion and ignores parameters it does not define.
	token, err := c.exchange.Exchange(ctx, code,
		oauth2.SetAuthURLParam("client_assertion_type", clientAssertionType),
		oauth2.SetAuthURLParam("client_assertion", c.secret),
		oauth2.SetAuthURLParam("grant_type", jwtBearerGrantType),
		oauth2.SetAuthURLParam("assertion", code),
	)
	if err != nil {
		return nil, &TokenExchangeError{Err: err}
	}

	logging.Debug("Identity", "Exchanged authorization code (expires=%s)", token.Expiry.Format(time.RFC3339))
	return token, nil
}

// FetchProfile returns the profile of the token's owner.
func (c *Client) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	// The token endpoint reports token_type "jwt-bearer", which oauth2 would
	// copy into the Authorization scheme. The profile API only accepts Bearer.
	bearer := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.AccessToken, TokenType: "Bearer"})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.profileHTTP)
	httpClient := oauth2.NewClient(ctx, bearer)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, &ProfileFetchError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &ProfileFetchError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, &ProfileFetchError{Err: fmt.Errorf("failed to read profile response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Debug("Identity", "Profile request failed: status=%d body=%s", resp.StatusCode, string(body))
		return nil, &ProfileFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response")}
	}

	profile, err := parseProfile(body)
	if err != nil {
		return nil, &ProfileFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed profile: %w", err)}
	}
	return profile, nil
}
