package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		AppID:        "app-id",
		AppSecret:    "app-secret",
		CallbackURL:  "https://bot.example.com/oauth/callback",
		AuthorizeURL: serverURL + "/oauth2/authorize",
		TokenURL:     serverURL + "/oauth2/token",
		ProfileURL:   serverURL + "/_apis/profile/profiles/me",
	})
}

func TestAuthorizationURL(t *testing.T) {
	c := newTestClient("https://idp.example.com")

	raw := c.AuthorizationURL("user-42")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "idp.example.com", u.Host)
	assert.Equal(t, "/oauth2/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "app-id", q.Get("client_id"))
	assert.Equal(t, "Assertion", q.Get("response_type"))
	assert.Equal(t, "user-42", q.Get("state"))
	assert.Equal(t, "vso.profile", q.Get("scope"))
	assert.Equal(t, "https://bot.example.com/oauth/callback", q.Get("redirect_uri"))
}

func TestExchangeCode(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","token_type":"bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	token, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, "urn:ietf:params:oauth:client-assertion-type:jwt-bearer", form.Get("client_assertion_type"))
	assert.Equal(t, "app-secret", form.Get("client_assertion"))
	assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("assertion"))
	assert.Equal(t, "https://bot.example.com/oauth/callback", form.Get("redirect_uri"))
	assert.Empty(t, form.Get("client_secret"))
	// Added by oauth2; the assertion grant ignores it.
	assert.Equal(t, "the-code", form.Get("code"))
}

func TestExchangeCode_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			},
		},
		{
			name: "no access token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"token_type":"bearer"}`)
			},
		},
		{
			name: "slow provider",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(Config{
				AppSecret:    "s",
				AuthorizeURL: srv.URL + "/authorize",
				TokenURL:     srv.URL + "/token",
				TokenTimeout: 200 * time.Millisecond,
			})

			_, err := c.ExchangeCode(context.Background(), "code")
			require.Error(t, err)

			var exErr *TokenExchangeError
			assert.True(t, errors.As(err, &exErr))
		})
	}
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"p-1","emailAddress":"ann@microsoft.com","displayName":"Ann","publicAlias":"ann","coreRevision":7}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	p, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "at-1", TokenType: "bearer"})
	require.NoError(t, err)

	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, "ann@microsoft.com", p.EmailAddress)
	assert.Equal(t, "Ann", p.DisplayName)
	assert.Equal(t, "ann", p.PublicAlias)
	assert.Equal(t, float64(7), p.Raw["coreRevision"])
	assert.Equal(t, "ann@microsoft.com Ann", p.String())
}

func TestExchangeThenFetchProfile_JWTBearerToken(t *testing.T) {
	var authHeader string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","token_type":"jwt-bearer","expires_in":"3599","refresh_token":"rt-1","scope":"vso.profile"}`)
	})
	mux.HandleFunc("/_apis/profile/profiles/me", func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if authHeader != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"p-1","emailAddress":"ann@microsoft.com","displayName":"Ann"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	token, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "jwt-bearer", token.TokenType)
	assert.False(t, token.Expiry.IsZero())

	p, err := c.FetchProfile(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "Bearer at-1", authHeader)
	assert.Equal(t, "ann@microsoft.com", p.EmailAddress)
}

func TestFetchProfile_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantStatus: http.StatusUnauthorized},
		{name: "malformed body", status: http.StatusOK, body: `not json`, wantStatus: http.StatusOK},
		{name: "missing email", status: http.StatusOK, body: `{"displayName":"x"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(srv.URL)
			_, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "at"})
			require.Error(t, err)

			var pfErr *ProfileFetchError
			require.True(t, errors.As(err, &pfErr))
			assert.Equal(t, tt.wantStatus, pfErr.StatusCode)
		})
	}
}

func TestProfileString_Nil(t *testing.T) {
	var p *Profile
	assert.Equal(t, "", p.String())
}
