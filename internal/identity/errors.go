package identity

import "fmt"

// TokenExchangeError reports a failed code-for-token exchange: network error,
// non-2xx response, or a body without an access token.
type TokenExchangeError struct {
	Err error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// ProfileFetchError reports a failed profile request.
type ProfileFetchError struct {
	StatusCode int
	Err        error
}

func (e *ProfileFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("profile fetch failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("profile fetch failed: %v", e.Err)
}

func (e *ProfileFetchError) Unwrap() error { return e.Err }
