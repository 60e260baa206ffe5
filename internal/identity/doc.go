// Package identity talks to the VSO identity provider: it builds the
// authorization URL the user is sent to, exchanges the authorization code
// returned on the callback for an access token, and fetches the signed-in
// user's profile.
//
// The provider uses the JWT-bearer assertion flow rather than the standard
// authorization-code grant: the authorization URL asks for
// response_type=Assertion and the token request carries the app secret as a
// client assertion and the code as the grant assertion. Both HTTP round trips
// are bounded and never retried; failures surface as *TokenExchangeError or
// *ProfileFetchError.
package identity
