// Package auth runs the chat side of authentication.
//
// StartAuthentication registers a pending attempt for the user, sends the
// sign-in card to the user's private address and returns. A goroutine
// waits for the attempt to complete, applies the email domain policy and
// reports the outcome to the user. The profile is written to the user's
// record only when the policy allows it.
package auth
