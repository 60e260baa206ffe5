// Package pending keeps track of authentication attempts that are waiting
// for the identity provider to call back.
//
// An attempt is registered under the chat user's id, which doubles as the
// OAuth state parameter. It completes exactly once: resolved with a profile
// by the callback, rejected with an error, or rejected with ErrAuthTimeout
// when its deadline passes. Registering again for the same user replaces the
// entry; the replaced attempt can no longer be reached by a callback and
// completes through its own deadline, or immediately with ErrSuperseded when
// the registry is built with WithRejectSuperseded(true).
//
// The registry lives in memory for the lifetime of the process.
package pending
