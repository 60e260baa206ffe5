// Package session stores per-user and per-conversation bot state.
//
// A user record carries the profile of the user's last successful
// authentication and the variables set with UserSet. Conversation data holds
// the variables set with Set. Both are kept in a Store; MemoryStore serves
// single-process setups and tests, RedisStore shared deployments.
package session
