// Package app wires taskbot together and runs it.
//
// NewServices builds every component from a config.Config: the message
// catalogue, the pending-auth registry, the identity client, the session
// store (memory or Redis), the work-item client, the auth orchestrator, the
// OAuth callback handler, the command dispatcher and the bot. Application
// adds the outer surfaces on top of it:
//
//   - the HTTP server (callback route, activity ingress, health, metrics)
//   - the NATS subscriber when nats.enabled is set
//   - a watcher that applies allow-list and message changes from the
//     configuration file without a restart
//
// Run blocks until its context is cancelled, then shuts the surfaces down
// and waits for in-flight sign-ins to finish before closing the store and
// the NATS connection. Readiness and shutdown are reported to systemd when
// NOTIFY_SOCKET is set.
package app
