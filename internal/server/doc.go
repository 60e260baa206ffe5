// Package server is the bot's HTTP surface.
//
// Routes:
//   - GET {callbackPath} - OAuth redirect from the identity provider, rate
//     limited per client IP
//   - POST /api/messages - inbound activity as JSON, answered with 202
//   - GET /healthz - liveness
//   - GET /metrics - Prometheus metrics
package server
