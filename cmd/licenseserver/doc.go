// Package main runs the development Clear Key license server used by cdmctl
// and the tests. Content keys are never stored: each is derived from the
// master secret and the key id, so the packager and the server agree on a
// key without sharing a database.
//
// HTTP API
//
//	POST /license
//	    Body is a Clear Key license request {"kids": [...], "type": "..."}.
//	    Responds with a JWK set holding one oct key per requested kid.
//	    Malformed or invalid requests get an RFC 7807 problem document.
//	    Requests beyond the configured rate get 429 with Retry-After.
//
//	GET /healthz
//	    Liveness probe.
//
//	GET /metrics
//	    Prometheus exposition of the server's counters.
//
// Behaviour
//
//   - Configuration comes from the same YAML file and CDM_* variables as
//     cdmctl; the server section sets the listen address, master secret and
//     rate limit.
//   - A lightweight access log records method, path, status, bytes and
//     duration for each request.
//   - SIGINT and SIGTERM drain in-flight requests for server.shutdown_grace
//     before exiting.
//
// This server is intended for local use and tests. It authenticates nobody
// and hands keys to anyone who asks.
package main
