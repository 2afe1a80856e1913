// Package licenseserver is a development Clear Key license server.
//
// Content keys are never stored: each key is derived from a master secret
// and its key id, so the packager and the server agree on keys without
// sharing state.
//
// HTTP API
//
//	POST /license
//	    Body is a Clear Key license request. The response is a JWK set with
//	    one key per requested key id.
//
//	GET /healthz
//	    Liveness probe.
//
//	GET /metrics
//	    Prometheus metrics.
//
// Errors are RFC 7807 problem documents.
package licenseserver
