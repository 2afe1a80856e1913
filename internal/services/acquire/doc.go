// Package acquire runs complete license exchanges.
//
// It creates a session, forwards each license message the session emits to
// the license server through a domain.LicenseClient, hands the response
// back to the session, and waits for the resulting key status.
package acquire
