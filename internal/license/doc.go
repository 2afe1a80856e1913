// Package license provides an HTTP implementation of the
// domain.LicenseClient interface.
//
// A license server accepts a license message as the request body and
// answers with a license response. Requests accept a context for
// cancellation and deadlines. Non-2xx statuses are returned as errors with
// the HTTP method, full URL, and status text to aid diagnostics.
package license
