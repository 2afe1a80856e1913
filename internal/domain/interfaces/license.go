package interfaces

import "context"

// LicenseClient posts license messages to a license server.
type LicenseClient interface {
	// Exchange sends challenge to serverURL and returns the response body.
	// An empty serverURL means the client's configured default.
	Exchange(ctx context.Context, serverURL string, challenge []byte) ([]byte, error)
}
