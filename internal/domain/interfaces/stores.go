package interfaces

// LicenseStore persists sealed license records by session id.
//
// Records are opaque to the store; the engine seals them before Put.
type LicenseStore interface {
	PutLicense(sessionID string, record []byte) error
	// GetLicense returns ok=false when nothing is stored for sessionID.
	GetLicense(sessionID string) (record []byte, ok bool, err error)
	DeleteLicense(sessionID string) error
	ListLicenses() ([]string, error)
	Close() error
}
