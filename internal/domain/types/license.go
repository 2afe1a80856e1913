package types

// LicenseType says whether license state survives a restart.
type LicenseType int32

const (
	// Temporary licenses live only as long as the engine session.
	Temporary LicenseType = iota
	// PersistentUsageRecord keeps a usage record after the keys are gone.
	PersistentUsageRecord
	// PersistentLicense stores the license so a later session can Load it.
	PersistentLicense
)

// Normalize maps unknown values to Temporary.
func (t LicenseType) Normalize() LicenseType {
	switch t {
	case PersistentUsageRecord, PersistentLicense:
		return t
	default:
		return Temporary
	}
}

// String returns the Clear Key name of the license type.
func (t LicenseType) String() string {
	switch t {
	case PersistentUsageRecord:
		return "persistent-usage-record"
	case PersistentLicense:
		return "persistent-license"
	default:
		return "temporary"
	}
}

// IsPersistent reports whether the engine should keep a record of the license.
func (t LicenseType) IsPersistent() bool {
	return t == PersistentUsageRecord || t == PersistentLicense
}

// ParseLicenseType parses the String form. Unknown names yield Temporary.
func ParseLicenseType(s string) LicenseType {
	switch s {
	case "persistent-usage-record":
		return PersistentUsageRecord
	case "persistent-license":
		return PersistentLicense
	default:
		return Temporary
	}
}

// InitDataType identifies the container format of the init data.
type InitDataType int32

const (
	// Cenc is ISO common encryption init data: one or more PSSH boxes.
	Cenc InitDataType = iota
	// WebM init data is a single raw key id.
	WebM
)

// String returns the EME name of the init data type.
func (t InitDataType) String() string {
	switch t {
	case WebM:
		return "webm"
	default:
		return "cenc"
	}
}

// ParseInitDataType recognises exactly "cenc" and "webm" (case-sensitive).
func ParseInitDataType(s string) (InitDataType, bool) {
	switch s {
	case "cenc":
		return Cenc, true
	case "webm":
		return WebM, true
	default:
		return Cenc, false
	}
}

// SessionState is a step in the license session lifecycle.
type SessionState int

const (
	StateCreated SessionState = iota
	StateRequestGenerated
	StateUpdated
	StateLoaded
	StateRemoved
	StateClosed
	// StateRequestAbandoned is terminal: the license request timed out.
	StateRequestAbandoned
)

// String returns a human-readable name for the state.
func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRequestGenerated:
		return "RequestGenerated"
	case StateUpdated:
		return "Updated"
	case StateLoaded:
		return "Loaded"
	case StateRemoved:
		return "Removed"
	case StateClosed:
		return "Closed"
	case StateRequestAbandoned:
		return "RequestAbandoned"
	default:
		return "Unknown"
	}
}
