// Package keystatus translates engine key states and error codes into the
// fixed names delivered to a callback sink.
package keystatus

import "cdmbridge/internal/domain"

// Status names delivered through CallbackSink.OnKeyStatusUpdate.
const (
	NameUsable           = "KeyUsable"
	NameExpired          = "KeyExpired"
	NameOutputRestricted = "KeyOutputRestricted"
	NamePending          = "KeyStatusPending"
	NameInternalError    = "KeyInternalError"
	NameReleased         = "KeyReleased"
	NameUnknown          = "UnknownError"
)

// Error names delivered through CallbackSink.OnKeyError.
const (
	ErrNeedsDeviceCertificate = "NeedsDeviceCertificate"
	ErrSessionNotFound        = "SessionNotFound"
	ErrDecrypt                = "DecryptError"
	ErrInvalidAccess          = "InvalidAccess"
	ErrQuotaExceeded          = "QuotaExceeded"
	ErrNotSupported           = "NotSupported"
	ErrUnexpected             = "UnexpectedError"
	// ErrRequestAbandoned is reported when a license request times out.
	ErrRequestAbandoned = "RequestAbandoned"
)

// Name returns the status name for s. Values outside the six defined
// statuses map to NameUnknown.
func Name(s domain.KeyStatus) string {
	switch s {
	case domain.KeyUsable:
		return NameUsable
	case domain.KeyExpired:
		return NameExpired
	case domain.KeyOutputRestricted:
		return NameOutputRestricted
	case domain.KeyStatusPending:
		return NamePending
	case domain.KeyInternalError:
		return NameInternalError
	case domain.KeyReleased:
		return NameReleased
	default:
		return NameUnknown
	}
}

// ErrorName returns the error name for an engine status. Codes without a
// dedicated name map to ErrUnexpected.
func ErrorName(s domain.Status) string {
	switch s {
	case domain.StatusNeedsDeviceCertificate:
		return ErrNeedsDeviceCertificate
	case domain.StatusSessionNotFound:
		return ErrSessionNotFound
	case domain.StatusDecryptError:
		return ErrDecrypt
	case domain.StatusInvalidAccess:
		return ErrInvalidAccess
	case domain.StatusQuotaExceeded:
		return ErrQuotaExceeded
	case domain.StatusNotSupported:
		return ErrNotSupported
	default:
		return ErrUnexpected
	}
}

// Policy picks the entry of a key status map that a single status update
// reports.
type Policy int

const (
	// FirstKey reports the first entry in key id order.
	FirstKey Policy = iota
	// WorstKey reports the most severe status across all keys.
	WorstKey
)

// ParsePolicy accepts "first" and "worst".
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "first":
		return FirstKey, true
	case "worst":
		return WorstKey, true
	default:
		return FirstKey, false
	}
}

// String returns the config name of the policy.
func (p Policy) String() string {
	if p == WorstKey {
		return "worst"
	}
	return "first"
}

// Summarize applies p to m and returns the status name to deliver. An empty
// map yields NameUnknown.
func Summarize(m domain.KeyStatusMap, p Policy) string {
	var (
		e  domain.KeyStatusEntry
		ok bool
	)
	if p == WorstKey {
		e, ok = m.Worst()
	} else {
		e, ok = m.First()
	}
	if !ok {
		return NameUnknown
	}
	return Name(e.Status)
}
