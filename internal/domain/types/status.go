package types

import "strconv"

// Status is a result code reported by the engine.
type Status int

const (
	StatusSuccess                Status = 0
	StatusNeedsDeviceCertificate Status = 1
	StatusSessionNotFound        Status = 2
	StatusDecryptError           Status = 3
	StatusNoKey                  Status = 4
	StatusUnexpectedError        Status = 99
	StatusTypeError              Status = 100
	StatusNotSupported           Status = 101
	StatusInvalidState           Status = 102
	StatusQuotaExceeded          Status = 103
	StatusInvalidAccess          Status = 104
	StatusRangeError             Status = 105
)

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool { return s == StatusSuccess }

// String returns the code name, for logs.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusNeedsDeviceCertificate:
		return "NeedsDeviceCertificate"
	case StatusSessionNotFound:
		return "SessionNotFound"
	case StatusDecryptError:
		return "DecryptError"
	case StatusNoKey:
		return "NoKey"
	case StatusUnexpectedError:
		return "UnexpectedError"
	case StatusTypeError:
		return "TypeError"
	case StatusNotSupported:
		return "NotSupported"
	case StatusInvalidState:
		return "InvalidState"
	case StatusQuotaExceeded:
		return "QuotaExceeded"
	case StatusInvalidAccess:
		return "InvalidAccess"
	case StatusRangeError:
		return "RangeError"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Result is what a caller-facing operation returns.
type Result uint32

const (
	Success        Result = 0
	GenericFailure Result = 1
)

// OK reports whether r is Success.
func (r Result) OK() bool { return r == Success }

// String returns the result name.
func (r Result) String() string {
	if r == Success {
		return "SUCCESS"
	}
	return "GENERIC_FAILURE"
}

// ResultOf maps an engine status onto the caller vocabulary.
func ResultOf(s Status) Result {
	if s.OK() {
		return Success
	}
	return GenericFailure
}

// MessageType classifies an outgoing engine message. The numeric value is
// what prefixes the payload handed to the callback sink.
type MessageType int

const (
	LicenseRequest MessageType = iota
	LicenseRenewal
	LicenseRelease
	IndividualizationRequest
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case LicenseRequest:
		return "license-request"
	case LicenseRenewal:
		return "license-renewal"
	case LicenseRelease:
		return "license-release"
	case IndividualizationRequest:
		return "individualization-request"
	default:
		return "unknown"
	}
}
