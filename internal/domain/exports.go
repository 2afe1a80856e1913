package domain

import (
	interfaces "cdmbridge/internal/domain/interfaces"
	types "cdmbridge/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	LicenseType    = types.LicenseType
	InitDataType   = types.InitDataType
	SessionState   = types.SessionState
	KeyID          = types.KeyID
	KeyStatus      = types.KeyStatus
	KeyStatusEntry = types.KeyStatusEntry
	KeyStatusMap   = types.KeyStatusMap
	Status         = types.Status
	Result         = types.Result
	MessageType    = types.MessageType
	CipherMode     = types.CipherMode
	Subsample      = types.Subsample
	InputBuffer    = types.InputBuffer
	OutputBuffer   = types.OutputBuffer
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Engine        = interfaces.Engine
	EventListener = interfaces.EventListener
	SessionLoader = interfaces.SessionLoader
	CallbackSink  = interfaces.CallbackSink
	LicenseStore  = interfaces.LicenseStore
	LicenseClient = interfaces.LicenseClient
)

// Constants re-exported so callers need only import domain.
const (
	Temporary             = types.Temporary
	PersistentUsageRecord = types.PersistentUsageRecord
	PersistentLicense     = types.PersistentLicense

	Cenc = types.Cenc
	WebM = types.WebM

	StateCreated          = types.StateCreated
	StateRequestGenerated = types.StateRequestGenerated
	StateUpdated          = types.StateUpdated
	StateLoaded           = types.StateLoaded
	StateRemoved          = types.StateRemoved
	StateClosed           = types.StateClosed
	StateRequestAbandoned = types.StateRequestAbandoned

	KeyUsable           = types.KeyUsable
	KeyExpired          = types.KeyExpired
	KeyOutputRestricted = types.KeyOutputRestricted
	KeyStatusPending    = types.KeyStatusPending
	KeyInternalError    = types.KeyInternalError
	KeyReleased         = types.KeyReleased

	StatusSuccess                = types.StatusSuccess
	StatusNeedsDeviceCertificate = types.StatusNeedsDeviceCertificate
	StatusSessionNotFound        = types.StatusSessionNotFound
	StatusDecryptError           = types.StatusDecryptError
	StatusNoKey                  = types.StatusNoKey
	StatusUnexpectedError        = types.StatusUnexpectedError
	StatusTypeError              = types.StatusTypeError
	StatusNotSupported           = types.StatusNotSupported
	StatusInvalidState           = types.StatusInvalidState
	StatusQuotaExceeded          = types.StatusQuotaExceeded
	StatusInvalidAccess          = types.StatusInvalidAccess
	StatusRangeError             = types.StatusRangeError

	Success        = types.Success
	GenericFailure = types.GenericFailure

	LicenseRequest           = types.LicenseRequest
	LicenseRenewal           = types.LicenseRenewal
	LicenseRelease           = types.LicenseRelease
	IndividualizationRequest = types.IndividualizationRequest

	ModeCTR = types.ModeCTR
	ModeCBC = types.ModeCBC
)

// Function re-exports.
var (
	NewKeyStatusMap   = types.NewKeyStatusMap
	ParseInitDataType = types.ParseInitDataType
	ParseLicenseType  = types.ParseLicenseType
	ParseCipherMode   = types.ParseCipherMode
	ResultOf          = types.ResultOf
)
