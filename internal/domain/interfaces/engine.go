package interfaces

import domaintypes "cdmbridge/internal/domain/types"

// Engine is the opaque license and decryption engine a session wraps.
//
// Every method reports through a Status; engines never panic on bad input.
// Events for a session go to the listener passed to CreateSession and may
// arrive on any goroutine, including while another method is running.
type Engine interface {
	CreateSession(
		licenseType domaintypes.LicenseType,
		listener EventListener,
	) (sessionID string, status domaintypes.Status)
	GenerateRequest(
		sessionID string,
		initDataType domaintypes.InitDataType,
		initData []byte,
	) domaintypes.Status
	Update(sessionID string, response []byte) domaintypes.Status
	Load(sessionID string) domaintypes.Status
	Remove(sessionID string) domaintypes.Status
	Close(sessionID string) domaintypes.Status
	KeyStatuses(sessionID string) (domaintypes.KeyStatusMap, domaintypes.Status)
	Decrypt(in domaintypes.InputBuffer, out *domaintypes.OutputBuffer) domaintypes.Status
}

// EventListener receives asynchronous engine events for one session.
type EventListener interface {
	OnMessage(sessionID string, messageType domaintypes.MessageType, message []byte)
	OnKeyStatusesChange(sessionID string)
	OnRemoveComplete(sessionID string)
}

// SessionLoader is implemented by engines that can restore a persisted
// session into a freshly created one. On success the live session is known
// by persistedID from then on.
type SessionLoader interface {
	LoadSession(sessionID, persistedID string) domaintypes.Status
}
