package interfaces

import domaintypes "cdmbridge/internal/domain/types"

// CallbackSink is the host-side receiver of translated session events.
type CallbackSink interface {
	// OnKeyMessage carries a tagged license message and where to send it.
	OnKeyMessage(message []byte, destinationURL string)
	// OnKeyStatusUpdate carries a key status name such as "KeyUsable".
	OnKeyStatusUpdate(status string)
	// OnKeyError carries an engine error name such as "SessionNotFound".
	OnKeyError(keyIndex int16, result domaintypes.Result, errorName string)
}
