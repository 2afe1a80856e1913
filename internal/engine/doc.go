// Package engine is a software Clear Key engine implementing domain.Engine.
//
// License requests are W3C Clear Key request objects listing the key ids
// found in the init data. Responses are JSON Web Key sets. Samples are
// decrypted with AES-128 in CTR or CBC mode.
//
// Persistent licenses are sealed with a passphrase and written to a
// domain.LicenseStore under the session id, so a later process can restore
// them with Load or LoadSession.
//
// Events are delivered on an engine-owned goroutine in the order they were
// raised, never while the engine lock is held.
package engine
