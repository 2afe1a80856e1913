// Package session drives one license session against an engine.
//
// A Session owns the engine session id, the init data handed to the engine,
// and the latest key status snapshot. It translates engine events into the
// callback vocabulary understood by a host and decrypts samples with the
// keys the engine reports as usable.
//
// All methods are safe for concurrent use, including while engine events
// are being delivered. Events are handed to the bound CallbackSink one at a
// time, in the order they were produced, and never while the session's
// state lock is held, so a sink may call back into the session.
package session
