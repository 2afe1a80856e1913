// Package store persists sealed license records for the engine.
//
// Records are opaque byte blobs keyed by session id; sealing happens in the
// engine before they reach a store. The file store keeps one file per record
// plus a JSON index under the configured home directory. All methods are
// concurrency-safe via internal locking.
//
// Other backends live in subpackages: badgerstore (embedded key-value
// database) and redisstore (shared Redis instance).
package store
