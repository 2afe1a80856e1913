// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (engine vocabulary, key maps, buffers) and contracts
// (engine, callback sink, stores, license client) only.
package domain
