package types

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// KeyID is an opaque key identifier, usually 16 bytes.
type KeyID []byte

// String returns the key id as lowercase hex.
func (k KeyID) String() string { return hex.EncodeToString(k) }

// Equal reports whether two key ids hold the same bytes.
func (k KeyID) Equal(o KeyID) bool { return bytes.Equal(k, o) }

// KeyStatus is the usability state of one key as reported by the engine.
type KeyStatus int

const (
	KeyUsable KeyStatus = iota
	KeyExpired
	KeyOutputRestricted
	KeyStatusPending
	KeyInternalError
	KeyReleased
)

// severity orders statuses from harmless to fatal for aggregation.
func (s KeyStatus) severity() int {
	switch s {
	case KeyUsable:
		return 0
	case KeyStatusPending:
		return 1
	case KeyOutputRestricted:
		return 2
	case KeyReleased:
		return 3
	case KeyExpired:
		return 4
	default:
		return 5
	}
}

// KeyStatusEntry pairs a key id with its status.
type KeyStatusEntry struct {
	KeyID  KeyID     `json:"kid"`
	Status KeyStatus `json:"status"`
}

// KeyStatusMap maps key ids to statuses. Entries are unique by key id and
// kept in ascending key id byte order, so First is stable across calls.
//
// The zero value is an empty map.
type KeyStatusMap struct {
	entries []KeyStatusEntry
}

// NewKeyStatusMap builds a map from entries. Later duplicates win.
func NewKeyStatusMap(entries ...KeyStatusEntry) KeyStatusMap {
	var m KeyStatusMap
	for _, e := range entries {
		m.Set(e.KeyID, e.Status)
	}
	return m
}

// Set inserts or replaces the status of id.
func (m *KeyStatusMap) Set(id KeyID, status KeyStatus) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return bytes.Compare(m.entries[i].KeyID, id) >= 0
	})
	if i < len(m.entries) && m.entries[i].KeyID.Equal(id) {
		m.entries[i].Status = status
		return
	}
	e := KeyStatusEntry{KeyID: append(KeyID(nil), id...), Status: status}
	m.entries = append(m.entries, KeyStatusEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
}

// Len returns the number of keys.
func (m KeyStatusMap) Len() int { return len(m.entries) }

// First returns the entry with the smallest key id.
func (m KeyStatusMap) First() (KeyStatusEntry, bool) {
	if len(m.entries) == 0 {
		return KeyStatusEntry{}, false
	}
	return m.entries[0], true
}

// Lookup returns the entry for id.
func (m KeyStatusMap) Lookup(id KeyID) (KeyStatusEntry, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return bytes.Compare(m.entries[i].KeyID, id) >= 0
	})
	if i < len(m.entries) && m.entries[i].KeyID.Equal(id) {
		return m.entries[i], true
	}
	return KeyStatusEntry{}, false
}

// Worst returns the entry with the most severe status. Ties go to the
// smaller key id.
func (m KeyStatusMap) Worst() (KeyStatusEntry, bool) {
	if len(m.entries) == 0 {
		return KeyStatusEntry{}, false
	}
	worst := m.entries[0]
	for _, e := range m.entries[1:] {
		if e.Status.severity() > worst.Status.severity() {
			worst = e
		}
	}
	return worst, true
}

// Entries returns a copy of the entries in key id order.
func (m KeyStatusMap) Entries() []KeyStatusEntry {
	out := make([]KeyStatusEntry, len(m.entries))
	for i, e := range m.entries {
		out[i] = KeyStatusEntry{KeyID: append(KeyID(nil), e.KeyID...), Status: e.Status}
	}
	return out
}

// Clone returns a deep copy.
func (m KeyStatusMap) Clone() KeyStatusMap {
	return KeyStatusMap{entries: m.Entries()}
}
