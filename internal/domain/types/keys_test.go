package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdmbridge/internal/domain/types"
)

func TestKeyStatusMap_OrderedByKeyID(t *testing.T) {
	var m types.KeyStatusMap
	m.Set(types.KeyID{0xbb}, types.KeyExpired)
	m.Set(types.KeyID{0xaa, 0x01}, types.KeyUsable)
	m.Set(types.KeyID{0xaa}, types.KeyReleased)

	require.Equal(t, 3, m.Len())
	got := m.Entries()
	assert.Equal(t, types.KeyID{0xaa}, got[0].KeyID)
	assert.Equal(t, types.KeyID{0xaa, 0x01}, got[1].KeyID)
	assert.Equal(t, types.KeyID{0xbb}, got[2].KeyID)

	first, ok := m.First()
	require.True(t, ok)
	assert.Equal(t, types.KeyReleased, first.Status)
}

func TestKeyStatusMap_SetReplaces(t *testing.T) {
	m := types.NewKeyStatusMap(
		types.KeyStatusEntry{KeyID: types.KeyID{1}, Status: types.KeyStatusPending},
		types.KeyStatusEntry{KeyID: types.KeyID{1}, Status: types.KeyUsable},
	)
	assert.Equal(t, 1, m.Len())

	e, ok := m.Lookup(types.KeyID{1})
	require.True(t, ok)
	assert.Equal(t, types.KeyUsable, e.Status)

	_, ok = m.Lookup(types.KeyID{2})
	assert.False(t, ok)
}

func TestKeyStatusMap_EntriesAreCopies(t *testing.T) {
	id := types.KeyID{9, 9}
	m := types.NewKeyStatusMap(types.KeyStatusEntry{KeyID: id, Status: types.KeyUsable})
	id[0] = 0

	e := m.Entries()
	e[0].KeyID[1] = 0

	got, ok := m.First()
	require.True(t, ok)
	assert.Equal(t, types.KeyID{9, 9}, got.KeyID)
}

func TestKeyStatusMap_Empty(t *testing.T) {
	var m types.KeyStatusMap
	_, ok := m.First()
	assert.False(t, ok)
	_, ok = m.Worst()
	assert.False(t, ok)
}

func TestLicenseType_Normalize(t *testing.T) {
	assert.Equal(t, types.Temporary, types.LicenseType(0).Normalize())
	assert.Equal(t, types.PersistentUsageRecord, types.LicenseType(1).Normalize())
	assert.Equal(t, types.PersistentLicense, types.LicenseType(2).Normalize())
	assert.Equal(t, types.Temporary, types.LicenseType(3).Normalize())
	assert.Equal(t, types.Temporary, types.LicenseType(-5).Normalize())
}

func TestParseInitDataType(t *testing.T) {
	for _, s := range []string{"CENC", "WebM", "keyids", ""} {
		_, ok := types.ParseInitDataType(s)
		assert.False(t, ok, s)
	}
	got, ok := types.ParseInitDataType("webm")
	assert.True(t, ok)
	assert.Equal(t, types.WebM, got)
}
