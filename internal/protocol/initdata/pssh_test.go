package initdata_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/protocol/initdata"
)

var (
	kidA = domain.KeyID(bytes.Repeat([]byte{0xa1}, 16))
	kidB = domain.KeyID(bytes.Repeat([]byte{0xb2}, 16))
)

// v0Box builds a version 0 box with an opaque payload.
func v0Box(payload []byte) []byte {
	size := 32 + len(payload)
	b := make([]byte, size)
	binary.BigEndian.PutUint32(b, uint32(size))
	copy(b[4:], "pssh")
	copy(b[12:28], []byte{0xed, 0xef, 0x8b, 0xa9, 0x79, 0xd6, 0x4a, 0xce, 0xa3, 0xc8, 0x27, 0xdc, 0xd5, 0x1d, 0x21, 0xed})
	binary.BigEndian.PutUint32(b[28:], uint32(len(payload)))
	copy(b[32:], payload)
	return b
}

func TestParsePSSH_V1RoundTrip(t *testing.T) {
	boxes, err := initdata.ParsePSSH(initdata.BuildPSSH(kidA, kidB))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, uint8(1), boxes[0].Version)
	assert.Equal(t, initdata.ClearKeySystemID, boxes[0].SystemID)
	assert.Equal(t, []domain.KeyID{kidA, kidB}, boxes[0].KeyIDs)
	assert.Empty(t, boxes[0].Data)
}

func TestKeyIDs_CencSkipsV0AndDeduplicates(t *testing.T) {
	data := append(v0Box([]byte{1, 2, 3}), initdata.BuildPSSH(kidB, kidA)...)
	data = append(data, initdata.BuildPSSH(kidA)...)

	kids, err := initdata.KeyIDs(domain.Cenc, data)
	require.NoError(t, err)
	assert.Equal(t, []domain.KeyID{kidB, kidA}, kids)
}

func TestKeyIDs_CencWithoutKeyIDs(t *testing.T) {
	_, err := initdata.KeyIDs(domain.Cenc, v0Box([]byte{9}))
	assert.True(t, errors.Is(err, initdata.ErrNoKeyIDs))
}

func TestKeyIDs_WebMIsRawKeyID(t *testing.T) {
	kids, err := initdata.KeyIDs(domain.WebM, kidA)
	require.NoError(t, err)
	assert.Equal(t, []domain.KeyID{kidA}, kids)
}

func TestParsePSSH_Malformed(t *testing.T) {
	good := initdata.BuildPSSH(kidA)
	tests := map[string][]byte{
		"truncated":     good[:len(good)-1],
		"wrong type":    append(append([]byte{}, good[:4]...), append([]byte("moov"), good[8:]...)...),
		"short header":  {0, 0, 0},
		"huge kid list": func() []byte { b := append([]byte{}, good...); binary.BigEndian.PutUint32(b[28:], 1000); return b }(),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := initdata.ParsePSSH(data)
			assert.True(t, errors.Is(err, initdata.ErrMalformed), "got %v", err)
		})
	}
}
