package initdata

import (
	"encoding/binary"
	"errors"
	"fmt"

	"cdmbridge/internal/domain"
)

const (
	boxHeaderSize = 8
	// size(4) type(4) version(1) flags(3) systemID(16)
	psshFixedSize = 28
	keyIDSize     = 16
)

// ClearKeySystemID is the W3C Common PSSH system id 1077efec-c0b2-4d02-ace3-3c1e52e2fb4b.
var ClearKeySystemID = [16]byte{
	0x10, 0x77, 0xef, 0xec, 0xc0, 0xb2, 0x4d, 0x02,
	0xac, 0xe3, 0x3c, 0x1e, 0x52, 0xe2, 0xfb, 0x4b,
}

var (
	// ErrMalformed is returned for truncated or inconsistent boxes.
	ErrMalformed = errors.New("initdata: malformed pssh data")

	// ErrNoKeyIDs is returned when the init data names no key.
	ErrNoKeyIDs = errors.New("initdata: no key ids found")
)

// Box is one parsed 'pssh' box.
type Box struct {
	Version  uint8
	SystemID [16]byte
	KeyIDs   []domain.KeyID
	Data     []byte
}

// ParsePSSH parses a concatenation of 'pssh' boxes.
func ParsePSSH(b []byte) ([]Box, error) {
	var boxes []Box
	for len(b) > 0 {
		if len(b) < boxHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(b))
		}
		size := int(binary.BigEndian.Uint32(b[0:4]))
		if size < psshFixedSize+4 || size > len(b) {
			return nil, fmt.Errorf("%w: box size %d with %d bytes left", ErrMalformed, size, len(b))
		}
		if string(b[4:8]) != "pssh" {
			return nil, fmt.Errorf("%w: unexpected box type %q", ErrMalformed, b[4:8])
		}
		box, err := parseBox(b[:size])
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
		b = b[size:]
	}
	return boxes, nil
}

func parseBox(b []byte) (Box, error) {
	box := Box{Version: b[8]}
	if box.Version > 1 {
		return Box{}, fmt.Errorf("%w: unsupported pssh version %d", ErrMalformed, box.Version)
	}
	copy(box.SystemID[:], b[12:28])

	off := psshFixedSize
	if box.Version == 1 {
		if len(b) < off+4 {
			return Box{}, fmt.Errorf("%w: missing key id count", ErrMalformed)
		}
		count := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if count < 0 || count > (len(b)-off)/keyIDSize {
			return Box{}, fmt.Errorf("%w: key id count %d exceeds box", ErrMalformed, count)
		}
		for i := 0; i < count; i++ {
			box.KeyIDs = append(box.KeyIDs, domain.KeyID(append([]byte(nil), b[off:off+keyIDSize]...)))
			off += keyIDSize
		}
	}

	if len(b) < off+4 {
		return Box{}, fmt.Errorf("%w: missing data size", ErrMalformed)
	}
	dataSize := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if dataSize < 0 || dataSize != len(b)-off {
		return Box{}, fmt.Errorf("%w: data size %d, %d bytes left", ErrMalformed, dataSize, len(b)-off)
	}
	box.Data = append([]byte(nil), b[off:]...)
	return box, nil
}

// BuildPSSH returns a version 1 Clear Key 'pssh' box listing kids.
func BuildPSSH(kids ...domain.KeyID) []byte {
	size := psshFixedSize + 4 + len(kids)*keyIDSize + 4
	b := make([]byte, size)
	binary.BigEndian.PutUint32(b[0:4], uint32(size))
	copy(b[4:8], "pssh")
	b[8] = 1
	copy(b[12:28], ClearKeySystemID[:])
	binary.BigEndian.PutUint32(b[28:32], uint32(len(kids)))
	off := 32
	for _, k := range kids {
		copy(b[off:off+keyIDSize], k)
		off += keyIDSize
	}
	// data size stays zero
	return b
}

// KeyIDs returns the distinct key ids named by init data of type t, in the
// order they first appear.
func KeyIDs(t domain.InitDataType, data []byte) ([]domain.KeyID, error) {
	if len(data) == 0 {
		return nil, ErrNoKeyIDs
	}
	if t == domain.WebM {
		return []domain.KeyID{append(domain.KeyID(nil), data...)}, nil
	}

	boxes, err := ParsePSSH(data)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []domain.KeyID
	for _, box := range boxes {
		for _, k := range box.KeyIDs {
			if _, dup := seen[string(k)]; dup {
				continue
			}
			seen[string(k)] = struct{}{}
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoKeyIDs
	}
	return out, nil
}
