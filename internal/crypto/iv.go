package crypto

import (
	"errors"
	"fmt"

	"cdmbridge/internal/domain"
)

// IVSize is the AES block size and the length of a normalised IV.
const IVSize = 16

// ctrShortIVSize is the 64-bit IV allowed by CENC for counter mode.
const ctrShortIVSize = 8

// ErrInvalidIV is returned when an IV length does not fit the cipher mode.
var ErrInvalidIV = errors.New("crypto: invalid IV length")

// NormalizeIV returns a fresh 16-byte IV for mode.
//
// CTR accepts 8 byte IVs (the low 8 bytes of the counter block start at
// zero) and 16 byte IVs. CBC accepts only 16 bytes. Anything else is
// rejected rather than padded or truncated.
func NormalizeIV(mode domain.CipherMode, iv []byte) ([]byte, error) {
	out := make([]byte, IVSize)
	switch {
	case len(iv) == IVSize:
		copy(out, iv)
	case mode == domain.ModeCTR && len(iv) == ctrShortIVSize:
		copy(out, iv)
	default:
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrInvalidIV, len(iv), mode)
	}
	return out, nil
}
