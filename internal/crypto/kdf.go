package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ContentKeySize is the AES-128 content key length.
const ContentKeySize = 16

const contentKeyInfo = "cdmbridge content key v1"

// DeriveContentKey derives the content key for kid from a master secret
// using HKDF-SHA256. The license server and the packager share the secret,
// so both sides arrive at the same key without a key database.
func DeriveContentKey(master, kid []byte) ([]byte, error) {
	if len(master) == 0 {
		return nil, errors.New("crypto: empty master secret")
	}
	if len(kid) == 0 {
		return nil, errors.New("crypto: empty key id")
	}
	r := hkdf.New(sha256.New, master, kid, []byte(contentKeyInfo))
	key := make([]byte, ContentKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
