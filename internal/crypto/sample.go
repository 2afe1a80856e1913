package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"cdmbridge/internal/domain"
)

var (
	// ErrSubsampleMismatch is returned when a subsample map does not cover
	// the sample exactly.
	ErrSubsampleMismatch = errors.New("crypto: subsample map does not match sample length")

	// ErrShortOutput is returned when dst is smaller than src.
	ErrShortOutput = errors.New("crypto: output buffer too small")
)

// span is one protected range of a sample.
type span struct{ off, n int }

// DecryptSample writes the plaintext of src into dst.
//
// iv must already be normalised (see NormalizeIV). With an empty subsample
// map the whole sample is protected. Protected ranges are processed as one
// continuous stream, so the CTR counter and the CBC chain carry across
// subsamples. In CBC mode a trailing partial block stays in the clear.
func DecryptSample(key []byte, mode domain.CipherMode, iv []byte, subsamples []domain.Subsample, dst, src []byte) error {
	return processSample(false, key, mode, iv, subsamples, dst, src)
}

// EncryptSample is the inverse of DecryptSample. It is used by the packager
// and in tests.
func EncryptSample(key []byte, mode domain.CipherMode, iv []byte, subsamples []domain.Subsample, dst, src []byte) error {
	return processSample(true, key, mode, iv, subsamples, dst, src)
}

func processSample(encrypt bool, key []byte, mode domain.CipherMode, iv []byte, subsamples []domain.Subsample, dst, src []byte) error {
	if len(dst) < len(src) {
		return ErrShortOutput
	}
	if len(iv) != IVSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidIV, len(iv))
	}
	spans, err := protectedSpans(subsamples, len(src))
	if err != nil {
		return err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}

	copy(dst, src)

	total := 0
	for _, s := range spans {
		total += s.n
	}
	if total == 0 {
		return nil
	}
	buf := make([]byte, 0, total)
	for _, s := range spans {
		buf = append(buf, dst[s.off:s.off+s.n]...)
	}
	defer Wipe(buf)

	switch mode {
	case domain.ModeCBC:
		n := len(buf) - len(buf)%aes.BlockSize
		if n > 0 {
			if encrypt {
				cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[:n], buf[:n])
			} else {
				cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf[:n], buf[:n])
			}
		}
	default:
		cipher.NewCTR(block, iv).XORKeyStream(buf, buf)
	}

	pos := 0
	for _, s := range spans {
		copy(dst[s.off:s.off+s.n], buf[pos:pos+s.n])
		pos += s.n
	}
	return nil
}

// protectedSpans resolves a subsample map against a sample of length n.
func protectedSpans(subsamples []domain.Subsample, n int) ([]span, error) {
	if len(subsamples) == 0 {
		return []span{{off: 0, n: n}}, nil
	}
	var (
		spans []span
		off   uint64
	)
	for _, ss := range subsamples {
		off += uint64(ss.ClearBytes)
		if ss.ProtectedBytes > 0 {
			spans = append(spans, span{off: int(off), n: int(ss.ProtectedBytes)})
		}
		off += uint64(ss.ProtectedBytes)
		if off > uint64(n) {
			return nil, fmt.Errorf("%w: map covers more than %d bytes", ErrSubsampleMismatch, n)
		}
	}
	if off != uint64(n) {
		return nil, fmt.Errorf("%w: map covers %d of %d bytes", ErrSubsampleMismatch, off, n)
	}
	return spans, nil
}
