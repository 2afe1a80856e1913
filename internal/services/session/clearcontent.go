package session

import (
	"errors"
	"sync"

	"cdmbridge/internal/crypto"
	"cdmbridge/internal/domain"
)

// ErrAlreadyReleased is returned when a ClearContent is released twice.
var ErrAlreadyReleased = errors.New("session: clear content already released")

// ClearContent is a decrypted sample owned by the caller. It must be
// released exactly once; Release wipes the plaintext.
type ClearContent struct {
	mu       sync.Mutex
	data     []byte
	released bool
}

func newClearContent(data []byte) *ClearContent {
	return &ClearContent{data: data}
}

// Bytes returns the plaintext. It returns nil after Release. The slice is
// only valid until Release.
func (c *ClearContent) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	return c.data
}

// Len returns the plaintext length, or 0 after Release.
func (c *ClearContent) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return 0
	}
	return len(c.data)
}

// Release wipes and drops the plaintext.
func (c *ClearContent) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrAlreadyReleased
	}
	crypto.Wipe(c.data)
	c.data = nil
	c.released = true
	return nil
}

// ReleaseClearContent releases c. It fails for nil and for a buffer that
// was already released.
func ReleaseClearContent(c *ClearContent) domain.Result {
	if c == nil {
		return domain.GenericFailure
	}
	if err := c.Release(); err != nil {
		return domain.GenericFailure
	}
	return domain.Success
}

// ReleaseClearContent releases a buffer returned by Decrypt.
func (s *Session) ReleaseClearContent(c *ClearContent) domain.Result {
	r := ReleaseClearContent(c)
	if !r.OK() {
		s.log.Debugf("session %s: release of nil or released buffer", s.SessionID())
	}
	return s.done("release", r)
}
