package session

import (
	"cdmbridge/internal/crypto"
	"cdmbridge/internal/domain"
	"cdmbridge/internal/keystatus"
)

// Decrypt decrypts one sample with the key named by keyID.
//
// The key status map is refreshed from the engine first. An empty keyID
// selects the first key in key id order. The key must be usable. iv must
// suit the configured cipher mode: 8 or 16 bytes for CTR, 16 for CBC.
// subsamples follow the CENC layout; nil means the whole sample is
// protected.
//
// On success the returned ClearContent has len(data) bytes and belongs to
// the caller, who must release it. On failure nothing is returned.
func (s *Session) Decrypt(keyID []byte, subsamples []domain.Subsample, iv, data []byte) (*ClearContent, domain.Result) {
	s.mu.Lock()
	id, state := s.id, s.state
	s.mu.Unlock()
	if state == domain.StateClosed || state == domain.StateRequestAbandoned {
		s.log.Warnf("session %s: decrypt in state %s", id, state)
		return s.decryptFailed()
	}
	if len(data) == 0 {
		s.log.Debugf("session %s: decrypt of empty sample", id)
		return s.decryptFailed()
	}

	m, status := s.engine.KeyStatuses(id)
	if !status.OK() {
		s.log.Warnf("session %s: key statuses: %s", id, status)
		return s.decryptFailed()
	}
	s.mu.Lock()
	s.keys = m.Clone()
	s.mu.Unlock()

	key, ok := selectKey(m, keyID)
	if !ok {
		s.log.Debugf("session %s: no key %s", id, domain.KeyID(keyID))
		return s.decryptFailed()
	}
	if key.Status != domain.KeyUsable {
		s.log.Debugf("session %s: key %s is %s", id, key.KeyID, keystatus.Name(key.Status))
		return s.decryptFailed()
	}

	normIV, err := crypto.NormalizeIV(s.cfg.CipherMode, iv)
	if err != nil {
		s.log.Debugf("session %s: %v", id, err)
		return s.decryptFailed()
	}

	out := domain.OutputBuffer{Data: make([]byte, len(data))}
	status = s.engine.Decrypt(domain.InputBuffer{
		Data:       data,
		KeyID:      key.KeyID,
		IV:         normIV,
		Encrypted:  true,
		Mode:       s.cfg.CipherMode,
		Subsamples: subsamples,
	}, &out)
	if !status.OK() {
		crypto.Wipe(out.Data)
		s.log.Warnf("session %s: decrypt with key %s: %s", id, key.KeyID, status)
		return s.decryptFailed()
	}

	s.metrics.Decrypt(domain.Success.String(), len(out.Data))
	return newClearContent(out.Data), domain.Success
}

func (s *Session) decryptFailed() (*ClearContent, domain.Result) {
	s.metrics.Decrypt(domain.GenericFailure.String(), 0)
	return nil, domain.GenericFailure
}

// selectKey returns the entry for keyID, or the first entry when keyID is
// empty.
func selectKey(m domain.KeyStatusMap, keyID []byte) (domain.KeyStatusEntry, bool) {
	if len(keyID) == 0 {
		return m.First()
	}
	return m.Lookup(keyID)
}
