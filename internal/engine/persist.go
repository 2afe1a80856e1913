package engine

import (
	"errors"

	"cdmbridge/internal/crypto"
	"cdmbridge/internal/domain"
	"cdmbridge/internal/protocol/clearkey"
)

// persist seals the keys as a Clear Key response and stores them.
func (e *Engine) persist(recordID string, lt domain.LicenseType, keys []clearkey.Key) domain.Status {
	raw, err := clearkey.NewResponse(lt, keys)
	if err != nil {
		return domain.StatusUnexpectedError
	}
	defer crypto.Wipe(raw)

	sealed, err := crypto.SealWith(e.cfg.Passphrase, raw, e.cfg.Scrypt)
	if err != nil {
		e.log.Errorf("session %s: seal license: %v", recordID, err)
		return domain.StatusUnexpectedError
	}
	if err := e.cfg.Store.PutLicense(recordID, sealed); err != nil {
		e.log.Errorf("session %s: store license: %v", recordID, err)
		return domain.StatusQuotaExceeded
	}
	e.log.Debugf("session %s: stored %s license", recordID, lt)
	return domain.StatusSuccess
}

// loadRecord opens the license stored under recordID.
func (e *Engine) loadRecord(recordID string) ([]clearkey.Key, domain.Status) {
	if e.cfg.Store == nil {
		return nil, domain.StatusNotSupported
	}
	sealed, ok, err := e.cfg.Store.GetLicense(recordID)
	if err != nil {
		e.log.Errorf("session %s: read license: %v", recordID, err)
		return nil, domain.StatusUnexpectedError
	}
	if !ok {
		return nil, domain.StatusSessionNotFound
	}
	raw, err := crypto.Open(e.cfg.Passphrase, sealed)
	if err != nil {
		if errors.Is(err, crypto.ErrWrongPassphrase) {
			return nil, domain.StatusInvalidAccess
		}
		return nil, domain.StatusUnexpectedError
	}
	defer crypto.Wipe(raw)

	keys, _, err := clearkey.ParseResponse(raw)
	if err != nil {
		return nil, domain.StatusUnexpectedError
	}
	return keys, domain.StatusSuccess
}
