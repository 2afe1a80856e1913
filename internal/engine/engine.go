package engine

import (
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"cdmbridge/internal/crypto"
	"cdmbridge/internal/domain"
	"cdmbridge/internal/metrics"
	"cdmbridge/internal/protocol/clearkey"
	"cdmbridge/internal/protocol/initdata"
)

// Config configures an Engine.
type Config struct {
	// Store keeps persistent licenses. Without it only temporary sessions
	// can be created.
	Store domain.LicenseStore
	// Passphrase seals records written to Store.
	Passphrase string
	// Scrypt overrides the sealing cost. Zero means crypto.DefaultScryptParams.
	Scrypt crypto.ScryptParams

	LoggerFactory logging.LoggerFactory
	Metrics       *metrics.Metrics
}

// Engine is an in-process Clear Key engine.
type Engine struct {
	cfg     Config
	log     logging.LeveledLogger
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*engineSession

	events dispatcher
}

type engineSession struct {
	id          string
	licenseType domain.LicenseType
	listener    domain.EventListener
	requested   []domain.KeyID
	keys        map[string][]byte
	statuses    domain.KeyStatusMap
}

var (
	_ domain.Engine        = (*Engine)(nil)
	_ domain.SessionLoader = (*Engine)(nil)
)

// New returns an Engine.
func New(cfg Config) *Engine {
	if cfg.Scrypt == (crypto.ScryptParams{}) {
		cfg.Scrypt = crypto.DefaultScryptParams
	}
	e := &Engine{
		cfg:      cfg,
		metrics:  cfg.Metrics,
		sessions: make(map[string]*engineSession),
	}
	e.events.idle.L = &e.events.mu
	if cfg.LoggerFactory != nil {
		e.log = cfg.LoggerFactory.NewLogger("engine")
	} else {
		e.log = logging.NewDefaultLeveledLoggerForScope("engine", logging.LogLevelDisabled, io.Discard)
	}
	return e
}

// CreateSession allocates a session with a fresh id.
func (e *Engine) CreateSession(licenseType domain.LicenseType, listener domain.EventListener) (string, domain.Status) {
	if listener == nil {
		return "", domain.StatusTypeError
	}
	if licenseType.IsPersistent() && e.cfg.Store == nil {
		e.log.Warnf("refusing %s session without a license store", licenseType)
		return "", domain.StatusNotSupported
	}
	s := &engineSession{
		id:          uuid.NewString(),
		licenseType: licenseType.Normalize(),
		listener:    listener,
		keys:        make(map[string][]byte),
	}
	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()
	e.metrics.SessionOpened()
	e.log.Debugf("session %s created (%s)", s.id, s.licenseType)
	return s.id, domain.StatusSuccess
}

// GenerateRequest extracts key ids from initData and raises a license
// request for them.
func (e *Engine) GenerateRequest(sessionID string, initDataType domain.InitDataType, initData []byte) domain.Status {
	kids, err := initdata.KeyIDs(initDataType, initData)
	if err != nil {
		e.log.Warnf("session %s: %v", sessionID, err)
		return domain.StatusTypeError
	}

	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return domain.StatusSessionNotFound
	}
	if len(s.requested) > 0 {
		e.mu.Unlock()
		return domain.StatusInvalidState
	}
	s.requested = kids
	lt, listener := s.licenseType, s.listener
	e.mu.Unlock()

	req, err := clearkey.NewRequest(lt, kids)
	if err != nil {
		return domain.StatusUnexpectedError
	}
	e.log.Debugf("session %s: license request for %d keys", sessionID, len(kids))
	e.events.post(func() { listener.OnMessage(sessionID, domain.LicenseRequest, req) })
	return domain.StatusSuccess
}

// Update installs the keys of a Clear Key license response. Persistent
// sessions also store the sealed response.
func (e *Engine) Update(sessionID string, response []byte) domain.Status {
	keys, _, err := clearkey.ParseResponse(response)
	if err != nil {
		e.log.Warnf("session %s: %v", sessionID, err)
		return domain.StatusTypeError
	}
	for _, k := range keys {
		if len(k.Value) != crypto.ContentKeySize {
			e.log.Warnf("session %s: key %s has %d bytes", sessionID, k.ID, len(k.Value))
			return domain.StatusTypeError
		}
	}

	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return domain.StatusSessionNotFound
	}
	lt, listener := s.licenseType, s.listener
	e.mu.Unlock()

	if lt.IsPersistent() {
		if st := e.persist(sessionID, lt, keys); !st.OK() {
			return st
		}
	}

	e.mu.Lock()
	s.install(keys)
	e.mu.Unlock()
	e.events.post(func() { listener.OnKeyStatusesChange(sessionID) })
	return domain.StatusSuccess
}

// Load restores the stored license of a live session.
func (e *Engine) Load(sessionID string) domain.Status {
	e.mu.Lock()
	_, ok := e.sessions[sessionID]
	e.mu.Unlock()
	if !ok {
		return domain.StatusSessionNotFound
	}
	keys, st := e.loadRecord(sessionID)
	if !st.OK() {
		return st
	}

	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return domain.StatusSessionNotFound
	}
	s.install(keys)
	listener := s.listener
	e.mu.Unlock()
	e.log.Debugf("session %s: restored %d keys", sessionID, len(keys))
	e.events.post(func() { listener.OnKeyStatusesChange(sessionID) })
	return domain.StatusSuccess
}

// LoadSession moves the live session sessionID to persistedID and restores
// the license stored under persistedID into it.
func (e *Engine) LoadSession(sessionID, persistedID string) domain.Status {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	_, taken := e.sessions[persistedID]
	e.mu.Unlock()
	switch {
	case !ok:
		return domain.StatusSessionNotFound
	case taken:
		return domain.StatusInvalidState
	case !s.licenseType.IsPersistent():
		return domain.StatusInvalidAccess
	}
	keys, st := e.loadRecord(persistedID)
	if !st.OK() {
		return st
	}

	e.mu.Lock()
	if e.sessions[sessionID] != s || e.sessions[persistedID] != nil {
		e.mu.Unlock()
		return domain.StatusInvalidState
	}
	delete(e.sessions, sessionID)
	s.id = persistedID
	e.sessions[persistedID] = s
	s.install(keys)
	listener := s.listener
	e.mu.Unlock()
	e.log.Debugf("session %s: loaded as %s with %d keys", sessionID, persistedID, len(keys))
	e.events.post(func() { listener.OnKeyStatusesChange(persistedID) })
	return domain.StatusSuccess
}

// Remove releases the session's keys and deletes any stored license.
func (e *Engine) Remove(sessionID string) domain.Status {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return domain.StatusSessionNotFound
	}
	lt, listener := s.licenseType, s.listener
	e.mu.Unlock()

	if lt.IsPersistent() {
		if err := e.cfg.Store.DeleteLicense(sessionID); err != nil {
			e.log.Errorf("session %s: delete license: %v", sessionID, err)
			return domain.StatusUnexpectedError
		}
	}

	e.mu.Lock()
	s.release()
	e.mu.Unlock()
	e.log.Debugf("session %s: keys released", sessionID)
	e.events.post(func() {
		listener.OnKeyStatusesChange(sessionID)
		listener.OnRemoveComplete(sessionID)
	})
	return domain.StatusSuccess
}

// Close drops the session and wipes its keys. Stored licenses are kept.
func (e *Engine) Close(sessionID string) domain.Status {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if ok {
		delete(e.sessions, sessionID)
		s.wipe()
	}
	e.mu.Unlock()
	if !ok {
		return domain.StatusSessionNotFound
	}
	e.metrics.SessionClosed()
	e.log.Debugf("session %s closed", sessionID)
	return domain.StatusSuccess
}

// KeyStatuses returns a copy of the session's key statuses.
func (e *Engine) KeyStatuses(sessionID string) (domain.KeyStatusMap, domain.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return domain.KeyStatusMap{}, domain.StatusSessionNotFound
	}
	return s.statuses.Clone(), domain.StatusSuccess
}

// Decrypt decrypts in with the usable key named by in.KeyID in any open
// session.
func (e *Engine) Decrypt(in domain.InputBuffer, out *domain.OutputBuffer) domain.Status {
	if out == nil || len(out.Data) < len(in.Data) {
		return domain.StatusRangeError
	}
	if !in.Encrypted {
		copy(out.Data, in.Data)
		return domain.StatusSuccess
	}

	key := e.usableKey(in.KeyID)
	if key == nil {
		return domain.StatusNoKey
	}
	defer crypto.Wipe(key)

	err := crypto.DecryptSample(key, in.Mode, in.IV, in.Subsamples, out.Data, in.Data)
	switch {
	case err == nil:
		return domain.StatusSuccess
	case errors.Is(err, crypto.ErrSubsampleMismatch), errors.Is(err, crypto.ErrInvalidIV):
		e.log.Debugf("decrypt with key %s: %v", in.KeyID, err)
		return domain.StatusTypeError
	default:
		e.log.Warnf("decrypt with key %s: %v", in.KeyID, err)
		return domain.StatusDecryptError
	}
}

// usableKey returns a copy of the key for kid.
func (e *Engine) usableKey(kid domain.KeyID) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.sessions {
		st, ok := s.statuses.Lookup(kid)
		if !ok || st.Status != domain.KeyUsable {
			continue
		}
		if k, ok := s.keys[kid.String()]; ok {
			return append([]byte(nil), k...)
		}
	}
	return nil
}

func (s *engineSession) install(keys []clearkey.Key) {
	for _, k := range keys {
		if old, ok := s.keys[k.ID.String()]; ok {
			crypto.Wipe(old)
		}
		s.keys[k.ID.String()] = append([]byte(nil), k.Value...)
		s.statuses.Set(k.ID, domain.KeyUsable)
	}
}

func (s *engineSession) release() {
	for _, e := range s.statuses.Entries() {
		s.statuses.Set(e.KeyID, domain.KeyReleased)
	}
	s.wipe()
}

func (s *engineSession) wipe() {
	for kid, k := range s.keys {
		crypto.Wipe(k)
		delete(s.keys, kid)
	}
}
