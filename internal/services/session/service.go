package session

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/pion/logging"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/keystatus"
	"cdmbridge/internal/metrics"
)

// DefaultKeySystem is advertised when Config.KeySystem is empty.
const DefaultKeySystem = "org.w3.clearkey"

// ErrCreateFailed is returned by New when the engine refuses to create a
// session. The Session is unusable; create a new one to retry.
var ErrCreateFailed = errors.New("session: engine did not create a session")

// Config carries the settings a Session needs beyond its engine.
type Config struct {
	// KeySystem is reported by KeySystem. Defaults to DefaultKeySystem.
	KeySystem string
	// LicenseServerURL is passed to the sink with every license message.
	LicenseServerURL string
	// RequestTimeout abandons a generated request that sees no Update in
	// time. Zero disables the timer.
	RequestTimeout time.Duration
	// StatusPolicy picks the status reported for a multi-key map.
	StatusPolicy keystatus.Policy
	// CipherMode is the scheme samples are protected with.
	CipherMode domain.CipherMode

	LoggerFactory logging.LoggerFactory
	Metrics       *metrics.Metrics
}

// Session is one license exchange with an engine.
type Session struct {
	engine  domain.Engine
	cfg     Config
	log     logging.LeveledLogger
	metrics *metrics.Metrics

	mu           sync.Mutex
	id           string
	licenseType  domain.LicenseType
	initDataType domain.InitDataType
	initData     []byte
	cdmData      []byte
	keys         domain.KeyStatusMap
	state        domain.SessionState
	sink         domain.CallbackSink
	timer        *time.Timer
	requestGen   uint64

	// outbox holds events waiting for delivery; draining is set while one
	// goroutine is delivering them.
	outbox   []event
	draining bool
}

var _ domain.EventListener = (*Session)(nil)

// New asks engine for a session of licenseType.
func New(engine domain.Engine, licenseType domain.LicenseType, cfg Config) (*Session, error) {
	if cfg.KeySystem == "" {
		cfg.KeySystem = DefaultKeySystem
	}
	s := &Session{
		engine:      engine,
		cfg:         cfg,
		metrics:     cfg.Metrics,
		licenseType: licenseType.Normalize(),
		state:       domain.StateCreated,
	}
	if cfg.LoggerFactory != nil {
		s.log = cfg.LoggerFactory.NewLogger("session")
	} else {
		s.log = logging.NewDefaultLeveledLoggerForScope("session", logging.LogLevelDisabled, io.Discard)
	}

	id, status := engine.CreateSession(s.licenseType, s)
	if !status.OK() || id == "" {
		s.log.Errorf("create %s session: %s", s.licenseType, status)
		s.metrics.Op("create", domain.GenericFailure.String())
		return nil, ErrCreateFailed
	}
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	s.metrics.Op("create", domain.Success.String())
	s.log.Debugf("created %s session %s", s.licenseType, id)
	return s, nil
}

// Init records the license type and init data used by Run. The init data
// type only changes for "cenc" and "webm"; empty initData or cdmData keep
// the previous value. Init is refused once a request has been generated.
func (s *Session) Init(licenseType domain.LicenseType, initDataType string, initData, cdmData []byte) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateCreated {
		s.log.Warnf("session %s: init in state %s", s.id, s.state)
		return domain.GenericFailure
	}
	s.licenseType = licenseType.Normalize()
	if t, ok := domain.ParseInitDataType(initDataType); ok {
		s.initDataType = t
	} else {
		s.log.Debugf("session %s: keeping init data type %s for %q", s.id, s.initDataType, initDataType)
	}
	if len(initData) > 0 {
		s.initData = append([]byte(nil), initData...)
	}
	if len(cdmData) > 0 {
		s.cdmData = append([]byte(nil), cdmData...)
	}
	return domain.Success
}

// Run binds sink and asks the engine to generate a license request. The
// request itself arrives later through the sink. A nil sink keeps the
// previous binding.
func (s *Session) Run(sink domain.CallbackSink) domain.Result {
	s.mu.Lock()
	if sink != nil {
		s.sink = sink
	}
	if s.state != domain.StateCreated {
		id, state := s.id, s.state
		s.mu.Unlock()
		s.log.Warnf("session %s: run in state %s", id, state)
		return s.done("run", domain.GenericFailure)
	}
	id, initDataType, initData := s.id, s.initDataType, s.initData
	s.mu.Unlock()

	status := s.engine.GenerateRequest(id, initDataType, initData)
	if !status.OK() {
		s.log.Warnf("session %s: generate request: %s", id, status)
		s.keyError(status)
		return s.done("run", domain.GenericFailure)
	}

	s.mu.Lock()
	if s.state == domain.StateCreated {
		s.state = domain.StateRequestGenerated
		s.armTimerLocked()
	}
	s.mu.Unlock()
	return s.done("run", domain.Success)
}

// Bind attaches sink without generating a request, for sessions that are
// restored with Load or LoadSession.
func (s *Session) Bind(sink domain.CallbackSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Load asks the engine to restore the persisted state of this session.
func (s *Session) Load() domain.Result {
	id, ok := s.begin("load", domain.StateCreated, domain.StateRequestGenerated, domain.StateUpdated, domain.StateLoaded)
	if !ok {
		return domain.GenericFailure
	}
	status := s.engine.Load(id)
	if !status.OK() {
		s.log.Warnf("session %s: load: %s", id, status)
		s.keyError(status)
		return s.done("load", domain.GenericFailure)
	}
	s.transition(domain.StateLoaded)
	return s.done("load", domain.Success)
}

// LoadSession restores the persisted session persistedID into this one.
// Afterwards SessionID reports persistedID. The engine must implement
// domain.SessionLoader.
func (s *Session) LoadSession(persistedID string) domain.Result {
	id, ok := s.begin("load", domain.StateCreated)
	if !ok {
		return domain.GenericFailure
	}
	loader, ok := s.engine.(domain.SessionLoader)
	if !ok || persistedID == "" {
		s.log.Warnf("session %s: engine cannot load %q", id, persistedID)
		s.keyError(domain.StatusNotSupported)
		return s.done("load", domain.GenericFailure)
	}
	// Adopt the id first so events raised during the load are accepted.
	s.mu.Lock()
	s.id = persistedID
	s.mu.Unlock()

	status := loader.LoadSession(id, persistedID)
	if !status.OK() {
		s.mu.Lock()
		s.id = id
		s.mu.Unlock()
		s.log.Warnf("session %s: load %s: %s", id, persistedID, status)
		s.keyError(status)
		return s.done("load", domain.GenericFailure)
	}
	s.transition(domain.StateLoaded)
	return s.done("load", domain.Success)
}

// Update hands a license server response to the engine. Success moves the
// session to Updated and reports nothing; key statuses arrive through the
// engine's own event. Failure republishes the current key statuses once.
func (s *Session) Update(response []byte) domain.Result {
	id, ok := s.begin("update", domain.StateRequestGenerated, domain.StateUpdated, domain.StateLoaded)
	if !ok {
		return domain.GenericFailure
	}
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	status := s.engine.Update(id, response)
	if !status.OK() {
		s.log.Warnf("session %s: update: %s", id, status)
		s.publishKeyStatuses(id)
		return s.done("update", domain.GenericFailure)
	}
	s.transition(domain.StateUpdated)
	return s.done("update", domain.Success)
}

// Remove asks the engine to release the session's keys and any stored
// license. Completion is reported as a KeyReleased status update.
func (s *Session) Remove() domain.Result {
	id, ok := s.begin("remove", domain.StateRequestGenerated, domain.StateUpdated, domain.StateLoaded)
	if !ok {
		return domain.GenericFailure
	}
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	status := s.engine.Remove(id)
	if !status.OK() {
		s.log.Warnf("session %s: remove: %s", id, status)
		s.keyError(status)
		return s.done("remove", domain.GenericFailure)
	}
	s.transition(domain.StateRemoved)
	return s.done("remove", domain.Success)
}

// Close tears down the engine session. It is the only way to do so;
// dropping a Session leaves the engine session open.
func (s *Session) Close() domain.Result {
	s.mu.Lock()
	if s.state == domain.StateClosed {
		s.mu.Unlock()
		return s.done("close", domain.GenericFailure)
	}
	id := s.id
	s.stopTimerLocked()
	s.mu.Unlock()

	status := s.engine.Close(id)
	if !status.OK() {
		s.log.Warnf("session %s: close: %s", id, status)
		return s.done("close", domain.GenericFailure)
	}
	s.mu.Lock()
	s.state = domain.StateClosed
	s.mu.Unlock()
	s.log.Debugf("session %s: closed", id)
	return s.done("close", domain.Success)
}

// SessionID returns the engine session id.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// KeySystem returns the configured key system name.
func (s *Session) KeySystem() string { return s.cfg.KeySystem }

func (s *Session) LicenseType() domain.LicenseType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.licenseType
}

func (s *Session) InitDataType() domain.InitDataType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initDataType
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// KeyStatuses returns a copy of the latest key status snapshot.
func (s *Session) KeyStatuses() domain.KeyStatusMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys.Clone()
}

// begin returns the session id when the current state is one of allowed.
func (s *Session) begin(op string, allowed ...domain.SessionState) (string, bool) {
	s.mu.Lock()
	id, state := s.id, s.state
	s.mu.Unlock()
	for _, a := range allowed {
		if state == a {
			return id, true
		}
	}
	s.log.Warnf("session %s: %s in state %s", id, op, state)
	s.done(op, domain.GenericFailure)
	return id, false
}

// transition moves to next unless the session was closed or abandoned
// while the engine call was in flight.
func (s *Session) transition(next domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateClosed || s.state == domain.StateRequestAbandoned {
		return
	}
	s.state = next
}

func (s *Session) done(op string, r domain.Result) domain.Result {
	s.metrics.Op(op, r.String())
	return r
}

func (s *Session) armTimerLocked() {
	if s.cfg.RequestTimeout <= 0 {
		return
	}
	s.requestGen++
	gen := s.requestGen
	s.timer = time.AfterFunc(s.cfg.RequestTimeout, func() { s.abandon(gen) })
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.requestGen++
}

// abandon ends a request that never saw an Update.
func (s *Session) abandon(gen uint64) {
	s.mu.Lock()
	if gen != s.requestGen || s.state != domain.StateRequestGenerated {
		s.mu.Unlock()
		return
	}
	s.state = domain.StateRequestAbandoned
	s.timer = nil
	id := s.id
	s.mu.Unlock()

	s.log.Warnf("session %s: license request abandoned after %s", id, s.cfg.RequestTimeout)
	s.metrics.Op("timeout", domain.GenericFailure.String())
	s.emit(keyErrorEvent(keystatus.ErrRequestAbandoned))
}
