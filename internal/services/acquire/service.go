package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pion/logging"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/keystatus"
	"cdmbridge/internal/services/session"
)

var (
	// ErrKeyError wraps an error name reported by the session.
	ErrKeyError = errors.New("acquire: key error")

	// ErrKeyStatus wraps a key status that leaves no key usable.
	ErrKeyStatus = errors.New("acquire: keys not usable")

	// ErrRejected is returned when the engine refuses the license response.
	ErrRejected = errors.New("acquire: license response rejected")
)

// Request describes the content to acquire a license for.
type Request struct {
	LicenseType  domain.LicenseType
	InitDataType string
	InitData     []byte
	CDMData      []byte
}

// Service runs license exchanges against one engine and license server.
//
// High-level flow:
//   - Acquire: create a session, generate the request, post every license
//     message to the server, update the session with each response, and
//     return once a usable key is reported.
//   - Restore: load a persisted session by id and wait for its keys.
//   - Release: restore a persisted session, remove its keys and stored
//     license, then close it.
type Service struct {
	engine domain.Engine
	client domain.LicenseClient
	cfg    session.Config
	log    logging.LeveledLogger
}

// New constructs an acquisition Service. cfg is used for every session it
// creates.
func New(engine domain.Engine, client domain.LicenseClient, cfg session.Config) *Service {
	s := &Service{engine: engine, client: client, cfg: cfg}
	if cfg.LoggerFactory != nil {
		s.log = cfg.LoggerFactory.NewLogger("acquire")
	} else {
		s.log = logging.NewDefaultLeveledLoggerForScope("acquire", logging.LogLevelDisabled, io.Discard)
	}
	return s
}

// Acquire creates a session for req and drives it until a key is usable.
// On error the session is closed.
func (s *Service) Acquire(ctx context.Context, req Request) (*session.Session, error) {
	sess, err := session.New(s.engine, req.LicenseType, s.cfg)
	if err != nil {
		return nil, err
	}
	sink := newChanSink(s.log)
	sess.Init(req.LicenseType, req.InitDataType, req.InitData, req.CDMData)

	if r := sess.Run(sink); !r.OK() {
		err := drainError(sink, fmt.Errorf("%w: generate request failed", ErrKeyError))
		sess.Close()
		return nil, err
	}
	if err := s.await(ctx, sess, sink); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// Restore loads the persisted session persistedID and waits for its keys.
// On error the session is closed.
func (s *Service) Restore(ctx context.Context, persistedID string) (*session.Session, error) {
	sess, err := session.New(s.engine, domain.PersistentLicense, s.cfg)
	if err != nil {
		return nil, err
	}
	sink := newChanSink(s.log)
	sess.Bind(sink)

	if r := sess.LoadSession(persistedID); !r.OK() {
		err := drainError(sink, fmt.Errorf("%w: load %s failed", ErrKeyError, persistedID))
		sess.Close()
		return nil, err
	}
	if err := s.await(ctx, sess, sink); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// Release restores persistedID, removes its keys and stored license, and
// closes the session.
func (s *Service) Release(ctx context.Context, persistedID string) error {
	sess, err := s.Restore(ctx, persistedID)
	if err != nil {
		return err
	}
	defer sess.Close()

	sink := newChanSink(s.log)
	sess.Bind(sink)
	if r := sess.Remove(); !r.OK() {
		return drainError(sink, fmt.Errorf("%w: remove failed", ErrKeyError))
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case name := <-sink.errs:
			return fmt.Errorf("%w: %s", ErrKeyError, name)
		case msg := <-sink.messages:
			// Release messages carry usage records; the server only acks them.
			if err := s.exchange(ctx, sess, msg, false); err != nil {
				return err
			}
		case st := <-sink.statuses:
			if st == keystatus.NameReleased {
				s.log.Infof("session %s: released", persistedID)
				return nil
			}
		}
	}
}

// await services sink until the session reports a usable key.
func (s *Service) await(ctx context.Context, sess *session.Session, sink *chanSink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case name := <-sink.errs:
			return fmt.Errorf("%w: %s", ErrKeyError, name)
		case msg := <-sink.messages:
			if err := s.exchange(ctx, sess, msg, true); err != nil {
				return err
			}
		case st := <-sink.statuses:
			switch st {
			case keystatus.NameUsable:
				s.log.Infof("session %s: keys usable", sess.SessionID())
				return nil
			case keystatus.NamePending:
				continue
			default:
				return fmt.Errorf("%w: %s", ErrKeyStatus, st)
			}
		}
	}
}

// exchange posts one tagged license message and, when update is set, hands
// the response to the session.
func (s *Service) exchange(ctx context.Context, sess *session.Session, msg keyMessage, update bool) error {
	typ, body, err := session.ParseMessage(msg.payload)
	if err != nil {
		return err
	}
	s.log.Debugf("session %s: posting %s (%d bytes)", sess.SessionID(), typ, len(body))
	resp, err := s.client.Exchange(ctx, msg.url, body)
	if err != nil {
		return fmt.Errorf("acquire: %s exchange: %w", typ, err)
	}
	if !update || typ == domain.LicenseRelease {
		return nil
	}
	if r := sess.Update(resp); !r.OK() {
		return ErrRejected
	}
	return nil
}

// drainError prefers an error name already delivered to sink over fallback.
func drainError(sink *chanSink, fallback error) error {
	select {
	case name := <-sink.errs:
		return fmt.Errorf("%w: %s", ErrKeyError, name)
	default:
		return fallback
	}
}
