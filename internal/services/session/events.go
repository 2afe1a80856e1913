package session

import (
	"bytes"
	"errors"
	"strconv"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/keystatus"
)

// messageTag separates the numeric message type from the payload.
const messageTag = ":Type:"

// ErrUntaggedMessage is returned by ParseMessage for payloads without a
// "<type>:Type:" prefix.
var ErrUntaggedMessage = errors.New("session: message has no type tag")

// ParseMessage splits a payload delivered to OnKeyMessage into its message
// type and the engine message.
func ParseMessage(payload []byte) (domain.MessageType, []byte, error) {
	i := bytes.Index(payload, []byte(messageTag))
	if i <= 0 {
		return 0, nil, ErrUntaggedMessage
	}
	n, err := strconv.Atoi(string(payload[:i]))
	if err != nil || n < 0 {
		return 0, nil, ErrUntaggedMessage
	}
	return domain.MessageType(n), payload[i+len(messageTag):], nil
}

type eventKind int

const (
	eventMessage eventKind = iota
	eventStatus
	eventError
)

func (k eventKind) String() string {
	switch k {
	case eventMessage:
		return "message"
	case eventStatus:
		return "status"
	default:
		return "error"
	}
}

// event is one pending sink delivery.
type event struct {
	kind    eventKind
	payload []byte
	url     string
	name    string
	sink    domain.CallbackSink
}

func keyErrorEvent(name string) event {
	return event{kind: eventError, name: name}
}

func (e event) deliver() {
	switch e.kind {
	case eventMessage:
		e.sink.OnKeyMessage(e.payload, e.url)
	case eventStatus:
		e.sink.OnKeyStatusUpdate(e.name)
	case eventError:
		e.sink.OnKeyError(0, domain.GenericFailure, e.name)
	}
}

// OnMessage forwards license requests, renewals and releases to the sink
// as "<type>:Type:<message>" addressed to the license server. Other
// message types are dropped.
func (s *Session) OnMessage(sessionID string, messageType domain.MessageType, message []byte) {
	if !s.owns(sessionID) {
		return
	}
	switch messageType {
	case domain.LicenseRequest, domain.LicenseRenewal, domain.LicenseRelease:
	default:
		s.log.Warnf("session %s: dropping %s message", sessionID, messageType)
		s.metrics.Dropped(messageType.String())
		return
	}

	tag := strconv.Itoa(int(messageType)) + messageTag
	payload := make([]byte, 0, len(tag)+len(message))
	payload = append(payload, tag...)
	payload = append(payload, message...)
	s.emit(event{kind: eventMessage, payload: payload, url: s.cfg.LicenseServerURL})
}

// OnKeyStatusesChange refreshes the key status snapshot and reports it.
func (s *Session) OnKeyStatusesChange(sessionID string) {
	if !s.owns(sessionID) {
		return
	}
	s.publishKeyStatuses(sessionID)
}

// OnRemoveComplete reports that the session's keys were released.
func (s *Session) OnRemoveComplete(sessionID string) {
	if !s.owns(sessionID) {
		return
	}
	s.emit(event{kind: eventStatus, name: keystatus.NameReleased})
}

// publishKeyStatuses fetches the full map from the engine, replaces the
// snapshot and sends one status update chosen by the configured policy.
func (s *Session) publishKeyStatuses(sessionID string) {
	m, status := s.engine.KeyStatuses(sessionID)
	if !status.OK() {
		s.log.Warnf("session %s: key statuses: %s", sessionID, status)
		s.emit(event{kind: eventStatus, name: keystatus.NameUnknown})
		return
	}
	s.mu.Lock()
	s.keys = m.Clone()
	s.mu.Unlock()

	name := keystatus.Summarize(m, s.cfg.StatusPolicy)
	s.log.Debugf("session %s: %d keys, reporting %s", sessionID, m.Len(), name)
	s.emit(event{kind: eventStatus, name: name})
}

// keyError reports an engine failure through the sink.
func (s *Session) keyError(status domain.Status) {
	s.emit(keyErrorEvent(keystatus.ErrorName(status)))
}

// owns reports whether sessionID is this session's id.
func (s *Session) owns(sessionID string) bool {
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()
	if id != "" && id != sessionID {
		s.log.Warnf("session %s: ignoring event for %s", id, sessionID)
		return false
	}
	return true
}

// emit queues e for the currently bound sink and delivers the queue unless
// another goroutine already is. Deliveries run without s.mu held.
func (s *Session) emit(e event) {
	s.mu.Lock()
	e.sink = s.sink
	if e.sink == nil {
		id := s.id
		s.mu.Unlock()
		s.log.Debugf("session %s: no sink bound, dropping %s event", id, e.kind)
		return
	}
	s.outbox = append(s.outbox, e)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.outbox) > 0 {
		next := s.outbox[0]
		s.outbox[0] = event{}
		s.outbox = s.outbox[1:]
		s.mu.Unlock()

		next.deliver()
		s.metrics.Sink(next.kind.String())

		s.mu.Lock()
	}
	s.outbox = nil
	s.draining = false
	s.mu.Unlock()
}
