package session_test

import (
	"sync"

	"cdmbridge/internal/domain"
)

// fakeEngine is a scripted domain.Engine.
type fakeEngine struct {
	mu sync.Mutex

	id           string
	createStatus domain.Status
	genStatus    domain.Status
	updateStatus domain.Status
	loadStatus   domain.Status
	removeStatus domain.Status
	closeStatus  domain.Status
	keysStatus   domain.Status
	decStatus    domain.Status
	keys         domain.KeyStatusMap

	listener     domain.EventListener
	genType      domain.InitDataType
	genData      []byte
	updates      [][]byte
	keyQueries   int
	decryptCalls []domain.InputBuffer
	loaded       []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{id: "sess-1"}
}

func (e *fakeEngine) CreateSession(_ domain.LicenseType, l domain.EventListener) (string, domain.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
	if !e.createStatus.OK() {
		return "", e.createStatus
	}
	return e.id, domain.StatusSuccess
}

func (e *fakeEngine) GenerateRequest(_ string, t domain.InitDataType, data []byte) domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.genType = t
	e.genData = append([]byte(nil), data...)
	return e.genStatus
}

func (e *fakeEngine) Update(_ string, response []byte) domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updates = append(e.updates, response)
	return e.updateStatus
}

func (e *fakeEngine) Load(id string) domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = append(e.loaded, id)
	return e.loadStatus
}

func (e *fakeEngine) LoadSession(_, persistedID string) domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = append(e.loaded, persistedID)
	return e.loadStatus
}

func (e *fakeEngine) Remove(string) domain.Status { return e.removeStatus }
func (e *fakeEngine) Close(string) domain.Status  { return e.closeStatus }

func (e *fakeEngine) KeyStatuses(string) (domain.KeyStatusMap, domain.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keyQueries++
	return e.keys.Clone(), e.keysStatus
}

func (e *fakeEngine) Decrypt(in domain.InputBuffer, out *domain.OutputBuffer) domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decryptCalls = append(e.decryptCalls, in)
	if !e.decStatus.OK() {
		out.Data[0] = 0xee
		return e.decStatus
	}
	for i, b := range in.Data {
		out.Data[i] = b ^ 0x5a
	}
	return domain.StatusSuccess
}

func (e *fakeEngine) setKeys(entries ...domain.KeyStatusEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = domain.NewKeyStatusMap(entries...)
}

func (e *fakeEngine) decryptCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.decryptCalls)
}

type sinkMessage struct {
	payload []byte
	url     string
}

type sinkError struct {
	index  int16
	result domain.Result
	name   string
}

// recordingSink captures every callback.
type recordingSink struct {
	mu       sync.Mutex
	messages []sinkMessage
	statuses []string
	errors   []sinkError

	onMessage func([]byte)
}

func (r *recordingSink) OnKeyMessage(msg []byte, url string) {
	r.mu.Lock()
	r.messages = append(r.messages, sinkMessage{payload: append([]byte(nil), msg...), url: url})
	hook := r.onMessage
	r.mu.Unlock()
	if hook != nil {
		hook(msg)
	}
}

func (r *recordingSink) OnKeyStatusUpdate(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordingSink) OnKeyError(index int16, result domain.Result, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, sinkError{index: index, result: result, name: name})
}

func (r *recordingSink) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *recordingSink) Errors() []sinkError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sinkError(nil), r.errors...)
}

func (r *recordingSink) Messages() []sinkMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sinkMessage(nil), r.messages...)
}
