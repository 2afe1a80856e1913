package session_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/keystatus"
	"cdmbridge/internal/metrics"
	"cdmbridge/internal/services/session"
)

const licenseURL = "https://license.example.test/clearkey"

var (
	kidA = domain.KeyID(bytes.Repeat([]byte{0x01}, 16))
	kidB = domain.KeyID(bytes.Repeat([]byte{0x02}, 16))
)

func newSession(t *testing.T, e *fakeEngine, cfg session.Config) *session.Session {
	t.Helper()
	if cfg.LicenseServerURL == "" {
		cfg.LicenseServerURL = licenseURL
	}
	s, err := session.New(e, domain.Temporary, cfg)
	require.NoError(t, err)
	return s
}

func runSession(t *testing.T, e *fakeEngine, cfg session.Config) (*session.Session, *recordingSink) {
	t.Helper()
	s := newSession(t, e, cfg)
	sink := &recordingSink{}
	require.Equal(t, domain.Success, s.Init(domain.Temporary, "cenc", bytes.Repeat([]byte{9}, 16), nil))
	require.Equal(t, domain.Success, s.Run(sink))
	return s, sink
}

func TestNew_CreateFailures(t *testing.T) {
	e := newFakeEngine()
	e.createStatus = domain.StatusNotSupported
	_, err := session.New(e, domain.PersistentLicense, session.Config{})
	assert.True(t, errors.Is(err, session.ErrCreateFailed))

	e = newFakeEngine()
	e.id = ""
	_, err = session.New(e, domain.Temporary, session.Config{})
	assert.True(t, errors.Is(err, session.ErrCreateFailed))
}

func TestNew_Accessors(t *testing.T) {
	s := newSession(t, newFakeEngine(), session.Config{})
	assert.Equal(t, "sess-1", s.SessionID())
	assert.Equal(t, session.DefaultKeySystem, s.KeySystem())
	assert.Equal(t, domain.StateCreated, s.State())
	assert.Equal(t, domain.Cenc, s.InitDataType())
	assert.Zero(t, s.KeyStatuses().Len())

	s = newSession(t, newFakeEngine(), session.Config{KeySystem: "com.example.drm"})
	assert.Equal(t, "com.example.drm", s.KeySystem())
}

func TestInit_LicenseTypes(t *testing.T) {
	cases := []struct {
		in   domain.LicenseType
		want domain.LicenseType
	}{
		{domain.Temporary, domain.Temporary},
		{domain.PersistentUsageRecord, domain.PersistentUsageRecord},
		{domain.PersistentLicense, domain.PersistentLicense},
		{domain.LicenseType(42), domain.Temporary},
		{domain.LicenseType(-1), domain.Temporary},
	}
	for _, c := range cases {
		s := newSession(t, newFakeEngine(), session.Config{})
		require.Equal(t, domain.Success, s.Init(c.in, "cenc", nil, nil))
		assert.Equal(t, c.want, s.LicenseType(), "input %d", c.in)
	}
}

func TestInit_UnknownInitDataTypeKeepsPrevious(t *testing.T) {
	s := newSession(t, newFakeEngine(), session.Config{})
	require.Equal(t, domain.Success, s.Init(domain.Temporary, "webm", nil, nil))
	assert.Equal(t, domain.WebM, s.InitDataType())

	for _, in := range []string{"CENC", "WebM", "", "keyids", " cenc"} {
		require.Equal(t, domain.Success, s.Init(domain.Temporary, in, nil, nil))
		assert.Equal(t, domain.WebM, s.InitDataType(), "input %q", in)
	}

	require.Equal(t, domain.Success, s.Init(domain.Temporary, "cenc", nil, nil))
	assert.Equal(t, domain.Cenc, s.InitDataType())
}

func TestInit_RefusedAfterRun(t *testing.T) {
	s, _ := runSession(t, newFakeEngine(), session.Config{})
	assert.Equal(t, domain.GenericFailure, s.Init(domain.PersistentLicense, "webm", nil, nil))
	assert.Equal(t, domain.Temporary, s.LicenseType())
}

func TestRun_SendsInitDataAndTagsLicenseRequest(t *testing.T) {
	e := newFakeEngine()
	s := newSession(t, e, session.Config{})
	initData := bytes.Repeat([]byte{0xab}, 16)
	sink := &recordingSink{}

	require.Equal(t, domain.Success, s.Init(domain.Temporary, "cenc", initData, nil))
	require.Equal(t, domain.Success, s.Run(sink))
	assert.Equal(t, domain.StateRequestGenerated, s.State())
	assert.Equal(t, domain.Cenc, e.genType)
	assert.Equal(t, initData, e.genData)

	e.listener.OnMessage("sess-1", domain.LicenseRequest, []byte("challenge"))

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "0:Type:challenge", string(msgs[0].payload))
	assert.Equal(t, licenseURL, msgs[0].url)
}

func TestOnMessage_TaggingAndDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := newFakeEngine()
	s, sink := runSession(t, e, session.Config{Metrics: m})

	s.OnMessage("sess-1", domain.LicenseRenewal, []byte("r"))
	s.OnMessage("sess-1", domain.LicenseRelease, []byte("x"))
	s.OnMessage("sess-1", domain.IndividualizationRequest, []byte("i"))
	s.OnMessage("other", domain.LicenseRequest, []byte("y"))

	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "1:Type:r", string(msgs[0].payload))
	assert.Equal(t, "2:Type:x", string(msgs[1].payload))
	assert.Empty(t, sink.Errors())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedMessages.WithLabelValues("individualization-request")))
}

func TestRun_FailureRoutesKeyError(t *testing.T) {
	e := newFakeEngine()
	e.genStatus = domain.StatusNeedsDeviceCertificate
	s := newSession(t, e, session.Config{})
	sink := &recordingSink{}

	assert.Equal(t, domain.GenericFailure, s.Run(sink))
	assert.Equal(t, domain.StateCreated, s.State())
	assert.Equal(t, []sinkError{{0, domain.GenericFailure, keystatus.ErrNeedsDeviceCertificate}}, sink.Errors())
}

func TestRun_Twice(t *testing.T) {
	s, _ := runSession(t, newFakeEngine(), session.Config{})
	assert.Equal(t, domain.GenericFailure, s.Run(nil))
}

func TestOnKeyStatusesChange_Policies(t *testing.T) {
	for _, c := range []struct {
		policy keystatus.Policy
		want   string
	}{
		{keystatus.FirstKey, keystatus.NameUsable},
		{keystatus.WorstKey, keystatus.NameExpired},
	} {
		e := newFakeEngine()
		e.setKeys(
			domain.KeyStatusEntry{KeyID: kidB, Status: domain.KeyExpired},
			domain.KeyStatusEntry{KeyID: kidA, Status: domain.KeyUsable},
		)
		s, sink := runSession(t, e, session.Config{StatusPolicy: c.policy})

		e.listener.OnKeyStatusesChange("sess-1")
		assert.Equal(t, []string{c.want}, sink.Statuses(), "policy %s", c.policy)
		assert.Equal(t, 2, s.KeyStatuses().Len())
	}
}

func TestOnKeyStatusesChange_EngineFailure(t *testing.T) {
	e := newFakeEngine()
	e.keysStatus = domain.StatusSessionNotFound
	s, sink := runSession(t, e, session.Config{})

	s.OnKeyStatusesChange("sess-1")
	assert.Equal(t, []string{keystatus.NameUnknown}, sink.Statuses())
}

func TestOnRemoveComplete(t *testing.T) {
	s, sink := runSession(t, newFakeEngine(), session.Config{})
	s.OnRemoveComplete("sess-1")
	assert.Equal(t, []string{keystatus.NameReleased}, sink.Statuses())
}

func TestEvents_WithoutSinkAreDropped(t *testing.T) {
	s := newSession(t, newFakeEngine(), session.Config{})
	s.OnMessage("sess-1", domain.LicenseRequest, []byte("x"))
	s.OnRemoveComplete("sess-1")
}

func TestUpdate_SuccessIsSilent(t *testing.T) {
	e := newFakeEngine()
	e.setKeys(domain.KeyStatusEntry{KeyID: kidA, Status: domain.KeyUsable})
	s, sink := runSession(t, e, session.Config{})

	assert.Equal(t, domain.Success, s.Update([]byte("license")))
	assert.Equal(t, domain.StateUpdated, s.State())
	assert.Empty(t, sink.Statuses())
	assert.Empty(t, sink.Errors())
	assert.Equal(t, [][]byte{[]byte("license")}, e.updates)
}

func TestUpdate_FailurePublishesKeyStatusesOnce(t *testing.T) {
	e := newFakeEngine()
	e.updateStatus = domain.StatusInvalidAccess
	e.setKeys(domain.KeyStatusEntry{KeyID: kidA, Status: domain.KeyInternalError})
	s, sink := runSession(t, e, session.Config{})

	assert.Equal(t, domain.GenericFailure, s.Update([]byte("bad")))
	assert.Equal(t, []string{keystatus.NameInternalError}, sink.Statuses())
	assert.Empty(t, sink.Errors())
	assert.Equal(t, 1, e.keyQueries)
	assert.Equal(t, domain.StateRequestGenerated, s.State())
}

func TestUpdate_BeforeRun(t *testing.T) {
	e := newFakeEngine()
	s := newSession(t, e, session.Config{})
	assert.Equal(t, domain.GenericFailure, s.Update([]byte("x")))
	assert.Empty(t, e.updates)
}

func TestLoad(t *testing.T) {
	e := newFakeEngine()
	s := newSession(t, e, session.Config{})
	assert.Equal(t, domain.Success, s.Load())
	assert.Equal(t, domain.StateLoaded, s.State())
	assert.Equal(t, []string{"sess-1"}, e.loaded)

	e = newFakeEngine()
	e.loadStatus = domain.StatusSessionNotFound
	s, sink := runSession(t, e, session.Config{})
	assert.Equal(t, domain.GenericFailure, s.Load())
	assert.Equal(t, domain.StateRequestGenerated, s.State())
	assert.Equal(t, []sinkError{{0, domain.GenericFailure, keystatus.ErrSessionNotFound}}, sink.Errors())
}

func TestLoadSession_AdoptsPersistedID(t *testing.T) {
	e := newFakeEngine()
	s := newSession(t, e, session.Config{})
	assert.Equal(t, domain.Success, s.LoadSession("persisted-7"))
	assert.Equal(t, "persisted-7", s.SessionID())
	assert.Equal(t, domain.StateLoaded, s.State())

	// Events now route by the adopted id.
	sink := &recordingSink{}
	s.Bind(sink)
	s.OnRemoveComplete("persisted-7")
	s.OnRemoveComplete("sess-1")
	assert.Equal(t, []string{keystatus.NameReleased}, sink.Statuses())
}

func TestRemove(t *testing.T) {
	e := newFakeEngine()
	s, sink := runSession(t, e, session.Config{})
	require.Equal(t, domain.Success, s.Update([]byte("l")))
	assert.Equal(t, domain.Success, s.Remove())
	assert.Equal(t, domain.StateRemoved, s.State())

	e = newFakeEngine()
	e.removeStatus = domain.StatusQuotaExceeded
	s, sink = runSession(t, e, session.Config{})
	assert.Equal(t, domain.GenericFailure, s.Remove())
	assert.Equal(t, []sinkError{{0, domain.GenericFailure, keystatus.ErrQuotaExceeded}}, sink.Errors())
}

func TestClose(t *testing.T) {
	e := newFakeEngine()
	s, sink := runSession(t, e, session.Config{})
	assert.Equal(t, domain.Success, s.Close())
	assert.Equal(t, domain.StateClosed, s.State())
	assert.Equal(t, domain.GenericFailure, s.Close())
	assert.Equal(t, domain.GenericFailure, s.Update([]byte("late")))
	assert.Empty(t, sink.Statuses())
	assert.Empty(t, sink.Errors())

	e = newFakeEngine()
	e.closeStatus = domain.StatusSessionNotFound
	s, sink = runSession(t, e, session.Config{})
	assert.Equal(t, domain.GenericFailure, s.Close())
	assert.Empty(t, sink.Errors())
}

func TestRequestTimeout_Abandons(t *testing.T) {
	e := newFakeEngine()
	s, sink := runSession(t, e, session.Config{RequestTimeout: 10 * time.Millisecond})

	require.Eventually(t, func() bool {
		return s.State() == domain.StateRequestAbandoned
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(sink.Errors()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, sinkError{0, domain.GenericFailure, keystatus.ErrRequestAbandoned}, sink.Errors()[0])

	assert.Equal(t, domain.GenericFailure, s.Update([]byte("late")))
	assert.Empty(t, e.updates)
	assert.Equal(t, domain.Success, s.Close())
}

func TestRequestTimeout_DisarmedByUpdate(t *testing.T) {
	s, sink := runSession(t, newFakeEngine(), session.Config{RequestTimeout: 20 * time.Millisecond})
	require.Equal(t, domain.Success, s.Update([]byte("license")))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, domain.StateUpdated, s.State())
	assert.Empty(t, sink.Errors())
}

func TestSink_MayReenterSession(t *testing.T) {
	e := newFakeEngine()
	e.updateStatus = domain.StatusDecryptError
	s := newSession(t, e, session.Config{})

	sink := &recordingSink{}
	sink.onMessage = func([]byte) {
		// A failing Update emits from inside a delivery.
		s.Update([]byte("response"))
	}
	require.Equal(t, domain.Success, s.Run(sink))

	done := make(chan struct{})
	go func() {
		s.OnMessage("sess-1", domain.LicenseRequest, []byte("c"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delivery deadlocked")
	}
	assert.Len(t, sink.Messages(), 1)
	assert.Equal(t, []string{keystatus.NameUnknown}, sink.Statuses())
}

func TestConcurrentEventsAndCalls(t *testing.T) {
	e := newFakeEngine()
	e.setKeys(domain.KeyStatusEntry{KeyID: kidA, Status: domain.KeyUsable})
	s, sink := runSession(t, e, session.Config{})
	require.Equal(t, domain.Success, s.Update([]byte("l")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.OnKeyStatusesChange("sess-1")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				out, r := s.Decrypt(nil, nil, make([]byte, 16), []byte("sample"))
				if r.OK() {
					session.ReleaseClearContent(out)
				}
			}
		}()
	}
	wg.Wait()
	assert.Len(t, sink.Statuses(), 400)
}

func TestParseMessage(t *testing.T) {
	typ, body, err := session.ParseMessage([]byte(`2:Type:{"kids":[]}`))
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseRelease, typ)
	assert.Equal(t, `{"kids":[]}`, string(body))

	for _, bad := range []string{"", ":Type:x", "x:Type:y", "-1:Type:z", "0:Tape:x"} {
		_, _, err := session.ParseMessage([]byte(bad))
		assert.ErrorIs(t, err, session.ErrUntaggedMessage, bad)
	}
}
