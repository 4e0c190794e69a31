package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryzhenkov/countd/internal/clock"
	"github.com/ryzhenkov/countd/internal/store"
	"github.com/ryzhenkov/countd/internal/timer"
)

func newTestServer(t *testing.T) (*RESTServer, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewStore(filepath.Join(t.TempDir(), "state.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tm := timer.New(clock.NewRealClock(), nil)
	hub := NewWebSocketHub(tm, nil)
	t.Cleanup(hub.Shutdown)

	s := NewRESTServer(ServerDeps{
		Timer: tm,
		Store: st,
		Hub:   hub,
	})
	return s, st
}

func doRequest(t *testing.T, s *RESTServer, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.router.ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHandleSet(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/set?seconds=10")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "set", body["status"])
	assert.Equal(t, float64(10), body["seconds"])
}

func TestHandleSet_NegativeClampsToZero(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/set?seconds=-30")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["seconds"])
}

func TestHandleSet_MissingParam(t *testing.T) {
	s, _ := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/set?seconds=25")

	w, body := doRequest(t, s, http.MethodPost, "/set")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "seconds")

	// No mutation on validation failure
	_, got := doRequest(t, s, http.MethodGet, "/get")
	assert.Equal(t, float64(25), got["seconds"])
}

func TestHandleSet_NonInteger(t *testing.T) {
	s, _ := newTestServer(t)

	for _, bad := range []string{"abc", "1.5", "10x", ""} {
		w, _ := doRequest(t, s, http.MethodPost, "/set?seconds="+bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, "seconds=%q should be rejected", bad)
	}
}

func TestHandleAdjust(t *testing.T) {
	s, _ := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/set?seconds=60")

	w, body := doRequest(t, s, http.MethodPost, "/adjust?delta=30")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "adjusted", body["status"])
	assert.Equal(t, float64(90), body["seconds"])

	_, body = doRequest(t, s, http.MethodPost, "/adjust?delta=-100")
	assert.Equal(t, float64(0), body["seconds"], "adjust floors at zero")
}

func TestHandleAdjust_MissingOrInvalidDelta(t *testing.T) {
	s, _ := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/set?seconds=60")

	w, _ := doRequest(t, s, http.MethodPost, "/adjust")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, s, http.MethodPost, "/adjust?delta=oops")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, got := doRequest(t, s, http.MethodGet, "/get")
	assert.Equal(t, float64(60), got["seconds"], "invalid input must not mutate state")
}

func TestHandleStartPauseReset(t *testing.T) {
	s, _ := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/set?seconds=120")

	w, body := doRequest(t, s, http.MethodPost, "/start")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, float64(120), body["seconds"])

	_, got := doRequest(t, s, http.MethodGet, "/get")
	assert.Equal(t, true, got["running"])

	w, body = doRequest(t, s, http.MethodPost, "/pause")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paused", body["status"])

	_, got = doRequest(t, s, http.MethodGet, "/get")
	assert.Equal(t, false, got["running"])

	w, body = doRequest(t, s, http.MethodPost, "/reset")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reset", body["status"])
	assert.Equal(t, float64(0), body["seconds"])
}

func TestHandleGet(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/get")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["seconds"])
	assert.Equal(t, false, body["running"])
}

func TestMutationsPersistSynchronously(t *testing.T) {
	s, st := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/set?seconds=45")

	snap, ok := st.Load()
	require.True(t, ok, "set must be persisted before the handler returns")
	assert.Equal(t, 45, snap.Seconds)

	doRequest(t, s, http.MethodPost, "/start")
	snap, _ = st.Load()
	assert.True(t, snap.Running)
}

func TestHandleHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/set?seconds=5")

	w, body := doRequest(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(5), body["seconds"])
	assert.Equal(t, float64(0), body["subscribers"])
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t)

	w, _ := doRequest(t, s, http.MethodGet, "/get")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
