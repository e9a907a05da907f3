package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/perfline/perfline/internal/timeline"
	"github.com/perfline/perfline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, capacity int) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := timeline.DefaultConfig()
	cfg.Capacity = capacity

	buf := timeline.NewEntryBuffer(cfg.Capacity, logger)
	rec := timeline.NewRecorder(buf, nil, logger)
	return New(cfg, buf, rec, logger)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestServer_QueueEntry(t *testing.T) {
	s := newTestServer(t, 10)

	w := doJSON(t, s, "POST", "/api/v1/entries",
		`{"name":"checkout","startTime":12.5,"duration":3.25,"detail":{"step":1}}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var entry domain.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, "checkout", entry.Name)
	assert.Equal(t, domain.EntryTypeCustom, entry.EntryType)
	assert.Equal(t, 12.5, entry.StartTime)
	assert.Equal(t, 3.25, entry.Duration)
	assert.JSONEq(t, `{"step":1}`, string(entry.Detail))
	assert.NotEmpty(t, entry.EntryID)
}

func TestServer_QueueEntry_MissingName(t *testing.T) {
	s := newTestServer(t, 10)

	w := doJSON(t, s, "POST", "/api/v1/entries", `{"startTime":1,"duration":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
}

func TestServer_QueueEntry_InvalidJSON(t *testing.T) {
	s := newTestServer(t, 10)

	w := doJSON(t, s, "POST", "/api/v1/entries", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")
}

func TestServer_QueueEntry_NegativeDurationAccepted(t *testing.T) {
	s := newTestServer(t, 10)

	w := doJSON(t, s, "POST", "/api/v1/entries", `{"name":"odd","startTime":10,"duration":-5}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var entry domain.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, -5.0, entry.Duration)
}

func TestServer_PeekAndDrain(t *testing.T) {
	s := newTestServer(t, 2)

	for _, name := range []string{"A", "B", "C"} {
		w := doJSON(t, s, "POST", "/api/v1/entries", `{"name":"`+name+`","startTime":1,"duration":0}`)
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	// Peek does not mutate
	w := doJSON(t, s, "GET", "/api/v1/entries", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var peeked EntriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &peeked))
	require.Equal(t, 2, peeked.Count)
	assert.Equal(t, "B", peeked.Entries[0].Name)
	assert.Equal(t, "C", peeked.Entries[1].Name)

	// Drain returns the last capacity entries and clears
	w = doJSON(t, s, "POST", "/api/v1/entries/drain", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var drained EntriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drained))
	require.Equal(t, 2, drained.Count)
	assert.Equal(t, "B", drained.Entries[0].Name)
	assert.Equal(t, "C", drained.Entries[1].Name)

	// Second drain is empty
	w = doJSON(t, s, "POST", "/api/v1/entries/drain", "")
	var empty EntriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Entries)
}

func TestServer_MarkAndMeasure(t *testing.T) {
	s := newTestServer(t, 10)

	w := doJSON(t, s, "POST", "/api/v1/marks/nav-start", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(t, s, "POST", "/api/v1/measures", `{"name":"nav","startMark":"nav-start"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var entry domain.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, "nav", entry.Name)
	assert.GreaterOrEqual(t, entry.Duration, 0.0)

	w = doJSON(t, s, "POST", "/api/v1/entries/drain", "")
	var drained EntriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drained))
	require.Equal(t, 2, drained.Count)
	assert.Equal(t, "nav-start", drained.Entries[0].Name)
	assert.Equal(t, "nav", drained.Entries[1].Name)
}

func TestServer_Measure_UnknownMark(t *testing.T) {
	s := newTestServer(t, 10)

	w := doJSON(t, s, "POST", "/api/v1/measures", `{"name":"nav","startMark":"missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown mark")
}

func TestServer_Stats(t *testing.T) {
	s := newTestServer(t, 4)

	doJSON(t, s, "POST", "/api/v1/entries", `{"name":"A","startTime":1,"duration":0}`)
	doJSON(t, s, "POST", "/api/v1/entries", `{"name":"B","startTime":2,"duration":0}`)

	w := doJSON(t, s, "GET", "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var stats timeline.BufferStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Capacity)
	assert.Equal(t, 2, stats.Buffered)
	assert.Equal(t, int64(2), stats.Enqueued)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, 10)

	w := doJSON(t, s, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 0, resp.Buffered)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t, 10)

	req := httptest.NewRequest("OPTIONS", "/api/v1/entries", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
