package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/db"
	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/run"
)

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	dbInst, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { dbInst.Close() })
	return NewServer(dbInst), dbInst
}

// seedRun stores a finished run with n single-record events.
func seedRun(t *testing.T, dbInst *db.DB, n int) *db.Run {
	t.Helper()
	r := &db.Run{Generator: "particleGun", Seed: 7, Workers: 1, EventsRequested: n, WorldSizeZMM: 100}
	require.NoError(t, dbInst.CreateRun(r))
	for i := 0; i < n; i++ {
		rec := run.EventRecord{
			EventID:      i,
			NumVertices:  1,
			NumPrimaries: 1,
			GenParticles: []event.GenParticle{{
				VertexKE:  4,
				VertexPos: r3.Vec{X: float64(i), Y: float64(-i), Z: -50},
				PDGID:     11,
			}},
		}
		require.NoError(t, dbInst.WriteEvent(r.RunID, rec))
	}
	require.NoError(t, dbInst.FinishRun(r.RunID, int64(n), time.Second))
	return r
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

func TestListRuns(t *testing.T) {
	server, dbInst := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())

	r := seedRun(t, dbInst, 3)
	w = do(t, server, http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var runs []db.Run
	require.NoError(t, json.NewDecoder(w.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, r.RunID, runs[0].RunID)
	assert.Equal(t, int64(3), runs[0].Events)
	assert.Equal(t, uint64(7), runs[0].Seed)
}

func TestListRuns_BadLimit(t *testing.T) {
	server, _ := setupTestServer(t)
	w := do(t, server, http.MethodGet, "/runs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid 'limit' parameter", decodeError(t, w))
}

func TestMethodNotAllowed(t *testing.T) {
	server, dbInst := setupTestServer(t)
	r := seedRun(t, dbInst, 1)

	for _, path := range []string{
		"/runs",
		"/runs/" + r.RunID,
		"/runs/" + r.RunID + "/particles",
		"/runs/" + r.RunID + "/stats",
		"/runs/" + r.RunID + "/vertices.html",
	} {
		t.Run(path, func(t *testing.T) {
			w := do(t, server, http.MethodPost, path)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, "Method not allowed", decodeError(t, w))
		})
	}
}

func TestShowRun(t *testing.T) {
	server, dbInst := setupTestServer(t)
	r := seedRun(t, dbInst, 2)

	w := do(t, server, http.MethodGet, "/runs/"+r.RunID)
	require.Equal(t, http.StatusOK, w.Code)
	var got db.Run
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, r.RunID, got.RunID)
	assert.NotNil(t, got.FinishedAt)
}

func TestRunNotFound(t *testing.T) {
	server, _ := setupTestServer(t)
	for _, path := range []string{"/runs/nope", "/runs/nope/particles", "/runs/nope/stats", "/runs/nope/vertices.html"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, server, http.MethodGet, path)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Contains(t, decodeError(t, w), "not found")
		})
	}
}

func TestListParticles(t *testing.T) {
	server, dbInst := setupTestServer(t)
	r := seedRun(t, dbInst, 5)

	w := do(t, server, http.MethodGet, "/runs/"+r.RunID+"/particles?limit=3")
	require.Equal(t, http.StatusOK, w.Code)

	var rows []struct {
		EventID   int     `json:"event_id"`
		VertexKE  float64 `json:"vertex_ke"`
		VertexPos r3.Vec  `json:"vertex_pos"`
		PDGID     int     `json:"pdgid"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[2].EventID)
	assert.Equal(t, 11, rows[2].PDGID)
	assert.Equal(t, 4.0, rows[2].VertexKE)
	assert.Equal(t, 2.0, rows[2].VertexPos.X)
	assert.Equal(t, -50.0, rows[2].VertexPos.Z)
}

func TestShowStats(t *testing.T) {
	server, dbInst := setupTestServer(t)
	r := seedRun(t, dbInst, 5)

	w := do(t, server, http.MethodGet, "/runs/"+r.RunID+"/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats db.VertexStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, int64(5), stats.Count)
	assert.Equal(t, 4.0, stats.MaxX)
	assert.Equal(t, -4.0, stats.MinY)
	assert.InDelta(t, 2.0, stats.MeanX, 1e-12)
}

func TestShowVertices(t *testing.T) {
	server, dbInst := setupTestServer(t)
	r := seedRun(t, dbInst, 4)

	w := do(t, server, http.MethodGet, "/runs/"+r.RunID+"/vertices.html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "vertices=4")
}

func TestLoggingMiddleware(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"302"+colorReset, statusCodeColor(302))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"500"+colorReset, statusCodeColor(500))
	assert.Equal(t, "100", statusCodeColor(100))
}
