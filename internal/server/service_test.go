package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/pipeline"
	"github.com/theirongolddev/ilbudget/internal/source"
)

func writeDataset(t *testing.T, path string, rows ...[]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	all := append([][]string{{"Fund Category Name", "Fund Name", "FY25 Act Approp"}}, rows...)
	require.NoError(t, w.WriteAll(all))
	require.NoError(t, f.Close())
}

// newTestServer serves the A/B scenario: A (revenue) F1=100M, F2=200M; B F3=50M.
func newTestServer(t *testing.T) (*Service, *httptest.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budget.csv")
	writeDataset(t, path,
		[]string{"A", "F1", "100000000"},
		[]string{"A", "F2", "200000000"},
		[]string{"B", "F3", "50000000"},
		[]string{"B", "", "1"},
	)
	reg := model.NewRegistry([]model.CategoryInfo{{Name: "A", Revenue: true}, {Name: "B"}})
	svc := New(Config{Load: pipeline.LoadOptions{Path: path, Columns: source.DefaultColumns}},
		pipeline.NewLoader(nil, nil), reg, nil)
	require.NoError(t, svc.Reload())

	ts := httptest.NewServer(svc.Handler())
	t.Cleanup(ts.Close)
	return svc, ts, path
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func pct(v float64) map[string]float64 { return map[string]float64{"percent": v} }

func TestReadEndpoints(t *testing.T) {
	_, ts, _ := newTestServer(t)

	var health map[string]string
	assert.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/health", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var funds []model.FundAggregate
	assert.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/funds", nil, &funds))
	require.Len(t, funds, 3)
	assert.Equal(t, "F1", funds[0].Fund)

	assert.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/funds?category=b", nil, &funds))
	assert.Len(t, funds, 1)

	var cats []model.CategoryStats
	assert.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/categories", nil, &cats))
	require.Len(t, cats, 2)
	assert.True(t, cats[0].Revenue)

	var st Status
	assert.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/status", nil, &st))
	assert.Equal(t, 1, st.Rows.Missing)
	assert.Equal(t, 3, st.Funds)
	assert.InDelta(t, 350.0, st.GrandTotal, 1e-9)
}

func TestSessionLifecycle(t *testing.T) {
	_, ts, _ := newTestServer(t)

	var v SessionView
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/sessions", nil, &v))
	require.NotEmpty(t, v.ID)
	assert.Equal(t, 300.0, v.Totals.AdjustedRevenue)
	assert.Equal(t, -50.0, v.Totals.AdjustedDeficit)
	base := "/v1/sessions/" + v.ID

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, base+"/categories/A", pct(10), &v))
	assert.InDelta(t, 330.0, v.Totals.AdjustedRevenue, 1e-9)
	assert.InDelta(t, 380.0, v.Totals.AdjustedSpending, 1e-9)
	require.Len(t, v.Log, 1)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, base+"/funds/F1", pct(-20), &v))
	assert.InDelta(t, 300.0, v.Totals.AdjustedRevenue, 1e-9)

	var eff map[string]float64
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, base+"/effective", nil, &eff))
	assert.Equal(t, map[string]float64{"F1": -20, "F2": 10, "F3": 0}, eff)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, base+"/global/spending", pct(-10), &v))
	assert.Equal(t, 10.0, v.Adjustments.Categories["A"])
	assert.Equal(t, -10.0, v.Adjustments.Categories["B"])

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/reset", nil, &v))
	assert.Equal(t, v.Totals.OriginalDeficit, v.Totals.AdjustedDeficit)
	assert.Empty(t, v.Log)

	assert.Equal(t, http.StatusNoContent, do(t, ts, http.MethodDelete, base, nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, base, nil, nil))
}

func TestSessionsAreIndependent(t *testing.T) {
	_, ts, _ := newTestServer(t)

	var a, b SessionView
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/sessions", nil, &a))
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/sessions", nil, &b))
	require.NotEqual(t, a.ID, b.ID)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, "/v1/sessions/"+a.ID+"/categories/B", pct(50), &a))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/sessions/"+b.ID, nil, &b))
	assert.Equal(t, b.Totals.OriginalSpending, b.Totals.AdjustedSpending)
	assert.InDelta(t, 375.0, a.Totals.AdjustedSpending, 1e-9)
}

func TestErrorResponses(t *testing.T) {
	_, ts, _ := newTestServer(t)

	var v SessionView
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/sessions", nil, &v))
	base := "/v1/sessions/" + v.ID

	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPut, base+"/categories/A", pct(150), nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPut, base+"/categories/A", map[string]string{}, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPut, base+"/global/everything", pct(1), nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodPut, base+"/categories/"+url.PathEscape("No Such"), pct(1), nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodPut, base+"/funds/F9", pct(1), nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodPut, "/v1/sessions/nope/categories/A", pct(1), nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodDelete, "/v1/sessions/nope", nil, nil))
}

func TestReloadSwapsDatasetWhole(t *testing.T) {
	svc, ts, path := newTestServer(t)

	var v SessionView
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/sessions", nil, &v))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, "/v1/sessions/"+v.ID+"/categories/A", pct(10), &v))
	oldSHA := v.DatasetSHA

	writeDataset(t, path,
		[]string{"A", "F1", "100000000"},
		[]string{"A", "F2", "200000000"},
		[]string{"B", "F3", "50000000"},
		[]string{"C", "F4", "25000000"},
	)
	require.NoError(t, svc.Reload())

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/sessions/"+v.ID, nil, &v))
	assert.NotEqual(t, oldSHA, v.DatasetSHA)
	assert.InDelta(t, 405.0, v.Totals.AdjustedSpending, 1e-9)
	assert.Contains(t, v.Adjustments.Categories, "C")

	var events []Event
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/events", nil, &events))
	require.Len(t, events, 2)
	assert.Equal(t, "dataset_loaded", events[1].Type)

	// A broken file keeps the last good dataset.
	require.NoError(t, os.WriteFile(path, []byte("nothing,useful\n1,2\n"), 0o600))
	require.Error(t, svc.Reload())
	var st Status
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/v1/status", nil, &st))
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, 4, st.Funds)
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, nil, nil, nil)
	ds := &Dataset{SHA256: "x"}

	s.publish("a", ds)
	s.publish("b", ds)
	s.publish("c", ds)

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Len(t, s.events, 2)
	assert.Equal(t, int64(2), s.events[0].ID)
	assert.Equal(t, int64(3), s.events[1].ID)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.csv")
	writeDataset(t, path, []string{"A", "F1", "1"})
	svc := New(Config{
		Addr: "127.0.0.1:0",
		Load: pipeline.LoadOptions{Path: path, Columns: source.DefaultColumns},
	}, pipeline.NewLoader(nil, nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsOnMissingDataset(t *testing.T) {
	svc := New(Config{
		Load: pipeline.LoadOptions{Path: filepath.Join(t.TempDir(), "missing.csv"), Columns: source.DefaultColumns},
	}, pipeline.NewLoader(nil, nil), nil, nil)

	err := svc.Run(context.Background())
	var dsErr *source.DataSourceError
	assert.ErrorAs(t, err, &dsErr)
}
