package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/pipeline"
	"github.com/theirongolddev/ilbudget/internal/source"
)

func TestWriteJSON_EncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"total": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "encoding response")

	rec = httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]float64{"total": 1.5})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"total":1.5}`, rec.Body.String())
}

func TestPathParam_DecodesOnce(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/funds/{name}", func(_ http.ResponseWriter, r *http.Request) {
		got = pathParam(r, "name")
	})

	cases := map[string]string{
		"/funds/" + url.PathEscape("A%41"):      "A%41",
		"/funds/" + url.PathEscape("Road Fund"): "Road Fund",
		"/funds/a%2Fb":                          "a/b",
		"/funds/AA":                             "AA",
	}
	for target, want := range cases {
		got = ""
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, want, got, target)
	}
}

func TestSetFund_NameWithPercentSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.csv")
	writeDataset(t, path,
		[]string{"A", "A%41", "100000000"},
		[]string{"A", "AA", "200000000"},
	)
	reg := model.NewRegistry([]model.CategoryInfo{{Name: "A", Revenue: true}})
	svc := New(Config{Load: pipeline.LoadOptions{Path: path, Columns: source.DefaultColumns}},
		pipeline.NewLoader(nil, nil), reg, nil)
	require.NoError(t, svc.Reload())
	ts := httptest.NewServer(svc.Handler())
	t.Cleanup(ts.Close)

	var v SessionView
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/sessions", nil, &v))
	require.Equal(t, http.StatusOK,
		do(t, ts, http.MethodPut, "/v1/sessions/"+v.ID+"/funds/"+url.PathEscape("A%41"), pct(10), &v))

	assert.Equal(t, map[string]float64{"A%41": 10}, v.Adjustments.Funds)
}
