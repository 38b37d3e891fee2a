package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CTAG07/bayesnet/pkg/bayes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T, withHistory bool) http.Handler {
	t.Helper()
	return NewServer(DefaultConfig(), discardLogger(), setupSampler(t, withHistory)).Handler()
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNetworkEndpoints(t *testing.T) {
	h := setupServer(t, false)

	rr := doRequest(t, h, http.MethodGet, "/api/network", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var def bayes.Definition
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&def))
	assert.Equal(t, []string{"burglary", "earthquake", "alarm", "John_calls", "Mary_calls"}, def.Nodes)
	assert.Equal(t, 0.94, def.Relations["alarm"].Probabilities["T,F,T"])

	rr = doRequest(t, h, http.MethodGet, "/api/network/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats bayes.NetworkStats
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stats))
	assert.Equal(t, 5, stats.Nodes)
	assert.Equal(t, 4, stats.Edges)

	rr = doRequest(t, h, http.MethodGet, "/api/network/blanket/burglary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var blanket struct {
		Variable string   `json:"variable"`
		Blanket  []string `json:"blanket"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&blanket))
	assert.Equal(t, "burglary", blanket.Variable)
	assert.Equal(t, []string{"alarm", "earthquake"}, blanket.Blanket)
}

func TestNetworkEndpointErrors(t *testing.T) {
	h := setupServer(t, false)

	testCases := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{name: "Unknown blanket variable", method: http.MethodGet, target: "/api/network/blanket/Z", want: http.StatusNotFound},
		{name: "Blanket without variable", method: http.MethodGet, target: "/api/network/blanket/", want: http.StatusBadRequest},
		{name: "Network by POST", method: http.MethodPost, target: "/api/network", want: http.StatusMethodNotAllowed},
		{name: "MCMC by GET", method: http.MethodGet, target: "/api/mcmc", want: http.StatusMethodNotAllowed},
		{name: "MCMC bad JSON", method: http.MethodPost, target: "/api/mcmc", body: `{"query": [`, want: http.StatusBadRequest},
		{name: "MCMC without query", method: http.MethodPost, target: "/api/mcmc", body: `{"evidence": {"burglary": "T"}}`, want: http.StatusBadRequest},
		{name: "MCMC unknown query", method: http.MethodPost, target: "/api/mcmc", body: `{"query": ["Z"]}`, want: http.StatusBadRequest},
		{name: "MCMC unknown evidence", method: http.MethodPost, target: "/api/mcmc", body: `{"evidence": {"Z": "T"}, "query": ["alarm"]}`, want: http.StatusBadRequest},
		{name: "MCMC negative steps", method: http.MethodPost, target: "/api/mcmc", body: `{"query": ["alarm"], "steps": -1}`, want: http.StatusBadRequest},
		{name: "History disabled", method: http.MethodGet, target: "/api/history", want: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, h, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.want, rr.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMCMCEndpoint(t *testing.T) {
	h := setupServer(t, true)

	rr := doRequest(t, h, http.MethodPost, "/api/mcmc", `{"evidence": {"burglary": "T"}, "query": ["John_calls", "alarm"], "steps": 500}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var run Run
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 500, run.Steps)
	assert.Equal(t, bayes.Evidence{"burglary": "T"}, run.Evidence)
	for _, name := range []string{"John_calls", "alarm"} {
		dist, ok := run.Estimate[name]
		require.True(t, ok, name)
		assert.InDelta(t, 1, dist.Sum(), 1e-9)
		for _, p := range dist {
			assert.False(t, p < 0 || math.IsNaN(p))
		}
	}

	// Zero steps falls back to the configured default.
	rr = doRequest(t, h, http.MethodPost, "/api/mcmc", `{"query": ["earthquake"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var defaulted Run
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&defaulted))
	assert.Equal(t, DefaultSamplerConfig().Steps, defaulted.Steps)

	rr = doRequest(t, h, http.MethodGet, "/api/history?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []Run
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, defaulted.ID, runs[0].ID)

	rr = doRequest(t, h, http.MethodGet, "/api/history?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bayesnet_mcmc_runs_total")
}

func TestHealthAndVersion(t *testing.T) {
	h := setupServer(t, false)

	rr := doRequest(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])

	rr = doRequest(t, h, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var info VersionInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&info))
	assert.Equal(t, Version, info.Version)

	empty := NewServer(DefaultConfig(), discardLogger(), NewSampler(bayes.NewNetwork(), nil, discardLogger())).Handler()
	rr = doRequest(t, empty, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
