package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverbeek/ramify"
	httpAdapter "github.com/dverbeek/ramify/internal/adapters/http"
	"github.com/dverbeek/ramify/internal/logging"
	"github.com/dverbeek/ramify/pkg/dsl"
)

func newTestServer(t *testing.T) (*httptest.Server, *httpAdapter.Metrics) {
	t.Helper()

	metrics := httpAdapter.NewMetrics(prometheus.NewRegistry())

	def := dsl.New().
		State("Idle").Initial().Entry("n = 0").
		State("Active").During("n = n + 1").
		Transition("Idle", "Active").On("go").
		Definition()

	machine, err := ramify.New(def, ramify.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)

	handler := httpAdapter.NewHandler(machine, metrics, logging.NewNop())
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, metrics
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func postJSON(t *testing.T, url, body string, out any) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestServer_State(t *testing.T) {
	srv, _ := newTestServer(t)

	var state struct {
		State     string            `json:"state"`
		Leaf      string            `json:"leaf"`
		Halted    bool              `json:"halted"`
		Variables map[string]string `json:"variables"`
		Events    []string          `json:"events"`
	}
	getJSON(t, srv.URL+"/state", &state)

	assert.Equal(t, "Idle", state.State)
	assert.Equal(t, "Idle", state.Leaf)
	assert.False(t, state.Halted)
	assert.Equal(t, map[string]string{"n": "0"}, state.Variables)
	assert.Equal(t, []string{"go"}, state.Events)
}

func TestServer_Step(t *testing.T) {
	srv, metrics := newTestServer(t)

	var step struct {
		State  string   `json:"state"`
		Halted bool     `json:"halted"`
		Log    []string `json:"log"`
	}
	postJSON(t, srv.URL+"/step", `{"event": "go"}`, &step)

	assert.Equal(t, "Active", step.State)
	assert.False(t, step.Halted)
	assert.NotEmpty(t, step.Log)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StepsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransitionsTotal.WithLabelValues("go")))
}

func TestServer_StepInternalTick(t *testing.T) {
	srv, _ := newTestServer(t)
	postJSON(t, srv.URL+"/step", `{"event": "go"}`, nil)

	// An empty body is an internal tick.
	var step struct {
		State string `json:"state"`
	}
	postJSON(t, srv.URL+"/step", "", &step)
	assert.Equal(t, "Active", step.State)

	var state struct {
		Variables map[string]string `json:"variables"`
	}
	getJSON(t, srv.URL+"/state", &state)
	assert.Equal(t, "1", state.Variables["n"])
}

func TestServer_StepBadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/step", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StepOnHaltedMachineConflicts(t *testing.T) {
	metrics := httpAdapter.NewMetrics(prometheus.NewRegistry())

	def := dsl.New().
		State("A").Initial().During("error('boom')").
		Definition()
	machine, err := ramify.New(def, ramify.WithHaltOnActionError())
	require.NoError(t, err)

	srv := httptest.NewServer(httpAdapter.NewHandler(machine, metrics, logging.NewNop()))
	t.Cleanup(srv.Close)

	// The halting step itself still answers normally.
	var step struct {
		Halted bool `json:"halted"`
	}
	postJSON(t, srv.URL+"/step", "", &step)
	assert.True(t, step.Halted)

	resp := postJSON(t, srv.URL+"/step", `{"event": "go"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_Reset(t *testing.T) {
	srv, _ := newTestServer(t)
	postJSON(t, srv.URL+"/step", `{"event": "go"}`, nil)

	var reset struct {
		State string   `json:"state"`
		Log   []string `json:"log"`
	}
	postJSON(t, srv.URL+"/reset", "", &reset)
	assert.Equal(t, "Idle", reset.State)
	assert.NotEmpty(t, reset.Log)
}

func TestServer_Events(t *testing.T) {
	srv, _ := newTestServer(t)

	var events struct {
		Events []string `json:"events"`
	}
	getJSON(t, srv.URL+"/events", &events)
	assert.Equal(t, []string{"go"}, events.Events)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
