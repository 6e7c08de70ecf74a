package remote

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

func testConfig(extra map[string]any) map[string]any {
	c := map[string]any{
		"env_name":    grid.Case5Name,
		"env_is_test": true,
	}
	for k, v := range extra {
		c[k] = v
	}
	return c
}

func startServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer("", nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.CloseAll()
	})
	return s, ts
}

func seed(s int64) *int64 { return &s }

func TestClientMatchesLocalShim(t *testing.T) {
	_, ts := startServer(t)
	for _, actType := range []string{envshim.ActDiscrete, envshim.ActBox, envshim.ActMultiDiscrete} {
		config := testConfig(map[string]any{"act_type": actType})

		client, err := Dial(ts.URL, config, 5*time.Second)
		require.NoError(t, err, actType)
		local, err := envshim.New(config)
		require.NoError(t, err, actType)

		assert.Equal(t, local.ObservationSpace().Shape(), client.ObservationSpace().Shape(), actType)
		assert.Equal(t, local.ActionSpace().Kind(), client.ActionSpace().Kind(), actType)
		assert.Equal(t, gymcompat.Cardinality(local.ActionSpace()), gymcompat.Cardinality(client.ActionSpace()), actType)
		assert.Equal(t, local.NoopAction(), client.NoopAction(), actType)
		assert.Equal(t, actType, client.Config().ActType)

		remoteObs, remoteInfo, err := client.Reset(seed(7), nil)
		require.NoError(t, err)
		localObs, localInfo, err := local.Reset(seed(7), nil)
		require.NoError(t, err)
		assert.Equal(t, localInfo, remoteInfo)
		assert.InDeltaSlice(t, localObs, remoteObs, 1e-9)

		for i := 0; i < 3; i++ {
			remoteRes, err := client.Step(client.NoopAction())
			require.NoError(t, err)
			localRes, err := local.Step(local.NoopAction())
			require.NoError(t, err)
			assert.InDelta(t, localRes.Reward, remoteRes.Reward, 1e-9)
			assert.InDeltaSlice(t, localRes.Observation, remoteRes.Observation, 1e-9)
			assert.Equal(t, localRes.Terminated, remoteRes.Terminated)
			assert.Equal(t, localRes.Truncated, remoteRes.Truncated)
		}

		require.NoError(t, client.Close())
		require.NoError(t, local.Close())
	}
}

func TestCreateRejectsBadConfig(t *testing.T) {
	_, ts := startServer(t)

	_, err := Dial(ts.URL, testConfig(map[string]any{"act_type": "continuous"}), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, envshim.ErrUnsupportedActType)
	remoteErr, ok := err.(*RemoteError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, remoteErr.Status)

	_, err = Dial(ts.URL, map[string]any{"env_name": "case_nope"}, time.Second)
	assert.ErrorIs(t, err, grid.ErrUnknownEnvironment)

	_, err = Dial(ts.URL, testConfig(map[string]any{"unknown_key": 1}), time.Second)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, err.(*RemoteError).Status)
}

func TestSessionLifecycle(t *testing.T) {
	s, ts := startServer(t)

	client, err := Dial(ts.URL, testConfig(nil), time.Second)
	require.NoError(t, err)

	_, err = client.Step(client.NoopAction())
	assert.ErrorIs(t, err, grid.ErrNotReset)

	_, _, err = client.Reset(nil, map[string]any{"max_step": 1})
	require.NoError(t, err)
	_, err = client.Step([]float64{-1})
	assert.ErrorIs(t, err, gymcompat.ErrInvalidAction)

	attached, err := Attach(ts.URL, client.ID(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, client.ID(), attached.ID())
	res, err := attached.Step(attached.NoopAction())
	require.NoError(t, err)
	assert.True(t, res.Truncated || res.Terminated)

	_, err = client.Step(client.NoopAction())
	assert.ErrorIs(t, err, grid.ErrEpisodeDone)

	require.NoError(t, client.Close())
	err = attached.Close()
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = Attach(ts.URL, client.ID(), time.Second)
	assert.ErrorIs(t, err, ErrUnknownSession)

	assert.Empty(t, s.sessions)
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := startServer(t)

	client, err := Dial(ts.URL, testConfig(nil), time.Second)
	require.NoError(t, err)
	_, _, err = client.Reset(seed(1), nil)
	require.NoError(t, err)
	_, err = client.Step(client.NoopAction())
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	text := string(body)
	assert.True(t, strings.Contains(text, "gridrl_sessions_active 1"), text)
	assert.True(t, strings.Contains(text, `gridrl_sessions_created_total{act_type="discrete"} 1`), text)
	assert.True(t, strings.Contains(text, "gridrl_resets_total 1"), text)
	assert.True(t, strings.Contains(text, `gridrl_steps_total{outcome="running"} 1`), text)
	assert.True(t, strings.Contains(text, `gridrl_request_duration_seconds_count{op="step"} 1`), text)
	require.NoError(t, client.Close())
}

func TestSimulatorServesRemoteBackend(t *testing.T) {
	sim := NewSimulatorHandler(grid.NewSandboxBackend(grid.DefaultSandboxOptions()), nil)
	ts := httptest.NewServer(sim.Engine())
	defer ts.Close()

	remote, err := envshim.New(testConfig(map[string]any{
		"backend_cls":     grid.BackendRemote,
		"backend_options": map[string]any{"url": ts.URL, "timeout": "2s"},
	}))
	require.NoError(t, err)
	defer remote.Close()
	local, err := envshim.New(testConfig(nil))
	require.NoError(t, err)
	defer local.Close()

	remoteObs, _, err := remote.Reset(seed(3), nil)
	require.NoError(t, err)
	localObs, _, err := local.Reset(seed(3), nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, localObs, remoteObs, 1e-9)

	for i := 0; i < 4; i++ {
		remoteRes, err := remote.Step(remote.NoopAction())
		require.NoError(t, err)
		localRes, err := local.Step(local.NoopAction())
		require.NoError(t, err)
		assert.InDeltaSlice(t, localRes.Observation, remoteRes.Observation, 1e-9)
		assert.InDelta(t, localRes.Reward, remoteRes.Reward, 1e-9)
	}

	resp, err := http.Post(ts.URL+"/load", "application/json", strings.NewReader(`{"name":"broken","n_sub":0}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
