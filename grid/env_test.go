package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestEnv(t *testing.T, name string, opts ...Option) *Environment {
	t.Helper()
	env, err := Make(name, append([]Option{WithTest(true)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	return env
}

func seed(s int64) *int64 { return &s }

func TestMakeUnknownGrid(t *testing.T) {
	_, err := Make("nope")
	assert.ErrorIs(t, err, ErrUnknownEnvironment)
}

func TestStepBeforeReset(t *testing.T) {
	env := makeTestEnv(t, Case5Name)
	_, _, _, _, err := env.Step(env.ActionSpace().DoNothing())
	assert.ErrorIs(t, err, ErrNotReset)
}

func TestResetObservationMatchesSpace(t *testing.T) {
	env := makeTestEnv(t, Case14Name)
	obs, err := env.Reset(seed(1), ResetOptions{})
	require.NoError(t, err)

	space := env.ObservationSpace()
	for _, name := range space.AttrNames() {
		spec, err := space.Attr(name)
		require.NoError(t, err)
		vals, err := obs.Attr(name)
		require.NoError(t, err)
		assert.Len(t, vals, spec.Size(), name)
	}
	assert.Equal(t, testMaxStep, obs.MaxStep)
	assert.Equal(t, 0, obs.CurrentStep)
	for _, st := range obs.LineStatus {
		assert.True(t, st)
	}
}

func TestSameSeedSameEpisode(t *testing.T) {
	run := func() []*Observation {
		env := makeTestEnv(t, Case14Name)
		id := 3
		obs, err := env.Reset(seed(42), ResetOptions{TimeSerieID: &id})
		require.NoError(t, err)
		out := []*Observation{obs}
		for i := 0; i < 10; i++ {
			obs, _, _, _, err = env.Step(env.ActionSpace().DoNothing())
			require.NoError(t, err)
			out = append(out, obs)
		}
		return out
	}
	a, b := run(), run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Rho, b[i].Rho, "step %d", i)
		assert.Equal(t, a[i].LoadP, b[i].LoadP, "step %d", i)
	}
}

func TestRejectedResetLeavesChronicCursor(t *testing.T) {
	env := makeTestEnv(t, Case5Name)
	_, err := env.Reset(seed(1), ResetOptions{InitTS: -1})
	require.Error(t, err)
	_, err = env.Reset(seed(1), ResetOptions{InitTS: testMaxStep})
	require.Error(t, err)

	_, err = env.Reset(seed(1), ResetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, env.TimeSerieID())
}

func TestEpisodeEndsAtMaxStep(t *testing.T) {
	env := makeTestEnv(t, Case5Name)
	_, err := env.Reset(seed(0), ResetOptions{MaxStep: 3})
	require.NoError(t, err)

	done := false
	steps := 0
	for !done {
		_, _, d, info, err := env.Step(env.ActionSpace().DoNothing())
		require.NoError(t, err)
		require.False(t, info.HasError(), info.Exception)
		done = d
		steps++
	}
	assert.Equal(t, 3, steps)

	_, _, _, _, err = env.Step(env.ActionSpace().DoNothing())
	assert.ErrorIs(t, err, ErrEpisodeDone)
}

func TestAmbiguousActionIsReplaced(t *testing.T) {
	env := makeTestEnv(t, Case5Name)
	_, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)

	bad := env.ActionSpace().DoNothing()
	bad.SetBus = bad.SetBus[1:]
	obs, _, _, info, err := env.Step(bad)
	require.NoError(t, err)
	assert.True(t, info.IsAmbiguous)
	for _, st := range obs.LineStatus {
		assert.True(t, st)
	}

	notRedispatchable := env.ActionSpace().RedispatchGen(1, 2)
	assert.ErrorIs(t, env.ActionSpace().Check(notRedispatchable), ErrAmbiguousAction)
}

func TestDisconnectAndReconnectLine(t *testing.T) {
	env := makeTestEnv(t, Case14Name)
	_, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)
	space := env.ActionSpace()
	d := env.Description()

	obs, _, _, info, err := env.Step(space.SetLine(5, -1))
	require.NoError(t, err)
	require.False(t, info.HasError())
	assert.False(t, obs.LineStatus[5])
	assert.Equal(t, -1, obs.TopoVect[d.LineOrPos(5)])
	assert.Equal(t, 0.0, obs.Rho[5])

	obs, _, _, _, err = env.Step(space.SetLineBuses(5, 1, 2))
	require.NoError(t, err)
	assert.True(t, obs.LineStatus[5])
	assert.Equal(t, 1, obs.TopoVect[d.LineOrPos(5)])
	assert.Equal(t, 2, obs.TopoVect[d.LineExPos(5)])

	obs, _, _, _, err = env.Step(space.ChangeLine(5))
	require.NoError(t, err)
	assert.False(t, obs.LineStatus[5])
}

func TestChangeBus(t *testing.T) {
	env := makeTestEnv(t, Case14Name)
	_, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)
	d := env.Description()
	pos := d.SubElements(1)

	obs, _, _, _, err := env.Step(env.ActionSpace().ChangeElements(pos[:2]))
	require.NoError(t, err)
	assert.Equal(t, 2, obs.TopoVect[pos[0]])
	assert.Equal(t, 2, obs.TopoVect[pos[1]])
	assert.Equal(t, 1, obs.TopoVect[pos[2]])
}

func TestRedispatchFollowsRamps(t *testing.T) {
	env := makeTestEnv(t, Case14Name)
	_, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)

	// generator 0 ramps 5MW per step
	obs, _, _, info, err := env.Step(env.ActionSpace().RedispatchGen(0, 12))
	require.NoError(t, err)
	assert.False(t, info.IsDispatchingIllegal)
	assert.InDelta(t, 12, obs.TargetDispatch[0], 1e-9)
	assert.InDelta(t, 5, obs.ActualDispatch[0], 1e-9)

	obs, _, _, _, err = env.Step(env.ActionSpace().DoNothing())
	require.NoError(t, err)
	assert.InDelta(t, 10, obs.ActualDispatch[0], 1e-9)

	_, _, _, info, err = env.Step(env.ActionSpace().RedispatchGen(0, 1000))
	require.NoError(t, err)
	assert.True(t, info.IsDispatchingIllegal)
}

func TestCurtailmentLimitsRenewables(t *testing.T) {
	env := makeTestEnv(t, Case14Name)
	_, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)

	obs, _, _, _, err := env.Step(env.ActionSpace().CurtailGen(2, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, obs.CurtailmentLimit[2])
	assert.Equal(t, 0.0, obs.GenP[2])
	assert.InDelta(t, obs.GenPBeforeCurtail[2], obs.CurtailmentMW[2], 1e-9)
}

func TestStorageChargeIsBounded(t *testing.T) {
	env := makeTestEnv(t, Case5Name)
	obs, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)
	start := obs.StorageCharge[0]

	obs, _, _, _, err = env.Step(env.ActionSpace().SetStorageUnit(0, 100))
	require.NoError(t, err)
	// clipped to the 5MW absorption limit during 5 minutes
	assert.InDelta(t, start+5.0/12, obs.StorageCharge[0], 1e-9)
	assert.InDelta(t, 5, obs.StoragePower[0], 1e-9)

	obs, _, _, _, err = env.Step(env.ActionSpace().DoNothing())
	require.NoError(t, err)
	assert.Equal(t, 0.0, obs.StoragePower[0])
}

func TestGameOverWhenOverloaded(t *testing.T) {
	opts := DefaultSandboxOptions()
	opts.LoadScale = 10
	env := makeTestEnv(t, Case5Name, WithBackend(NewSandboxBackend(opts)))
	_, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)

	_, reward, done, info, err := env.Step(env.ActionSpace().DoNothing())
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, info.HasError())
	assert.Equal(t, 0.0, reward)
	assert.Contains(t, info.DiscLines, 0)
}

func TestSoftOverflowTripsAfterAllowedSteps(t *testing.T) {
	env := makeTestEnv(t, Case5Name)
	_, err := env.Reset(seed(0), ResetOptions{})
	require.NoError(t, err)

	state := &BackendState{Rho: make([]float64, env.Description().NLine())}
	state.Rho[2] = 1.1
	for i := 0; i < NbTimestepOverflowAllowed; i++ {
		assert.Empty(t, env.protections(state))
	}
	assert.Equal(t, []int{2}, env.protections(state))
	assert.False(t, env.lineStatus[2])

	state.Rho[3] = 2.5
	assert.Equal(t, []int{3}, env.protections(state))
}

func findMaintenance(t *testing.T, desc *Description) (int, maintenanceWindow) {
	t.Helper()
	for id := 0; id < nbChronics; id++ {
		c := newChronics(desc, id, testMaxStep)
		if len(c.maintenance) > 0 {
			return id, c.maintenance[0]
		}
	}
	t.Skip("no scenario with maintenance")
	return 0, maintenanceWindow{}
}

func TestReconnectingLineInMaintenanceIsIllegal(t *testing.T) {
	env := makeTestEnv(t, Case14Name)
	id, window := findMaintenance(t, env.Description())

	obs, err := env.Reset(seed(0), ResetOptions{TimeSerieID: &id, InitTS: window.Start})
	require.NoError(t, err)
	assert.False(t, obs.LineStatus[window.Line])
	assert.Equal(t, 0, obs.TimeNextMaintenance[window.Line])
	assert.Equal(t, window.Duration, obs.DurationNextMaintenance[window.Line])

	obs, _, _, info, err := env.Step(env.ActionSpace().SetLine(window.Line, 1))
	require.NoError(t, err)
	assert.True(t, info.IsIllegal)
	assert.False(t, obs.LineStatus[window.Line])
}

func TestMaintenanceIsAnnounced(t *testing.T) {
	env := makeTestEnv(t, Case14Name)
	id, window := findMaintenance(t, env.Description())

	obs, err := env.Reset(seed(0), ResetOptions{TimeSerieID: &id, InitTS: window.Start - 3})
	require.NoError(t, err)
	assert.Equal(t, 3, obs.TimeNextMaintenance[window.Line])
	assert.Equal(t, window.Duration, obs.DurationNextMaintenance[window.Line])
}
