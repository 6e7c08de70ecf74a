package envshim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func newEnv(t *testing.T, config map[string]any) *Env {
	t.Helper()
	e, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, grid.BackendSandbox, cfg.BackendCls)
	assert.Equal(t, map[string]any{}, cfg.BackendOptions)
	assert.Equal(t, grid.Case14Name, cfg.EnvName)
	assert.False(t, cfg.EnvIsTest)
	assert.Equal(t, []string{"rho", "p_or", "gen_p", "load_p"}, cfg.ObsAttrToKeep)
	assert.Equal(t, ActDiscrete, cfg.ActType)
	assert.Equal(t, []string{"set_line_status_simple", "set_bus"}, cfg.ActAttrToKeep)
	assert.Nil(t, cfg.Seed)
}

func TestParseConfigActDefaults(t *testing.T) {
	for actType, attrs := range DefaultActAttrToKeep {
		cfg, err := ParseConfig(map[string]any{"act_type": actType})
		require.NoError(t, err)
		assert.Equal(t, attrs, cfg.ActAttrToKeep, actType)
	}

	cfg, err := ParseConfig(map[string]any{"act_type": ActBox, "act_attr_to_keep": []string{"curtail"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"curtail"}, cfg.ActAttrToKeep)

	cfg, err = ParseConfig(map[string]any{"obs_attr_to_keep": []any{"rho"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"rho"}, cfg.ObsAttrToKeep)
}

func TestParseConfigRejects(t *testing.T) {
	_, err := ParseConfig(map[string]any{"act_type": "continuous"})
	assert.ErrorIs(t, err, ErrUnsupportedActType)

	_, err = ParseConfig(map[string]any{"obs_attrs": []string{"rho"}})
	assert.Error(t, err)
}

func TestConfigMapRoundTrip(t *testing.T) {
	s := int64(9)
	cfg, err := ParseConfig(map[string]any{"act_type": ActMultiDiscrete, "seed": s})
	require.NoError(t, err)
	again, err := ParseConfig(cfg.Map())
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestUnsupportedActTypeRejectedAtConstruction(t *testing.T) {
	for _, actType := range []string{"continuous", "Discrete", ""} {
		_, err := New(testConfig(map[string]any{"act_type": actType}))
		assert.ErrorIs(t, err, ErrUnsupportedActType, actType)
	}
}

func TestActionSpaceMatchesAdapter(t *testing.T) {
	for _, actType := range []string{ActDiscrete, ActBox, ActMultiDiscrete} {
		t.Run(actType, func(t *testing.T) {
			e := newEnv(t, testConfig(map[string]any{"act_type": actType}))
			adapter := e.Gym().ActionSpace()
			space := e.ActionSpace()

			assert.Equal(t, adapter.Space().Shape(), space.Shape())
			assert.Equal(t, gymcompat.Cardinality(adapter.Space()), gymcompat.Cardinality(space))

			base := e.Gym().Env().ActionSpace()
			attrs := DefaultActAttrToKeep[actType]
			switch actType {
			case ActDiscrete:
				want, err := gymcompat.NewDiscreteActSpace(base, attrs, gymcompat.DefaultNbBins)
				require.NoError(t, err)
				require.IsType(t, &gymcompat.Discrete{}, space)
				assert.Equal(t, want.N(), space.(*gymcompat.Discrete).N)
			case ActBox:
				want, err := gymcompat.NewBoxGymActSpace(base, attrs)
				require.NoError(t, err)
				require.IsType(t, &gymcompat.Box{}, space)
				wl, wh := want.Space().(*gymcompat.Box).Bounds()
				gl, gh := space.(*gymcompat.Box).Bounds()
				assert.Equal(t, wl, gl)
				assert.Equal(t, wh, gh)
			case ActMultiDiscrete:
				want, err := gymcompat.NewMultiDiscreteActSpace(base, attrs, gymcompat.DefaultNbBins)
				require.NoError(t, err)
				require.IsType(t, &gymcompat.MultiDiscrete{}, space)
				assert.Equal(t, want.Space().(*gymcompat.MultiDiscrete).Nvec, space.(*gymcompat.MultiDiscrete).Nvec)
			}
		})
	}
}

func TestObservationSpaceFollowsConfig(t *testing.T) {
	e := newEnv(t, testConfig(nil))
	desc := e.Gym().Env().Description()
	assert.Equal(t, []int{2*desc.NLine() + desc.NGen() + desc.NLoad()}, e.ObservationSpace().Shape())

	e = newEnv(t, testConfig(map[string]any{"obs_attr_to_keep": []string{"rho"}}))
	assert.Equal(t, []int{desc.NLine()}, e.ObservationSpace().Shape())

	_, err := New(testConfig(map[string]any{"obs_attr_to_keep": []string{"voltage"}}))
	assert.ErrorIs(t, err, grid.ErrUnknownAttribute)
}

func TestResetStepPassThrough(t *testing.T) {
	for _, actType := range []string{ActDiscrete, ActBox, ActMultiDiscrete} {
		t.Run(actType, func(t *testing.T) {
			e := newEnv(t, testConfig(map[string]any{"act_type": actType, "seed": 5}))
			obs, info, err := e.Reset(nil, map[string]any{"max_step": 3})
			require.NoError(t, err)
			assert.Equal(t, 3, info.MaxStep)
			assert.Equal(t, e.ObservationSpace().Shape(), []int{len(obs)})

			for i := 0; i < 3; i++ {
				res, err := e.Step(e.NoopAction())
				require.NoError(t, err)
				assert.Len(t, res.Observation, len(obs))
				assert.False(t, res.Info.IsAmbiguous)
			}
		})
	}
}

func TestConstructionIsIdempotent(t *testing.T) {
	config := testConfig(map[string]any{"act_type": ActMultiDiscrete, "seed": 11})
	a := newEnv(t, config)
	b := newEnv(t, config)
	assert.Equal(t, a.Config(), b.Config())

	oa, _, err := a.Reset(nil, nil)
	require.NoError(t, err)
	ob, _, err := b.Reset(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, oa, ob)

	ra, err := a.Step(a.NoopAction())
	require.NoError(t, err)
	rb, err := b.Step(b.NoopAction())
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestConfiguredSeedSurvivesFailedReset(t *testing.T) {
	config := testConfig(map[string]any{"seed": 5})
	fresh := newEnv(t, config)
	want, _, err := fresh.Reset(nil, nil)
	require.NoError(t, err)

	for name, options := range map[string]map[string]any{
		"unknown option":   {"bogus": 1},
		"negative init_ts": {"init_ts": -1},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, config)
			_, _, err := e.Reset(nil, options)
			require.Error(t, err)

			got, _, err := e.Reset(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestUnknownBackendAndGrid(t *testing.T) {
	_, err := New(testConfig(map[string]any{"backend_cls": "pandapower"}))
	assert.ErrorIs(t, err, grid.ErrUnknownBackend)

	_, err = New(map[string]any{"env_name": "l2rpn_wcci_2022"})
	assert.ErrorIs(t, err, grid.ErrUnknownEnvironment)

	_, err = New(testConfig(map[string]any{"backend_options": map[string]any{"solver": "newton"}}))
	assert.Error(t, err)
}
