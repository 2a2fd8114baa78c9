package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mixkit/mixin/config"
	"github.com/joshuapare/mixkit/mixin/module"
	"github.com/joshuapare/mixkit/mixin/registry"
)

func runScenario(t *testing.T, identity config.Identity) []Step {
	t.Helper()
	cfg := config.Default()
	cfg.Identity = identity
	reg, err := registry.New(cfg)
	require.NoError(t, err)
	l := module.NewLoader(reg, NewBridge())

	steps, err := Run(context.Background(), l, nil)
	require.NoError(t, err)
	assert.Empty(t, l.Loaded(), "everything is unloaded afterwards")
	assert.Empty(t, reg.Mixins())
	assert.Empty(t, reg.Messages())
	return steps
}

func TestRun_PluginScenario(t *testing.T) {
	for _, identity := range []config.Identity{config.IdentityName, config.IdentityType} {
		t.Run(string(identity), func(t *testing.T) {
			steps := runScenario(t, identity)
			require.Len(t, steps, 9)

			sums := make([]int, len(steps))
			for i, st := range steps {
				sums[i] = st.Sum
			}
			assert.Equal(t, []int{1, 12, 24, 125, 24, 126, 24, 1025, 24}, sums)

			assert.Zero(t, steps[0].Specific)
			assert.Equal(t, 101, steps[1].Specific)
			assert.Equal(t, 102, steps[2].Specific)

			assert.True(t, steps[3].HasExported)
			assert.Equal(t, 125, steps[3].Exported)
			assert.False(t, steps[4].HasExported)
			assert.Equal(t, -126, steps[5].Exported)
			assert.False(t, steps[7].HasExported)

			assert.Equal(t, "load plugin_a", steps[3].Action)
			assert.Equal(t, 4, steps[7].Mixins)
			assert.Equal(t, 3, steps[8].Mixins)
		})
	}
}
