package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoprep/panprep/pkg/errors"
)

func samplePair(rule int, mul, pan, derived string) Pair {
	return Pair{
		Mul:         Asset{Path: mul, Role: RoleMultispectral, RuleID: rule, Token: "-M"},
		Pan:         Asset{Path: pan, Role: RolePanchromatic, RuleID: rule, Token: "-P"},
		DerivedName: derived,
		OutputPath:  "/data/PREP/" + derived,
		CogPath:     "cog-" + derived,
	}
}

func TestRegistry_SealBlocksAppends(t *testing.T) {
	reg := New("/data")
	require.NoError(t, reg.AddPair(samplePair(0, "/data/a-M.tif", "/data/a-P.tif", "a-PSH.tif")))

	reg.Seal()

	err := reg.AddPair(samplePair(0, "/data/b-M.tif", "/data/b-P.tif", "b-PSH.tif"))
	assert.Equal(t, errors.ErrRegistrySealed, errors.GetCode(err))
	err = reg.AddUnresolved(Unresolved{Reason: StatusNoCandidate})
	assert.Equal(t, errors.ErrRegistrySealed, errors.GetCode(err))
	err = reg.AddPassthrough(Passthrough{})
	assert.Equal(t, errors.ErrRegistrySealed, errors.GetCode(err))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_ExportSeals(t *testing.T) {
	reg := New("/data")
	require.NoError(t, reg.AddPair(samplePair(0, "/data/a-M.tif", "/data/a-P.tif", "a-PSH.tif")))

	_ = reg.Export()

	assert.True(t, reg.Sealed())
}

func TestRegistry_Complete(t *testing.T) {
	tests := []struct {
		name    string
		build   func(*Registry)
		partial bool
		want    bool
	}{
		{
			name: "all resolved",
			build: func(r *Registry) {
				_ = r.AddPair(samplePair(0, "/d/a-M.tif", "/d/a-P.tif", "a.tif"))
				_ = r.AddPassthrough(Passthrough{Asset: Asset{Path: "/d/p.tif", Role: RolePassthrough, RuleID: -1}})
			},
			want: true,
		},
		{
			name: "unresolved entry present",
			build: func(r *Registry) {
				_ = r.AddUnresolved(Unresolved{
					Asset:  Asset{Path: "/d/x-M.tif", Role: RoleMultispectral, RuleID: 1},
					Reason: StatusNoCandidate,
				})
			},
			want: false,
		},
		{
			name:    "aborted scan",
			build:   func(r *Registry) {},
			partial: true,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New("/d")
			tt.build(reg)
			if tt.partial {
				reg.MarkPartial()
			}
			assert.Equal(t, tt.want, reg.Complete())
		})
	}
}

func TestRegistry_ExportDeterministicOrder(t *testing.T) {
	build := func() *Registry {
		reg := New("/data")
		require.NoError(t, reg.AddPair(samplePair(1, "/data/z-M.tif", "/data/z-P.tif", "z-PSH.tif")))
		require.NoError(t, reg.AddPair(samplePair(0, "/data/a-M.tif", "/data/a-P.tif", "a-PSH.tif")))
		require.NoError(t, reg.AddUnresolved(Unresolved{
			Asset:      Asset{Path: "/data/m-M.tif", Role: RoleMultispectral, RuleID: 0},
			Reason:     StatusAmbiguous,
			Candidates: []string{"/data/m-P1.tif", "/data/m-P2.tif"},
		}))
		return reg
	}

	first := build().Export()
	second := build().Export()

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	// unresolved rows have no derived name and sort first
	assert.Equal(t, StatusAmbiguous, first[0].Status)
	assert.Equal(t, "a-PSH.tif", first[1].DerivedName)
	assert.Equal(t, "z-PSH.tif", first[2].DerivedName)
}

func TestRegistry_PansharpTasks(t *testing.T) {
	reg := New("/data")
	require.NoError(t, reg.AddPair(samplePair(0, "/data/a-M.tif", "/data/a-P.tif", "a-PSH.tif")))
	require.NoError(t, reg.AddPassthrough(Passthrough{
		Asset:   Asset{Path: "/data/done-psh.tif", Role: RolePassthrough, RuleID: -1},
		CogName: "done-psh-cog.tif",
	}))
	require.NoError(t, reg.AddUnresolved(Unresolved{
		Asset:  Asset{Path: "/data/x-M.tif", Role: RoleMultispectral, RuleID: 0},
		Reason: StatusNoCandidate,
	}))

	tasks := reg.PansharpTasks("bayes")

	require.Len(t, tasks, 2, "unresolved entries produce no tasks")
	assert.Equal(t, PansharpTask{
		MulPath:    "/data/a-M.tif",
		PanPath:    "/data/a-P.tif",
		OutputPath: "/data/PREP/a-PSH.tif",
		Method:     "bayes",
	}, tasks[0])
	assert.Equal(t, PansharpTask{
		OutputPath: "/data/done-psh.tif",
		Method:     "bayes",
		Skip:       true,
	}, tasks[1])
}

func TestRegistry_CogTasks(t *testing.T) {
	reg := New("/data")
	require.NoError(t, reg.AddPair(samplePair(0, "/data/a-M.tif", "/data/a-P.tif", "a-PSH.tif")))

	tasks := reg.CogTasks(true, true)

	require.Len(t, tasks, 1)
	assert.Equal(t, "/data/PREP/a-PSH.tif", tasks[0].InputPath)
	assert.Equal(t, "/data/PREP/cog-a-PSH.tif", tasks[0].OutputPath)
	assert.True(t, tasks[0].Requested)
	assert.True(t, tasks[0].DeleteSource)
}
