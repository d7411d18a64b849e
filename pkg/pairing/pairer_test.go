package pairing

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoprep/panprep/pkg/errors"
	"github.com/geoprep/panprep/pkg/naming"
	"github.com/geoprep/panprep/pkg/registry"
	"github.com/geoprep/panprep/pkg/rules"
	"github.com/geoprep/panprep/pkg/testutil"
)

func mustRuleSet(t *testing.T, pairingRules []rules.PairingRule, psh []string, exts ...string) *rules.RuleSet {
	t.Helper()
	rs, err := rules.New(pairingRules, psh, rules.NewExtensionSet(exts...))
	require.NoError(t, err)
	return rs
}

func TestPair_TokenFilteredPair(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"Sherbrooke/012_MUL/11OCT09161417-M2AS-052615225040_01_P001.TIF": "",
		"Sherbrooke/012_PAN/11OCT09161417-P2AS-052615225040_01_P001.TIF": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*_P00?", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, nil, "TIF")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	pairs := reg.Pairs()
	require.Len(t, pairs, 1)
	assert.Empty(t, reg.UnresolvedEntries())
	assert.True(t, reg.Complete())

	p := pairs[0]
	assert.Equal(t, filepath.Join(root, "Sherbrooke/012_MUL/11OCT09161417-M2AS-052615225040_01_P001.TIF"), p.Mul.Path)
	assert.Equal(t, filepath.Join(root, "Sherbrooke/012_PAN/11OCT09161417-P2AS-052615225040_01_P001.TIF"), p.Pan.Path)
	assert.Equal(t, 0, p.Mul.RuleID)
	assert.Equal(t, "11OCT09161417-PSH-bayes-2AS-052615225040_01_P001.TIF", p.DerivedName)
	assert.Equal(t, filepath.Join(root, "Sherbrooke/PREP", p.DerivedName), p.OutputPath,
		"output sits in PREP under the pair's common ancestor")
}

func TestPair_TokenRejectsMismatchedCandidate(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"scene/012_MUL/img-M_P001.TIF": "",
		"scene/012_PAN/img-P_P001.TIF": "",
		"scene/012_PAN/img-X_P001.TIF": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, nil, "TIF")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	pairs := reg.Pairs()
	require.Len(t, pairs, 1, "the candidate lacking the token is discarded, leaving one")
	assert.Equal(t, filepath.Join(root, "scene/012_PAN/img-P_P001.TIF"), pairs[0].Pan.Path)
}

func TestPair_Orphan(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"scene/012_MUL/img-M_P001.TIF": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, nil, "TIF")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	assert.Empty(t, reg.Pairs())
	unresolved := reg.UnresolvedEntries()
	require.Len(t, unresolved, 1)
	assert.Equal(t, registry.StatusNoCandidate, unresolved[0].Reason)
	assert.Empty(t, unresolved[0].Candidates)
	assert.False(t, reg.Complete())
}

func TestPair_AmbiguityIsSurfacedNotGuessed(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"scene/012_MUL/img-M_P001.TIF":  "",
		"scene/012_PAN/img-P_b.TIF":     "",
		"scene/012_PAN/img-P_a.TIF":     "",
		"scene/012_PAN/ignored-X_a.TIF": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, nil, "TIF")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	assert.Empty(t, reg.Pairs())
	unresolved := reg.UnresolvedEntries()
	require.Len(t, unresolved, 1)
	assert.Equal(t, registry.StatusAmbiguous, unresolved[0].Reason)
	assert.Equal(t, []string{
		filepath.Join(root, "scene/012_PAN/img-P_a.TIF"),
		filepath.Join(root, "scene/012_PAN/img-P_b.TIF"),
	}, unresolved[0].Candidates, "candidates are listed in lexicographic order")
}

func TestPair_RulePriority(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"img/MULDIR/scene-M.tif": "",
		"img/PANA/scene-P_a.tif": "",
		"img/PANB/scene-P_b.tif": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/MULDIR/*-M*", PanRelPattern: "../PANA/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
		{ID: 1, MulPattern: "**/MULDIR/*-M*", PanRelPattern: "../PANB/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, nil, "tif")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	pairs := reg.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].Mul.RuleID, "the lower-id rule must win")
	assert.Equal(t, filepath.Join(root, "img/PANA/scene-P_a.tif"), pairs[0].Pan.Path)
	assert.Empty(t, reg.UnresolvedEntries(),
		"the higher-id rule must not reconsider the claimed asset")
}

func TestPair_PassthroughPrecedence(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"scene/012_MUL/img-M-PSH-old_P001.TIF": "",
		"scene/012_PAN/img-P_P001.TIF":         "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, []string{"**/*-PSH-*"}, "TIF")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	assert.Empty(t, reg.Pairs(), "a pass-through asset is never paired")
	passthroughs := reg.Passthroughs()
	require.Len(t, passthroughs, 1)
	assert.Equal(t, filepath.Join(root, "scene/012_MUL/img-M-PSH-old_P001.TIF"), passthroughs[0].Asset.Path)
	assert.Equal(t, -1, passthroughs[0].Asset.RuleID)
	assert.Equal(t, "img-M-PSH-old_P001-cog.TIF", passthroughs[0].CogName)
}

func TestPair_Exclusivity(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"a/012_MUL/one-M_P001.TIF":  "",
		"a/012_PAN/one-P_P001.TIF":  "",
		"b/034_MUL/two-M_P001.TIF":  "",
		"b/034_PAN/two-P_a.TIF":     "",
		"b/034_PAN/two-P_b.TIF":     "",
		"c/056_MUL/tri-M_P001.TIF":  "",
		"d/done-PSH-bayes-full.TIF": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, []string{"**/*-PSH-*"}, "TIF")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, p := range reg.Pairs() {
		seen[p.Mul.Path]++
		seen[p.Pan.Path]++
	}
	for _, u := range reg.UnresolvedEntries() {
		seen[u.Asset.Path]++
	}
	for _, p := range reg.Passthroughs() {
		seen[p.Asset.Path]++
	}

	require.Len(t, seen, 5, "every touched primary path appears exactly once")
	for path, count := range seen {
		assert.Equal(t, 1, count, "path %s claimed more than once", path)
	}
	assert.Len(t, reg.Pairs(), 1)
	assert.Len(t, reg.UnresolvedEntries(), 2)
	assert.Len(t, reg.Passthroughs(), 1)
}

func TestPair_Deterministic(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"a/012_MUL/one-M_P001.TIF": "",
		"a/012_PAN/one-P_P001.TIF": "",
		"b/034_MUL/two-M_P001.TIF": "",
		"b/034_PAN/two-P_a.TIF":    "",
		"b/034_PAN/two-P_b.TIF":    "",
		"c/done-PSH-x.TIF":         "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, []string{"**/*-PSH-*"}, "TIF")

	scan := func() []byte {
		reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, reg.WriteCSV(&buf))
		return buf.Bytes()
	}

	assert.Equal(t, scan(), scan(), "repeated scans of an unchanged tree export identical records")
}

func TestPair_WithoutTokens(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"scene/012_MUL/img_MSI.TIF": "",
		"scene/012_PAN/img_PAN.TIF": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*", PanRelPattern: "../*_PAN/*"},
	}, nil, "TIF")

	reg, err := New(naming.New("bayes")).Pair(context.Background(), root, rs)
	require.NoError(t, err)

	pairs := reg.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "img_MSI-PSH-bayes.TIF", pairs[0].DerivedName,
		"rules without tokens fall back to the suffix policy")
	assert.Empty(t, pairs[0].Mul.Token)
}

func TestPair_ConfigurationErrors(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{"a/x-M.TIF": ""})
	valid := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*-M*", PanRelPattern: "../*_PAN/*"},
	}, nil, "TIF")

	t.Run("missing base directory", func(t *testing.T) {
		_, err := New(naming.New("bayes")).Pair(context.Background(), filepath.Join(root, "nope"), valid)
		require.Error(t, err)
		assert.Equal(t, errors.ErrRootAccess, errors.GetCode(err))
	})

	t.Run("empty rule set", func(t *testing.T) {
		_, err := New(naming.New("bayes")).Pair(context.Background(), root, &rules.RuleSet{})
		require.Error(t, err)
		assert.Equal(t, errors.ErrRulesEmpty, errors.GetCode(err))
	})
}

func TestPair_CancellationYieldsPartialRegistry(t *testing.T) {
	root := testutil.CreateTree(t, map[string]string{
		"scene/012_MUL/img-M_P001.TIF": "",
		"scene/012_PAN/img-P_P001.TIF": "",
	})
	rs := mustRuleSet(t, []rules.PairingRule{
		{ID: 0, MulPattern: "**/*_MUL/*-M*", PanRelPattern: "../*_PAN/*",
			Tokens: &rules.TokenPair{Mul: "-M", Pan: "-P"}},
	}, nil, "TIF")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg, err := New(naming.New("bayes")).Pair(ctx, root, rs)
	require.Error(t, err)
	assert.Equal(t, errors.ErrScanAborted, errors.GetCode(err))
	require.NotNil(t, reg, "partial state stays inspectable for diagnostics")
	assert.True(t, reg.Partial())
	assert.False(t, reg.Complete())
}
