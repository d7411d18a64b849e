// Package pairing applies an ordered rule set to a directory tree and
// produces a registry of MUL/PAN pairs, unresolved entries, and
// pass-through records.
//
// Pass-through recognition runs before any pairing rule, so an asset
// matching both a pansharp pattern and a multispectral pattern is
// recorded only as pass-through. Rules then run in ascending id order
// and the first rule producing an unambiguous match for a candidate
// wins. Claimed paths are never reconsidered within a scan.
package pairing

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/geoprep/panprep/pkg/errors"
	"github.com/geoprep/panprep/pkg/logging"
	"github.com/geoprep/panprep/pkg/naming"
	"github.com/geoprep/panprep/pkg/paths"
	"github.com/geoprep/panprep/pkg/registry"
	"github.com/geoprep/panprep/pkg/resolver"
	"github.com/geoprep/panprep/pkg/rules"
)

// OutputDirName is the directory, under the deepest common ancestor of
// a pair, where derived outputs are placed.
const OutputDirName = "PREP"

// Pairer runs discovery scans. Candidate gathering is parallel
// read-only I/O; the claim pass is single-threaded and ordered so
// priority semantics stay reproducible.
type Pairer struct {
	deriver *naming.Deriver
	workers int
	logger  zerolog.Logger
}

// New creates a Pairer deriving output names with deriver
func New(deriver *naming.Deriver) *Pairer {
	return &Pairer{
		deriver: deriver,
		workers: runtime.NumCPU(),
		logger:  logging.GetLogger("pairing"),
	}
}

// Pair scans rootDir with rs and returns the resulting registry.
//
// Per-asset failures (no candidate, ambiguous candidates) are recorded
// and never abort the scan. Only configuration-level conditions abort:
// an unreadable root or an empty rule list. On context cancellation or
// deadline the partial registry is returned alongside an ErrScanAborted
// error; it is marked partial and must not be forwarded as complete.
func (p *Pairer) Pair(ctx context.Context, rootDir string, rs *rules.RuleSet) (*registry.Registry, error) {
	if rs == nil || len(rs.Rules) == 0 {
		return nil, errors.New(errors.ErrRulesEmpty, "rule list is empty")
	}

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRootAccess, "resolving base directory")
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.Wrapf(err, errors.ErrRootAccess, "base directory %s is not a readable directory", root)
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, errors.Wrapf(err, errors.ErrRootAccess, "base directory %s is not readable", root)
	}

	reg := registry.New(root)
	claimed := make(map[string]struct{})

	p.logger.Info().
		Str("root", root).
		Int("rules", len(rs.Rules)).
		Int("pansharpPatterns", len(rs.PansharpPatterns)).
		Msg("Starting scan")

	p.claimPassthroughs(root, rs, reg, claimed)

	ordered := make([]rules.PairingRule, len(rs.Rules))
	copy(ordered, rs.Rules)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, rule := range ordered {
		// Claiming is finalized rule by rule; a cancelled scan stops
		// on a rule boundary with all earlier claims intact.
		if ctx.Err() != nil {
			reg.MarkPartial()
			return reg, errors.Wrapf(ctx.Err(), errors.ErrScanAborted,
				"scan aborted before rule %d", rule.ID)
		}
		if err := p.applyRule(ctx, root, rule, rs.Extensions, reg, claimed); err != nil {
			reg.MarkPartial()
			return reg, err
		}
	}

	p.logger.Info().
		Int("pairs", len(reg.Pairs())).
		Int("unresolved", len(reg.UnresolvedEntries())).
		Int("passthrough", len(reg.Passthroughs())).
		Bool("complete", reg.Complete()).
		Msg("Scan finished")

	return reg, nil
}

// claimPassthroughs records every asset matching a pansharp pattern and
// claims it ahead of all pairing rules.
func (p *Pairer) claimPassthroughs(root string, rs *rules.RuleSet, reg *registry.Registry, claimed map[string]struct{}) {
	for _, pattern := range rs.PansharpPatterns {
		matches, err := resolver.Resolve(root, pattern, rs.Extensions)
		if err != nil {
			p.logger.Warn().Err(err).Str("pattern", pattern).Msg("Pansharp pattern failed to resolve")
			continue
		}
		for _, path := range matches {
			if _, taken := claimed[path]; taken {
				continue
			}
			claimed[path] = struct{}{}
			_ = reg.AddPassthrough(registry.Passthrough{
				Asset:   registry.Asset{Path: path, Role: registry.RolePassthrough, RuleID: -1},
				CogName: naming.PassthroughCogName(filepath.Base(path)),
			})
			p.logger.Debug().Str("path", path).Msg("Pass-through asset claimed")
		}
	}
}

// applyRule gathers candidates for one rule in parallel, then resolves
// and claims them in deterministic order.
func (p *Pairer) applyRule(ctx context.Context, root string, rule rules.PairingRule, exts rules.ExtensionSet, reg *registry.Registry, claimed map[string]struct{}) error {
	muls, err := resolver.Resolve(root, rule.MulPattern, exts)
	if err != nil {
		p.logger.Warn().Err(err).Int("rule", rule.ID).Msg("Multispectral pattern failed to resolve")
		return nil
	}

	candidates := muls[:0:0]
	for _, m := range muls {
		if _, taken := claimed[m]; !taken {
			candidates = append(candidates, m)
		}
	}

	p.logger.Debug().
		Int("rule", rule.ID).
		Int("candidates", len(candidates)).
		Msg("Gathering panchromatic candidates")

	// Parallel read-only gather; claiming happens strictly after.
	panLists := make([][]string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, mul := range candidates {
		i, mul := i, mul
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pans, err := resolver.Resolve(filepath.Dir(mul), rule.PanRelPattern, exts)
			if err != nil {
				p.logger.Warn().Err(err).Str("mul", mul).Msg("Panchromatic pattern failed to resolve")
				return nil
			}
			panLists[i] = pans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, errors.ErrScanAborted, "scan aborted during rule %d", rule.ID)
	}

	for i, mul := range candidates {
		// May have been consumed as a panchromatic earlier in this pass
		if _, taken := claimed[mul]; taken {
			continue
		}
		p.resolveCandidate(root, rule, mul, panLists[i], reg, claimed)
	}
	return nil
}

// resolveCandidate applies token filtering and the one-claim-per-path
// invariant to a single multispectral candidate.
func (p *Pairer) resolveCandidate(root string, rule rules.PairingRule, mul string, pans []string, reg *registry.Registry, claimed map[string]struct{}) {
	var survivors []string
	for _, pan := range pans {
		if pan == mul {
			continue
		}
		if _, taken := claimed[pan]; taken {
			continue
		}
		if rule.Tokens != nil && !strings.Contains(filepath.Base(pan), rule.Tokens.Pan) {
			continue
		}
		survivors = append(survivors, pan)
	}

	mulToken, panToken := "", ""
	if rule.Tokens != nil {
		mulToken, panToken = rule.Tokens.Mul, rule.Tokens.Pan
	}
	mulAsset := registry.Asset{Path: mul, Role: registry.RoleMultispectral, RuleID: rule.ID, Token: mulToken}

	switch len(survivors) {
	case 1:
		pan := survivors[0]
		derived := p.deriver.DeriveName(filepath.Base(mul), rule.Tokens)
		outputPath := filepath.Join(outputDir(filepath.Dir(mul), filepath.Dir(pan)), derived)
		paths.WarnIfLong(outputPath)
		claimed[mul] = struct{}{}
		claimed[pan] = struct{}{}
		_ = reg.AddPair(registry.Pair{
			Mul:         mulAsset,
			Pan:         registry.Asset{Path: pan, Role: registry.RolePanchromatic, RuleID: rule.ID, Token: panToken},
			DerivedName: derived,
			OutputPath:  outputPath,
			CogPath:     p.deriver.CogName(derived),
		})
		p.logger.Debug().
			Int("rule", rule.ID).
			Str("mul", mul).
			Str("pan", pan).
			Str("derived", derived).
			Msg("Pair resolved")
	case 0:
		claimed[mul] = struct{}{}
		_ = reg.AddUnresolved(registry.Unresolved{
			Asset:  mulAsset,
			Reason: registry.StatusNoCandidate,
		})
		p.logger.Warn().
			Int("rule", rule.ID).
			Str("mul", mul).
			Str("pattern", rule.PanRelPattern).
			Msg("No panchromatic candidate found")
	default:
		sort.Strings(survivors)
		claimed[mul] = struct{}{}
		_ = reg.AddUnresolved(registry.Unresolved{
			Asset:      mulAsset,
			Reason:     registry.StatusAmbiguous,
			Candidates: survivors,
		})
		p.logger.Warn().
			Int("rule", rule.ID).
			Str("mul", mul).
			Int("candidates", len(survivors)).
			Msg("Ambiguous panchromatic candidates, not guessing")
	}
}

// outputDir returns the derived-output directory for a pair: the
// deepest common ancestor of the two asset directories, plus PREP.
func outputDir(mulDir, panDir string) string {
	mulParts := strings.Split(filepath.Clean(mulDir), string(filepath.Separator))
	panParts := strings.Split(filepath.Clean(panDir), string(filepath.Separator))

	var common []string
	for i := 0; i < len(mulParts) && i < len(panParts); i++ {
		if mulParts[i] != panParts[i] {
			break
		}
		common = append(common, mulParts[i])
	}
	ancestor := strings.Join(common, string(filepath.Separator))
	if ancestor == "" {
		ancestor = string(filepath.Separator)
	}
	return filepath.Join(ancestor, OutputDirName)
}
