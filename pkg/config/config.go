// Package config loads scan parameters from a YAML file layered over
// defaults and PANPREP_-prefixed environment variables, and turns them
// into a validated rule set.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/geoprep/panprep/pkg/errors"
	"github.com/geoprep/panprep/pkg/naming"
	"github.com/geoprep/panprep/pkg/rules"
)

// Config mirrors the YAML parameter file. The glob section drives the
// discovery scan; the process section carries opaque flags for the
// downstream collaborators.
type Config struct {
	Glob    GlobConfig    `koanf:"glob"`
	Process ProcessConfig `koanf:"process"`
	Naming  NamingConfig  `koanf:"naming"`
}

// GlobConfig is the discovery section. MulPanGlob holds two-item
// entries (multispectral pattern, panchromatic relative pattern);
// MulPanStr holds the matching token pairs, position for position. An
// empty token entry means the rule pairs without token filtering.
type GlobConfig struct {
	BaseDir    string     `koanf:"base_dir"`
	MulPanGlob [][]string `koanf:"mul_pan_glob"`
	MulPanStr  [][]string `koanf:"mul_pan_str"`
	PshGlob    []string   `koanf:"psh_glob"`
	Extensions []string   `koanf:"extensions"`
	OutCSV     string     `koanf:"out_csv"`
}

// ProcessConfig carries collaborator options. Cog and CogDeleteSource
// are pass-through values the scan engine never interprets.
type ProcessConfig struct {
	Method          string `koanf:"method"`
	Cog             bool   `koanf:"cog"`
	CogDeleteSource bool   `koanf:"cog_delete_source"`
	DryRun          bool   `koanf:"dry_run"`
	ScanTimeoutSec  int    `koanf:"scan_timeout_sec"`
}

// NamingConfig tunes output-name derivation
type NamingConfig struct {
	FallbackSuffix string `koanf:"fallback_suffix"`
}

var defaults = map[string]interface{}{
	"glob.extensions":        []string{"tif", "TIF"},
	"process.method":         "bayes",
	"naming.fallback_suffix": naming.DefaultFallbackSuffix,
}

// Load reads the parameter file at path, layering defaults underneath
// and PANPREP_-prefixed environment variables on top
// (e.g. PANPREP_PROCESS_METHOD overrides process.method).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "loading defaults")
	}

	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "parameter file %s", path)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "parsing %s", path)
	}

	if err := k.Load(env.Provider("PANPREP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PANPREP_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "loading environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "unmarshalling configuration")
	}
	return &cfg, nil
}

// RuleSet validates the glob section and builds the scan rule set.
// Rule ids follow the order rules appear in the file, so earlier
// entries take priority.
func (c *Config) RuleSet() (*rules.RuleSet, error) {
	if c.Glob.BaseDir == "" {
		return nil, errors.New(errors.ErrConfigValid, "glob.base_dir is required")
	}
	if len(c.Glob.MulPanStr) != 0 && len(c.Glob.MulPanStr) != len(c.Glob.MulPanGlob) {
		return nil, errors.Newf(errors.ErrConfigValid,
			"glob.mul_pan_str has %d entries for %d patterns",
			len(c.Glob.MulPanStr), len(c.Glob.MulPanGlob))
	}

	pairingRules := make([]rules.PairingRule, 0, len(c.Glob.MulPanGlob))
	for i, patterns := range c.Glob.MulPanGlob {
		if len(patterns) != 2 {
			return nil, errors.Newf(errors.ErrConfigValid,
				"glob.mul_pan_glob entry %d must have exactly two patterns, got %d", i, len(patterns))
		}
		rule := rules.PairingRule{
			ID:            i,
			MulPattern:    patterns[0],
			PanRelPattern: patterns[1],
		}
		if len(c.Glob.MulPanStr) > i && len(c.Glob.MulPanStr[i]) == 2 {
			rule.Tokens = &rules.TokenPair{
				Mul: c.Glob.MulPanStr[i][0],
				Pan: c.Glob.MulPanStr[i][1],
			}
		}
		pairingRules = append(pairingRules, rule)
	}

	return rules.New(pairingRules, c.Glob.PshGlob, rules.NewExtensionSet(c.Glob.Extensions...))
}

// Deriver builds the name deriver from the process and naming sections
func (c *Config) Deriver() *naming.Deriver {
	d := naming.New(c.Process.Method)
	if c.Naming.FallbackSuffix != "" {
		d.FallbackSuffix = c.Naming.FallbackSuffix
	}
	return d
}
