package rules

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/geoprep/panprep/pkg/errors"
)

// TokenPair links the filename substring identifying a multispectral
// raster to the one identifying its panchromatic counterpart,
// e.g. {"-M", "-P"} or {"_MSI", "_PAN"}.
type TokenPair struct {
	Mul string
	Pan string
}

// PairingRule describes one way of locating a MUL/PAN pair in a vendor
// directory layout. MulPattern is a glob evaluated against the scan
// root; PanRelPattern is evaluated relative to the directory containing
// a matched multispectral raster and may ascend with "../" segments.
// Patterns exclude the file extension; the extension set supplies it.
//
// Tokens is optional. A nil Tokens means the rule pairs purely on path
// patterns (WithoutTokens); a non-nil Tokens additionally filters
// panchromatic candidates by filename substring (WithTokens).
type PairingRule struct {
	ID            int
	MulPattern    string
	PanRelPattern string
	Tokens        *TokenPair
}

// ExtensionSet holds literal file extensions (without the leading dot).
// Membership is exact-string and case-sensitive: callers on
// case-sensitive filesystems must list both case variants explicitly.
type ExtensionSet struct {
	exts []string
	set  map[string]struct{}
}

// NewExtensionSet builds an ExtensionSet from literal extension strings.
// Order is preserved, duplicates are dropped, no case folding happens.
func NewExtensionSet(exts ...string) ExtensionSet {
	s := ExtensionSet{set: make(map[string]struct{}, len(exts))}
	for _, e := range exts {
		e = strings.TrimPrefix(e, ".")
		if _, ok := s.set[e]; ok || e == "" {
			continue
		}
		s.set[e] = struct{}{}
		s.exts = append(s.exts, e)
	}
	return s
}

// Contains reports whether ext (without dot) is a member, exact-string
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s.set[strings.TrimPrefix(ext, ".")]
	return ok
}

// List returns the extensions in insertion order
func (s ExtensionSet) List() []string {
	out := make([]string, len(s.exts))
	copy(out, s.exts)
	return out
}

// Len returns the number of extensions in the set
func (s ExtensionSet) Len() int {
	return len(s.exts)
}

// RuleSet is the full matching configuration for one scan: ordered
// pairing rules, patterns recognizing already-pansharpened rasters,
// and the accepted extension set.
type RuleSet struct {
	Rules            []PairingRule
	PansharpPatterns []string
	Extensions       ExtensionSet
}

// New validates and builds a RuleSet. Rules must be non-empty with
// strictly increasing IDs; every pattern must compile; token pairs,
// when present, must have both sides non-empty. Validation is eager so
// a malformed configuration fails before any filesystem work starts.
func New(pairingRules []PairingRule, pansharpPatterns []string, extensions ExtensionSet) (*RuleSet, error) {
	if len(pairingRules) == 0 {
		return nil, errors.New(errors.ErrRulesEmpty, "rule list is empty")
	}
	if extensions.Len() == 0 {
		return nil, errors.New(errors.ErrConfigValid, "extension list is empty")
	}

	lastID := -1
	for _, rule := range pairingRules {
		if rule.ID <= lastID {
			return nil, errors.Newf(errors.ErrRuleInvalid,
				"rule ids must be strictly increasing, got %d after %d", rule.ID, lastID)
		}
		lastID = rule.ID

		if err := validatePattern(rule.MulPattern); err != nil {
			return nil, errors.Wrapf(err, errors.ErrRuleInvalid,
				"rule %d multispectral pattern", rule.ID)
		}
		if err := validatePattern(rule.PanRelPattern); err != nil {
			return nil, errors.Wrapf(err, errors.ErrRuleInvalid,
				"rule %d panchromatic pattern", rule.ID)
		}
		if rule.Tokens != nil && (rule.Tokens.Mul == "" || rule.Tokens.Pan == "") {
			return nil, errors.Newf(errors.ErrRuleInvalid,
				"rule %d token pair must have both sides non-empty", rule.ID)
		}
	}

	for _, pat := range pansharpPatterns {
		if err := validatePattern(pat); err != nil {
			return nil, errors.Wrap(err, errors.ErrPatternInvalid, "pansharp pattern")
		}
	}

	return &RuleSet{
		Rules:            pairingRules,
		PansharpPatterns: pansharpPatterns,
		Extensions:       extensions,
	}, nil
}

// validatePattern checks that a glob pattern compiles, ignoring any
// leading parent-directory segments used for ascension
func validatePattern(pattern string) error {
	if pattern == "" {
		return errors.New(errors.ErrPatternInvalid, "pattern is empty")
	}
	trimmed := pattern
	for strings.HasPrefix(trimmed, "../") {
		trimmed = strings.TrimPrefix(trimmed, "../")
	}
	if trimmed == "" || trimmed == ".." {
		return errors.Newf(errors.ErrPatternInvalid, "pattern %q has no file component", pattern)
	}
	if !doublestar.ValidatePattern(trimmed) {
		return errors.Newf(errors.ErrPatternInvalid, "pattern %q does not compile", pattern)
	}
	return nil
}
