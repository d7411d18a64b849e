// Package naming derives output basenames for pansharpened rasters.
// Derivation is pure string work on the source filename: no
// timestamps, no randomness, so repeated scans of an unchanged tree
// produce identical names.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/geoprep/panprep/pkg/rules"
)

// DefaultFallbackSuffix is the suffix template applied when a rule has
// no token pair. It is inserted before the extension with the method
// identifier substituted, e.g. "scene.TIF" -> "scene-PSH-bayes.TIF".
// The original tooling never pinned this convention down, so it is a
// configurable policy with this documented default.
const DefaultFallbackSuffix = "-PSH-%s"

// Deriver computes deterministic output names for a pan-sharpening
// method identifier.
type Deriver struct {
	Method         string
	FallbackSuffix string
}

// New returns a Deriver for the given method with the default
// fallback suffix template.
func New(method string) *Deriver {
	// Strip an "otb-" engine prefix so names carry the bare algorithm
	method = strings.TrimPrefix(method, "otb-")
	return &Deriver{Method: method, FallbackSuffix: DefaultFallbackSuffix}
}

// Marker returns the substitution marker embedding the method,
// e.g. "-PSH-bayes-".
func (d *Deriver) Marker() string {
	return fmt.Sprintf("-PSH-%s-", d.Method)
}

// DeriveName computes the output basename for the multispectral
// filename mulName. When tokens carry a multispectral token present in
// the name, its first occurrence is replaced with the marker and the
// rest of the name and extension are preserved. Otherwise the fallback
// suffix is appended before the extension.
func (d *Deriver) DeriveName(mulName string, tokens *rules.TokenPair) string {
	ext := filepath.Ext(mulName)
	stem := strings.TrimSuffix(mulName, ext)

	if tokens != nil && tokens.Mul != "" && strings.Contains(stem, tokens.Mul) {
		return strings.Replace(stem, tokens.Mul, d.Marker(), 1) + ext
	}

	suffix := d.FallbackSuffix
	if suffix == "" {
		suffix = DefaultFallbackSuffix
	}
	return stem + fmt.Sprintf(suffix, d.Method) + ext
}

// CogName derives the COG output basename from a pansharp output
// basename by tagging the marker with a cog segment. Names produced by
// the fallback suffix get a plain "-cog" before the extension.
func (d *Deriver) CogName(pshName string) string {
	marker := d.Marker()
	if strings.Contains(pshName, marker) {
		return strings.Replace(pshName, marker, marker+"cog-", 1)
	}
	ext := filepath.Ext(pshName)
	return strings.TrimSuffix(pshName, ext) + "-cog" + ext
}

// PassthroughCogName derives the COG output basename for an asset that
// is already pansharpened and only needs conversion.
func PassthroughCogName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-cog" + ext
}
