// Package registry holds the aggregate result of one discovery scan:
// MUL/PAN pairs, unresolved entries, and pass-through records. A
// registry is owned by a single scan invocation, is append-only while
// the scan runs, and is sealed before export. A new scan builds a new
// registry; nothing is ever updated in place.
package registry

import (
	"sort"

	"github.com/geoprep/panprep/pkg/errors"
)

// Role classifies a discovered asset
type Role string

const (
	RoleMultispectral Role = "multispectral"
	RolePanchromatic  Role = "panchromatic"
	RolePassthrough   Role = "pansharp_passthrough"
)

// Status classifies a registry record
type Status string

const (
	StatusPaired      Status = "paired"
	StatusNoCandidate Status = "no_candidate"
	StatusAmbiguous   Status = "ambiguous_candidates"
	StatusPassthrough Status = "passthrough"
)

// Asset is a single discovered file
type Asset struct {
	Path   string // absolute
	Role   Role
	RuleID int    // -1 for pass-through assets
	Token  string // extracted filename token, empty when the rule has none
}

// Pair couples a multispectral asset with its panchromatic counterpart
// and the derived pansharp/COG output paths. Both assets existed on
// disk when the pair was built and belong to the same rule application.
type Pair struct {
	Mul         Asset
	Pan         Asset
	DerivedName string
	OutputPath  string
	CogPath     string
}

// Unresolved records a multispectral asset the scan could not pair,
// either because no candidate survived or because several did.
// Candidates is sorted lexicographically and only set for ambiguity.
type Unresolved struct {
	Asset      Asset
	Reason     Status
	Candidates []string
}

// Passthrough records an asset that is already pansharpened and skips
// pairing entirely.
type Passthrough struct {
	Asset   Asset
	CogName string
}

// Registry aggregates the outcome of one scan
type Registry struct {
	root        string
	pairs       []Pair
	unresolved  []Unresolved
	passthrough []Passthrough
	partial     bool
	sealed      bool
}

// New creates an empty registry for a scan rooted at root
func New(root string) *Registry {
	return &Registry{root: root}
}

// Root returns the scan root directory
func (r *Registry) Root() string {
	return r.root
}

// AddPair appends a pair record. Fails once the registry is sealed.
func (r *Registry) AddPair(p Pair) error {
	if r.sealed {
		return errors.New(errors.ErrRegistrySealed, "cannot append to a sealed registry")
	}
	r.pairs = append(r.pairs, p)
	return nil
}

// AddUnresolved appends an unresolved record. Fails once the registry
// is sealed.
func (r *Registry) AddUnresolved(u Unresolved) error {
	if r.sealed {
		return errors.New(errors.ErrRegistrySealed, "cannot append to a sealed registry")
	}
	r.unresolved = append(r.unresolved, u)
	return nil
}

// AddPassthrough appends a pass-through record. Fails once the
// registry is sealed.
func (r *Registry) AddPassthrough(p Passthrough) error {
	if r.sealed {
		return errors.New(errors.ErrRegistrySealed, "cannot append to a sealed registry")
	}
	r.passthrough = append(r.passthrough, p)
	return nil
}

// MarkPartial flags the registry as the result of an aborted scan.
// Partial registries may be inspected for diagnostics but are never
// complete results.
func (r *Registry) MarkPartial() {
	r.partial = true
}

// Partial reports whether the scan that built this registry was aborted
func (r *Registry) Partial() bool {
	return r.partial
}

// Seal freezes the registry; all appends fail afterwards
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether the registry is frozen
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Complete reports whether the scan finished and every multispectral
// asset was resolved. Callers gate the pan-sharpening stage on this.
func (r *Registry) Complete() bool {
	return !r.partial && len(r.unresolved) == 0
}

// Pairs returns a copy of the pair records
func (r *Registry) Pairs() []Pair {
	out := make([]Pair, len(r.pairs))
	copy(out, r.pairs)
	return out
}

// UnresolvedEntries returns a copy of the unresolved records
func (r *Registry) UnresolvedEntries() []Unresolved {
	out := make([]Unresolved, len(r.unresolved))
	copy(out, r.unresolved)
	return out
}

// Passthroughs returns a copy of the pass-through records
func (r *Registry) Passthroughs() []Passthrough {
	out := make([]Passthrough, len(r.passthrough))
	copy(out, r.passthrough)
	return out
}

// Len returns the total number of records
func (r *Registry) Len() int {
	return len(r.pairs) + len(r.unresolved) + len(r.passthrough)
}

// Record is one row of the exported tabular form. MulPath carries the
// primary asset path for unresolved and pass-through rows.
type Record struct {
	RuleID      int
	Role        Role
	MulPath     string
	PanPath     string
	Status      Status
	DerivedName string
	OutputPath  string
	CogPath     string
	Candidates  []string
}

// Export seals the registry and returns its records in deterministic
// order: sorted by derived name, ties broken by primary path.
func (r *Registry) Export() []Record {
	r.sealed = true

	records := make([]Record, 0, r.Len())
	for _, p := range r.pairs {
		records = append(records, Record{
			RuleID:      p.Mul.RuleID,
			Role:        RoleMultispectral,
			MulPath:     p.Mul.Path,
			PanPath:     p.Pan.Path,
			Status:      StatusPaired,
			DerivedName: p.DerivedName,
			OutputPath:  p.OutputPath,
			CogPath:     p.CogPath,
		})
	}
	for _, u := range r.unresolved {
		records = append(records, Record{
			RuleID:     u.Asset.RuleID,
			Role:       u.Asset.Role,
			MulPath:    u.Asset.Path,
			Status:     u.Reason,
			Candidates: append([]string(nil), u.Candidates...),
		})
	}
	for _, p := range r.passthrough {
		records = append(records, Record{
			RuleID:      p.Asset.RuleID,
			Role:        RolePassthrough,
			MulPath:     p.Asset.Path,
			Status:      StatusPassthrough,
			DerivedName: p.CogName,
			OutputPath:  p.Asset.Path,
			CogPath:     p.CogName,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].DerivedName != records[j].DerivedName {
			return records[i].DerivedName < records[j].DerivedName
		}
		return records[i].MulPath < records[j].MulPath
	})
	return records
}
