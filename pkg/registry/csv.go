package registry

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/geoprep/panprep/pkg/errors"
)

// The exported tabular format is semicolon-delimited so paths with
// commas survive round-trips, matching the audit logs consumed by the
// downstream processing stages.
const csvDelimiter = ';'

// candidateSeparator joins ambiguity candidates inside one field
const candidateSeparator = "|"

var csvHeader = []string{
	"rule_id", "role", "mul_path", "pan_path", "status",
	"derived_name", "output_path", "cog_path", "candidates",
}

// WriteCSV seals the registry and writes its records to w, one row per
// record, preceded by a header row.
func (r *Registry) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = csvDelimiter

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range r.Export() {
		row := []string{
			strconv.Itoa(rec.RuleID),
			string(rec.Role),
			rec.MulPath,
			rec.PanPath,
			string(rec.Status),
			rec.DerivedName,
			rec.OutputPath,
			rec.CogPath,
			strings.Join(rec.Candidates, candidateSeparator),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reconstructs a sealed registry from records previously
// written by WriteCSV, letting a later pipeline stage resume without
// rescanning the filesystem.
func ReadCSV(rd io.Reader, root string) (*Registry, error) {
	cr := csv.NewReader(rd)
	cr.Comma = csvDelimiter
	cr.FieldsPerRecord = len(csvHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRegistryImport, "reading registry csv")
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrRegistryImport, "registry csv is empty")
	}

	reg := New(root)
	for i, row := range rows {
		if i == 0 {
			// header
			continue
		}
		if err := reg.importRow(row); err != nil {
			return nil, errors.Wrapf(err, errors.ErrRegistryImport, "row %d", i+1)
		}
	}
	reg.Seal()
	return reg, nil
}

func (r *Registry) importRow(row []string) error {
	ruleID, err := strconv.Atoi(row[0])
	if err != nil {
		return errors.Wrap(err, errors.ErrRegistryImport, "rule id")
	}
	role := Role(row[1])
	mulPath, panPath := row[2], row[3]
	status := Status(row[4])
	derivedName, outputPath, cogPath := row[5], row[6], row[7]

	var candidates []string
	if row[8] != "" {
		candidates = strings.Split(row[8], candidateSeparator)
	}

	switch status {
	case StatusPaired:
		r.pairs = append(r.pairs, Pair{
			Mul:         Asset{Path: mulPath, Role: RoleMultispectral, RuleID: ruleID},
			Pan:         Asset{Path: panPath, Role: RolePanchromatic, RuleID: ruleID},
			DerivedName: derivedName,
			OutputPath:  outputPath,
			CogPath:     cogPath,
		})
	case StatusNoCandidate, StatusAmbiguous:
		r.unresolved = append(r.unresolved, Unresolved{
			Asset:      Asset{Path: mulPath, Role: role, RuleID: ruleID},
			Reason:     status,
			Candidates: candidates,
		})
	case StatusPassthrough:
		r.passthrough = append(r.passthrough, Passthrough{
			Asset:   Asset{Path: mulPath, Role: RolePassthrough, RuleID: ruleID},
			CogName: cogPath,
		})
	default:
		return errors.Newf(errors.ErrRegistryImport, "unknown status %q", status)
	}
	return nil
}
