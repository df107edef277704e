package dataset

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// nameColumns are the header spellings accepted for the compound name column.
var nameColumns = map[string]bool{"name": true, "compound": true, "compound_name": true, "title": true}

// weightColumns are the header spellings accepted for the molecular weight
// column.
var weightColumns = map[string]bool{"molecular_weight": true, "mw": true, "weight": true, "mol_weight": true}

// ParseMetadataCSV reads one class's metadata table.  The first row is the
// header; a name column is required, a weight column is optional, and all
// other columns are preserved verbatim in Extra.
func ParseMetadataCSV(r io.Reader) ([]Metadata, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetLoadFailed, "reading metadata header")
	}

	nameIdx, weightIdx := -1, -1
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		switch {
		case nameColumns[key] && nameIdx < 0:
			nameIdx = i
		case weightColumns[key] && weightIdx < 0:
			weightIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, errors.New(errors.ErrCodeDatasetUnknownColumn, "metadata table has no name column")
	}

	var out []Metadata
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeDatasetLoadFailed, "metadata line %d", line)
		}

		meta := Metadata{Name: strings.TrimSpace(rec[nameIdx])}
		if meta.Name == "" {
			return nil, errors.Newf(errors.ErrCodeDatasetLoadFailed, "metadata line %d has an empty name", line)
		}
		if weightIdx >= 0 && weightIdx < len(rec) {
			if w, err := strconv.ParseFloat(strings.TrimSpace(rec[weightIdx]), 64); err == nil {
				meta.MolecularWeight = w
			}
		}
		for i, col := range header {
			if i == nameIdx || i == weightIdx || i >= len(rec) {
				continue
			}
			if v := strings.TrimSpace(rec[i]); v != "" {
				if meta.Extra == nil {
					meta.Extra = make(map[string]string)
				}
				meta.Extra[strings.ToLower(strings.TrimSpace(col))] = v
			}
		}
		out = append(out, meta)
	}
	return out, nil
}

// LoadRecords parses one class's structure file and metadata table and binds
// them, by position, into atomic records.  The two sources must describe the
// same number of compounds; anything else is a join mismatch and aborts the
// load.
func LoadRecords(structures, metadata io.Reader, class mtypes.Class) ([]*Record, error) {
	if !class.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidParam, "unknown class %q", string(class))
	}

	sdfRecs, err := molecule.ParseSDF(structures)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDatasetLoadFailed, "parsing %s structures", string(class))
	}
	metas, err := ParseMetadataCSV(metadata)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDatasetLoadFailed, "parsing %s metadata", string(class))
	}

	if len(sdfRecs) != len(metas) {
		return nil, errors.Newf(errors.ErrCodeDatasetJoinMismatch,
			"%s class has %d structures but %d metadata rows", string(class), len(sdfRecs), len(metas))
	}

	records := make([]*Record, 0, len(sdfRecs))
	for i, rec := range sdfRecs {
		mol, err := molecule.NewMolecule(rec, i, class)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeDatasetLoadFailed,
				"%s structure %d (%s)", string(class), i, metas[i].Name)
		}
		if metas[i].Name != "" && mol.Name == "" {
			mol.Name = metas[i].Name
		}
		records = append(records, &Record{Molecule: mol, Metadata: metas[i]})
	}
	return records, nil
}
