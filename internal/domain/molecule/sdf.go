package molecule

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// sdfRecordTerminator separates molecules in a multi-record SDF file.
const sdfRecordTerminator = "$$$$"

// SDFRecord is one molecule block read from an SDF file: the parsed graph,
// the title line from the header, and any associated data fields
// ("> <name>" blocks).
type SDFRecord struct {
	Title  string
	Graph  *Graph
	Fields map[string]string
}

// ParseSDF reads every V2000 molecule block from r, in file order.  A block
// that fails to parse aborts the whole read; tolerating malformed structures
// would silently shift ordinal identifiers for everything after it.
func ParseSDF(r io.Reader) ([]*SDFRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []*SDFRecord
	var block []string
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == sdfRecordTerminator {
			rec, err := parseMolBlock(block)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrCodeMoleculeParsingFailed,
					"molecule %d is malformed", len(records))
			}
			records = append(records, rec)
			block = block[:0]
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetLoadFailed, "failed to read SDF stream")
	}

	// A final block without a trailing $$$$ is still a molecule.
	if hasContent(block) {
		rec, err := parseMolBlock(block)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeMoleculeParsingFailed,
				"molecule %d is malformed", len(records))
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "SDF stream contains no molecules")
	}
	return records, nil
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

// parseMolBlock parses a single molfile block (header, counts, atom block,
// bond block, optional properties and data fields).
func parseMolBlock(lines []string) (*SDFRecord, error) {
	if len(lines) < 4 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "mol block too short")
	}

	title := strings.TrimSpace(lines[0])

	counts := lines[3]
	if len(counts) < 6 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "counts line too short")
	}
	atomCount, err := strconv.Atoi(strings.TrimSpace(counts[0:3]))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidFormat, "bad atom count")
	}
	bondCount, err := strconv.Atoi(strings.TrimSpace(counts[3:6]))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidFormat, "bad bond count")
	}
	if len(lines) < 4+atomCount+bondCount {
		return nil, errors.Newf(errors.ErrCodeMoleculeInvalidFormat,
			"mol block has %d lines, need %d for %d atoms and %d bonds",
			len(lines), 4+atomCount+bondCount, atomCount, bondCount)
	}

	atoms := make([]Atom, atomCount)
	for i := 0; i < atomCount; i++ {
		l := lines[4+i]
		if len(l) < 34 {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalidFormat, "atom line %d too short", i)
		}
		x, _ := strconv.ParseFloat(strings.TrimSpace(l[0:10]), 64)
		y, _ := strconv.ParseFloat(strings.TrimSpace(l[10:20]), 64)
		z, _ := strconv.ParseFloat(strings.TrimSpace(l[20:30]), 64)
		elem := strings.TrimSpace(l[31:34])
		if elem == "" {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalidFormat, "atom line %d missing element", i)
		}
		atoms[i] = Atom{X: x, Y: y, Z: z, Element: elem}
	}

	bonds := make([]Bond, bondCount)
	for i := 0; i < bondCount; i++ {
		l := lines[4+atomCount+i]
		if len(l) < 9 {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalidFormat, "bond line %d too short", i)
		}
		from, _ := strconv.Atoi(strings.TrimSpace(l[0:3]))
		to, _ := strconv.Atoi(strings.TrimSpace(l[3:6]))
		order, _ := strconv.Atoi(strings.TrimSpace(l[6:9]))
		if order < 1 || order > 4 {
			order = 1
		}
		bonds[i] = Bond{From: from - 1, To: to - 1, Order: order}
	}

	// Properties block: only M  CHG is interpreted; everything else is skipped.
	fields := map[string]string{}
	for li := 4 + atomCount + bondCount; li < len(lines); li++ {
		l := lines[li]
		switch {
		case strings.HasPrefix(l, "M  CHG"):
			applyChargeLine(atoms, l)
		case strings.HasPrefix(strings.TrimSpace(l), ">"):
			name := fieldName(l)
			if name == "" || li+1 >= len(lines) {
				continue
			}
			fields[name] = strings.TrimSpace(lines[li+1])
			li++
		}
	}

	g, err := NewGraph(atoms, bonds)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidFormat, "inconsistent connection table")
	}
	return &SDFRecord{Title: title, Graph: g, Fields: fields}, nil
}

// applyChargeLine parses an "M  CHG nn aaa vvv ..." property line.
func applyChargeLine(atoms []Atom, line string) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}
	for i := 0; i < n && 4+2*i < len(parts); i++ {
		idx, err1 := strconv.Atoi(parts[3+2*i])
		chg, err2 := strconv.Atoi(parts[4+2*i])
		if err1 != nil || err2 != nil || idx < 1 || idx > len(atoms) {
			continue
		}
		atoms[idx-1].Charge = chg
	}
}

// fieldName extracts the data field name from a "> <name>" header line.
func fieldName(line string) string {
	open := strings.Index(line, "<")
	if open == -1 {
		return ""
	}
	length := strings.Index(line[open:], ">")
	if length == -1 {
		return ""
	}
	return strings.TrimSpace(line[open+1 : open+length])
}
