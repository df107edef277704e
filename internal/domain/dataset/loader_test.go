package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

const twoMolsSDF = `ethanol
  ChemScreen

  3  2  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.2500    1.2990    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  END
$$$$
methanol
  ChemScreen

  2  1  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.4000    0.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
M  END
$$$$
`

func TestParseMetadataCSV(t *testing.T) {
	csvData := "Name,MW,formula\nEthanol,46.07,C2H6O\nMethanol,32.04,CH4O\n"

	metas, err := ParseMetadataCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, metas, 2)

	assert.Equal(t, "Ethanol", metas[0].Name)
	assert.InDelta(t, 46.07, metas[0].MolecularWeight, 1e-9)
	assert.Equal(t, "C2H6O", metas[0].Extra["formula"])
	assert.Equal(t, "Methanol", metas[1].Name)
}

func TestParseMetadataCSV_NoNameColumn(t *testing.T) {
	_, err := ParseMetadataCSV(strings.NewReader("mw,formula\n46.07,C2H6O\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetUnknownColumn))
}

func TestParseMetadataCSV_EmptyName(t *testing.T) {
	_, err := ParseMetadataCSV(strings.NewReader("name,mw\n,46.07\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetLoadFailed))
}

func TestLoadRecords(t *testing.T) {
	csvData := "name,mw\nEthanol,46.07\nMethanol,32.04\n"

	recs, err := LoadRecords(strings.NewReader(twoMolsSDF), strings.NewReader(csvData), mtypes.ClassAntibacterial)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 0, recs[0].Molecule.Index)
	assert.Equal(t, 1, recs[1].Molecule.Index)
	assert.Equal(t, mtypes.ClassAntibacterial, recs[0].Molecule.Class)
	assert.Equal(t, "Ethanol", recs[0].Metadata.Name)
	assert.NotEmpty(t, recs[0].Molecule.StructureKey)
}

func TestLoadRecords_JoinMismatch(t *testing.T) {
	csvData := "name,mw\nEthanol,46.07\n"

	_, err := LoadRecords(strings.NewReader(twoMolsSDF), strings.NewReader(csvData), mtypes.ClassAntiviral)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetJoinMismatch))
}

func TestLoadRecords_UnknownClass(t *testing.T) {
	_, err := LoadRecords(strings.NewReader(twoMolsSDF), strings.NewReader("name\na\nb\n"), mtypes.Class("fungal"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidParam))
}
