package molecule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDescriptors_PanelShape(t *testing.T) {
	row, failed := ComputeDescriptors(ethanol(t))
	assert.Empty(t, failed)
	require.Len(t, row, len(DescriptorColumns))
	for _, col := range DescriptorColumns {
		_, ok := row[col]
		assert.True(t, ok, "column %s missing", col)
	}
}

func TestComputeDescriptors_Ethanol(t *testing.T) {
	row, _ := ComputeDescriptors(ethanol(t))

	assert.InDelta(t, 46.07, row[DescMW], 0.05)
	assert.InDelta(t, 20.23, row[DescTPSA], 0.01) // single hydroxyl
	assert.Equal(t, 1.0, row[DescHBDonors])
	assert.Equal(t, 1.0, row[DescHBAccept])
	assert.Equal(t, 0.0, row[DescRotBonds])
	assert.Equal(t, 0.0, row[DescRings])
	assert.Equal(t, 3.0, row[DescHeavyAtoms])
	assert.Equal(t, 1.0, row[DescOxygen])
	assert.Equal(t, 1.0, row[DescFracCsp3])
}

func TestComputeDescriptors_Benzene(t *testing.T) {
	row, _ := ComputeDescriptors(benzene(t))

	assert.Equal(t, 1.0, row[DescAromRings])
	assert.Equal(t, 1.0, row[DescRings])
	assert.Equal(t, 0.0, row[DescTPSA])
	assert.Equal(t, 0.0, row[DescHBDonors])
	assert.Equal(t, 0.0, row[DescFracCsp3]) // all carbons aromatic
	assert.Equal(t, 2.0, row[DescAvgDegree])
	assert.Equal(t, 24.0, row[DescZagreb]) // six atoms of degree two
}

func TestComputeDescriptors_AceticAcid(t *testing.T) {
	row, _ := ComputeDescriptors(aceticAcid(t))

	// Hydroxyl (20.23) + carbonyl oxygen (17.07).
	assert.InDelta(t, 37.30, row[DescTPSA], 0.01)
	assert.Equal(t, 1.0, row[DescHBDonors])
	assert.Equal(t, 2.0, row[DescHBAccept])
	assert.Equal(t, 1.0, row[DescDoubleB])
}

func TestComputeDescriptors_MissingValueIsNaN(t *testing.T) {
	// A molecule with no carbon leaves FracCsp3 undefined.
	g := mustGraph(t, []Atom{{Element: "O"}, {Element: "O"}}, []Bond{{From: 0, To: 1, Order: 2}})
	row, _ := ComputeDescriptors(g)
	assert.True(t, math.IsNaN(row[DescFracCsp3]))
	assert.False(t, row.Has(DescFracCsp3))
	assert.True(t, row.Has(DescMW))
}

func TestDescriptors_Vector(t *testing.T) {
	row, _ := ComputeDescriptors(ethanol(t))
	vec := row.Vector([]string{DescMW, "NoSuchColumn", DescTPSA})
	require.Len(t, vec, 3)
	assert.InDelta(t, 46.07, vec[0], 0.05)
	assert.True(t, math.IsNaN(vec[1]))
	assert.InDelta(t, 20.23, vec[2], 0.01)
}

func TestDefaultFeatureFormula(t *testing.T) {
	assert.Len(t, DefaultFeatureFormula, 18)
	cols := map[string]bool{}
	for _, c := range DescriptorColumns {
		cols[c] = true
	}
	for _, f := range DefaultFeatureFormula {
		assert.True(t, cols[f], "formula column %s not in panel", f)
	}
}

func TestKeyDescriptors(t *testing.T) {
	assert.Equal(t, []string{DescXLogP, DescTPSA}, KeyDescriptors)
}

func TestRotatableBonds_Butane(t *testing.T) {
	// C-C-C-C has exactly one rotatable bond (the central one).
	g := mustGraph(t,
		[]Atom{{Element: "C"}, {Element: "C"}, {Element: "C"}, {Element: "C"}},
		[]Bond{{0, 1, 1}, {1, 2, 1}, {2, 3, 1}},
	)
	row, _ := ComputeDescriptors(g)
	assert.Equal(t, 1.0, row[DescRotBonds])
}

func TestWienerIndex_LinearChain(t *testing.T) {
	// Propane C-C-C: d(0,1)=1 d(1,2)=1 d(0,2)=2 → Wiener = 4.
	g := mustGraph(t,
		[]Atom{{Element: "C"}, {Element: "C"}, {Element: "C"}},
		[]Bond{{0, 1, 1}, {1, 2, 1}},
	)
	row, _ := ComputeDescriptors(g)
	assert.Equal(t, 4.0, row[DescWiener])
}
