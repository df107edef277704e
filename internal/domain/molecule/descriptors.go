package molecule

import (
	"math"
)

// Descriptor column names.  The panel is fixed: every DescriptorRow carries
// exactly these columns, with NaN marking a value the computation could not
// produce for that molecule.
const (
	DescMW         = "MW"
	DescXLogP      = "XLogP"
	DescTPSA       = "TPSA"
	DescHBDonors   = "nHBDon"
	DescHBAccept   = "nHBAcc"
	DescRotBonds   = "nRotB"
	DescRings      = "nRing"
	DescAromRings  = "nAromRing"
	DescHeavyAtoms = "nHeavyAtom"
	DescAtoms      = "nAtom"
	DescBonds      = "nBond"
	DescDoubleB    = "nDoubleBond"
	DescTripleB    = "nTripleBond"
	DescNitrogen   = "nN"
	DescOxygen     = "nO"
	DescSulfur     = "nS"
	DescHalogen    = "nHal"
	DescFracCsp3   = "FracCsp3"
	DescAvgDegree  = "AvgDegree"
	DescZagreb     = "Zagreb"
	DescWiener     = "WPATH"
	DescEccentric  = "ECCEN"
)

// DescriptorColumns lists every column of the panel in canonical order.
// Feature matrices and CSV output follow this ordering.
var DescriptorColumns = []string{
	DescMW, DescXLogP, DescTPSA,
	DescHBDonors, DescHBAccept, DescRotBonds,
	DescRings, DescAromRings,
	DescHeavyAtoms, DescAtoms,
	DescBonds, DescDoubleB, DescTripleB,
	DescNitrogen, DescOxygen, DescSulfur, DescHalogen,
	DescFracCsp3, DescAvgDegree, DescZagreb, DescWiener, DescEccentric,
}

// DefaultFeatureFormula is the 18-column subset used by the cross-validated
// SVM unless the configuration overrides it.
var DefaultFeatureFormula = []string{
	DescMW, DescXLogP, DescTPSA,
	DescHBDonors, DescHBAccept, DescRotBonds,
	DescRings, DescAromRings, DescHeavyAtoms,
	DescNitrogen, DescOxygen, DescSulfur, DescHalogen,
	DescFracCsp3, DescAvgDegree, DescZagreb, DescWiener, DescEccentric,
}

// KeyDescriptors are the two columns whose absence disqualifies a row during
// dataset assembly.
var KeyDescriptors = []string{DescXLogP, DescTPSA}

// Descriptors is one row of the descriptor table: a mapping from column name
// to numeric value.  Missing values are stored as NaN, never omitted, so that
// every row has an identical shape.
type Descriptors map[string]float64

// Has reports whether the named column holds a usable (non-NaN) value.
func (d Descriptors) Has(col string) bool {
	v, ok := d[col]
	return ok && !math.IsNaN(v)
}

// Vector materialises the named columns in order.  Absent columns come back
// as NaN.
func (d Descriptors) Vector(cols []string) []float64 {
	out := make([]float64, len(cols))
	for i, c := range cols {
		v, ok := d[c]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// descriptorFn computes one group of related columns from a graph.  A panic
// or error inside one group must not take down the whole row; the extractor
// recovers and records NaN for the group's columns.
type descriptorFn struct {
	name    string
	columns []string
	compute func(g *Graph) map[string]float64
}

// descriptorPanel is the fixed list of descriptor groups, mirroring the
// twelve descriptor functions the study draws from.
var descriptorPanel = []descriptorFn{
	{"weight", []string{DescMW}, descWeight},
	{"xlogp", []string{DescXLogP}, descXLogP},
	{"tpsa", []string{DescTPSA}, descTPSA},
	{"hbonds", []string{DescHBDonors, DescHBAccept}, descHBonds},
	{"rotatable", []string{DescRotBonds}, descRotatable},
	{"rings", []string{DescRings, DescAromRings}, descRings},
	{"atomcount", []string{DescHeavyAtoms, DescAtoms}, descAtomCount},
	{"bondcount", []string{DescBonds, DescDoubleB, DescTripleB}, descBondCount},
	{"heteroatoms", []string{DescNitrogen, DescOxygen, DescSulfur, DescHalogen}, descHeteroatoms},
	{"hybridisation", []string{DescFracCsp3}, descFracCsp3},
	{"connectivity", []string{DescAvgDegree, DescZagreb}, descConnectivity},
	{"topology", []string{DescWiener, DescEccentric}, descTopology},
}

// ComputeDescriptors evaluates the full panel for g.  It never fails: a group
// that panics leaves NaN in its columns and the failure is reported through
// the returned list of group names for the caller to log.
func ComputeDescriptors(g *Graph) (Descriptors, []string) {
	row := make(Descriptors, len(DescriptorColumns))
	for _, col := range DescriptorColumns {
		row[col] = math.NaN()
	}

	var failed []string
	for _, fn := range descriptorPanel {
		vals := safeCompute(fn, g)
		if vals == nil {
			failed = append(failed, fn.name)
			continue
		}
		for k, v := range vals {
			row[k] = v
		}
	}
	return row, failed
}

func safeCompute(fn descriptorFn, g *Graph) (vals map[string]float64) {
	defer func() {
		if recover() != nil {
			vals = nil
		}
	}()
	return fn.compute(g)
}

func descWeight(g *Graph) map[string]float64 {
	return map[string]float64{DescMW: g.MolecularWeight()}
}

// xlogpContributions holds crude per-atom octanol/water partition
// contributions.  The estimate is additive over heavy atoms, with aromatic
// carbons weighted higher than aliphatic ones.
var xlogpContributions = map[string]float64{
	"C": 0.27, "N": -0.60, "O": -0.63, "S": 0.25, "P": -0.45,
	"F": 0.11, "Cl": 0.52, "Br": 0.67, "I": 0.91,
}

func descXLogP(g *Graph) map[string]float64 {
	sum := 0.0
	for i, a := range g.Atoms {
		contrib, ok := xlogpContributions[a.Element]
		if !ok {
			continue
		}
		if a.Element == "C" && isAromaticAtom(g, i) {
			contrib = 0.34
		}
		sum += contrib
		// Implicit hydrogens on carbon add lipophilicity.
		if a.Element == "C" {
			sum += 0.12 * float64(a.ImplicitH)
		}
	}
	return map[string]float64{DescXLogP: sum}
}

// descTPSA estimates topological polar surface area from Ertl-style
// per-fragment contributions for nitrogen and oxygen.
func descTPSA(g *Graph) map[string]float64 {
	sum := 0.0
	for i, a := range g.Atoms {
		switch a.Element {
		case "O":
			switch {
			case a.ImplicitH >= 1:
				sum += 20.23 // hydroxyl
			case hasDoubleBond(g, i):
				sum += 17.07 // carbonyl / oxo
			default:
				sum += 9.23 // ether
			}
		case "N":
			switch {
			case isAromaticAtom(g, i):
				sum += 12.89
			case a.ImplicitH >= 2:
				sum += 26.02
			case a.ImplicitH == 1:
				sum += 12.03
			default:
				sum += 3.24
			}
		}
	}
	return map[string]float64{DescTPSA: sum}
}

func descHBonds(g *Graph) map[string]float64 {
	donors, acceptors := 0, 0
	for _, a := range g.Atoms {
		if a.Element == "N" || a.Element == "O" {
			acceptors++
			if a.ImplicitH > 0 {
				donors++
			}
		}
	}
	return map[string]float64{DescHBDonors: float64(donors), DescHBAccept: float64(acceptors)}
}

// descRotatable counts single non-ring bonds between two non-terminal heavy
// atoms, the usual rotatable-bond definition.
func descRotatable(g *Graph) map[string]float64 {
	n := 0
	for bi, b := range g.Bonds {
		if b.Order != 1 || g.BondInRing(bi) {
			continue
		}
		if g.Degree(b.From) > 1 && g.Degree(b.To) > 1 {
			n++
		}
	}
	return map[string]float64{DescRotBonds: float64(n)}
}

func descRings(g *Graph) map[string]float64 {
	return map[string]float64{
		DescRings:     float64(g.RingCount()),
		DescAromRings: float64(g.AromaticRingCount()),
	}
}

func descAtomCount(g *Graph) map[string]float64 {
	return map[string]float64{
		DescHeavyAtoms: float64(g.HeavyAtomCount()),
		DescAtoms:      float64(g.TotalAtomCount()),
	}
}

func descBondCount(g *Graph) map[string]float64 {
	double, triple := 0, 0
	for _, b := range g.Bonds {
		switch b.Order {
		case 2:
			double++
		case 3:
			triple++
		}
	}
	return map[string]float64{
		DescBonds:   float64(len(g.Bonds)),
		DescDoubleB: float64(double),
		DescTripleB: float64(triple),
	}
}

func descHeteroatoms(g *Graph) map[string]float64 {
	var nN, nO, nS, nHal int
	for _, a := range g.Atoms {
		switch a.Element {
		case "N":
			nN++
		case "O":
			nO++
		case "S":
			nS++
		case "F", "Cl", "Br", "I":
			nHal++
		}
	}
	return map[string]float64{
		DescNitrogen: float64(nN), DescOxygen: float64(nO),
		DescSulfur: float64(nS), DescHalogen: float64(nHal),
	}
}

// descFracCsp3 returns the fraction of carbons bonded exclusively through
// single bonds.  NaN when the molecule is carbon-free.
func descFracCsp3(g *Graph) map[string]float64 {
	carbons, sp3 := 0, 0
	for i, a := range g.Atoms {
		if a.Element != "C" {
			continue
		}
		carbons++
		saturated := true
		for _, nb := range g.Neighbors(i) {
			if b := g.BondBetween(i, nb); b != nil && b.Order != 1 {
				saturated = false
				break
			}
		}
		if saturated {
			sp3++
		}
	}
	if carbons == 0 {
		return map[string]float64{DescFracCsp3: math.NaN()}
	}
	return map[string]float64{DescFracCsp3: float64(sp3) / float64(carbons)}
}

func descConnectivity(g *Graph) map[string]float64 {
	if len(g.Atoms) == 0 {
		return map[string]float64{DescAvgDegree: math.NaN(), DescZagreb: math.NaN()}
	}
	degSum, zagreb := 0, 0
	for i := range g.Atoms {
		d := g.Degree(i)
		degSum += d
		zagreb += d * d
	}
	return map[string]float64{
		DescAvgDegree: float64(degSum) / float64(len(g.Atoms)),
		DescZagreb:    float64(zagreb),
	}
}

// descTopology computes the Wiener path index (half the sum of all pairwise
// shortest-path lengths) and the eccentric connectivity index.  Disconnected
// pairs contribute nothing.
func descTopology(g *Graph) map[string]float64 {
	wiener := 0
	eccen := 0
	for i := range g.Atoms {
		dist := g.ShortestPaths(i)
		ecc := 0
		for _, d := range dist {
			if d > 0 {
				wiener += d
				if d > ecc {
					ecc = d
				}
			}
		}
		eccen += ecc * g.Degree(i)
	}
	return map[string]float64{
		DescWiener:    float64(wiener) / 2.0,
		DescEccentric: float64(eccen),
	}
}

func isAromaticAtom(g *Graph, i int) bool {
	for _, bi := range g.bondAt[i] {
		if g.Bonds[bi].IsAromatic() {
			return true
		}
	}
	return false
}

func hasDoubleBond(g *Graph, i int) bool {
	for _, bi := range g.bondAt[i] {
		if g.Bonds[bi].Order == 2 {
			return true
		}
	}
	return false
}
