// Package molecule provides the core domain model for chemical structures in
// ChemScreen: the atoms/bonds graph parsed from SDF files, descriptor
// computation, fingerprints, and similarity calculators.
package molecule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Atom is a single heavy atom in a molecular graph.  Hydrogens are implicit;
// ImplicitH is derived from default valences during graph finalisation.
type Atom struct {
	Element   string
	X, Y, Z   float64
	Charge    int
	ImplicitH int
}

// Bond connects two atoms by zero-based index.  Order follows the SDF V2000
// convention: 1 single, 2 double, 3 triple, 4 aromatic.
type Bond struct {
	From, To int
	Order    int
}

// IsAromatic reports whether the bond is marked aromatic.
func (b Bond) IsAromatic() bool { return b.Order == 4 }

// Graph is an immutable molecular graph.  Construct it with NewGraph, which
// derives adjacency, ring membership, and implicit hydrogen counts once.
type Graph struct {
	Atoms []Atom
	Bonds []Bond

	adj        [][]int // neighbor atom indices
	bondAt     [][]int // parallel to adj: bond index for each neighbor
	ringBond   []bool  // per bond: participates in a cycle
	ringAtom   []bool  // per atom: belongs to at least one cycle
	components int
}

// defaultValences maps elements to the valence used for implicit hydrogen
// assignment.  Elements not listed get no implicit hydrogens.
var defaultValences = map[string]int{
	"C": 4, "N": 3, "O": 2, "S": 2, "P": 3,
	"F": 1, "Cl": 1, "Br": 1, "I": 1, "B": 3,
}

// atomicMasses holds average atomic masses for the elements that occur in
// drug-like molecules.  Unknown elements fall back to 12.0.
var atomicMasses = map[string]float64{
	"H": 1.008, "C": 12.011, "N": 14.007, "O": 15.999,
	"S": 32.06, "P": 30.974, "F": 18.998, "Cl": 35.45,
	"Br": 79.904, "I": 126.904, "B": 10.81, "Si": 28.085,
}

// NewGraph builds a Graph from raw atoms and bonds, computing adjacency,
// ring membership (via bridge detection), connected components, and implicit
// hydrogen counts.  Returns an error if a bond references a missing atom.
func NewGraph(atoms []Atom, bonds []Bond) (*Graph, error) {
	g := &Graph{Atoms: atoms, Bonds: bonds}
	n := len(atoms)

	g.adj = make([][]int, n)
	g.bondAt = make([][]int, n)
	for bi, b := range bonds {
		if b.From < 0 || b.From >= n || b.To < 0 || b.To >= n {
			return nil, fmt.Errorf("bond %d references atom out of range (%d-%d, %d atoms)", bi, b.From, b.To, n)
		}
		g.adj[b.From] = append(g.adj[b.From], b.To)
		g.bondAt[b.From] = append(g.bondAt[b.From], bi)
		g.adj[b.To] = append(g.adj[b.To], b.From)
		g.bondAt[b.To] = append(g.bondAt[b.To], bi)
	}

	g.findRings()
	g.assignImplicitHydrogens()
	return g, nil
}

// Neighbors returns the atom indices adjacent to atom i.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// Degree returns the heavy-atom degree of atom i.
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// BondBetween returns the bond joining atoms i and j, or nil.
func (g *Graph) BondBetween(i, j int) *Bond {
	for k, nb := range g.adj[i] {
		if nb == j {
			return &g.Bonds[g.bondAt[i][k]]
		}
	}
	return nil
}

// InRing reports whether atom i belongs to a cycle.
func (g *Graph) InRing(i int) bool { return g.ringAtom[i] }

// BondInRing reports whether bond bi participates in a cycle.
func (g *Graph) BondInRing(bi int) bool { return g.ringBond[bi] }

// RingCount returns the cyclomatic number (bonds - atoms + components),
// the standard smallest-set-of-smallest-rings count for connected graphs.
func (g *Graph) RingCount() int {
	c := len(g.Bonds) - len(g.Atoms) + g.components
	if c < 0 {
		return 0
	}
	return c
}

// AromaticRingCount returns the cyclomatic number of the subgraph induced by
// aromatic bonds, a proxy for the number of aromatic rings.
func (g *Graph) AromaticRingCount() int {
	atomSeen := map[int]bool{}
	edges := 0
	parent := map[int]int{}
	var find func(x int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	comps := 0
	for _, b := range g.Bonds {
		if !b.IsAromatic() {
			continue
		}
		edges++
		for _, a := range []int{b.From, b.To} {
			if !atomSeen[a] {
				atomSeen[a] = true
				parent[a] = a
				comps++
			}
		}
		ra, rb := find(b.From), find(b.To)
		if ra != rb {
			parent[ra] = rb
			comps--
		}
	}
	c := edges - len(atomSeen) + comps
	if c < 0 {
		return 0
	}
	return c
}

// findRings marks ring bonds and atoms using iterative bridge detection:
// a bond lies on a cycle iff it is not a bridge.
func (g *Graph) findRings() {
	n := len(g.Atoms)
	g.ringBond = make([]bool, len(g.Bonds))
	g.ringAtom = make([]bool, n)

	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	timer := 0

	type frame struct {
		node, parentBond, childIdx int
	}

	for start := 0; start < n; start++ {
		if disc[start] != -1 {
			continue
		}
		g.components++
		stack := []frame{{node: start, parentBond: -1}}
		disc[start], low[start] = timer, timer
		timer++

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.childIdx < len(g.adj[f.node]) {
				nb := g.adj[f.node][f.childIdx]
				bi := g.bondAt[f.node][f.childIdx]
				f.childIdx++
				if bi == f.parentBond {
					continue
				}
				if disc[nb] == -1 {
					disc[nb], low[nb] = timer, timer
					timer++
					stack = append(stack, frame{node: nb, parentBond: bi})
				} else if disc[nb] < low[f.node] {
					low[f.node] = disc[nb]
				}
			} else {
				stack = stack[:len(stack)-1]
				if len(stack) > 0 {
					p := &stack[len(stack)-1]
					if low[f.node] < low[p.node] {
						low[p.node] = low[f.node]
					}
					// Non-bridge edges lie on a cycle.
					if low[f.node] <= disc[p.node] {
						g.ringBond[f.parentBond] = true
					}
				}
			}
		}
	}

	for bi, b := range g.Bonds {
		// Aromatic bonds are ring bonds even when drawn acyclic in the input.
		if b.IsAromatic() {
			g.ringBond[bi] = true
		}
		if g.ringBond[bi] {
			g.ringAtom[b.From] = true
			g.ringAtom[b.To] = true
		}
	}
}

// assignImplicitHydrogens fills Atom.ImplicitH from default valences and the
// sum of incident bond orders (aromatic bonds count 1.5, rounded up per atom).
func (g *Graph) assignImplicitHydrogens() {
	for i := range g.Atoms {
		valence, ok := defaultValences[g.Atoms[i].Element]
		if !ok {
			g.Atoms[i].ImplicitH = 0
			continue
		}
		orderSum := 0.0
		for _, bi := range g.bondAt[i] {
			switch g.Bonds[bi].Order {
			case 4:
				orderSum += 1.5
			default:
				orderSum += float64(g.Bonds[bi].Order)
			}
		}
		h := valence - int(math.Ceil(orderSum))
		if g.Atoms[i].Charge > 0 {
			h++
		} else if g.Atoms[i].Charge < 0 {
			h--
		}
		if h < 0 {
			h = 0
		}
		g.Atoms[i].ImplicitH = h
	}
}

// HeavyAtomCount returns the number of explicit (non-hydrogen) atoms.
func (g *Graph) HeavyAtomCount() int {
	n := 0
	for _, a := range g.Atoms {
		if a.Element != "H" {
			n++
		}
	}
	return n
}

// TotalAtomCount returns heavy atoms plus implicit hydrogens.
func (g *Graph) TotalAtomCount() int {
	n := 0
	for _, a := range g.Atoms {
		n++
		n += a.ImplicitH
	}
	return n
}

// MolecularWeight sums atomic masses including implicit hydrogens.
func (g *Graph) MolecularWeight() float64 {
	w := 0.0
	for _, a := range g.Atoms {
		m, ok := atomicMasses[a.Element]
		if !ok {
			m = 12.0
		}
		w += m + float64(a.ImplicitH)*atomicMasses["H"]
	}
	return w
}

// ShortestPaths returns BFS distances from atom src to every atom; -1 marks
// unreachable atoms in disconnected structures.
func (g *Graph) ShortestPaths(src int) []int {
	dist := make([]int, len(g.Atoms))
	for i := range dist {
		dist[i] = -1
	}
	dist[src] = 0
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range g.adj[cur] {
			if dist[nb] == -1 {
				dist[nb] = dist[cur] + 1
				queue = append(queue, nb)
			}
		}
	}
	return dist
}

// StructureKey returns a 27-character identifier derived from a canonical
// serialisation of the graph (sorted element/degree/bond multiset).  Two
// graphs with identical atom and bond multisets share a key; it serves as the
// cache and deduplication key for descriptor rows.
func (g *Graph) StructureKey() string {
	parts := make([]string, 0, len(g.Atoms)+len(g.Bonds))
	for i, a := range g.Atoms {
		parts = append(parts, fmt.Sprintf("%s%d%d", a.Element, g.Degree(i), a.ImplicitH))
	}
	for _, b := range g.Bonds {
		e1, e2 := g.Atoms[b.From].Element, g.Atoms[b.To].Element
		if e1 > e2 {
			e1, e2 = e2, e1
		}
		parts = append(parts, fmt.Sprintf("%s%d%s", e1, b.Order, e2))
	}
	sort.Strings(parts)
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	hexStr := strings.ToUpper(hex.EncodeToString(hash[:]))
	return hexStr[:14] + "-" + hexStr[14:24] + "-" + hexStr[24:25]
}
