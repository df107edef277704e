package molecule

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/bits"
	"sort"
	"strings"

	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// Fingerprint is a molecular fingerprint stored as a packed bit vector:
// bit i lives in byte i/8 at position i%8.
type Fingerprint struct {
	Type      mtypes.FingerprintType `json:"type"`
	Bits      []byte                 `json:"bits"`
	Length    int                    `json:"length"`
	NumOnBits int                    `json:"num_on_bits"`
}

// NewFingerprint constructs a Fingerprint from packed bit data, computing the
// popcount once.
func NewFingerprint(fpType mtypes.FingerprintType, data []byte, length int) *Fingerprint {
	on := 0
	for _, b := range data {
		on += bits.OnesCount8(b)
	}
	return &Fingerprint{Type: fpType, Bits: data, Length: length, NumOnBits: on}
}

// GetBit returns true if the bit at index is set.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// ToBytes returns the packed bit data for storage or vector indexing.
func (fp *Fingerprint) ToBytes() []byte { return fp.Bits }

// ToFloat32Slice expands the bit vector into a dense 0/1 float vector, the
// representation used when indexing fingerprints in a vector database.
func (fp *Fingerprint) ToFloat32Slice() []float32 {
	out := make([]float32, fp.Length)
	for i := 0; i < fp.Length; i++ {
		if fp.GetBit(i) {
			out[i] = 1
		}
	}
	return out
}

// FingerprintFromBytes reconstructs a fingerprint from stored bit data.
func FingerprintFromBytes(fpType mtypes.FingerprintType, data []byte, length int) *Fingerprint {
	return NewFingerprint(fpType, data, length)
}

func setBit(data []byte, index int) {
	data[index/8] |= 1 << uint(index%8)
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func hashUints(vals ...uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range vals {
		binary.BigEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan (circular) fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// MorganFingerprint computes an ECFP-style circular fingerprint.  Each atom
// starts from an invariant of (element, degree, implicit H count, charge,
// ring flag); each iteration folds the sorted neighbor identifiers into the
// atom identifier, and every intermediate identifier sets one bit.
func MorganFingerprint(g *Graph, radius, nBits int) (*Fingerprint, error) {
	if g == nil || len(g.Atoms) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintFailed, "empty molecular graph")
	}
	if radius < 0 {
		radius = 2
	}
	if nBits <= 0 {
		nBits = 2048
	}

	data := make([]byte, (nBits+7)/8)

	ids := make([]uint64, len(g.Atoms))
	for i, a := range g.Atoms {
		ring := uint64(0)
		if g.InRing(i) {
			ring = 1
		}
		ids[i] = hashUints(
			hashString(a.Element),
			uint64(g.Degree(i)),
			uint64(a.ImplicitH),
			uint64(int64(a.Charge)+16),
			ring,
		)
		setBit(data, int(ids[i]%uint64(nBits)))
	}

	for r := 1; r <= radius; r++ {
		next := make([]uint64, len(ids))
		for i := range g.Atoms {
			neighborIDs := make([]uint64, 0, g.Degree(i))
			for _, nb := range g.Neighbors(i) {
				b := g.BondBetween(i, nb)
				neighborIDs = append(neighborIDs, hashUints(uint64(b.Order), ids[nb]))
			}
			sort.Slice(neighborIDs, func(a, b int) bool { return neighborIDs[a] < neighborIDs[b] })
			next[i] = hashUints(append([]uint64{uint64(r), ids[i]}, neighborIDs...)...)
			setBit(data, int(next[i]%uint64(nBits)))
		}
		ids = next
	}

	return NewFingerprint(mtypes.FPMorgan, data, nBits), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// MACCS-style structural keys
// ─────────────────────────────────────────────────────────────────────────────

// maccsBits is the number of keys in the MACCS fingerprint.
const maccsBits = 166

// MACCSFingerprint computes a 166-key structural fingerprint.  Keys are
// evaluated on the graph directly (element presence, ring features, common
// functional groups), a subset of the full MACCS definition sufficient for
// Tanimoto-based clustering diagnostics.
func MACCSFingerprint(g *Graph) (*Fingerprint, error) {
	if g == nil || len(g.Atoms) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintFailed, "empty molecular graph")
	}

	data := make([]byte, (maccsBits+7)/8)
	set := func(idx int, on bool) {
		if on && idx >= 0 && idx < maccsBits {
			setBit(data, idx)
		}
	}

	elems := map[string]int{}
	for _, a := range g.Atoms {
		elems[a.Element]++
	}

	set(10, elems["F"] > 0)
	set(11, elems["Cl"] > 0)
	set(12, elems["Br"] > 0)
	set(13, elems["I"] > 0)
	set(20, elems["N"] > 0)
	set(21, elems["O"] > 0)
	set(22, elems["S"] > 0)
	set(23, elems["P"] > 0)
	set(24, elems["N"] >= 2)
	set(25, elems["O"] >= 3)

	set(30, g.RingCount() > 0)
	set(31, g.RingCount() >= 2)
	set(32, g.AromaticRingCount() > 0)
	set(33, g.AromaticRingCount() >= 2)

	var carbonyl, hydroxyl, amine, nitrile, etherO, thioether bool
	for i, a := range g.Atoms {
		switch a.Element {
		case "O":
			if hasDoubleBond(g, i) {
				carbonyl = true
			}
			if a.ImplicitH > 0 {
				hydroxyl = true
			}
			if g.Degree(i) == 2 && !hasDoubleBond(g, i) {
				etherO = true
			}
		case "N":
			if a.ImplicitH > 0 && !isAromaticAtom(g, i) {
				amine = true
			}
			for _, bi := range g.bondAt[i] {
				if g.Bonds[bi].Order == 3 {
					nitrile = true
				}
			}
		case "S":
			if g.Degree(i) == 2 {
				thioether = true
			}
		}
	}
	set(40, carbonyl)
	set(41, hydroxyl)
	set(42, amine)
	set(43, nitrile)
	set(44, etherO)
	set(45, thioether)

	// Amide: carbonyl carbon bonded to nitrogen.
	amide := false
	for i, a := range g.Atoms {
		if a.Element != "C" {
			continue
		}
		hasOxo, hasN := false, false
		for _, nb := range g.Neighbors(i) {
			b := g.BondBetween(i, nb)
			if g.Atoms[nb].Element == "O" && b.Order == 2 {
				hasOxo = true
			}
			if g.Atoms[nb].Element == "N" {
				hasN = true
			}
		}
		if hasOxo && hasN {
			amide = true
			break
		}
	}
	set(46, amide)

	// Size buckets.
	heavy := g.HeavyAtomCount()
	set(120, heavy > 5)
	set(121, heavy > 10)
	set(122, heavy > 20)
	set(123, heavy > 30)
	set(124, len(g.Bonds) > heavy) // at least one ring by edge excess

	// Degree profile.
	for i := range g.Atoms {
		switch {
		case g.Degree(i) >= 4:
			set(130, true)
		case g.Degree(i) == 3:
			set(131, true)
		}
	}

	return NewFingerprint(mtypes.FPMACCS, data, maccsBits), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Path-based fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// PathFingerprint enumerates simple paths of length minPath..maxPath through
// the graph and hashes each path's element/bond-order sequence into the bit
// vector, taking the lexicographically smaller direction so a path and its
// reverse set the same bit.
func PathFingerprint(g *Graph, minPath, maxPath, nBits int) (*Fingerprint, error) {
	if g == nil || len(g.Atoms) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintFailed, "empty molecular graph")
	}
	if minPath < 1 {
		minPath = 1
	}
	if maxPath < minPath {
		maxPath = 7
	}
	if nBits <= 0 {
		nBits = 2048
	}

	data := make([]byte, (nBits+7)/8)
	visited := make([]bool, len(g.Atoms))

	var walk func(cur int, path []string, depth int)
	walk = func(cur int, path []string, depth int) {
		if depth >= minPath {
			emitPath(data, path, nBits)
		}
		if depth == maxPath {
			return
		}
		for _, nb := range g.Neighbors(cur) {
			if visited[nb] {
				continue
			}
			b := g.BondBetween(cur, nb)
			visited[nb] = true
			walk(nb, append(path, fmt.Sprintf("%d%s", b.Order, g.Atoms[nb].Element)), depth+1)
			visited[nb] = false
		}
	}

	for i := range g.Atoms {
		visited[i] = true
		walk(i, []string{g.Atoms[i].Element}, 0)
		visited[i] = false
	}

	return NewFingerprint(mtypes.FPPath, data, nBits), nil
}

func emitPath(data []byte, path []string, nBits int) {
	forward := strings.Join(path, "")
	reversed := make([]string, len(path))
	for i, p := range path {
		reversed[len(path)-1-i] = p
	}
	backward := strings.Join(reversed, "")
	if backward < forward {
		forward = backward
	}
	setBit(data, int(hashString(forward)%uint64(nBits)))
}
