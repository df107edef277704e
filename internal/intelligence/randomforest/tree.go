// Package randomforest implements a bootstrap-aggregated ensemble of CART
// decision trees for binary classification over descriptor vectors.
package randomforest

import (
	"math"
	"math/rand"
	"sort"
)

// node is one tree node.  Leaves carry the class histogram; internal nodes
// carry the split.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	leaf   bool
	counts [2]int
}

// tree is a single CART classifier grown on a bootstrap sample.
type tree struct {
	root *node
}

// treeParams controls tree growth.
type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	featuresPer    int
}

// growTree builds a tree on the rows indexed by idx.
func growTree(x [][]float64, y []int, idx []int, p treeParams, rng *rand.Rand) *tree {
	return &tree{root: grow(x, y, idx, p, rng, 0)}
}

func grow(x [][]float64, y []int, idx []int, p treeParams, rng *rand.Rand, depth int) *node {
	n := &node{}
	for _, i := range idx {
		n.counts[y[i]]++
	}

	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf || n.counts[0] == 0 || n.counts[1] == 0 {
		n.leaf = true
		return n
	}

	feature, threshold, ok := bestSplit(x, y, idx, p, rng)
	if !ok {
		n.leaf = true
		return n
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < p.minSamplesLeaf || len(rightIdx) < p.minSamplesLeaf {
		n.leaf = true
		return n
	}

	n.feature = feature
	n.threshold = threshold
	n.left = grow(x, y, leftIdx, p, rng, depth+1)
	n.right = grow(x, y, rightIdx, p, rng, depth+1)
	return n
}

// bestSplit scans a random feature subset for the threshold minimising the
// weighted Gini impurity of the children.
func bestSplit(x [][]float64, y []int, idx []int, p treeParams, rng *rand.Rand) (int, float64, bool) {
	width := len(x[idx[0]])
	features := rng.Perm(width)
	if p.featuresPer < width {
		features = features[:p.featuresPer]
	}

	bestGini := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	vals := make([]float64, 0, len(idx))
	for _, f := range features {
		vals = vals[:0]
		for _, i := range idx {
			vals = append(vals, x[i][f])
		}
		sort.Float64s(vals)

		for v := 1; v < len(vals); v++ {
			if vals[v] == vals[v-1] {
				continue
			}
			threshold := (vals[v] + vals[v-1]) / 2

			var left, right [2]int
			for _, i := range idx {
				if x[i][f] <= threshold {
					left[y[i]]++
				} else {
					right[y[i]]++
				}
			}
			g := weightedGini(left, right)
			if g < bestGini {
				bestGini = g
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(counts [2]int) float64 {
	total := counts[0] + counts[1]
	if total == 0 {
		return 0
	}
	p0 := float64(counts[0]) / float64(total)
	p1 := float64(counts[1]) / float64(total)
	return 1 - p0*p0 - p1*p1
}

func weightedGini(left, right [2]int) float64 {
	nl := float64(left[0] + left[1])
	nr := float64(right[0] + right[1])
	return (nl*gini(left) + nr*gini(right)) / (nl + nr)
}

// predictProba returns the leaf's positive-class fraction for one vector.
func (t *tree) predictProba(x []float64) float64 {
	n := t.root
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	total := n.counts[0] + n.counts[1]
	if total == 0 {
		return 0.5
	}
	return float64(n.counts[0]) / float64(total)
}
