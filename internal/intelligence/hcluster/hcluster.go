// Package hcluster implements average-linkage agglomerative clustering over
// a pairwise distance matrix, with Newick serialisation of the resulting
// dendrogram.
package hcluster

import (
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// Node is one dendrogram node.  Leaves carry a label; internal nodes carry
// the merge height and two children.
type Node struct {
	Label  string  `json:"label,omitempty"`
	Height float64 `json:"height"`
	Left   *Node   `json:"left,omitempty"`
	Right  *Node   `json:"right,omitempty"`

	size int
}

// IsLeaf reports whether the node is an input observation.
func (n *Node) IsLeaf() bool { return n.Left == nil && n.Right == nil }

// Size returns the number of leaves under the node.
func (n *Node) Size() int {
	if n.IsLeaf() {
		return 1
	}
	return n.size
}

// Cluster runs average-linkage agglomerative clustering.  The matrix must be
// square and symmetric, with distances in [0, inf); labels name the rows.
// The returned root's Height is the final merge distance.
func Cluster(labels []string, dist [][]float64) (*Node, error) {
	n := len(labels)
	if n == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParam, "no observations to cluster")
	}
	if len(dist) != n {
		return nil, errors.Newf(errors.ErrCodeInvalidParam,
			"distance matrix has %d rows for %d labels", len(dist), n)
	}
	for i, row := range dist {
		if len(row) != n {
			return nil, errors.Newf(errors.ErrCodeInvalidParam,
				"distance matrix row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	if n == 1 {
		return &Node{Label: labels[0]}, nil
	}

	// active clusters and the working distance matrix; merged entries are
	// tombstoned with nil.
	clusters := make([]*Node, n)
	for i := range clusters {
		clusters[i] = &Node{Label: labels[i]}
	}
	d := make([][]float64, n)
	for i := range d {
		d[i] = append([]float64(nil), dist[i]...)
	}

	for remaining := n; remaining > 1; remaining-- {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < len(clusters); i++ {
			if clusters[i] == nil {
				continue
			}
			for j := i + 1; j < len(clusters); j++ {
				if clusters[j] == nil {
					continue
				}
				if d[i][j] < best {
					best = d[i][j]
					bi, bj = i, j
				}
			}
		}

		merged := &Node{
			Height: best,
			Left:   clusters[bi],
			Right:  clusters[bj],
			size:   clusters[bi].Size() + clusters[bj].Size(),
		}

		// Average linkage: the new cluster's distance to every survivor is
		// the size-weighted mean of the two merged clusters' distances.
		ni := float64(clusters[bi].Size())
		nj := float64(clusters[bj].Size())
		for k := 0; k < len(clusters); k++ {
			if clusters[k] == nil || k == bi || k == bj {
				continue
			}
			avg := (ni*d[bi][k] + nj*d[bj][k]) / (ni + nj)
			d[bi][k] = avg
			d[k][bi] = avg
		}
		clusters[bi] = merged
		clusters[bj] = nil
	}

	for _, c := range clusters {
		if c != nil {
			return c, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInternal, "clustering left no root")
}

// Newick serialises the dendrogram in Newick format with branch lengths.
// A child's branch length is its parent's height minus its own.
func Newick(root *Node) string {
	var b strings.Builder
	writeNewick(&b, root, root.Height)
	b.WriteByte(';')
	return b.String()
}

func writeNewick(b *strings.Builder, n *Node, parentHeight float64) {
	if n.IsLeaf() {
		b.WriteString(escapeNewickLabel(n.Label))
		fmt.Fprintf(b, ":%.6g", parentHeight)
		return
	}
	b.WriteByte('(')
	writeNewick(b, n.Left, n.Height-n.Left.Height)
	b.WriteByte(',')
	writeNewick(b, n.Right, n.Height-n.Right.Height)
	b.WriteByte(')')
	if parentHeight != n.Height {
		fmt.Fprintf(b, ":%.6g", parentHeight-n.Height)
	}
}

// escapeNewickLabel quotes labels containing Newick metacharacters.
func escapeNewickLabel(label string) string {
	if label == "" {
		return "_"
	}
	if strings.ContainsAny(label, "(),:; \t'") {
		return "'" + strings.ReplaceAll(label, "'", "''") + "'"
	}
	return label
}

// Cut returns the cluster memberships obtained by cutting the dendrogram at
// the given height: every maximal subtree merged at or below the height
// becomes one cluster of leaf labels.
func Cut(root *Node, height float64) [][]string {
	var out [][]string
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() || n.Height <= height {
			out = append(out, leaves(n))
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(root)
	return out
}

func leaves(n *Node) []string {
	if n.IsLeaf() {
		return []string{n.Label}
	}
	return append(leaves(n.Left), leaves(n.Right)...)
}
