// Package rbfsvm implements a support vector machine with a radial basis
// function kernel, trained by sequential minimal optimisation, plus the
// cross-validated grid search used to pick its hyperparameters.
package rbfsvm

import "math"

// rbfKernel evaluates exp(-gamma * ||a-b||^2).
func rbfKernel(a, b []float64, gamma float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Exp(-gamma * sum)
}

// kernelMatrix precomputes the symmetric Gram matrix for the training rows.
func kernelMatrix(x [][]float64, gamma float64) [][]float64 {
	n := len(x)
	k := make([][]float64, n)
	for i := range k {
		k[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		k[i][i] = 1
		for j := i + 1; j < n; j++ {
			v := rbfKernel(x[i], x[j], gamma)
			k[i][j] = v
			k[j][i] = v
		}
	}
	return k
}
