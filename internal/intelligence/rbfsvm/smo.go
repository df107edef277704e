package rbfsvm

import (
	"math"
	"math/rand"
)

// smoParams configures the sequential minimal optimisation solver.
type smoParams struct {
	c         float64
	tol       float64
	maxPasses int
	seed      int64
}

// smoResult is the trained dual solution.
type smoResult struct {
	alphas []float64
	b      float64
}

// solveSMO runs simplified sequential minimal optimisation over the
// precomputed Gram matrix.  Labels must be +1 or -1.  The loop stops after
// maxPasses consecutive sweeps without an alpha update.
func solveSMO(k [][]float64, y []float64, p smoParams) smoResult {
	n := len(y)
	alphas := make([]float64, n)
	b := 0.0
	rng := rand.New(rand.NewSource(p.seed))

	f := func(i int) float64 {
		sum := b
		for j := 0; j < n; j++ {
			if alphas[j] != 0 {
				sum += alphas[j] * y[j] * k[i][j]
			}
		}
		return sum
	}

	passes := 0
	for passes < p.maxPasses {
		changed := 0
		for i := 0; i < n; i++ {
			ei := f(i) - y[i]
			if !((y[i]*ei < -p.tol && alphas[i] < p.c) || (y[i]*ei > p.tol && alphas[i] > 0)) {
				continue
			}

			j := rng.Intn(n - 1)
			if j >= i {
				j++
			}
			ej := f(j) - y[j]

			ai, aj := alphas[i], alphas[j]
			var lo, hi float64
			if y[i] != y[j] {
				lo = math.Max(0, aj-ai)
				hi = math.Min(p.c, p.c+aj-ai)
			} else {
				lo = math.Max(0, ai+aj-p.c)
				hi = math.Min(p.c, ai+aj)
			}
			if lo == hi {
				continue
			}

			eta := 2*k[i][j] - k[i][i] - k[j][j]
			if eta >= 0 {
				continue
			}

			alphas[j] = aj - y[j]*(ei-ej)/eta
			alphas[j] = math.Min(hi, math.Max(lo, alphas[j]))
			if math.Abs(alphas[j]-aj) < 1e-5 {
				continue
			}
			alphas[i] = ai + y[i]*y[j]*(aj-alphas[j])

			b1 := b - ei - y[i]*(alphas[i]-ai)*k[i][i] - y[j]*(alphas[j]-aj)*k[i][j]
			b2 := b - ej - y[i]*(alphas[i]-ai)*k[i][j] - y[j]*(alphas[j]-aj)*k[j][j]
			switch {
			case alphas[i] > 0 && alphas[i] < p.c:
				b = b1
			case alphas[j] > 0 && alphas[j] < p.c:
				b = b2
			default:
				b = (b1 + b2) / 2
			}
			changed++
		}

		if changed == 0 {
			passes++
		} else {
			passes = 0
		}
	}

	return smoResult{alphas: alphas, b: b}
}
