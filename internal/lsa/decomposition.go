package lsa

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"lsa/internal/domain"
	"lsa/internal/sparse"
)

// Decomposition is a truncated singular triple A ≈ U·diag(Sigma)·VT.
type Decomposition struct {
	U     *mat.Dense
	Sigma []float64
	VT    *mat.Dense
}

// Rank returns the number of retained components.
func (d *Decomposition) Rank() int { return len(d.Sigma) }

// Embedding returns U·diag(Sigma), one low-dimensional row per document.
func (d *Decomposition) Embedding() *mat.Dense {
	e := mat.DenseCopyOf(d.U)
	rows, _ := e.Dims()
	for c, s := range d.Sigma {
		for i := 0; i < rows; i++ {
			e.Set(i, c, e.At(i, c)*s)
		}
	}
	return e
}

// Transform folds new rows into the latent space as X·V. For the fitted
// matrix this equals Embedding.
func (d *Decomposition) Transform(x *sparse.CSR) *mat.Dense {
	return x.MulDense(d.VT.T())
}

// InverseTransform maps latent rows back into term space as Z·VT.
func (d *Decomposition) InverseTransform(z mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(z, d.VT)
	return &out
}

// Reconstruct returns the rank-r approximation U·diag(Sigma)·VT.
func (d *Decomposition) Reconstruct() *mat.Dense {
	return d.InverseTransform(d.Embedding())
}

// TopTerms returns the n terms with the largest absolute loading on a
// component, strongest first.
func (d *Decomposition) TopTerms(component, n int, terms []string) []domain.TermWeight {
	row := mat.Row(nil, component, d.VT)
	return rankTerms(row, n, terms, math.Abs)
}

// ExplainedVarianceRatio returns, per component, the variance of the
// embedding column divided by the total column variance of a.
func (d *Decomposition) ExplainedVarianceRatio(a *sparse.CSR) []float64 {
	m, n := a.Dims()
	if m == 0 {
		return make([]float64, d.Rank())
	}
	ones := make([]float64, m)
	for i := range ones {
		ones[i] = 1
	}
	colSums := make([]float64, n)
	a.MulTransVec(colSums, ones)
	fm := float64(m)
	total := a.FrobeniusNorm() * a.FrobeniusNorm() / fm
	for _, s := range colSums {
		total -= (s / fm) * (s / fm)
	}
	out := make([]float64, d.Rank())
	if total <= 0 {
		return out
	}
	emb := d.Embedding()
	for c := range out {
		out[c] = stat.PopVariance(mat.Col(nil, c, emb), nil) / total
	}
	return out
}

// RankTerms orders weights by score(weight) descending, ties by term, and
// returns the first n.
func RankTerms(weights []float64, n int, terms []string) []domain.TermWeight {
	return rankTerms(weights, n, terms, func(x float64) float64 { return x })
}

func rankTerms(weights []float64, n int, terms []string, score func(float64) float64) []domain.TermWeight {
	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		si, sj := score(weights[idx[i]]), score(weights[idx[j]])
		if si != sj {
			return si > sj
		}
		return terms[idx[i]] < terms[idx[j]]
	})
	if n > len(idx) || n <= 0 {
		n = len(idx)
	}
	out := make([]domain.TermWeight, n)
	for k := 0; k < n; k++ {
		out[k] = domain.TermWeight{Term: terms[idx[k]], Weight: weights[idx[k]]}
	}
	return out
}
