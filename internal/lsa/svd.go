// Package lsa computes truncated singular value decompositions of sparse
// document-term matrices for latent semantic analysis.
//
// The decomposition uses Golub-Kahan-Lanczos bidiagonalisation with full
// reorthogonalisation. Only products A·x and Aᵀ·x touch the sparse matrix;
// the small bidiagonal factor is handed to gonum's dense SVD. The Krylov
// basis grows until the residual of every requested Ritz triplet is below
// Tol·σ₁, or until it spans min(rows, cols) where the result is exact.
package lsa

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"lsa/internal/domain"
	"lsa/internal/sparse"
)

// DefaultTol is the residual tolerance used when Config.Tol is zero.
const DefaultTol = 1e-8

// Config controls the truncated SVD.
type Config struct {
	Rank int
	// NCV is the number of Lanczos steps taken before the first convergence
	// check. Zero picks max(2*Rank+1, Rank+20), clamped to min(rows, cols).
	NCV int
	// MaxNCV bounds the Krylov basis. Zero means min(rows, cols).
	MaxNCV int
	// Tol is the accepted Ritz residual relative to the largest singular
	// value. Zero means DefaultTol.
	Tol  float64
	Seed int64
}

// Reducer computes rank-r approximations of sparse matrices.
type Reducer struct {
	cfg Config
}

// New creates a reducer.
func New(cfg Config) *Reducer { return &Reducer{cfg: cfg} }

// Fit decomposes a into U (rows×r), Sigma (r, descending) and VT (r×cols).
func (r *Reducer) Fit(a *sparse.CSR) (*Decomposition, error) {
	m, n := a.Dims()
	if m == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	rank := r.cfg.Rank
	minDim := min(m, n)
	if rank <= 0 {
		return nil, fmt.Errorf("rank must be positive, got %d", rank)
	}
	if rank >= minDim {
		return nil, fmt.Errorf("%w: rank %d must be below min(%d, %d)", domain.ErrRankTooLarge, rank, m, n)
	}
	if r.cfg.Tol < 0 {
		return nil, fmt.Errorf("tolerance must be non-negative, got %v", r.cfg.Tol)
	}
	tol := r.cfg.Tol
	if tol == 0 {
		tol = DefaultTol
	}
	maxP := r.cfg.MaxNCV
	if maxP <= 0 || maxP > minDim {
		maxP = minDim
	}
	maxP = max(maxP, rank)
	p := r.cfg.NCV
	if p <= 0 {
		p = max(2*rank+1, rank+20)
	}
	p = min(max(p, rank), maxP)
	grow := max(rank, 10)

	lz, err := newLanczos(a, rand.New(rand.NewSource(r.cfg.Seed)))
	if err != nil {
		return nil, err
	}
	for {
		if err := lz.extend(p); err != nil {
			return nil, err
		}
		d, ok, err := lz.ritz(rank, tol, p == minDim)
		if err != nil {
			return nil, err
		}
		if ok {
			return d, nil
		}
		if p >= maxP {
			return nil, fmt.Errorf("%w: rank %d after %d Lanczos steps", domain.ErrNotConverged, rank, p)
		}
		p = min(p+grow, maxP)
	}
}

// lanczos holds a growing Golub-Kahan factorisation
//
//	A·V[:, :p] = U·B[:, :p]    Aᵀ·U = V·Bᵀ
//
// with U m×p, V n×q (q is p or p+1) and B p×q upper bidiagonal.
type lanczos struct {
	a   *sparse.CSR
	rng *rand.Rand
	// breakdown threshold for alpha and beta
	eps float64

	us, vs      [][]float64
	alpha, beta []float64
	// restarted[j] marks beta[j] as a breakdown replaced by a random vector
	restarted []bool
}

func newLanczos(a *sparse.CSR, rng *rand.Rand) (*lanczos, error) {
	_, n := a.Dims()
	v0, err := randomOrthogonal(n, nil, rng)
	if err != nil {
		return nil, err
	}
	return &lanczos{
		a:   a,
		rng: rng,
		eps: 1e-12 * math.Max(a.FrobeniusNorm(), 1),
		vs:  [][]float64{v0},
	}, nil
}

// extend runs Lanczos steps until p left vectors exist.
func (l *lanczos) extend(p int) error {
	m, n := l.a.Dims()
	for j := len(l.us); j < p; j++ {
		u := make([]float64, m)
		l.a.MulVec(u, l.vs[j])
		if j > 0 {
			floats.AddScaled(u, -l.beta[j-1], l.us[j-1])
		}
		reorthogonalize(u, l.us)
		al := floats.Norm(u, 2)
		if al <= l.eps {
			var err error
			if u, err = randomOrthogonal(m, l.us, l.rng); err != nil {
				return err
			}
			al = 0
		} else {
			floats.Scale(1/al, u)
		}
		l.us = append(l.us, u)
		l.alpha = append(l.alpha, al)

		if len(l.vs) == n {
			// the right basis is complete; no residual direction remains
			l.beta = append(l.beta, 0)
			l.restarted = append(l.restarted, false)
			continue
		}
		w := make([]float64, n)
		l.a.MulTransVec(w, u)
		floats.AddScaled(w, -al, l.vs[j])
		reorthogonalize(w, l.vs)
		be := floats.Norm(w, 2)
		restarted := false
		if be <= l.eps {
			var err error
			if w, err = randomOrthogonal(n, l.vs, l.rng); err != nil {
				return err
			}
			be = 0
			restarted = true
		} else {
			floats.Scale(1/be, w)
		}
		l.vs = append(l.vs, w)
		l.beta = append(l.beta, be)
		l.restarted = append(l.restarted, restarted)
	}
	return nil
}

// ritz factorises the current bidiagonal and reports whether the leading
// rank triplets have converged. When exact is set the basis spans
// min(rows, cols) and the trailing column of B is kept, which makes the
// triplets exact.
func (l *lanczos) ritz(rank int, tol float64, exact bool) (*Decomposition, bool, error) {
	p := len(l.us)
	q := p
	if exact {
		q = len(l.vs)
	} else if l.restarted[p-1] {
		// the Krylov space just closed on an invariant subspace that may
		// miss leading directions; keep growing
		return nil, false, nil
	}
	b := mat.NewDense(p, q, nil)
	for j := 0; j < p; j++ {
		b.Set(j, j, l.alpha[j])
		if j+1 < q {
			b.Set(j, j+1, l.beta[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(b, mat.SVDThin); !ok {
		return nil, false, errors.New("lsa: bidiagonal SVD did not converge")
	}
	values := svd.Values(nil)
	var pl, ql mat.Dense
	svd.UTo(&pl)
	svd.VTo(&ql)

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return values[order[i]] > values[order[j]] })
	order = order[:rank]

	if !exact {
		// ‖Aᵀu - σv‖ = |β_p · P[p-1, i]| for the Ritz triplet (σ, u, v)
		limit := tol * values[order[0]]
		for _, src := range order {
			if math.Abs(l.beta[p-1]*pl.At(p-1, src)) > limit {
				return nil, false, nil
			}
		}
	}

	m, n := l.a.Dims()
	pk := mat.NewDense(p, rank, nil)
	qk := mat.NewDense(q, rank, nil)
	sigma := make([]float64, rank)
	for c, src := range order {
		sigma[c] = values[src]
		pk.SetCol(c, mat.Col(nil, src, &pl))
		qk.SetCol(c, mat.Col(nil, src, &ql))
	}

	u := mat.NewDense(m, rank, nil)
	u.Mul(columns(m, l.us[:p]), pk)
	var v mat.Dense
	v.Mul(columns(n, l.vs[:q]), qk)
	vt := mat.DenseCopyOf(v.T())

	flipSigns(u, vt)
	return &Decomposition{U: u, Sigma: sigma, VT: vt}, true, nil
}

// columns stacks vectors of length rows as the columns of a dense matrix.
func columns(rows int, vecs [][]float64) *mat.Dense {
	d := mat.NewDense(rows, len(vecs), nil)
	for j, v := range vecs {
		d.SetCol(j, v)
	}
	return d
}

// reorthogonalize removes the components of x along basis, twice for
// numerical stability.
func reorthogonalize(x []float64, basis [][]float64) {
	for pass := 0; pass < 2; pass++ {
		for _, q := range basis {
			floats.AddScaled(x, -floats.Dot(x, q), q)
		}
	}
}

func randomOrthogonal(dim int, basis [][]float64, rng *rand.Rand) ([]float64, error) {
	if len(basis) >= dim {
		return nil, errors.New("lsa: Krylov basis exhausted")
	}
	x := make([]float64, dim)
	for attempt := 0; attempt < 10; attempt++ {
		for i := range x {
			x[i] = rng.NormFloat64()
		}
		reorthogonalize(x, basis)
		if nrm := floats.Norm(x, 2); nrm > 1e-8 {
			floats.Scale(1/nrm, x)
			return x, nil
		}
	}
	return nil, errors.New("lsa: could not draw an orthogonal start vector")
}

// flipSigns makes the largest-magnitude entry of every U column positive,
// negating the matching VT row so U·Σ·VT is unchanged.
func flipSigns(u, vt *mat.Dense) {
	rows, cols := u.Dims()
	_, n := vt.Dims()
	for c := 0; c < cols; c++ {
		best := 0.0
		for i := 0; i < rows; i++ {
			if x := u.At(i, c); math.Abs(x) > math.Abs(best) {
				best = x
			}
		}
		if best >= 0 {
			continue
		}
		for i := 0; i < rows; i++ {
			u.Set(i, c, -u.At(i, c))
		}
		for j := 0; j < n; j++ {
			vt.Set(c, j, -vt.At(c, j))
		}
	}
}
