// Package cluster implements Lloyd's k-means over sparse document rows.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"lsa/internal/domain"
	"lsa/internal/sparse"
)

// Init selects the centroid seeding strategy.
type Init string

const (
	InitKMeansPlusPlus Init = "k-means++"
	InitRandom         Init = "random"
)

// State is the lifecycle position of a KMeans run.
type State int

const (
	Uninitialized State = iota
	Initialized
	Iterating
	Converged
	MaxIterReached
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max-iter-reached"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config controls a k-means run.
type Config struct {
	K       int
	MaxIter int
	// Tol is compared against the summed squared centroid shift of an iteration.
	Tol  float64
	Init Init
	Seed int64
	// NInit is the number of seeded restarts; the lowest inertia wins.
	NInit int
	// Workers bounds the goroutines used by the assignment step.
	Workers int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{MaxIter: 300, Tol: 1e-4, Init: InitKMeansPlusPlus, NInit: 1}
}

// Result is the outcome of a k-means run.
type Result struct {
	Labels []int
	// Centroids is K x features.
	Centroids  *mat.Dense
	Inertia    float64
	Iterations int
	Converged  bool
	// History holds the inertia measured after each assignment step.
	History []float64
	State   State
}

// Sizes returns the number of rows assigned to each cluster.
func (r *Result) Sizes() []int {
	k, _ := r.Centroids.Dims()
	sizes := make([]int, k)
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// KMeans clusters rows of a sparse matrix.
type KMeans struct {
	cfg   Config
	state State
	rng   *rand.Rand
}

// New creates a clusterer. Unset MaxIter, Init, NInit and Workers fall back
// to defaults; Tol is used as given.
func New(cfg Config) *KMeans {
	def := DefaultConfig()
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.Init == "" {
		cfg.Init = def.Init
	}
	if cfg.NInit <= 0 {
		cfg.NInit = def.NInit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &KMeans{cfg: cfg, state: Uninitialized}
}

// State returns the state reached by the most recent run.
func (km *KMeans) State() State { return km.state }

// Fit clusters the rows of x.
func (km *KMeans) Fit(x *sparse.CSR) (*Result, error) {
	n, d := x.Dims()
	if n == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if d == 0 {
		return nil, domain.ErrEmptyVocabulary
	}
	if km.cfg.K <= 0 || km.cfg.K > n {
		return nil, fmt.Errorf("%w: k=%d with %d rows", domain.ErrInvalidClusterCount, km.cfg.K, n)
	}
	if km.cfg.Tol < 0 {
		return nil, fmt.Errorf("tolerance must be non-negative, got %v", km.cfg.Tol)
	}
	if km.cfg.Init != InitKMeansPlusPlus && km.cfg.Init != InitRandom {
		return nil, fmt.Errorf("unknown init strategy %q", km.cfg.Init)
	}
	km.rng = rand.New(rand.NewSource(km.cfg.Seed))

	norms := make([]float64, n)
	for i := range norms {
		norms[i] = x.RowSquaredNorm(i)
	}
	var best *Result
	for run := 0; run < km.cfg.NInit; run++ {
		res, err := km.run(x, norms, d)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	km.state = best.State
	return best, nil
}

func (km *KMeans) run(x *sparse.CSR, norms []float64, d int) (*Result, error) {
	n := len(norms)
	k := km.cfg.K
	km.state = Uninitialized

	var centroids [][]float64
	if km.cfg.Init == InitRandom {
		centroids = km.seedRandom(x, d)
	} else {
		centroids = km.seedPlusPlus(x, norms, d)
	}
	km.state = Initialized

	labels := make([]int, n)
	dists := make([]float64, n)
	var history []float64
	iterations := 0
	km.state = Iterating
	for iterations < km.cfg.MaxIter {
		iterations++
		inertia, err := km.assign(x, norms, centroids, labels, dists)
		if err != nil {
			return nil, err
		}
		history = append(history, inertia)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, d)
		}
		for i := 0; i < n; i++ {
			counts[labels[i]]++
			x.AddRowTo(next[labels[i]], i, 1)
		}
		for c := range next {
			if counts[c] == 0 {
				continue
			}
			inv := 1 / float64(counts[c])
			for j := range next[c] {
				next[c][j] *= inv
			}
		}
		km.reseedEmpty(x, counts, next, dists)

		shift := 0.0
		for c := range next {
			shift += squaredDistance(centroids[c], next[c])
		}
		centroids = next
		if shift <= km.cfg.Tol {
			km.state = Converged
			break
		}
	}
	if km.state != Converged {
		km.state = MaxIterReached
	}

	// Final labels must agree with the returned centroids.
	inertia, err := km.assign(x, norms, centroids, labels, dists)
	if err != nil {
		return nil, err
	}
	data := make([]float64, 0, k*d)
	for _, c := range centroids {
		data = append(data, c...)
	}
	return &Result{
		Labels:     labels,
		Centroids:  mat.NewDense(k, d, data),
		Inertia:    inertia,
		Iterations: iterations,
		Converged:  km.state == Converged,
		History:    history,
		State:      km.state,
	}, nil
}

// assign writes the nearest centroid of every row into labels and the
// squared distance into dists, returning the inertia. Ties go to the lowest
// centroid id.
func (km *KMeans) assign(x *sparse.CSR, norms []float64, centroids [][]float64, labels []int, dists []float64) (float64, error) {
	cnorms := make([]float64, len(centroids))
	for c, v := range centroids {
		cnorms[c] = floats.Dot(v, v)
	}
	n := len(norms)
	chunk := (n + km.cfg.Workers - 1) / km.cfg.Workers
	var g errgroup.Group
	g.SetLimit(km.cfg.Workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				bestC, bestD := 0, math.Inf(1)
				for c, v := range centroids {
					dd := norms[i] - 2*x.RowDot(i, v) + cnorms[c]
					if dd < 0 {
						dd = 0
					}
					if dd < bestD {
						bestC, bestD = c, dd
					}
				}
				labels[i], dists[i] = bestC, bestD
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	inertia := 0.0
	for _, v := range dists {
		inertia += v
	}
	return inertia, nil
}

// reseedEmpty moves the centroid of every empty cluster onto the row that is
// farthest from its nearest current centroid. A chosen row's distance drops
// to zero so it is not picked twice.
func (km *KMeans) reseedEmpty(x *sparse.CSR, counts []int, centroids [][]float64, dists []float64) {
	for c, cnt := range counts {
		if cnt > 0 {
			continue
		}
		far := 0
		for i, v := range dists {
			if v > dists[far] {
				far = i
			}
		}
		for j := range centroids[c] {
			centroids[c][j] = 0
		}
		x.AddRowTo(centroids[c], far, 1)
		dists[far] = 0
	}
}

func (km *KMeans) seedRandom(x *sparse.CSR, d int) [][]float64 {
	n, _ := x.Dims()
	perm := km.rng.Perm(n)
	centroids := make([][]float64, km.cfg.K)
	for c := range centroids {
		centroids[c] = make([]float64, d)
		x.AddRowTo(centroids[c], perm[c], 1)
	}
	return centroids
}

// seedPlusPlus picks the first centroid uniformly and each further one with
// probability proportional to the squared distance to the nearest chosen
// centroid.
func (km *KMeans) seedPlusPlus(x *sparse.CSR, norms []float64, d int) [][]float64 {
	n := len(norms)
	centroids := make([][]float64, 0, km.cfg.K)
	first := make([]float64, d)
	x.AddRowTo(first, km.rng.Intn(n), 1)
	centroids = append(centroids, first)

	closest := make([]float64, n)
	for i := range closest {
		closest[i] = math.Inf(1)
	}
	for len(centroids) < km.cfg.K {
		last := centroids[len(centroids)-1]
		lastNorm := floats.Dot(last, last)
		total := 0.0
		for i := 0; i < n; i++ {
			dd := norms[i] - 2*x.RowDot(i, last) + lastNorm
			if dd < 0 {
				dd = 0
			}
			if dd < closest[i] {
				closest[i] = dd
			}
			total += closest[i]
		}
		var pick int
		if total > 0 {
			pick = drawWeighted(closest, km.rng.Float64()*total)
		} else {
			pick = km.rng.Intn(n)
		}
		next := make([]float64, d)
		x.AddRowTo(next, pick, 1)
		centroids = append(centroids, next)
	}
	return centroids
}

// drawWeighted returns the first index whose cumulative weight exceeds r.
// If rounding leaves r at or past the final sum, the last positive weight
// wins so an already chosen row (weight 0) is never returned.
func drawWeighted(weights []float64, r float64) int {
	acc := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i
		}
	}
	return last
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
