package cluster

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"lsa/internal/domain"
	"lsa/internal/sparse"
)

func blobs(t *testing.T, seed int64, perBlob int) *sparse.CSR {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	centers := [][]float64{{5, 0, 0, 0}, {0, 5, 0, 0}, {0, 0, 5, 5}}
	var rows []sparse.Row
	for _, c := range centers {
		for i := 0; i < perBlob; i++ {
			r := sparse.Row{}
			for j, v := range c {
				r.Indices = append(r.Indices, j)
				r.Values = append(r.Values, v+rng.NormFloat64()*0.3)
			}
			rows = append(rows, r)
		}
	}
	m, err := sparse.FromRows(4, rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return m
}

func TestFit_InvalidClusterCount(t *testing.T) {
	x := blobs(t, 1, 2)
	for _, k := range []int{0, -1, 7} {
		_, err := New(Config{K: k, Seed: 1}).Fit(x)
		if !errors.Is(err, domain.ErrInvalidClusterCount) {
			t.Errorf("k=%d: err = %v, want ErrInvalidClusterCount", k, err)
		}
	}
}

func TestFit_RejectsBadConfig(t *testing.T) {
	x := blobs(t, 1, 2)
	if _, err := New(Config{K: 2, Tol: -1}).Fit(x); err == nil {
		t.Errorf("negative tolerance accepted")
	}
	if _, err := New(Config{K: 2, Init: "bogus"}).Fit(x); err == nil {
		t.Errorf("unknown init accepted")
	}
	empty, _ := sparse.FromRows(3, nil)
	if _, err := New(Config{K: 1}).Fit(empty); !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Errorf("empty input err = %v", err)
	}
}

func TestFit_InertiaNonIncreasing(t *testing.T) {
	for _, init := range []Init{InitKMeansPlusPlus, InitRandom} {
		for seed := int64(0); seed < 10; seed++ {
			res, err := New(Config{K: 4, Seed: seed, Init: init, Tol: 0, MaxIter: 50}).Fit(blobs(t, seed, 8))
			if err != nil {
				t.Fatalf("Fit: %v", err)
			}
			for i := 1; i < len(res.History); i++ {
				if res.History[i] > res.History[i-1]+1e-9 {
					t.Fatalf("%s seed %d: inertia rose %v -> %v at iteration %d", init, seed, res.History[i-1], res.History[i], i)
				}
			}
			if last := res.History[len(res.History)-1]; res.Inertia > last+1e-9 {
				t.Fatalf("final inertia %v above last iteration %v", res.Inertia, last)
			}
		}
	}
}

func TestFit_Deterministic(t *testing.T) {
	x := blobs(t, 3, 10)
	a, err := New(Config{K: 3, Seed: 42, Workers: 1}).Fit(x)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	b, err := New(Config{K: 3, Seed: 42, Workers: 8}).Fit(x)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !reflect.DeepEqual(a.Labels, b.Labels) {
		t.Fatalf("labels differ across runs: %v vs %v", a.Labels, b.Labels)
	}
	if a.Inertia != b.Inertia || a.Iterations != b.Iterations {
		t.Fatalf("inertia/iterations differ: %v/%d vs %v/%d", a.Inertia, a.Iterations, b.Inertia, b.Iterations)
	}
}

func TestFit_RecoversBlobs(t *testing.T) {
	x := blobs(t, 7, 10)
	km := New(Config{K: 3, Seed: 7, NInit: 3})
	res, err := km.Fit(x)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !res.Converged || km.State() != Converged || res.State != Converged {
		t.Fatalf("expected convergence, state=%v", res.State)
	}
	for blob := 0; blob < 3; blob++ {
		want := res.Labels[blob*10]
		for i := blob * 10; i < (blob+1)*10; i++ {
			if res.Labels[i] != want {
				t.Fatalf("row %d label %d, want %d", i, res.Labels[i], want)
			}
		}
	}
	sizes := res.Sizes()
	for c, s := range sizes {
		if s != 10 {
			t.Errorf("cluster %d size %d, want 10", c, s)
		}
	}
	k, d := res.Centroids.Dims()
	if k != 3 || d != 4 {
		t.Errorf("centroids dims %dx%d", k, d)
	}
}

func TestFit_MaxIterReached(t *testing.T) {
	km := New(Config{K: 3, Seed: 1, MaxIter: 1, Tol: 0})
	res, err := km.Fit(blobs(t, 1, 10))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if res.Converged || res.State != MaxIterReached || res.Iterations != 1 {
		t.Fatalf("state=%v converged=%v iterations=%d", res.State, res.Converged, res.Iterations)
	}
	if len(res.History) != 1 {
		t.Fatalf("history length %d", len(res.History))
	}
}

func TestFit_KEqualsNIsPerfect(t *testing.T) {
	x := blobs(t, 2, 2)
	n, _ := x.Dims()
	res, err := New(Config{K: n, Seed: 2}).Fit(x)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if res.Inertia > 1e-12 {
		t.Fatalf("inertia %v, want 0 when every row has its own cluster", res.Inertia)
	}
}

func TestReseedEmptyPicksFarthestRow(t *testing.T) {
	x, _ := sparse.FromRows(2, []sparse.Row{
		{Indices: []int{0}, Values: []float64{1}},
		{Indices: []int{0}, Values: []float64{9}},
		{Indices: []int{1}, Values: []float64{2}},
	})
	km := New(Config{K: 3})
	centroids := [][]float64{{1, 0}, {0, 0}, {0, 0}}
	dists := []float64{0, 64, 4}
	km.reseedEmpty(x, []int{3, 0, 0}, centroids, dists)
	if !reflect.DeepEqual(centroids[1], []float64{9, 0}) {
		t.Errorf("first empty cluster reseeded to %v, want row 1", centroids[1])
	}
	if !reflect.DeepEqual(centroids[2], []float64{0, 2}) {
		t.Errorf("second empty cluster reseeded to %v, want row 2", centroids[2])
	}
}

func TestAssignTiesGoToLowestCluster(t *testing.T) {
	x, _ := sparse.FromRows(1, []sparse.Row{{Indices: []int{0}, Values: []float64{1}}})
	km := New(Config{K: 2, Workers: 1})
	labels, dists := make([]int, 1), make([]float64, 1)
	if _, err := km.assign(x, []float64{1}, [][]float64{{0}, {2}}, labels, dists); err != nil {
		t.Fatal(err)
	}
	if labels[0] != 0 {
		t.Fatalf("tie assigned to %d, want 0", labels[0])
	}
}

func TestCentroidsAreClusterMeans(t *testing.T) {
	x := blobs(t, 5, 6)
	res, err := New(Config{K: 3, Seed: 5}).Fit(x)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !res.Converged {
		t.Skip("did not converge; means are only exact at a fixed point")
	}
	dense := x.ToDense()
	sizes := res.Sizes()
	for c := 0; c < 3; c++ {
		mean := make([]float64, 4)
		for i, l := range res.Labels {
			if l != c {
				continue
			}
			for j := range mean {
				mean[j] += dense.At(i, j) / float64(sizes[c])
			}
		}
		if !mat.EqualApprox(mat.NewVecDense(4, mean), res.Centroids.RowView(c), 1e-2) {
			t.Errorf("centroid %d = %v, mean %v", c, mat.Formatted(res.Centroids.RowView(c).T()), mean)
		}
	}
}

func TestDrawWeighted(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		r       float64
		want    int
	}{
		{"first", []float64{1, 2, 3}, 0.5, 0},
		{"middle", []float64{1, 2, 3}, 1.5, 1},
		{"skips zero weights", []float64{0, 2, 0, 1}, 2.5, 3},
		// r past the sum, as rounding can produce, must not land on a chosen row
		{"overflow avoids trailing zero", []float64{1, 1, 0}, 2.0000001, 1},
		{"overflow avoids many zeros", []float64{0, 3, 0, 0}, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := drawWeighted(tt.weights, tt.r); got != tt.want {
				t.Errorf("drawWeighted(%v, %v) = %d, want %d", tt.weights, tt.r, got, tt.want)
			}
		})
	}
}

func TestSeedPlusPlusNeverRepeatsAChosenRow(t *testing.T) {
	// two distinct rows plus duplicates of the first; with k=2 the second
	// centroid has to be the distinct row whatever the seed
	x, _ := sparse.FromRows(2, []sparse.Row{
		{Indices: []int{0}, Values: []float64{1}},
		{Indices: []int{0}, Values: []float64{1}},
		{Indices: []int{0}, Values: []float64{1}},
		{Indices: []int{1}, Values: []float64{1}},
	})
	for seed := int64(0); seed < 20; seed++ {
		km := New(Config{K: 2, Seed: seed})
		km.rng = rand.New(rand.NewSource(seed))
		norms := []float64{1, 1, 1, 1}
		cs := km.seedPlusPlus(x, norms, 2)
		if squaredDistance(cs[0], cs[1]) == 0 {
			t.Fatalf("seed %d: duplicate centroids %v", seed, cs)
		}
	}
}

func TestSquaredDistance(t *testing.T) {
	if got := squaredDistance([]float64{1, 2, 3}, []float64{4, 6, 3}); got < 25-1e-12 || got > 25+1e-12 {
		t.Errorf("squaredDistance = %v, want 25", got)
	}
}
