package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"lsa/internal/domain"
	"lsa/internal/lsa"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		assign []int
		k      int
		want   Metrics
	}{
		{
			name:   "perfect",
			labels: []string{"a", "a", "b", "b"},
			assign: []int{1, 1, 0, 0},
			k:      2,
			want:   Metrics{Homogeneity: 1, Completeness: 1, VMeasure: 1, AdjustedRand: 1},
		},
		{
			name:   "single cluster",
			labels: []string{"a", "a", "b", "b"},
			assign: []int{0, 0, 0, 0},
			k:      1,
			want:   Metrics{Homogeneity: 0, Completeness: 1, VMeasure: 0, AdjustedRand: 0},
		},
		{
			name:   "independent",
			labels: []string{"a", "a", "b", "b"},
			assign: []int{0, 1, 0, 1},
			k:      2,
			want:   Metrics{Homogeneity: 0, Completeness: 0, VMeasure: 0, AdjustedRand: -0.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContingency([]string{"a", "b"}, tt.labels, tt.assign, tt.k)
			if err != nil {
				t.Fatalf("NewContingency: %v", err)
			}
			got := Score(c)
			if !approx(got.Homogeneity, tt.want.Homogeneity) || !approx(got.Completeness, tt.want.Completeness) ||
				!approx(got.VMeasure, tt.want.VMeasure) || !approx(got.AdjustedRand, tt.want.AdjustedRand) {
				t.Errorf("Score = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewContingency(t *testing.T) {
	c, err := NewContingency([]string{"a", "b"}, []string{"a", "b", "b", "z"}, []int{0, 1, 1, 0}, 2)
	if err != nil {
		t.Fatalf("NewContingency: %v", err)
	}
	if c.Counts[0][0] != 1 || c.Counts[1][1] != 2 || c.Total() != 3 {
		t.Fatalf("counts = %v", c.Counts)
	}
	if _, err := NewContingency([]string{"a"}, []string{"a"}, []int{5}, 2); err == nil {
		t.Errorf("out of range assignment accepted")
	}
	if _, err := NewContingency([]string{"a"}, []string{"a", "a"}, []int{0}, 1); err == nil {
		t.Errorf("length mismatch accepted")
	}
}

func TestClusterTopTerms(t *testing.T) {
	centroids := mat.NewDense(2, 3, []float64{
		0.1, 0.9, 0.0,
		0.5, 0.0, 0.5,
	})
	got := ClusterTopTerms(centroids, []string{"god", "orbit", "shuttle"}, 2)
	if got[0][0].Term != "orbit" {
		t.Errorf("cluster 0 top = %+v", got[0])
	}
	// equal weights break ties lexicographically
	if got[1][0].Term != "god" || got[1][1].Term != "shuttle" {
		t.Errorf("cluster 1 top = %+v", got[1])
	}
}

func TestComponentsDecay(t *testing.T) {
	d := &lsa.Decomposition{
		U:     mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		Sigma: []float64{4, 1},
		VT:    mat.NewDense(2, 2, []float64{1, 0, 0, -1}),
	}
	comps := Components(d, []float64{0.8, 0.2}, []string{"x", "y"}, 1)
	if len(comps) != 2 || comps[1].Decay != 0.25 || comps[0].ExplainedVariance != 0.8 {
		t.Fatalf("components = %+v", comps)
	}
	if comps[1].TopTerms[0].Term != "y" {
		t.Errorf("component 1 top term = %+v", comps[1].TopTerms)
	}
}

func TestRender(t *testing.T) {
	c, _ := NewContingency([]string{"sci.space"}, []string{"sci.space"}, []int{0}, 1)
	r := &Report{
		RunID:     "run-1",
		Documents: 1,
		Terms:     2,
		Space:     "tfidf",
		State:     "converged",
		Clusters: []Cluster{{ID: 0, Size: 1, Summary: "The shuttle reached orbit.",
			TopTerms: []domain.TermWeight{{Term: "orbit", Weight: 1}}}},
		Components:  []Component{{Index: 0, SingularValue: 1, Decay: 1, TopTerms: []domain.TermWeight{{Term: "shuttle"}}}},
		Contingency: c,
		Metrics:     &Metrics{Homogeneity: 1},
	}
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"run-1", "orbit", "shuttle", "sci.space", "v-measure", "reached orbit"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
