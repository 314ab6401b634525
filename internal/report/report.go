// Package report summarises a clustering and LSA run for humans.
package report

import (
	"gonum.org/v1/gonum/mat"

	"lsa/internal/domain"
	"lsa/internal/lsa"
)

// Cluster describes one k-means cluster.
type Cluster struct {
	ID       int
	Size     int
	TopTerms []domain.TermWeight
	Summary  string
}

// Component describes one latent dimension.
type Component struct {
	Index         int
	SingularValue float64
	// Decay is SingularValue divided by the leading singular value.
	Decay             float64
	ExplainedVariance float64
	TopTerms          []domain.TermWeight
}

// Report is everything printed after an analysis run.
type Report struct {
	RunID      string
	Documents  int
	Terms      int
	Space      string
	State      string
	Iterations int
	Inertia    float64
	Clusters   []Cluster
	Components []Component
	// Contingency and Metrics are nil for unlabelled corpora.
	Contingency *Contingency
	Metrics     *Metrics
}

// ClusterTopTerms ranks the term weights of every centroid row. Centroids
// must live in term space.
func ClusterTopTerms(centroids mat.Matrix, terms []string, n int) [][]domain.TermWeight {
	k, _ := centroids.Dims()
	out := make([][]domain.TermWeight, k)
	for c := 0; c < k; c++ {
		out[c] = lsa.RankTerms(mat.Row(nil, c, centroids), n, terms)
	}
	return out
}

// Components lists the top terms, singular value decay and explained
// variance of each latent component.
func Components(d *lsa.Decomposition, variance []float64, terms []string, n int) []Component {
	out := make([]Component, d.Rank())
	for c := range out {
		out[c] = Component{
			Index:         c,
			SingularValue: d.Sigma[c],
			TopTerms:      d.TopTerms(c, n, terms),
		}
		if d.Sigma[0] > 0 {
			out[c].Decay = d.Sigma[c] / d.Sigma[0]
		}
		if c < len(variance) {
			out[c].ExplainedVariance = variance[c]
		}
	}
	return out
}
