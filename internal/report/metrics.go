package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Contingency counts documents per (label, cluster) pair.
type Contingency struct {
	Labels []string
	// Counts is len(Labels) x K.
	Counts [][]int
}

// NewContingency builds the label x cluster table. classes lists the label
// names in row order; documents whose label is not listed are skipped.
func NewContingency(classes, docLabels []string, assignments []int, k int) (*Contingency, error) {
	if len(docLabels) != len(assignments) {
		return nil, fmt.Errorf("got %d labels for %d assignments", len(docLabels), len(assignments))
	}
	row := make(map[string]int, len(classes))
	c := &Contingency{Labels: classes, Counts: make([][]int, len(classes))}
	for i, name := range classes {
		row[name] = i
		c.Counts[i] = make([]int, k)
	}
	for i, lbl := range docLabels {
		r, ok := row[lbl]
		if !ok {
			continue
		}
		a := assignments[i]
		if a < 0 || a >= k {
			return nil, fmt.Errorf("assignment %d out of range [0,%d)", a, k)
		}
		c.Counts[r][a]++
	}
	return c, nil
}

// Total returns the number of counted documents.
func (c *Contingency) Total() int {
	n := 0
	for _, r := range c.Counts {
		for _, v := range r {
			n += v
		}
	}
	return n
}

func (c *Contingency) marginals() (rows, cols []float64) {
	rows = make([]float64, len(c.Counts))
	if len(c.Counts) > 0 {
		cols = make([]float64, len(c.Counts[0]))
	}
	for i, r := range c.Counts {
		for j, v := range r {
			rows[i] += float64(v)
			cols[j] += float64(v)
		}
	}
	return rows, cols
}

// Metrics compares a clustering against reference labels.
type Metrics struct {
	Homogeneity  float64
	Completeness float64
	VMeasure     float64
	AdjustedRand float64
}

// Score computes the external clustering metrics of a contingency table.
func Score(c *Contingency) Metrics {
	n := float64(c.Total())
	if n == 0 {
		return Metrics{}
	}
	rows, cols := c.marginals()
	hC := entropy(rows, n)
	hK := entropy(cols, n)

	var hCK, hKC float64
	for i, r := range c.Counts {
		for j, v := range r {
			if v == 0 {
				continue
			}
			nij := float64(v)
			hCK -= nij / n * math.Log(nij/cols[j])
			hKC -= nij / n * math.Log(nij/rows[i])
		}
	}

	m := Metrics{Homogeneity: 1, Completeness: 1}
	if hC > 0 {
		m.Homogeneity = 1 - hCK/hC
	}
	if hK > 0 {
		m.Completeness = 1 - hKC/hK
	}
	if s := m.Homogeneity + m.Completeness; s > 0 {
		m.VMeasure = 2 * m.Homogeneity * m.Completeness / s
	}
	m.AdjustedRand = adjustedRand(c, rows, cols, n)
	return m
}

func entropy(counts []float64, n float64) float64 {
	p := make([]float64, 0, len(counts))
	for _, v := range counts {
		if v > 0 {
			p = append(p, v/n)
		}
	}
	return stat.Entropy(p)
}

func adjustedRand(c *Contingency, rows, cols []float64, n float64) float64 {
	var index, sumA, sumB float64
	for _, r := range c.Counts {
		for _, v := range r {
			index += pairs(float64(v))
		}
	}
	for _, v := range rows {
		sumA += pairs(v)
	}
	for _, v := range cols {
		sumB += pairs(v)
	}
	if n < 2 {
		return 1
	}
	expected := sumA * sumB / pairs(n)
	maxIndex := (sumA + sumB) / 2
	if maxIndex == expected {
		return 1
	}
	return (index - expected) / (maxIndex - expected)
}

func pairs(x float64) float64 { return x * (x - 1) / 2 }
