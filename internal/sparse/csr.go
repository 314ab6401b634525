// Package sparse provides a compressed sparse row matrix used for
// document-term data.
//
// Complexity of the main operations, with nnz the number of stored entries:
//
//	Row(i), RowSquaredNorm(i)  O(1) slice view / O(nnz(row i))
//	RowDot(i, x)               O(nnz(row i))
//	At(i, j)                   O(log nnz(row i))
//	MulVec, MulTransVec        O(nnz)
package sparse

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is an immutable compressed sparse row matrix. Column indices within a
// row are strictly increasing.
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

var _ mat.Matrix = (*CSR)(nil)

// Row is a single sparse row in coordinate form.
type Row struct {
	Indices []int
	Values  []float64
}

// NewCSR wraps raw CSR arrays after validating them.
func NewCSR(rows, cols int, indptr, indices []int, data []float64) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.New("negative dimension")
	}
	if len(indptr) != rows+1 {
		return nil, fmt.Errorf("indptr length %d, want %d", len(indptr), rows+1)
	}
	if len(indices) != len(data) {
		return nil, errors.New("indices and data length mismatch")
	}
	if indptr[0] != 0 || indptr[rows] != len(data) {
		return nil, errors.New("indptr bounds do not match data")
	}
	for i := 0; i < rows; i++ {
		if indptr[i+1] < indptr[i] {
			return nil, fmt.Errorf("indptr decreases at row %d", i)
		}
		prev := -1
		for p := indptr[i]; p < indptr[i+1]; p++ {
			j := indices[p]
			if j < 0 || j >= cols {
				return nil, fmt.Errorf("column %d out of range in row %d", j, i)
			}
			if j <= prev {
				return nil, fmt.Errorf("columns not strictly increasing in row %d", i)
			}
			prev = j
		}
	}
	return &CSR{rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}, nil
}

// FromRows builds a CSR matrix from per-row entries. Indices within a row
// may be unordered; explicit zeros are dropped and duplicates are summed.
func FromRows(cols int, rows []Row) (*CSR, error) {
	indptr := make([]int, 1, len(rows)+1)
	var indices []int
	var data []float64
	for i, r := range rows {
		if len(r.Indices) != len(r.Values) {
			return nil, fmt.Errorf("row %d: indices and values length mismatch", i)
		}
		order := make([]int, len(r.Indices))
		for k := range order {
			order[k] = k
		}
		sort.Slice(order, func(a, b int) bool { return r.Indices[order[a]] < r.Indices[order[b]] })
		for _, k := range order {
			j, v := r.Indices[k], r.Values[k]
			if j < 0 || j >= cols {
				return nil, fmt.Errorf("row %d: column %d out of range", i, j)
			}
			n := len(indices)
			if n > indptr[len(indptr)-1] && indices[n-1] == j {
				data[n-1] += v
				continue
			}
			indices = append(indices, j)
			data = append(data, v)
		}
		// drop zeros, including ones produced by summing duplicates
		start := indptr[len(indptr)-1]
		w := start
		for p := start; p < len(indices); p++ {
			if data[p] != 0 {
				indices[w], data[w] = indices[p], data[p]
				w++
			}
		}
		indices, data = indices[:w], data[:w]
		indptr = append(indptr, w)
	}
	return &CSR{rows: len(rows), cols: cols, indptr: indptr, indices: indices, data: data}, nil
}

// FromDense converts any gonum matrix into CSR form, skipping zeros.
func FromDense(m mat.Matrix) *CSR {
	r, c := m.Dims()
	indptr := make([]int, 1, r+1)
	var indices []int
	var data []float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				indices = append(indices, j)
				data = append(data, v)
			}
		}
		indptr = append(indptr, len(data))
	}
	return &CSR{rows: r, cols: c, indptr: indptr, indices: indices, data: data}
}

// Dims returns the number of rows and columns.
func (m *CSR) Dims() (r, c int) { return m.rows, m.cols }

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.data) }

// At returns the element at row i, column j.
func (m *CSR) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	idx := m.indices[m.indptr[i]:m.indptr[i+1]]
	k := sort.SearchInts(idx, j)
	if k < len(idx) && idx[k] == j {
		return m.data[m.indptr[i]+k]
	}
	return 0
}

// T returns the implicit transpose.
func (m *CSR) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// Row returns views of the column indices and values of row i. The slices
// must not be modified.
func (m *CSR) Row(i int) (indices []int, values []float64) {
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi], m.data[lo:hi]
}

// RowNNZ returns the number of stored entries in row i.
func (m *CSR) RowNNZ(i int) int { return m.indptr[i+1] - m.indptr[i] }

// RowSquaredNorm returns the squared L2 norm of row i.
func (m *CSR) RowSquaredNorm(i int) float64 {
	_, vals := m.Row(i)
	s := 0.0
	for _, v := range vals {
		s += v * v
	}
	return s
}

// RowNorm returns the L2 norm of row i.
func (m *CSR) RowNorm(i int) float64 { return math.Sqrt(m.RowSquaredNorm(i)) }

// RowDot returns the dot product of row i with the dense vector x.
func (m *CSR) RowDot(i int, x []float64) float64 {
	idx, vals := m.Row(i)
	s := 0.0
	for k, j := range idx {
		s += vals[k] * x[j]
	}
	return s
}

// AddRowTo adds alpha times row i into dst.
func (m *CSR) AddRowTo(dst []float64, i int, alpha float64) {
	idx, vals := m.Row(i)
	for k, j := range idx {
		dst[j] += alpha * vals[k]
	}
}

// MulVec computes dst = A·x. dst must have length rows, x length cols.
func (m *CSR) MulVec(dst, x []float64) {
	if len(dst) != m.rows || len(x) != m.cols {
		panic(mat.ErrShape)
	}
	for i := 0; i < m.rows; i++ {
		dst[i] = m.RowDot(i, x)
	}
}

// MulTransVec computes dst = Aᵀ·x. dst must have length cols, x length rows.
func (m *CSR) MulTransVec(dst, x []float64) {
	if len(dst) != m.cols || len(x) != m.rows {
		panic(mat.ErrShape)
	}
	for j := range dst {
		dst[j] = 0
	}
	for i := 0; i < m.rows; i++ {
		if x[i] != 0 {
			m.AddRowTo(dst, i, x[i])
		}
	}
}

// MulDense returns A·B for a dense B with as many rows as A has columns.
func (m *CSR) MulDense(b mat.Matrix) *mat.Dense {
	br, bc := b.Dims()
	if br != m.cols {
		panic(mat.ErrShape)
	}
	if m.rows == 0 || bc == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(m.rows, bc, nil)
	for i := 0; i < m.rows; i++ {
		idx, vals := m.Row(i)
		for k, j := range idx {
			for c := 0; c < bc; c++ {
				out.Set(i, c, out.At(i, c)+vals[k]*b.At(j, c))
			}
		}
	}
	return out
}

// FrobeniusNorm returns sqrt of the sum of squared entries.
func (m *CSR) FrobeniusNorm() float64 {
	s := 0.0
	for _, v := range m.data {
		s += v * v
	}
	return math.Sqrt(s)
}

// NormalizeRows returns a copy of m with every non-zero row scaled to unit
// L2 norm. All-zero rows stay zero.
func (m *CSR) NormalizeRows() *CSR {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	for i := 0; i < m.rows; i++ {
		n := m.RowNorm(i)
		if n == 0 {
			continue
		}
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			data[p] /= n
		}
	}
	return &CSR{rows: m.rows, cols: m.cols, indptr: m.indptr, indices: m.indices, data: data}
}

// ToDense materialises the matrix.
func (m *CSR) ToDense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		idx, vals := m.Row(i)
		for k, j := range idx {
			d.Set(i, j, vals[k])
		}
	}
	return d
}
