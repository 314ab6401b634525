// Package vectorizer turns raw documents into an L2-normalised TF-IDF
// document-term matrix.
package vectorizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"lsa/internal/domain"
	"lsa/internal/sparse"
)

// Config controls vocabulary filtering and term weighting.
type Config struct {
	// MaxDF drops terms present in more than MaxDF*N documents. Range (0, 1].
	MaxDF float64
	// MinDF drops terms present in fewer than MinDF documents.
	MinDF int
	// MaxFeatures caps the vocabulary size; 0 means unbounded.
	MaxFeatures    int
	Stopwords      map[string]struct{}
	MinTokenLength int
	UseIDF         bool
	// SmoothIDF uses ln((1+N)/(1+df))+1 instead of ln(N/df).
	SmoothIDF bool
	// SublinearTF replaces count/total with 1+ln(count).
	SublinearTF bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxDF:          1.0,
		MinDF:          1,
		Stopwords:      EnglishStopwords(),
		MinTokenLength: 2,
		UseIDF:         true,
		SmoothIDF:      true,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		return fmt.Errorf("max_df must be in (0, 1], got %v", c.MaxDF)
	}
	if c.MinDF < 0 {
		return fmt.Errorf("min_df must be non-negative, got %d", c.MinDF)
	}
	if c.MaxFeatures < 0 {
		return fmt.Errorf("max_features must be non-negative, got %d", c.MaxFeatures)
	}
	return nil
}

// Vocabulary maps terms to column indices. Columns are in lexicographic order.
type Vocabulary struct {
	terms []string
	index map[string]int
}

func newVocabulary(terms []string) *Vocabulary {
	v := &Vocabulary{terms: terms, index: make(map[string]int, len(terms))}
	for i, t := range terms {
		v.index[t] = i
	}
	return v
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int { return len(v.terms) }

// Terms returns the terms in column order. The slice must not be modified.
func (v *Vocabulary) Terms() []string { return v.terms }

// Term returns the term stored at column i.
func (v *Vocabulary) Term(i int) string { return v.terms[i] }

// Index returns the column of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Vectorizer implements a TF-IDF vectorizer over a fitted vocabulary.
type Vectorizer struct {
	cfg       Config
	tokenizer *Tokenizer
	vocab     *Vocabulary
	df        []int
	idf       []float64
	nDocs     int
}

// New creates an unfitted vectorizer.
func New(cfg Config) *Vectorizer {
	if cfg.MinDF == 0 {
		cfg.MinDF = 1
	}
	return &Vectorizer{cfg: cfg, tokenizer: NewTokenizer(cfg.Stopwords, cfg.MinTokenLength)}
}

// Fit builds the vocabulary and IDF weights from corpus.
func (v *Vectorizer) Fit(corpus []string) error {
	_, err := v.fit(corpus)
	return err
}

// FitTransform fits the vectorizer and returns the TF-IDF matrix of corpus.
func (v *Vectorizer) FitTransform(corpus []string) (*sparse.CSR, error) {
	tokens, err := v.fit(corpus)
	if err != nil {
		return nil, err
	}
	return v.weigh(tokens)
}

// Transform maps documents onto the fitted vocabulary.
func (v *Vectorizer) Transform(docs []string) (*sparse.CSR, error) {
	if v.vocab == nil {
		return nil, errors.New("tfidf vectorizer not fitted")
	}
	tokens := make([][]string, len(docs))
	for i, d := range docs {
		tokens[i] = v.tokenizer.Tokenize(d)
	}
	return v.weigh(tokens)
}

// Vocabulary returns the fitted vocabulary, or nil before Fit.
func (v *Vectorizer) Vocabulary() *Vocabulary { return v.vocab }

// IDF returns the per-column inverse document frequency weights.
func (v *Vectorizer) IDF() []float64 { return v.idf }

// DocumentFrequency returns the per-column document counts.
func (v *Vectorizer) DocumentFrequency() []int { return v.df }

// Tokenizer exposes the tokenizer so collaborators tokenize consistently.
func (v *Vectorizer) Tokenizer() *Tokenizer { return v.tokenizer }

func (v *Vectorizer) fit(corpus []string) ([][]string, error) {
	if len(corpus) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if err := v.cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(corpus)
	tokens := make([][]string, n)
	df := make(map[string]int)
	counts := make(map[string]int)
	for i, text := range corpus {
		tokens[i] = v.tokenizer.Tokenize(text)
		seen := make(map[string]struct{}, len(tokens[i]))
		for _, tok := range tokens[i] {
			counts[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	maxDocs := v.cfg.MaxDF * float64(n)
	terms := make([]string, 0, len(df))
	for term, d := range df {
		if d < v.cfg.MinDF || float64(d) > maxDocs {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, domain.ErrEmptyVocabulary
	}
	if v.cfg.MaxFeatures > 0 && len(terms) > v.cfg.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			ci, cj := counts[terms[i]], counts[terms[j]]
			if ci != cj {
				return ci > cj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.cfg.MaxFeatures]
	}
	// Create stable ordering for vocabulary
	sort.Strings(terms)

	v.vocab = newVocabulary(terms)
	v.nDocs = n
	v.df = make([]int, len(terms))
	v.idf = make([]float64, len(terms))
	N := float64(n)
	for i, term := range terms {
		v.df[i] = df[term]
		switch {
		case !v.cfg.UseIDF:
			v.idf[i] = 1
		case v.cfg.SmoothIDF:
			v.idf[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
		default:
			v.idf[i] = math.Log(N / float64(df[term]))
		}
	}
	return tokens, nil
}

func (v *Vectorizer) weigh(tokens [][]string) (*sparse.CSR, error) {
	rows := make([]sparse.Row, len(tokens))
	for i, doc := range tokens {
		tf := make(map[int]int)
		for _, tok := range doc {
			if idx, ok := v.vocab.index[tok]; ok {
				tf[idx]++
			}
		}
		if len(tf) == 0 {
			continue
		}
		total := float64(len(doc))
		row := sparse.Row{Indices: make([]int, 0, len(tf)), Values: make([]float64, 0, len(tf))}
		for idx, count := range tf {
			var tfv float64
			if v.cfg.SublinearTF {
				tfv = 1 + math.Log(float64(count))
			} else {
				tfv = float64(count) / total
			}
			row.Indices = append(row.Indices, idx)
			row.Values = append(row.Values, tfv*v.idf[idx])
		}
		rows[i] = row
	}
	m, err := sparse.FromRows(v.vocab.Len(), rows)
	if err != nil {
		return nil, err
	}
	return m.NormalizeRows(), nil
}
