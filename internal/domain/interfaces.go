package domain

// Document represents a single text file loaded into the system.
type Document struct {
	// Index is the 1-based position of the document within its corpus.
	Index   int
	ID      string
	Path    string
	Label   string
	Content string
}

// Corpus is an ordered, immutable collection of documents.
type Corpus struct {
	Documents []Document
	// Labels holds the distinct non-empty document labels, sorted.
	Labels []string
}

// Texts returns the document contents in corpus order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		out[i] = d.Content
	}
	return out
}

// DocumentLabels returns the label of every document in corpus order.
func (c *Corpus) DocumentLabels() []string {
	out := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		out[i] = d.Label
	}
	return out
}

// Labelled reports whether every document carries a label.
func (c *Corpus) Labelled() bool {
	if len(c.Documents) == 0 {
		return false
	}
	for _, d := range c.Documents {
		if d.Label == "" {
			return false
		}
	}
	return true
}

// SearchResult represents a matching document with a relevance score.
type SearchResult struct {
	Document Document
	Score    float64
}

// TermWeight pairs a vocabulary term with a weight.
type TermWeight struct {
	Term   string
	Weight float64
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
