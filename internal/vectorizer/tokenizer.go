package vectorizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Tokenizer splits text into lowercase word tokens and drops stopwords.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLength int
}

// NewTokenizer creates a tokenizer. A nil stopword set disables filtering.
func NewTokenizer(stopwords map[string]struct{}, minLength int) *Tokenizer {
	if minLength < 1 {
		minLength = 1
	}
	return &Tokenizer{stopwords: stopwords, minLength: minLength}
}

// Tokenize returns the retained tokens of text in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	lower := strings.ToLower(norm.NFKC.String(text))
	raw := wordPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, tok := range raw {
		if utf8.RuneCountInString(tok) < t.minLength {
			continue
		}
		if _, isStop := t.stopwords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	return out
}
