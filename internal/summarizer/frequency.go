package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"lsa/internal/vectorizer"
)

var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// FrequencySummarizer ranks sentences by the normalised corpus frequency of
// their tokens.
type FrequencySummarizer struct {
	tokenizer *vectorizer.Tokenizer
}

// NewFrequencySummarizer creates a summarizer; a nil tokenizer falls back to
// English stopwords and two-letter minimum tokens.
func NewFrequencySummarizer(tok *vectorizer.Tokenizer) *FrequencySummarizer {
	if tok == nil {
		tok = vectorizer.NewTokenizer(vectorizer.EnglishStopwords(), 2)
	}
	return &FrequencySummarizer{tokenizer: tok}
}

// Summarize returns up to maxSentences of the highest scoring sentences in
// their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = s.tokenizer.Tokenize(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, toks := range tokens {
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// long sentences would otherwise always win
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	maxSentences = min(maxSentences, len(scores))

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " "), nil
}
