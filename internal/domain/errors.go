package domain

import "errors"

var (
	// ErrEmptyCorpus is returned when a stage receives zero documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmptyVocabulary is returned when no term survives the frequency filters.
	ErrEmptyVocabulary = errors.New("empty vocabulary: no terms remain after filtering")
	// ErrRankTooLarge is returned when the requested SVD rank is not below min(rows, cols).
	ErrRankTooLarge = errors.New("rank too large")
	// ErrInvalidClusterCount is returned when k <= 0 or k exceeds the number of rows.
	ErrInvalidClusterCount = errors.New("invalid cluster count")
	// ErrNotConverged is returned when the truncated SVD exhausts its Lanczos
	// step budget before every requested singular triplet converges.
	ErrNotConverged = errors.New("singular triplets did not converge")
)
