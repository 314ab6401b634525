package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"lsa/internal/cluster"
	"lsa/internal/config"
	"lsa/internal/corpus"
	"lsa/internal/domain"
	"lsa/internal/lsa"
	"lsa/internal/report"
	"lsa/internal/sparse"
	"lsa/internal/vectorizer"
	"lsa/internal/vectorstore"
)

const (
	SpaceTFIDF = "tfidf"
	SpaceLSA   = "lsa"
)

// Options bundles the settings of every stage.
type Options struct {
	Corpus     corpus.Options
	Vectorizer vectorizer.Config
	Cluster    cluster.Config
	LSA        lsa.Config
	// Space selects the matrix k-means runs on: SpaceTFIDF or SpaceLSA.
	Space            string
	TopTerms         int
	SummarySentences int
	Metrics          bool
}

// OptionsFromConfig maps the file configuration onto stage settings.
func OptionsFromConfig(cfg *config.AppConfig) Options {
	stop := map[string]struct{}{}
	if cfg.Vectorizer.Stopwords == "english" {
		stop = vectorizer.EnglishStopwords()
	}
	for _, w := range cfg.Vectorizer.ExtraStopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return Options{
		Corpus: corpus.Options{
			Extensions: cfg.Corpus.Extensions,
			Categories: cfg.Corpus.Categories,
			Clean: corpus.CleanOptions{
				Headers: cfg.Corpus.RemoveHeaders,
				Footers: cfg.Corpus.RemoveFooters,
				Quotes:  cfg.Corpus.RemoveQuotes,
			},
		},
		Vectorizer: vectorizer.Config{
			MaxDF:          cfg.Vectorizer.MaxDF,
			MinDF:          cfg.Vectorizer.MinDF,
			MaxFeatures:    cfg.Vectorizer.MaxFeatures,
			Stopwords:      stop,
			MinTokenLength: cfg.Vectorizer.MinTokenLength,
			UseIDF:         cfg.Vectorizer.UseIDF,
			SmoothIDF:      cfg.Vectorizer.SmoothIDF,
			SublinearTF:    cfg.Vectorizer.SublinearTF,
		},
		Cluster: cluster.Config{
			K:       cfg.Cluster.K,
			MaxIter: cfg.Cluster.MaxIter,
			Tol:     cfg.Cluster.Tol,
			Init:    cluster.Init(cfg.Cluster.Init),
			Seed:    cfg.Cluster.Seed,
			NInit:   cfg.Cluster.NInit,
			Workers: cfg.Cluster.Workers,
		},
		LSA: lsa.Config{
			Rank:   cfg.LSA.Rank,
			NCV:    cfg.LSA.NCV,
			MaxNCV: cfg.LSA.MaxNCV,
			Tol:    cfg.LSA.Tol,
			Seed:   cfg.LSA.Seed,
		},
		Space:            cfg.Cluster.Space,
		TopTerms:         cfg.Report.TopTerms,
		SummarySentences: cfg.Report.SummarySentences,
		Metrics:          cfg.Report.Metrics,
	}
}

// StageTiming records how long a stage took.
type StageTiming struct {
	Stage   string
	Elapsed time.Duration
}

// Analysis is the state shared by the pipeline stages and the result of a
// run.
type Analysis struct {
	RunID         string
	Corpus        *domain.Corpus
	Vectorizer    *vectorizer.Vectorizer
	Matrix        *sparse.CSR
	Decomposition *lsa.Decomposition
	// Embedding is the row-normalised LSA embedding; nil unless clustering
	// runs in LSA space.
	Embedding *sparse.CSR
	Clusters  *cluster.Result
	// Summaries holds one summary per cluster.
	Summaries []string
	Report    *report.Report
	Timings   []StageTiming
}

// AnalysisService runs the clustering and LSA pipeline and answers queries
// against the most recent run.
type AnalysisService struct {
	opts       Options
	summarizer domain.Summarizer
	store      vectorstore.Storage
	log        *zap.Logger

	mu   sync.RWMutex
	last *Analysis
}

// NewAnalysisService wires the service collaborators.
func NewAnalysisService(opts Options, summarizer domain.Summarizer, store vectorstore.Storage, log *zap.Logger) *AnalysisService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisService{opts: opts, summarizer: summarizer, store: store, log: log}
}

// Analyze loads the documents under paths and runs the full pipeline.
func (s *AnalysisService) Analyze(ctx context.Context, paths []string) (*Analysis, error) {
	loader := corpus.NewLoader(s.opts.Corpus)
	load := Stage{Name: "load", Run: func(_ context.Context, a *Analysis) error {
		c, err := loader.Load(paths)
		if err != nil {
			return err
		}
		a.Corpus = c
		return nil
	}}
	return s.run(ctx, &Analysis{}, load)
}

// AnalyzeCorpus runs the pipeline over an already loaded corpus.
func (s *AnalysisService) AnalyzeCorpus(ctx context.Context, c *domain.Corpus) (*Analysis, error) {
	if c == nil || len(c.Documents) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	return s.run(ctx, &Analysis{Corpus: c})
}

// Last returns the most recent successful analysis, or nil.
func (s *AnalysisService) Last() *Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *AnalysisService) run(ctx context.Context, a *Analysis, pre ...Stage) (*Analysis, error) {
	a.RunID = uuid.NewString()
	log := s.log.With(zap.String("run_id", a.RunID))

	stages := append(pre, Stage{Name: "vectorize", Run: s.vectorize})
	if s.opts.Space == SpaceLSA {
		stages = append(stages, Stage{Name: "reduce", Run: s.reduce(log)}, Stage{Name: "cluster", Run: s.cluster(log)})
	} else {
		stages = append(stages, Stage{Name: "cluster", Run: s.cluster(log)}, Stage{Name: "reduce", Run: s.reduce(log)})
	}
	stages = append(stages,
		Stage{Name: "index", Run: s.index(log)},
		Stage{Name: "summarize", Run: s.summarize},
		Stage{Name: "report", Run: s.report},
	)

	p := NewPipeline(log, stages...)
	log.Info("analysis started", zap.Strings("stages", p.Stages()))
	if err := p.Run(ctx, a); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = a
	s.mu.Unlock()
	log.Info("analysis finished",
		zap.Int("documents", len(a.Corpus.Documents)),
		zap.Int("terms", a.Vectorizer.Vocabulary().Len()),
		zap.Stringer("state", a.Clusters.State))
	return a, nil
}

func (s *AnalysisService) vectorize(_ context.Context, a *Analysis) error {
	v := vectorizer.New(s.opts.Vectorizer)
	m, err := v.FitTransform(a.Corpus.Texts())
	if err != nil {
		return err
	}
	a.Vectorizer = v
	a.Matrix = m
	return nil
}

func (s *AnalysisService) reduce(log *zap.Logger) func(context.Context, *Analysis) error {
	return func(_ context.Context, a *Analysis) error {
		cfg := s.opts.LSA
		rows, cols := a.Matrix.Dims()
		limit := min(rows, cols) - 1
		if limit < 1 {
			// a truncated SVD needs rank < min(rows, cols); clustering falls
			// back to TF-IDF space and queries to token overlap
			log.Warn("lsa skipped", zap.Int("documents", rows), zap.Int("terms", cols))
			return nil
		}
		if cfg.Rank > limit {
			log.Warn("lsa rank clamped", zap.Int("requested", cfg.Rank), zap.Int("rank", limit))
			cfg.Rank = limit
		}
		d, err := lsa.New(cfg).Fit(a.Matrix)
		if err != nil {
			return err
		}
		a.Decomposition = d
		log.Debug("decomposition", zap.Float64s("sigma", d.Sigma))
		if s.opts.Space == SpaceLSA {
			a.Embedding = sparse.FromDense(d.Embedding()).NormalizeRows()
		}
		return nil
	}
}

func (s *AnalysisService) cluster(log *zap.Logger) func(context.Context, *Analysis) error {
	return func(_ context.Context, a *Analysis) error {
		x := a.Matrix
		if a.Embedding != nil {
			x = a.Embedding
		}
		km := cluster.New(s.opts.Cluster)
		res, err := km.Fit(x)
		if err != nil {
			return err
		}
		a.Clusters = res
		if !res.Converged {
			log.Warn("k-means did not converge", zap.Int("iterations", res.Iterations))
		}
		log.Debug("clusters", zap.Ints("sizes", res.Sizes()), zap.Float64("inertia", res.Inertia))
		return nil
	}
}

func (s *AnalysisService) index(log *zap.Logger) func(context.Context, *Analysis) error {
	return func(_ context.Context, a *Analysis) error {
		if s.store == nil || a.Decomposition == nil {
			return nil
		}
		emb := a.Decomposition.Embedding()
		rows, dim := emb.Dims()
		if err := s.store.Init(dim); err != nil {
			return err
		}
		vectors := make([][]float64, rows)
		for i := range vectors {
			vectors[i] = mat.Row(nil, i, emb)
		}
		if err := s.store.Upsert(a.Corpus.Documents, vectors); err != nil {
			return err
		}
		if n := s.store.Len(); n != rows {
			return fmt.Errorf("index holds %d documents, want %d", n, rows)
		}
		log.Debug("indexed", zap.Int("documents", rows), zap.Int("dimension", dim))
		return nil
	}
}

func (s *AnalysisService) summarize(_ context.Context, a *Analysis) error {
	k, _ := a.Clusters.Centroids.Dims()
	a.Summaries = make([]string, k)
	if s.summarizer == nil {
		return nil
	}
	members := make([]strings.Builder, k)
	for i, lbl := range a.Clusters.Labels {
		members[lbl].WriteString(a.Corpus.Documents[i].Content)
		members[lbl].WriteString("\n")
	}
	for c := range members {
		sum, err := s.summarizer.Summarize(members[c].String(), s.opts.SummarySentences)
		if err != nil {
			return fmt.Errorf("cluster %d: %w", c, err)
		}
		a.Summaries[c] = sum
	}
	return nil
}

func (s *AnalysisService) report(_ context.Context, a *Analysis) error {
	terms := a.Vectorizer.Vocabulary().Terms()
	centroids := mat.Matrix(a.Clusters.Centroids)
	space := SpaceTFIDF
	if a.Embedding != nil {
		centroids = a.Decomposition.InverseTransform(a.Clusters.Centroids)
		space = SpaceLSA
	}
	topTerms := report.ClusterTopTerms(centroids, terms, s.opts.TopTerms)
	sizes := a.Clusters.Sizes()

	r := &report.Report{
		RunID:      a.RunID,
		Documents:  len(a.Corpus.Documents),
		Terms:      len(terms),
		Space:      space,
		State:      a.Clusters.State.String(),
		Iterations: a.Clusters.Iterations,
		Inertia:    a.Clusters.Inertia,
		Clusters:   make([]report.Cluster, len(sizes)),
	}
	if a.Decomposition != nil {
		r.Components = report.Components(a.Decomposition, a.Decomposition.ExplainedVarianceRatio(a.Matrix), terms, s.opts.TopTerms)
	}
	for c := range r.Clusters {
		r.Clusters[c] = report.Cluster{ID: c, Size: sizes[c], TopTerms: topTerms[c], Summary: a.Summaries[c]}
	}
	if s.opts.Metrics && a.Corpus.Labelled() {
		ct, err := report.NewContingency(a.Corpus.Labels, a.Corpus.DocumentLabels(), a.Clusters.Labels, len(sizes))
		if err != nil {
			return err
		}
		m := report.Score(ct)
		r.Contingency = ct
		r.Metrics = &m
	}
	a.Report = r
	return nil
}

// Query folds q into the latent space of the last analysis and returns the
// topK closest documents. Queries without any known term, and runs that
// skipped the decomposition, fall back to token overlap ranking.
func (s *AnalysisService) Query(q string, topK int) ([]domain.SearchResult, error) {
	a := s.Last()
	if a == nil {
		return nil, errors.New("no analysis has been run")
	}
	if topK <= 0 {
		topK = 5
	}
	x, err := a.Vectorizer.Transform([]string{q})
	if err != nil {
		return nil, err
	}
	if x.NNZ() == 0 || s.store == nil || a.Decomposition == nil {
		return lexicalSearch(a, q, topK), nil
	}
	folded := a.Decomposition.Transform(x)
	res, err := s.store.Search(mat.Row(nil, 0, folded), topK)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func lexicalSearch(a *Analysis, query string, topK int) []domain.SearchResult {
	tok := a.Vectorizer.Tokenizer()
	qset := tokenSet(tok.Tokenize(query))
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(a.Corpus.Documents))
	for i, d := range a.Corpus.Documents {
		scores[i] = pair{i, overlapOchiai(qset, tokenSet(tok.Tokenize(d.Content)))}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	topK = min(topK, len(scores))
	out := make([]domain.SearchResult, 0, topK)
	for _, p := range scores[:topK] {
		out = append(out, domain.SearchResult{Document: a.Corpus.Documents[p.idx], Score: p.score})
	}
	return out
}

func tokenSet(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|).
func overlapOchiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
