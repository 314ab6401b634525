package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lsa/internal/config"
	"lsa/internal/logging"
	"lsa/internal/service"
	"lsa/internal/summarizer"
	"lsa/internal/vectorizer"
	"lsa/internal/vectorstore/memory"
)

// overrides are per-command flags that win over the config file.
type overrides struct {
	k     int
	rank  int
	seed  int64
	space string
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.k, "clusters", "k", 0, "Number of clusters (overrides cluster.k)")
	cmd.Flags().IntVar(&o.rank, "rank", 0, "LSA rank (overrides lsa.rank)")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "Random seed for k-means and Lanczos (overrides both seeds)")
	cmd.Flags().StringVar(&o.space, "space", "", "Clustering space: tfidf or lsa (overrides cluster.space)")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.AppConfig) {
	if o.k > 0 {
		cfg.Cluster.K = o.k
	}
	if o.rank > 0 {
		cfg.LSA.Rank = o.rank
	}
	if cmd.Flags().Changed("seed") {
		cfg.Cluster.Seed = o.seed
		cfg.LSA.Seed = o.seed
	}
	if o.space != "" {
		cfg.Cluster.Space = o.space
	}
}

func loadConfig(flags *rootFlags) (*config.AppConfig, string, error) {
	var (
		cfg  *config.AppConfig
		path = flags.configPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, "", err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	return cfg, path, nil
}

// setup loads configuration, builds the logger and wires the service.
func setup(cmd *cobra.Command, flags *rootFlags, o *overrides) (*service.AnalysisService, *config.AppConfig, *zap.Logger, error) {
	cfg, path, err := loadConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}
	o.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Debug("configuration loaded", zap.String("path", path))

	opts := service.OptionsFromConfig(cfg)
	sum := summarizer.NewFrequencySummarizer(vectorizer.NewTokenizer(opts.Vectorizer.Stopwords, opts.Vectorizer.MinTokenLength))
	svc := service.NewAnalysisService(opts, sum, memory.NewStorage(), log)
	return svc, cfg, log, nil
}
