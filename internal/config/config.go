package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfig names a config file that takes precedence over the search path.
	EnvConfig = "LSA_CONFIG"
	// EnvLogLevel overrides logging.level.
	EnvLogLevel = "LSA_LOG_LEVEL"
)

// CorpusConfig controls which files are loaded and how they are cleaned.
type CorpusConfig struct {
	Extensions    []string `yaml:"extensions"`
	Categories    []string `yaml:"categories,omitempty"`
	RemoveHeaders bool     `yaml:"remove_headers"`
	RemoveFooters bool     `yaml:"remove_footers"`
	RemoveQuotes  bool     `yaml:"remove_quotes"`
}

// VectorizerConfig configures vocabulary filtering and TF-IDF weighting.
type VectorizerConfig struct {
	MaxDF          float64  `yaml:"max_df"`
	MinDF          int      `yaml:"min_df"`
	MaxFeatures    int      `yaml:"max_features"`
	Stopwords      string   `yaml:"stopwords"`
	ExtraStopwords []string `yaml:"extra_stopwords,omitempty"`
	MinTokenLength int      `yaml:"min_token_length"`
	UseIDF         bool     `yaml:"use_idf"`
	SmoothIDF      bool     `yaml:"smooth_idf"`
	SublinearTF    bool     `yaml:"sublinear_tf"`
}

// ClusterConfig configures k-means.
type ClusterConfig struct {
	K       int     `yaml:"k"`
	MaxIter int     `yaml:"max_iter"`
	Tol     float64 `yaml:"tol"`
	Init    string  `yaml:"init"`
	NInit   int     `yaml:"n_init"`
	Seed    int64   `yaml:"seed"`
	Workers int     `yaml:"workers"`
	// Space is "tfidf" or "lsa".
	Space string `yaml:"space"`
}

// LSAConfig configures the truncated SVD.
type LSAConfig struct {
	Rank int `yaml:"rank"`
	// NCV is the initial number of Lanczos steps, MaxNCV the cap the basis
	// may grow to. Zero picks a default for both.
	NCV    int     `yaml:"ncv"`
	MaxNCV int     `yaml:"max_ncv"`
	Tol    float64 `yaml:"tol"`
	Seed   int64   `yaml:"seed"`
}

// ReportConfig controls what the report shows.
type ReportConfig struct {
	TopTerms         int  `yaml:"top_terms"`
	SummarySentences int  `yaml:"summary_sentences"`
	Metrics          bool `yaml:"metrics"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives logs through a rotating writer.
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	LSA        LSAConfig        `yaml:"lsa"`
	Report     ReportConfig     `yaml:"report"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault honours LSA_CONFIG, then tries ./lsa.yaml, then
// ~/.config/lsa/config.yaml. If none exists, it writes defaults to the user
// path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		cfg, err := Load(p)
		return cfg, p, err
	}
	cwdPath := "lsa.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges that the pipeline cannot recover from.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Vectorizer.MaxDF <= 0 || c.Vectorizer.MaxDF > 1 {
		errs = append(errs, fmt.Errorf("vectorizer.max_df must be in (0, 1], got %v", c.Vectorizer.MaxDF))
	}
	if c.Vectorizer.MinDF < 1 {
		errs = append(errs, fmt.Errorf("vectorizer.min_df must be at least 1, got %d", c.Vectorizer.MinDF))
	}
	if c.Vectorizer.MaxFeatures < 0 {
		errs = append(errs, fmt.Errorf("vectorizer.max_features must be non-negative, got %d", c.Vectorizer.MaxFeatures))
	}
	switch c.Vectorizer.Stopwords {
	case "english", "none":
	default:
		errs = append(errs, fmt.Errorf("vectorizer.stopwords must be english or none, got %q", c.Vectorizer.Stopwords))
	}
	if c.Cluster.K < 1 {
		errs = append(errs, fmt.Errorf("cluster.k must be positive, got %d", c.Cluster.K))
	}
	if c.Cluster.MaxIter < 1 {
		errs = append(errs, fmt.Errorf("cluster.max_iter must be positive, got %d", c.Cluster.MaxIter))
	}
	if c.Cluster.Tol < 0 {
		errs = append(errs, fmt.Errorf("cluster.tol must be non-negative, got %v", c.Cluster.Tol))
	}
	switch c.Cluster.Init {
	case "k-means++", "random":
	default:
		errs = append(errs, fmt.Errorf("cluster.init must be k-means++ or random, got %q", c.Cluster.Init))
	}
	switch c.Cluster.Space {
	case "tfidf", "lsa":
	default:
		errs = append(errs, fmt.Errorf("cluster.space must be tfidf or lsa, got %q", c.Cluster.Space))
	}
	if c.LSA.Rank < 1 {
		errs = append(errs, fmt.Errorf("lsa.rank must be positive, got %d", c.LSA.Rank))
	}
	if c.LSA.NCV < 0 {
		errs = append(errs, fmt.Errorf("lsa.ncv must be non-negative, got %d", c.LSA.NCV))
	}
	if c.LSA.MaxNCV < 0 {
		errs = append(errs, fmt.Errorf("lsa.max_ncv must be non-negative, got %d", c.LSA.MaxNCV))
	}
	if c.LSA.Tol < 0 {
		errs = append(errs, fmt.Errorf("lsa.tol must be non-negative, got %v", c.LSA.Tol))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lsa", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Corpus: CorpusConfig{Extensions: []string{".txt"}},
		Vectorizer: VectorizerConfig{
			MaxDF:          1.0,
			MinDF:          1,
			Stopwords:      "english",
			MinTokenLength: 2,
			UseIDF:         true,
			SmoothIDF:      true,
		},
		Cluster: ClusterConfig{
			K:       8,
			MaxIter: 300,
			Tol:     1e-4,
			Init:    "k-means++",
			NInit:   1,
			Seed:    42,
			Space:   "tfidf",
		},
		LSA:     LSAConfig{Rank: 100, Seed: 42},
		Report:  ReportConfig{TopTerms: 10, SummarySentences: 2, Metrics: true},
		Logging: LoggingConfig{Level: "info", Format: "console", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// applyConfigDefaults fills fields a partial file left at their zero value
// where zero is never meaningful.
func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Vectorizer.Stopwords == "" {
		cfg.Vectorizer.Stopwords = def.Vectorizer.Stopwords
	}
	if cfg.Cluster.Init == "" {
		cfg.Cluster.Init = def.Cluster.Init
	}
	if cfg.Cluster.Space == "" {
		cfg.Cluster.Space = def.Cluster.Space
	}
	if cfg.Cluster.NInit == 0 {
		cfg.Cluster.NInit = def.Cluster.NInit
	}
	if cfg.Report.TopTerms == 0 {
		cfg.Report.TopTerms = def.Report.TopTerms
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

func applyEnv(cfg *AppConfig) {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Logging.Level = lvl
	}
}
