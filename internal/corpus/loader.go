package corpus

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lsa/internal/domain"
)

// Options controls which files are read and how they are cleaned.
type Options struct {
	// Extensions restricts loading to these suffixes (".txt"). Empty loads all files.
	Extensions []string
	// Categories keeps only documents whose label is listed. Empty keeps all.
	Categories []string
	Clean      CleanOptions
}

// Loader reads documents from files, globs and directory trees. A directory
// argument is treated as a labelled corpus: the first path element below it
// names the category of every file underneath.
type Loader struct {
	opts    Options
	cleaner *Cleaner
}

// NewLoader creates a loader.
func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts, cleaner: NewCleaner(opts.Clean)}
}

type source struct {
	path  string
	label string
}

// Load reads every matching file in deterministic order.
func (l *Loader) Load(paths []string) (*domain.Corpus, error) {
	var sources []source
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				if l.accept(m) {
					sources = append(sources, source{path: m})
				}
				continue
			}
			found, err := l.walk(m)
			if err != nil {
				return nil, err
			}
			sources = append(sources, found...)
		}
	}
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].label != sources[j].label {
			return sources[i].label < sources[j].label
		}
		return sources[i].path < sources[j].path
	})

	keep := make(map[string]struct{}, len(l.opts.Categories))
	for _, c := range l.opts.Categories {
		keep[c] = struct{}{}
	}
	c := &domain.Corpus{}
	seen := make(map[string]struct{})
	labels := make(map[string]struct{})
	for _, s := range sources {
		if len(keep) > 0 {
			if _, ok := keep[s.label]; !ok {
				continue
			}
		}
		if _, dup := seen[s.path]; dup {
			continue
		}
		seen[s.path] = struct{}{}
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, err
		}
		c.Documents = append(c.Documents, domain.Document{
			Index:   len(c.Documents) + 1,
			ID:      hashString(s.path),
			Path:    s.path,
			Label:   s.label,
			Content: l.cleaner.Clean(string(data)),
		})
		if s.label != "" {
			labels[s.label] = struct{}{}
		}
	}
	if len(c.Documents) == 0 {
		return nil, fmt.Errorf("%w: no documents found", domain.ErrEmptyCorpus)
	}
	for lbl := range labels {
		c.Labels = append(c.Labels, lbl)
	}
	sort.Strings(c.Labels)
	return c, nil
}

// FromTexts builds an in-memory corpus; labels may be nil.
func FromTexts(texts, labels []string) (*domain.Corpus, error) {
	if len(texts) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if labels != nil && len(labels) != len(texts) {
		return nil, fmt.Errorf("got %d labels for %d documents", len(labels), len(texts))
	}
	c := &domain.Corpus{Documents: make([]domain.Document, len(texts))}
	set := make(map[string]struct{})
	for i, t := range texts {
		d := domain.Document{Index: i + 1, ID: hashString(fmt.Sprintf("doc-%d", i+1)), Content: t}
		if labels != nil {
			d.Label = labels[i]
			if d.Label != "" {
				set[d.Label] = struct{}{}
			}
		}
		c.Documents[i] = d
	}
	for lbl := range set {
		c.Labels = append(c.Labels, lbl)
	}
	sort.Strings(c.Labels)
	return c, nil
}

func (l *Loader) walk(root string) ([]source, error) {
	var out []source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !l.accept(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		label := ""
		if parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) > 1 {
			label = parts[0]
		}
		out = append(out, source{path: path, label: label})
		return nil
	})
	return out, err
}

func (l *Loader) accept(path string) bool {
	if len(l.opts.Extensions) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range l.opts.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
