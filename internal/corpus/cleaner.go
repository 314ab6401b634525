package corpus

import (
	"regexp"
	"strings"
)

// CleanOptions selects which parts of a newsgroup-style post are removed.
type CleanOptions struct {
	Headers bool
	Footers bool
	Quotes  bool
}

// Cleaner strips message headers, quoted replies and signature blocks.
type Cleaner struct {
	opts        CleanOptions
	quoteLine   *regexp.Regexp
	attribution *regexp.Regexp
}

// NewCleaner creates a cleaner for the given options.
func NewCleaner(opts CleanOptions) *Cleaner {
	return &Cleaner{
		opts:        opts,
		quoteLine:   regexp.MustCompile(`^\s*(>|\|)`),
		attribution: regexp.MustCompile(`(?i)(writes in|writes:|wrote:|says:|said:)\s*$`),
	}
}

// Clean applies the enabled removals in header, quote, footer order.
func (c *Cleaner) Clean(text string) string {
	if c.opts.Headers {
		text = stripHeaders(text)
	}
	if c.opts.Quotes {
		text = c.stripQuotes(text)
	}
	if c.opts.Footers {
		text = stripFooter(text)
	}
	return text
}

// stripHeaders drops everything up to the first blank line.
func stripHeaders(text string) string {
	_, body, found := strings.Cut(text, "\n\n")
	if !found {
		return text
	}
	return body
}

func (c *Cleaner) stripQuotes(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if c.quoteLine.MatchString(line) || c.attribution.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// stripFooter drops the signature block that follows the last line made of
// dashes only.
func stripFooter(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed != "" && strings.Trim(trimmed, "-") == "" {
			if i == 0 {
				return ""
			}
			return strings.Join(lines[:i], "\n")
		}
	}
	return text
}
