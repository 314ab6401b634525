package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"lsa/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	summaryStyle = lipgloss.NewStyle().Italic(true)
)

// Render writes the report as a set of tables.
func Render(w io.Writer, r *Report) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("LSA analysis"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s  documents=%d  terms=%d  space=%s", r.RunID, r.Documents, r.Terms, r.Space)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("k-means %s after %d iterations, inertia %.4f", r.State, r.Iterations, r.Inertia)))
	b.WriteString("\n\n")

	if len(r.Clusters) > 0 {
		b.WriteString(titleStyle.Render("Clusters"))
		b.WriteString("\n")
		b.WriteString(ClustersTable(r.Clusters))
		b.WriteString("\n")
		for _, c := range r.Clusters {
			if c.Summary == "" {
				continue
			}
			b.WriteString(fmt.Sprintf("%d: %s\n", c.ID, summaryStyle.Render(c.Summary)))
		}
		b.WriteString("\n")
	}
	if len(r.Components) > 0 {
		b.WriteString(titleStyle.Render("Components"))
		b.WriteString("\n")
		b.WriteString(ComponentsTable(r.Components))
		b.WriteString("\n\n")
	}
	if r.Contingency != nil {
		b.WriteString(titleStyle.Render("Labels x clusters"))
		b.WriteString("\n")
		b.WriteString(ContingencyTable(r.Contingency))
		b.WriteString("\n\n")
	}
	if r.Metrics != nil {
		b.WriteString(titleStyle.Render("Metrics"))
		b.WriteString("\n")
		b.WriteString(MetricsTable(*r.Metrics))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ClustersTable renders cluster sizes and top terms.
func ClustersTable(clusters []Cluster) string {
	t := newTable("Cluster", "Size", "Top terms")
	for _, c := range clusters {
		t.Row(strconv.Itoa(c.ID), strconv.Itoa(c.Size), joinTerms(c.TopTerms))
	}
	return t.String()
}

// ComponentsTable renders singular values, their decay and top terms.
func ComponentsTable(components []Component) string {
	t := newTable("#", "Sigma", "Decay", "Var", "Top terms")
	for _, c := range components {
		t.Row(
			strconv.Itoa(c.Index),
			fmt.Sprintf("%.4f", c.SingularValue),
			fmt.Sprintf("%.3f", c.Decay),
			fmt.Sprintf("%.3f", c.ExplainedVariance),
			joinTerms(c.TopTerms),
		)
	}
	return t.String()
}

// ContingencyTable renders label rows against cluster columns.
func ContingencyTable(c *Contingency) string {
	headers := []string{"Label"}
	if len(c.Counts) > 0 {
		for j := range c.Counts[0] {
			headers = append(headers, strconv.Itoa(j))
		}
	}
	t := newTable(headers...)
	for i, lbl := range c.Labels {
		row := []string{lbl}
		for _, v := range c.Counts[i] {
			row = append(row, strconv.Itoa(v))
		}
		t.Row(row...)
	}
	return t.String()
}

// MetricsTable renders the external clustering scores.
func MetricsTable(m Metrics) string {
	t := newTable("Metric", "Value")
	t.Row("homogeneity", fmt.Sprintf("%.3f", m.Homogeneity))
	t.Row("completeness", fmt.Sprintf("%.3f", m.Completeness))
	t.Row("v-measure", fmt.Sprintf("%.3f", m.VMeasure))
	t.Row("adjusted rand", fmt.Sprintf("%.3f", m.AdjustedRand))
	return t.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func joinTerms(terms []domain.TermWeight) string {
	words := make([]string, len(terms))
	for i, t := range terms {
		words[i] = t.Term
	}
	return strings.Join(words, ", ")
}
