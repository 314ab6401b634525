package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"lsa/internal/domain"
	"lsa/internal/report"
)

type fakePort struct {
	results []domain.SearchResult
	err     error
	queries []string
}

func (f *fakePort) Query(q string, topK int) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, q)
	return f.results, f.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestTabCyclesPanes(t *testing.T) {
	r := &report.Report{
		Clusters:   []report.Cluster{{ID: 0, Size: 2, TopTerms: []domain.TermWeight{{Term: "orbit"}}}},
		Components: []report.Component{{Index: 0, SingularValue: 1.5, TopTerms: []domain.TermWeight{{Term: "shuttle"}}}},
	}
	m := sized(t, New(&fakePort{}, r))
	want := []Pane{ClustersPane, ComponentsPane, SearchPane}
	for _, p := range want {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = next.(Model)
		if m.Pane() != p {
			t.Fatalf("pane = %v, want %v", m.Pane(), p)
		}
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if !strings.Contains(m.renderPane(), "orbit") {
		t.Errorf("clusters pane missing top term:\n%s", m.renderPane())
	}
}

func TestEnterRunsQuery(t *testing.T) {
	port := &fakePort{results: []domain.SearchResult{
		{Document: domain.Document{Index: 1, Content: "Cats sleep. The shuttle reached orbit."}, Score: 0.9},
		{Document: domain.Document{Index: 2, Content: "God and faith."}, Score: 0.1},
	}}
	m := sized(t, New(port, nil))
	m.input.SetValue("orbit")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if len(port.queries) != 1 || port.queries[0] != "orbit" {
		t.Fatalf("queries = %v", port.queries)
	}
	if !strings.Contains(m.renderPane(), "Result 1/2") {
		t.Errorf("pane = %q", m.renderPane())
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.cursor != 1 {
		t.Errorf("cursor = %d after down", m.cursor)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want wrap to 0", m.cursor)
	}
}

func TestQueryError(t *testing.T) {
	m := sized(t, New(&fakePort{err: errors.New("no analysis")}, nil))
	m.input.SetValue("x")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !strings.Contains(m.status, "no analysis") || m.results != nil {
		t.Errorf("status %q results %v", m.status, m.results)
	}
}

func TestHighlightBestSentence(t *testing.T) {
	m := New(&fakePort{}, nil)
	got := m.highlightBestSentence("Cats sleep. The shuttle reached orbit.", "orbit")
	if !strings.Contains(got, "Cats sleep.") || !strings.Contains(got, "orbit") {
		t.Errorf("highlight = %q", got)
	}
}
