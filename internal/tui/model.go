package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lsa/internal/domain"
	"lsa/internal/report"
	"lsa/internal/vectorizer"
)

// QueryPort is the TUI-facing subset of the analysis service.
type QueryPort interface {
	Query(query string, topK int) ([]domain.SearchResult, error)
}

// Pane identifies the visible view.
type Pane int

const (
	SearchPane Pane = iota
	ClustersPane
	ComponentsPane
)

var paneTitles = []string{"Search", "Clusters", "Components"}

func (p Pane) String() string { return paneTitles[p] }

// Model is the Bubble Tea model for the browser.
type Model struct {
	service   QueryPort
	report    *report.Report
	input     textinput.Model
	viewport  viewport.Model
	pane      Pane
	results   []domain.SearchResult
	status    string
	cursor    int
	ready     bool
	lastQuery string
	tokenizer *vectorizer.Tokenizer
}

// New creates a new TUI model instance.
func New(service QueryPort, r *report.Report) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "Loaded. Type to search, Tab to switch panes."
	if r != nil {
		status = fmt.Sprintf("Loaded %d documents, %d terms. Type to search, Tab to switch panes.", r.Documents, r.Terms)
	}
	return Model{
		service:   service,
		report:    r,
		input:     ti,
		viewport:  vp,
		status:    status,
		tokenizer: vectorizer.NewTokenizer(nil, 1),
	}
}

// Pane returns the visible pane.
func (m Model) Pane() Pane { return m.pane }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and tabs, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderPane())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			m.pane = (m.pane + 1) % Pane(len(paneTitles))
			m.viewport.SetContent(m.renderPane())
			m.viewport.GotoTop()
			return m, nil
		case "shift+tab":
			m.pane = (m.pane + Pane(len(paneTitles)) - 1) % Pane(len(paneTitles))
			m.viewport.SetContent(m.renderPane())
			m.viewport.GotoTop()
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				res, err := m.service.Query(q, 10)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.results = nil
				} else {
					m.status = fmt.Sprintf("Results for %q", q)
					m.results = res
					m.cursor = 0
					m.lastQuery = q
				}
				m.pane = SearchPane
				m.viewport.SetContent(m.renderPane())
				return m, nil
			}
		case "down":
			if m.pane == SearchPane && len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderPane())
				return m, nil
			}
			m.viewport.LineDown(1)
			return m, nil
		case "up":
			if m.pane == SearchPane && len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderPane())
				return m, nil
			}
			m.viewport.LineUp(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the active pane.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("LSA Browser")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + m.renderTabs() + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(paneTitles))
	for i, title := range paneTitles {
		if Pane(i) == m.pane {
			tabs[i] = activeTabStyle.Render(title)
		} else {
			tabs[i] = tabStyle.Render(title)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderPane() string {
	switch m.pane {
	case ClustersPane:
		if m.report == nil || len(m.report.Clusters) == 0 {
			return "No clusters."
		}
		out := report.ClustersTable(m.report.Clusters)
		if m.report.Contingency != nil {
			out += "\n" + report.ContingencyTable(m.report.Contingency)
		}
		return out
	case ComponentsPane:
		if m.report == nil || len(m.report.Components) == 0 {
			return "No components."
		}
		return report.ComponentsTable(m.report.Components)
	}
	return m.renderCurrentResult()
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f  %s", m.cursor+1, len(m.results), r.Score, documentName(r.Document))
	body := m.highlightBestSentence(r.Document.Content, m.lastQuery)
	return title + "\n\n" + body
}

func documentName(d domain.Document) string {
	name := d.Path
	if name == "" {
		name = fmt.Sprintf("#%d", d.Index)
	}
	if d.Label != "" {
		name += " [" + d.Label + "]"
	}
	return name
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).Underline(true)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func (m Model) highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(m.tokenizer.Tokenize(query))
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, m.tokenizer.Tokenize(s))
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, tokens []string) int {
	score := 0
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
