// Package picker drives the interactive disambiguation list shown when the
// Fuzzy Matcher (internal/fuzzy) returns a Multi result: the orchestrator
// hands the winner plus its ambiguous siblings to Resolve, which renders a
// filterable bubbletea list and returns the user's pick.
//
// Adapted from clai/internal/picker's async, tabbed history browser
// (model.go) down to the shape this domain actually needs: one static,
// already-resolved candidate list with no network/database fetch, no tabs,
// and no clipboard integration — the Multi bucket is fully computed before
// the picker ever opens.
package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/hyperscripter/internal/fuzzy"
)

// Item is one candidate line in the disambiguation list.
type Item struct {
	Key    string // the script's fuzzy key (scriptname.Name.Key())
	Detail string // short annotation, e.g. "prefix of aaa" or a tag summary
}

func (i Item) displayText() string {
	if i.Detail == "" {
		return i.Key
	}
	return i.Key + "  · " + i.Detail
}

// Model is the Bubble Tea model for the disambiguation picker.
type Model struct {
	all       []Item
	filtered  []Item
	textInput textinput.Model
	selection int
	width     int
	height    int
	result    string
	cancelled bool
}

// NewModel builds a Model over a static candidate list, pre-selecting the
// first item (conventionally the fuzzy match's Winner).
func NewModel(items []Item) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = queryStyle
	ti.Placeholder = "type to filter..."
	ti.Focus()
	m := Model{all: items, textInput: ti}
	m.refilter()
	return m
}

// Result returns the selected candidate's Key, or "" if the user cancelled.
func (m Model) Result() string { return m.result } //nolint:gocritic // bubbletea tea.Model requires value receiver

// IsCancelled reports whether the user cancelled (Esc) instead of choosing.
func (m Model) IsCancelled() bool { return m.cancelled } //nolint:gocritic // bubbletea tea.Model requires value receiver

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink } //nolint:gocritic // bubbletea tea.Model requires value receiver

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:gocritic // bubbletea tea.Model requires value receiver
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:gocritic // bubbletea tea.Model requires value receiver
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.cancelled = true
		return m, tea.Quit

	case tea.KeyEnter:
		if m.selection >= 0 && m.selection < len(m.filtered) {
			m.result = m.filtered[m.selection].Key
		}
		return m, tea.Quit

	case tea.KeyUp:
		if m.selection > 0 {
			m.selection--
		}
		return m, nil

	case tea.KeyDown:
		if m.selection < len(m.filtered)-1 {
			m.selection++
		}
		return m, nil
	}

	prev := m.textInput.Value()
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	if m.textInput.Value() != prev {
		m.refilter()
	}
	return m, cmd
}

// refilter recomputes m.filtered from m.all against the current query,
// matching anywhere in the candidate's key (case-insensitive substring).
func (m *Model) refilter() {
	q := strings.ToLower(strings.TrimSpace(m.textInput.Value()))
	if q == "" {
		m.filtered = m.all
	} else {
		m.filtered = make([]Item, 0, len(m.all))
		for _, it := range m.all {
			if strings.Contains(strings.ToLower(it.Key), q) {
				m.filtered = append(m.filtered, it)
			}
		}
	}
	if m.selection >= len(m.filtered) {
		m.selection = len(m.filtered) - 1
	}
	if m.selection < 0 && len(m.filtered) > 0 {
		m.selection = 0
	}
}

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	queryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// View implements tea.Model.
func (m Model) View() string { //nolint:gocritic // bubbletea tea.Model requires value receiver
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d matching scripts — pick one", len(m.filtered))))
	b.WriteRune('\n')

	if len(m.filtered) == 0 {
		b.WriteString(dimStyle.Render("no matches"))
	} else {
		for i, it := range m.filtered {
			display := StripANSI(it.displayText())
			width := m.contentWidth()
			if width > 2 && lipgloss.Width(display) > width-2 {
				display = MiddleTruncate(display, width-2)
			}
			if i == m.selection {
				b.WriteString(selectedStyle.Render("> " + display))
			} else {
				b.WriteString(normalStyle.Render("  " + display))
			}
			if i < len(m.filtered)-1 {
				b.WriteRune('\n')
			}
		}
	}
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render("Enter pick · Esc cancel"))
	b.WriteRune('\n')
	b.WriteString(m.textInput.View())
	return b.String()
}

func (m Model) contentWidth() int { //nolint:gocritic // bubbletea tea.Model requires value receiver
	if m.width <= 0 {
		return 60
	}
	return m.width
}

// Resolve renders the picker over result's Multi bucket (winner + others +
// still_others) and blocks until the user picks one or cancels, returning
// the chosen candidate. It is called only for a Multi result:
// orchestrate.Resolver.Resolve takes the winner of a High or Low result
// directly and reports None as not found.
func Resolve[T fuzzy.Key](ctx context.Context, result fuzzy.Result[T]) (T, error) {
	var zero T
	byKey := map[string]T{result.Winner.FuzzKey(): result.Winner}
	items := []Item{{Key: result.Winner.FuzzKey(), Detail: "best match"}}
	for _, o := range result.Others {
		byKey[o.FuzzKey()] = o
		items = append(items, Item{Key: o.FuzzKey(), Detail: "prefix of " + result.Winner.FuzzKey()})
	}
	for _, o := range result.StillOthers {
		byKey[o.FuzzKey()] = o
		items = append(items, Item{Key: o.FuzzKey()})
	}

	m := NewModel(items)
	program := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return zero, fmt.Errorf("picker: run disambiguation list: %w", err)
	}

	fm := final.(Model)
	if fm.IsCancelled() || fm.Result() == "" {
		return zero, fmt.Errorf("picker: selection cancelled")
	}
	chosen, ok := byKey[fm.Result()]
	if !ok {
		return zero, fmt.Errorf("picker: selected key %q not in candidate set", fm.Result())
	}
	return chosen, nil
}
