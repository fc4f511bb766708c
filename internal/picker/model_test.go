package picker

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestNewModel_PreselectsFirstItem(t *testing.T) {
	m := NewModel([]Item{{Key: "aaa"}, {Key: "aaa/bbb"}, {Key: "aaa/ccc"}})
	require.Equal(t, 3, len(m.filtered))
	require.Equal(t, 0, m.selection)
}

func TestHandleKey_EnterSelectsCurrentItem(t *testing.T) {
	m := NewModel([]Item{{Key: "aaa"}, {Key: "aaa/bbb"}})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	require.Nil(t, cmd)
	require.Equal(t, 1, m.selection)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.Equal(t, "aaa/bbb", m.Result())
	require.False(t, m.IsCancelled())
}

func TestHandleKey_EscCancels(t *testing.T) {
	m := NewModel([]Item{{Key: "aaa"}})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	require.True(t, m.IsCancelled())
	require.Empty(t, m.Result())
}

func TestHandleKey_UpDoesNotUnderflow(t *testing.T) {
	m := NewModel([]Item{{Key: "aaa"}, {Key: "bbb"}})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	require.Equal(t, 0, m.selection)
}

func TestRefilter_NarrowsByTypedQuery(t *testing.T) {
	m := NewModel([]Item{{Key: "aaa"}, {Key: "aaa/bbb"}, {Key: "zzz"}})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("bbb")})
	m = next.(Model)
	require.Len(t, m.filtered, 1)
	require.Equal(t, "aaa/bbb", m.filtered[0].Key)
}

func TestRefilter_ClampsSelectionWhenListShrinks(t *testing.T) {
	m := NewModel([]Item{{Key: "aaa"}, {Key: "bbb"}})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	require.Equal(t, 1, m.selection)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("aaa")})
	m = next.(Model)
	require.Len(t, m.filtered, 1)
	require.Equal(t, 0, m.selection)
}

func TestItem_DisplayTextIncludesDetail(t *testing.T) {
	it := Item{Key: "foo", Detail: "prefix of foo"}
	require.Equal(t, "foo  · prefix of foo", it.displayText())
}

func TestItem_DisplayTextOmitsEmptyDetail(t *testing.T) {
	it := Item{Key: "foo"}
	require.Equal(t, "foo", it.displayText())
}
