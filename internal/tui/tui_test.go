package tui

import (
	"context"
	"errors"
	"testing"

	"repocite/internal/index"
	"repocite/internal/llm"
	"repocite/internal/vectorindex"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnswerer struct {
	answer  string
	err     error
	history []llm.Message
	k       int
}

func (f *fakeAnswerer) Answer(_ context.Context, _ string, k int, history ...llm.Message) (string, error) {
	f.history = history
	f.k = k
	return f.answer, f.err
}

func TestCheckIndex(t *testing.T) {
	dir := t.TempDir()

	msg := checkIndex(Config{IndexDir: dir})()
	assert.Equal(t, checkIndexMsg{status: indexNotFound}, msg)

	idx := vectorindex.New()
	require.NoError(t, idx.Add([][]float32{{1, 0}}, []vectorindex.Record{
		{ID: "a.py::module", FilePath: "a.py", SymbolName: "a", SymbolType: "module", StartLine: 1, EndLine: 1},
	}))
	require.NoError(t, idx.Save(dir))

	msg = checkIndex(Config{IndexDir: dir})()
	assert.Equal(t, checkIndexMsg{status: indexReady}, msg)
}

func TestWelcomeView(t *testing.T) {
	m := newWelcomeModel(Config{IndexDir: "/tmp/idx", RepoRoot: "/src/repo"})
	assert.Contains(t, m.View(80, 24), "Checking index")

	m, _ = m.Update(checkIndexMsg{status: indexNotFound})
	assert.True(t, m.ready)
	view := m.View(80, 24)
	assert.Contains(t, view, "No index found")
	assert.Contains(t, view, "/src/repo")

	m, _ = m.Update(checkIndexMsg{status: indexReady})
	assert.Contains(t, m.View(80, 24), "Index ready")
}

func TestIndexingModel(t *testing.T) {
	m := newIndexingModel()
	assert.Equal(t, index.PhaseSegment, m.phase)

	m, _ = m.Update(indexProgressMsg{phase: index.PhaseEmbed, processed: 64, total: 128})
	assert.Contains(t, m.View(80, 24), "64 / 128 processed")

	m, _ = m.Update(indexDoneMsg{stats: &index.Stats{FilesTotal: 3, FilesIndexed: 2, FilesSkipped: 1, ChunksTotal: 7}})
	assert.True(t, m.done)
	view := m.View(80, 24)
	assert.Contains(t, view, "Indexing complete")
	assert.Contains(t, view, "3 total, 2 indexed, 1 skipped")

	m, _ = m.Update(indexDoneMsg{err: index.ErrNoChunks})
	assert.Contains(t, m.View(80, 24), index.ErrNoChunks.Error())
}

func enter(m chatModel, text string) (chatModel, tea.Cmd) {
	m.input.SetValue(text)
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestChatModel_Commands(t *testing.T) {
	m := newChatModel(context.Background(), &fakeAnswerer{}, 10, 20)
	m.initViewport(80, 24)

	m, _ = enter(m, "/help")
	require.Len(t, m.messages, 1)
	assert.Equal(t, "system", m.messages[0].role)

	m, _ = enter(m, "/clear")
	assert.Empty(t, m.messages)
	assert.Empty(t, m.history)

	_, cmd := enter(m, "/exit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestChatModel_QuestionRoundTrip(t *testing.T) {
	fake := &fakeAnswerer{answer: "See `a.py:1-3`."}
	m := newChatModel(context.Background(), fake, 10, 5)
	m.initViewport(80, 24)

	m, cmd := enter(m, "what does foo do?")
	require.NotNil(t, cmd)
	assert.Equal(t, chatAnswering, m.state)
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "what does foo do?"}}, m.history)

	// Keys are ignored while an answer is pending.
	m, _ = enter(m, "second")
	assert.Len(t, m.messages, 1)

	msg := askQuestion(context.Background(), fake, "what does foo do?", nil, 5)()
	assert.Equal(t, answerMsg{answer: "See `a.py:1-3`."}, msg)
	assert.Equal(t, 5, fake.k)

	m, _ = m.Update(msg)
	assert.Equal(t, chatIdle, m.state)
	require.Len(t, m.history, 2)
	assert.Equal(t, llm.RoleAssistant, m.history[1].Role)
	assert.Contains(t, m.View(80, 24), "k=5")
}

func TestChatModel_FailedAnswerDropsQuestion(t *testing.T) {
	m := newChatModel(context.Background(), &fakeAnswerer{}, 10, 5)
	m.initViewport(80, 24)

	m, _ = enter(m, "why?")
	m, _ = m.Update(answerMsg{err: errors.New("chat unavailable")})

	assert.Equal(t, chatIdle, m.state)
	assert.Empty(t, m.history)
	require.Len(t, m.messages, 2)
	assert.Equal(t, "error", m.messages[1].role)
}

func TestChatModel_HistoryBounded(t *testing.T) {
	m := newChatModel(context.Background(), &fakeAnswerer{}, 10, 5)
	m.initViewport(80, 24)
	for i := 0; i < maxHistory; i++ {
		m, _ = enter(m, "q")
		m, _ = m.Update(answerMsg{answer: "a"})
	}
	assert.Len(t, m.history, maxHistory)
}
