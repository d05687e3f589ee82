package tui

import (
	"repocite/internal/vectorindex"

	tea "github.com/charmbracelet/bubbletea"
)

type indexStatus int

const (
	indexNotFound indexStatus = iota
	indexReady
)

type welcomeModel struct {
	status   indexStatus
	indexDir string
	repoRoot string
	ready    bool // true once the check has completed
}

// checkIndexMsg is sent after checking the index status.
type checkIndexMsg struct {
	status indexStatus
}

func checkIndex(cfg Config) tea.Cmd {
	return func() tea.Msg {
		if !vectorindex.Exists(cfg.IndexDir) {
			return checkIndexMsg{status: indexNotFound}
		}
		return checkIndexMsg{status: indexReady}
	}
}

func newWelcomeModel(cfg Config) welcomeModel {
	return welcomeModel{indexDir: cfg.IndexDir, repoRoot: cfg.RepoRoot}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkIndexMsg:
		m.status = msg.status
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ repocite") + "\n"
	s += subtitleStyle.Render("  Ask questions about a repository, answered with file:line citations") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking index...") + "\n"
		return s
	}

	switch m.status {
	case indexReady:
		s += successStyle.Render("  ✓ Index ready") + "\n"
		s += dimStyle.Render("    "+m.indexDir) + "\n\n"
		s += dimStyle.Render("  Press Enter to start chatting") + "\n"
	case indexNotFound:
		s += warnStyle.Render("  ✗ No index found") + "\n"
		s += dimStyle.Render("    "+m.indexDir) + "\n\n"
		s += dimStyle.Render("  Press Enter to index "+m.repoRoot) + "\n"
	}
	return s
}
