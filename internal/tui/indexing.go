package tui

import (
	"context"
	"fmt"
	"time"

	"repocite/internal/embedder"
	"repocite/internal/index"
	"repocite/internal/logging"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type indexingModel struct {
	spinner   spinner.Model
	phase     string
	processed int
	total     int
	done      bool
	stats     *index.Stats
	err       error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner: sp,
		phase:   index.PhaseSegment,
	}
}

// indexDoneMsg is sent when indexing completes.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

// indexProgressMsg is sent periodically during indexing.
type indexProgressMsg struct {
	phase     string
	processed int
	total     int
}

func runIndex(ctx context.Context, cfg Config, emb embedder.Embedder) tea.Cmd {
	return func() tea.Msg {
		settings := cfg.Settings
		// Logs are discarded while the alt screen is active.
		idx := index.New(emb, index.Config{
			Workers:   settings.Index.Workers,
			BatchSize: settings.Embedder.BatchSize,
			Excludes:  settings.Index.Exclude,
			Logger:    logging.Discard(),
			OnProgress: func(phase string, processed, total int) {
				if cfg.program != nil && cfg.program.p != nil {
					cfg.program.p.Send(indexProgressMsg{
						phase:     phase,
						processed: processed,
						total:     total,
					})
				}
			},
		})

		stats, err := idx.Index(ctx, cfg.RepoRoot, cfg.IndexDir)
		return indexDoneMsg{stats: stats, err: err}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case indexProgressMsg:
		m.phase = msg.phase
		m.processed = msg.processed
		m.total = msg.total
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Indexing") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files:   %d total, %d indexed, %d skipped\n",
				m.stats.FilesTotal, m.stats.FilesIndexed, m.stats.FilesSkipped)
			s += fmt.Sprintf("  Chunks:  %d (%d vectors, dim %d)\n",
				m.stats.ChunksTotal, m.stats.Vectors, m.stats.Dim)
			s += fmt.Sprintf("  Elapsed: %s\n", m.stats.Duration.Round(time.Millisecond))
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to start chatting") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d processed\n", m.processed, m.total)
	}
	s += "\n"
	s += dimStyle.Render("  This may take a while for large codebases...") + "\n"
	return s
}
