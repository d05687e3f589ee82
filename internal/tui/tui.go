package tui

import (
	"context"
	"io"
	"log/slog"

	"repocite/internal/config"
	"repocite/internal/embedder"
	"repocite/internal/llm"
	"repocite/internal/rag"
	"repocite/internal/vectorindex"

	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIndexing
	ViewChat
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

// Config holds configuration passed from the CLI layer.
type Config struct {
	// IndexDir holds vectors.db and metadata.jsonl.
	IndexDir string
	// RepoRoot is indexed when IndexDir holds no index.
	RepoRoot string
	Settings *config.Config
	Logger   *slog.Logger

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int
	ctx    context.Context

	welcome  welcomeModel
	indexing indexingModel
	chat     chatModel
	emb      embedder.Embedder
	err      error
}

// New creates a new TUI model with the given config.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	return Model{
		state:   ViewWelcome,
		config:  cfg,
		ctx:     ctx,
		welcome: newWelcomeModel(cfg),
	}
}

func (m Model) Init() tea.Cmd {
	return checkIndex(m.config)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewChat {
			var c tea.Cmd
			m.chat, c = m.chat.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewChat {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.welcome.ready {
			if err := m.ensureEmbedder(); err != nil {
				m.err = err
				return m, nil
			}
			if m.welcome.status == indexReady {
				return m, m.transitionToChat()
			}
			m.state = ViewIndexing
			m.indexing = newIndexingModel()
			return m, tea.Batch(m.indexing.spinner.Tick, runIndex(m.ctx, m.config, m.emb))
		}

	case ViewIndexing:
		m.indexing, cmd = m.indexing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.indexing.done {
			if m.indexing.err != nil {
				return m, tea.Quit
			}
			return m, m.transitionToChat()
		}

	case ViewChat:
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) ensureEmbedder() error {
	if m.emb != nil {
		return nil
	}
	emb, err := embedder.New(m.config.Settings.Embedder)
	if err != nil {
		return err
	}
	m.emb = emb
	return nil
}

func (m *Model) transitionToChat() tea.Cmd {
	idx, err := vectorindex.Load(m.config.IndexDir)
	if err != nil {
		m.err = err
		return nil
	}
	chat, err := llm.New(m.config.Settings.Chat)
	if err != nil {
		m.err = err
		return nil
	}

	retriever := rag.NewRetriever(idx, m.emb, chat, rag.Options{
		Root:   m.config.Settings.Query.Root,
		Logger: m.config.Logger,
	})
	m.chat = newChatModel(m.ctx, retriever, idx.Len(), m.config.Settings.Query.K)
	m.chat.initViewport(m.width, m.height)
	m.state = ViewChat

	return nil
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewIndexing:
		return m.indexing.View(m.width, m.height)
	case ViewChat:
		return m.chat.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program and blocks until it exits.
func Run(ctx context.Context, cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	model := New(ctx, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	ref.p = p
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.emb != nil {
		if c, ok := fm.emb.(io.Closer); ok {
			_ = c.Close()
		}
	}
	return err
}
