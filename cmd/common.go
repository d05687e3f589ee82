package cmd

import (
	"fmt"
	"io"

	"repocite/internal/embedder"
	"repocite/internal/llm"
	"repocite/internal/rag"
	"repocite/internal/vectorindex"
)

// session bundles the collaborators a query-time command needs.
type session struct {
	index     *vectorindex.Index
	emb       embedder.Embedder
	retriever *rag.Retriever
}

func (s *session) Close() {
	if c, ok := s.emb.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("close embedder", "error", err)
		}
	}
}

// openSession loads the index in dir and builds the embedder, plus the chat
// collaborator when withChat is set.
func openSession(dir, root string, withChat bool) (*session, error) {
	if !vectorindex.Exists(dir) {
		return nil, fmt.Errorf("index not found at %s\nRun 'repocite index <path>' first to build the index", dir)
	}
	idx, err := vectorindex.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	var chat llm.Chat
	if withChat {
		chat, err = llm.New(settings.Chat)
		if err != nil {
			return nil, err
		}
	}
	emb, err := embedder.New(settings.Embedder)
	if err != nil {
		return nil, err
	}

	logger.Debug("index loaded", "dir", dir, "vectors", idx.Len(), "dim", idx.Dim())
	return &session{
		index: idx,
		emb:   emb,
		retriever: rag.NewRetriever(idx, emb, chat, rag.Options{
			Root:   root,
			Logger: logger,
		}),
	}, nil
}
