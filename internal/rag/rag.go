// Package rag retrieves cited code snippets for a question and frames them
// for the chat collaborator.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"repocite/internal/embedder"
	"repocite/internal/llm"
	"repocite/internal/logging"
	"repocite/internal/vectorindex"
)

const systemPrompt = "You are a code assistant. Answer using only the provided code snippets. " +
	"Always cite exact file:line ranges you used. If unsure, say you are unsure."

const answerInstruction = "Respond with a concise answer followed by bullet list of citations."

// ErrNoChat is returned by Answer when the retriever has no chat collaborator.
var ErrNoChat = errors.New("no chat collaborator configured")

// Snippet is one retrieved chunk rendered with its citation header.
type Snippet struct {
	Score  float32
	Slot   int
	Record vectorindex.Record
	Text   string
}

// Retriever answers questions against a loaded index.
type Retriever struct {
	index *vectorindex.Index
	emb   embedder.Embedder
	chat  llm.Chat
	root  string
	log   *slog.Logger
}

// Options configures a Retriever.
type Options struct {
	// Root resolves relative record paths when reading snippets.
	Root   string
	Logger *slog.Logger
}

// NewRetriever creates a retriever. chat may be nil when only Retrieve is used.
func NewRetriever(index *vectorindex.Index, emb embedder.Embedder, chat llm.Chat, opts Options) *Retriever {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	root := opts.Root
	if root == "" {
		root = "/"
	}
	return &Retriever{index: index, emb: emb, chat: chat, root: root, log: log}
}

// Retrieve embeds question and returns up to k snippets in search order.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]Snippet, error) {
	q, err := embedder.EmbedQuery(ctx, r.emb, question)
	if err != nil {
		return nil, err
	}
	hits, err := r.index.Search([][]float32{q}, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	snippets := make([]Snippet, 0, len(hits[0]))
	for _, h := range hits[0] {
		rec, ok := r.index.Record(h.Slot)
		if !ok {
			r.log.Warn("hit without metadata", "slot", h.Slot)
			continue
		}
		snippets = append(snippets, Snippet{
			Score:  h.Score,
			Slot:   h.Slot,
			Record: rec,
			Text:   ReadSnippet(r.root, rec),
		})
	}
	r.log.Debug("retrieved", "question", question, "k", k, "hits", len(snippets))
	return snippets, nil
}

// Answer retrieves snippets for question and asks the chat collaborator.
// history is inserted between the system instruction and the question.
func (r *Retriever) Answer(ctx context.Context, question string, k int, history ...llm.Message) (string, error) {
	if r.chat == nil {
		return "", ErrNoChat
	}
	snippets, err := r.Retrieve(ctx, question, k)
	if err != nil {
		return "", err
	}
	answer, err := r.chat.Generate(ctx, BuildMessages(question, snippets, history...))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// BuildMessages frames question and snippets, in search order, for the chat
// collaborator.
func BuildMessages(question string, snippets []Snippet, history ...llm.Message) []llm.Message {
	blocks := make([]string, len(snippets))
	for i, s := range snippets {
		blocks[i] = s.Text
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Question:\n%s\n\n", question)
	fmt.Fprintf(&user, "Code snippets (with citations):\n%s\n\n", strings.Join(blocks, "\n\n"))
	user.WriteString(answerInstruction)

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: user.String()})
	return msgs
}
