// Package index builds the on-disk vector index for a repository.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"repocite/internal/chunker"
	"repocite/internal/chunker/languages"
	"repocite/internal/corpus"
	"repocite/internal/embedder"
	"repocite/internal/logging"
	"repocite/internal/vectorindex"
)

// ErrNoChunks is returned when a repository yields nothing to index.
var ErrNoChunks = errors.New("no chunks produced")

// maxEmbedChars bounds the text sent to the embedding collaborator per chunk.
const maxEmbedChars = 4000

// Progress phases.
const (
	PhaseSegment = "Segmenting files..."
	PhaseEmbed   = "Embedding chunks..."
	PhaseSave    = "Writing index..."
)

// ProgressFunc reports progress through a build phase.
type ProgressFunc func(phase string, processed, total int)

// Config holds the indexer configuration.
type Config struct {
	Workers    int
	BatchSize  int
	Excludes   []string
	OnProgress ProgressFunc
	Logger     *slog.Logger
}

// Stats reports indexing results.
type Stats struct {
	FilesTotal   int
	FilesIndexed int
	FilesSkipped int
	ChunksTotal  int
	Vectors      int
	Dim          int
	Duration     time.Duration
}

// Indexer runs corpus → embed → index → save.
type Indexer struct {
	embedder embedder.Embedder
	builder  *corpus.Builder
	config   Config
	log      *slog.Logger
}

// New creates an indexer using every registered language.
func New(emb embedder.Embedder, cfg Config) *Indexer {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	builder := corpus.NewBuilder(chunker.NewSegmenter(languages.Default()), corpus.Options{
		Workers:  cfg.Workers,
		Excludes: cfg.Excludes,
		Logger:   log,
		OnFile: func(done, total int) {
			if cfg.OnProgress != nil {
				cfg.OnProgress(PhaseSegment, done, total)
			}
		},
	})
	return &Indexer{embedder: emb, builder: builder, config: cfg, log: log}
}

// Index rebuilds the index for root and writes it to outDir.
func (idx *Indexer) Index(ctx context.Context, root, outDir string) (*Stats, error) {
	started := time.Now()

	res, err := idx.builder.Build(ctx, root)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		FilesTotal:   res.FilesTotal,
		FilesIndexed: res.FilesChunked,
		FilesSkipped: res.FilesSkipped,
		ChunksTotal:  len(res.Chunks),
	}
	if len(res.Chunks) == 0 {
		return stats, fmt.Errorf("%s: %w", root, ErrNoChunks)
	}

	texts := make([]string, len(res.Chunks))
	records := make([]vectorindex.Record, len(res.Chunks))
	for i, c := range res.Chunks {
		texts[i] = PrepareText(c)
		records[i] = RecordOf(c)
	}

	vectors := idx.embedAll(ctx, texts)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	vi := vectorindex.New()
	if abs, err := filepath.Abs(root); err == nil {
		vi.SetRoot(abs)
	}
	if err := vi.Add(vectors, records); err != nil {
		return stats, fmt.Errorf("embedded %d of %d chunks: %w", len(vectors), len(records), err)
	}
	idx.progress(PhaseSave, 0, 1)
	if err := vi.Save(outDir); err != nil {
		return stats, fmt.Errorf("save index: %w", err)
	}
	idx.progress(PhaseSave, 1, 1)

	stats.Vectors = vi.Len()
	stats.Dim = vi.Dim()
	stats.Duration = time.Since(started)
	idx.log.Info("index written",
		"dir", outDir,
		"vectors", stats.Vectors,
		"dim", stats.Dim,
		"duration", stats.Duration.String())
	return stats, nil
}

// embedAll embeds in batches so progress can be reported between them.
func (idx *Indexer) embedAll(ctx context.Context, texts []string) [][]float32 {
	batch := idx.config.BatchSize
	if batch <= 0 {
		batch = embedder.DefaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batch {
		end := min(i+batch, len(texts))
		out = append(out, embedder.EmbedAll(ctx, idx.embedder, texts[i:end], batch, idx.log)...)
		idx.progress(PhaseEmbed, end, len(texts))
	}
	return out
}

func (idx *Indexer) progress(phase string, processed, total int) {
	if idx.config.OnProgress != nil {
		idx.config.OnProgress(phase, processed, total)
	}
}

// PrepareText renders the text embedded for a chunk: a type/name/range
// header, the docstring and the source, truncated to maxEmbedChars.
func PrepareText(c chunker.Chunk) string {
	text := fmt.Sprintf("[%s] %s:%d-%d\n\n%s\n\n%s",
		c.SymbolType, c.SymbolName, c.StartLine, c.EndLine, c.Docstring, c.Text)
	if len(text) > maxEmbedChars {
		text = TruncateRunes(text, maxEmbedChars)
	}
	return text
}

// TruncateRunes keeps at most n runes of s.
func TruncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// RecordOf converts a chunk into its persisted metadata.
func RecordOf(c chunker.Chunk) vectorindex.Record {
	return vectorindex.Record{
		ID:         c.ID,
		FilePath:   c.FilePath,
		SymbolName: c.SymbolName,
		SymbolType: c.SymbolType,
		StartLine:  c.StartLine,
		EndLine:    c.EndLine,
	}
}
