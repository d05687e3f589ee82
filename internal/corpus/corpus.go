// Package corpus turns a repository into an ordered list of chunks.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"repocite/internal/chunker"
	"repocite/internal/logging"
	"repocite/internal/walker"
)

// Options configures a Builder.
type Options struct {
	// Workers bounds concurrent segmentation. Zero means runtime.NumCPU().
	Workers int
	// Excludes are extra directory patterns skipped by the walker.
	Excludes []string
	// OnFile is called after each file is processed.
	OnFile func(done, total int)
	Logger *slog.Logger
}

// Result is the outcome of a corpus build.
type Result struct {
	Chunks       []chunker.Chunk
	FilesTotal   int
	FilesChunked int
	FilesSkipped int
}

// Builder enumerates, reads and segments the files of a repository.
type Builder struct {
	seg  *chunker.Segmenter
	opts Options
	log  *slog.Logger
}

// NewBuilder creates a builder around the given segmenter.
func NewBuilder(seg *chunker.Segmenter, opts Options) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Builder{seg: seg, opts: opts, log: log}
}

// Build segments every source file under root. Files that cannot be read or
// parsed are logged and skipped. The chunks are concatenated in the walker's
// enumeration order regardless of how many workers ran.
func (b *Builder) Build(ctx context.Context, root string) (*Result, error) {
	files, err := walker.List(root, b.seg.Registry().Extensions(), b.opts.Excludes)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	perFile := make([][]chunker.Chunk, len(files))
	ok := make([]bool, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[i], ok[i] = b.segmentFile(f)
			n := done.Add(1)
			if b.opts.OnFile != nil {
				b.opts.OnFile(int(n), len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{FilesTotal: len(files)}
	for i := range files {
		if !ok[i] {
			res.FilesSkipped++
			continue
		}
		res.FilesChunked++
		res.Chunks = append(res.Chunks, perFile[i]...)
	}
	b.log.Info("corpus built",
		"root", root,
		"files", res.FilesTotal,
		"chunked", res.FilesChunked,
		"skipped", res.FilesSkipped,
		"chunks", len(res.Chunks))
	return res, nil
}

// segmentFile never fails the build: every problem becomes a skipped file.
func (b *Builder) segmentFile(f walker.FileInfo) (chunks []chunker.Chunk, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("segmenter panicked", "path", f.Path, "panic", fmt.Sprint(r))
			chunks, ok = nil, false
		}
	}()

	src, err := os.ReadFile(f.Path)
	if err != nil {
		b.log.Warn("skipping unreadable file", "path", f.Path, "error", err)
		return nil, false
	}
	chunks, err = b.seg.Segment(f.Path, src)
	if err != nil {
		if errors.Is(err, chunker.ErrSyntax) {
			b.log.Warn("skipping file with syntax errors", "path", f.Path)
		} else {
			b.log.Warn("skipping file", "path", f.Path, "error", err)
		}
		return nil, false
	}
	b.log.Debug("segmented", "path", f.Path, "language", b.seg.Registry().LanguageName(f.Path), "chunks", len(chunks))
	return chunks, true
}
