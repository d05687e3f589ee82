package rag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"repocite/internal/chunker"
	"repocite/internal/vectorindex"
)

// ReadSnippet renders the lines a record points at, prefixed with a citation
// header. Relative paths resolve against root. Out-of-range lines are clamped
// to the file; a missing file yields a marker line instead of an error.
func ReadSnippet(root string, rec vectorindex.Record) string {
	path := rec.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "# Missing file: " + path
		}
		return fmt.Sprintf("# Unreadable file: %s (%v)", path, err)
	}

	lines := chunker.SplitLines(strings.ToValidUTF8(string(data), "�"))
	last := max(len(lines), 1)
	start := min(max(rec.StartLine, 1), last)
	end := min(max(rec.EndLine, start), last)

	var body string
	if len(lines) > 0 {
		body = strings.Join(lines[start-1:end], "\n")
	}
	header := fmt.Sprintf("# %s:%d-%d [%s] %s", rec.FilePath, start, end, rec.SymbolType, rec.SymbolName)
	return header + "\n" + body
}
