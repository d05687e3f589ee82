package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// MaxChunkLines bounds the size of a module_body chunk. Gaps longer than
// this are split into consecutive windows.
const MaxChunkLines = 250

// ModuleBodyName is the symbol name given to every module_body chunk.
const ModuleBodyName = "__module_body__"

// Symbol types.
const (
	TypeModule     = "module"
	TypeFunction   = "function"
	TypeClass      = "class"
	TypeModuleBody = "module_body"
)

// ErrSyntax is returned when a file does not parse cleanly. Callers treat it
// as a soft skip.
var ErrSyntax = errors.New("syntax error")

// Chunk is a contiguous, named span of a source file.
type Chunk struct {
	ID         string
	FilePath   string
	SymbolName string
	SymbolType string
	StartLine  int
	EndLine    int
	Text       string
	Docstring  string
	Imports    []string
}

// ChunkID builds the deterministic identifier for a chunk.
func ChunkID(path, symbolType, name string, start, end int) string {
	switch symbolType {
	case TypeModule:
		return path + "::module"
	case TypeModuleBody:
		return fmt.Sprintf("%s::module_body:%d-%d", path, start, end)
	default:
		return fmt.Sprintf("%s::%s::%s:%d-%d", path, symbolType, name, start, end)
	}
}

// SplitLines splits src into lines without their terminators. A trailing
// newline does not produce an extra empty line and a trailing '\r' is
// dropped from each line.
func SplitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.Split(src, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// sliceLines returns lines start..end (1-based, inclusive) joined by '\n'.
func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
