package chunker

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"repocite/internal/rangeset"
)

// Segmenter parses source files using tree-sitter and partitions them into
// non-overlapping chunks: an optional module preamble, one chunk per
// top-level function or class, and module_body chunks for everything else
// that is not blank.
type Segmenter struct {
	registry *Registry
}

// NewSegmenter creates a segmenter backed by the given registry.
func NewSegmenter(r *Registry) *Segmenter {
	return &Segmenter{registry: r}
}

// Registry returns the registry the segmenter resolves languages from.
func (s *Segmenter) Registry() *Registry {
	return s.registry
}

// Segment parses src and returns its chunks in order: module, then
// definitions in source order, then module_body gaps ascending. Files with
// no registered grammar yield nil. Files that fail to parse yield nil and an
// error wrapping ErrSyntax.
func (s *Segmenter) Segment(path string, src []byte) ([]Chunk, error) {
	spec, lang := s.registry.Lookup(path)
	if spec == nil {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w (%v)", path, ErrSyntax, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("parse %s: %w", path, ErrSyntax)
	}

	caps, err := definitions(spec, lang, root, src)
	if err != nil {
		return nil, err
	}

	var imports []string
	if spec.Imports != nil {
		imports = spec.Imports(root, src)
	}

	lines := SplitLines(string(src))
	total := len(lines)

	var (
		chunks  []Chunk
		covered []rangeset.Range
	)

	preambleEnd, moduleDoc := preamble(root, src, spec.DocStyle)
	if len(caps) > 0 && preambleEnd >= caps[0].startLine {
		preambleEnd = caps[0].startLine - 1
	}
	if preambleEnd > total {
		preambleEnd = total
	}
	if preambleEnd > 0 && strings.TrimSpace(sliceLines(lines, 1, preambleEnd)) != "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		chunks = append(chunks, newChunk(path, TypeModule, name, 1, preambleEnd, lines, moduleDoc, imports))
		covered = append(covered, rangeset.Range{Start: 1, End: preambleEnd})
	}

	for _, c := range caps {
		end := c.endLine
		if end > total {
			end = total
		}
		if end < c.startLine {
			continue
		}
		chunks = append(chunks, newChunk(path, c.kind, c.name, c.startLine, end, lines, c.doc, imports))
		covered = append(covered, rangeset.Range{Start: c.startLine, End: end})
	}

	for _, gap := range rangeset.Invert(total, covered) {
		for _, w := range rangeset.Split(gap.Start, gap.End, MaxChunkLines) {
			if strings.TrimSpace(sliceLines(lines, w.Start, w.End)) == "" {
				continue
			}
			chunks = append(chunks, newChunk(path, TypeModuleBody, ModuleBodyName, w.Start, w.End, lines, "", imports))
		}
	}

	return chunks, nil
}

func newChunk(path, kind, name string, start, end int, lines []string, doc string, imports []string) Chunk {
	return Chunk{
		ID:         ChunkID(path, kind, name, start, end),
		FilePath:   path,
		SymbolName: name,
		SymbolType: kind,
		StartLine:  start,
		EndLine:    end,
		Text:       sliceLines(lines, start, end),
		Docstring:  doc,
		Imports:    imports,
	}
}

// definitions runs the language query and returns the top-level function
// and class captures, sorted and free of overlap.
func definitions(spec *LanguageSpec, lang string, root *sitter.Node, src []byte) ([]capture, error) {
	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", lang, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	rootType := root.Type()
	var caps []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var (
			outer *sitter.Node
			kind  string
			name  string
		)
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case TypeFunction:
				outer, kind = c.Node, TypeFunction
			case TypeClass:
				outer, kind = c.Node, TypeClass
			case "name":
				name = c.Node.Content(src)
			}
		}
		if outer == nil {
			continue
		}
		parent := outer.Parent()
		if parent == nil || parent.Type() != rootType {
			continue
		}
		start, end := lineSpan(outer)
		caps = append(caps, capture{
			name:      name,
			kind:      kind,
			startLine: start,
			endLine:   end,
			startByte: outer.StartByte(),
			endByte:   outer.EndByte(),
			doc:       definitionDoc(outer, src, spec.DocStyle),
		})
	}

	return dedup(caps), nil
}

// dedup keeps the outer (larger) capture when captures share lines. Two
// definitions on the same line collapse into the first one.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var result []capture
	lastEnd := 0
	for _, c := range caps {
		if c.startLine <= lastEnd {
			continue
		}
		result = append(result, c)
		lastEnd = c.endLine
	}
	return result
}

// lineSpan returns the 1-based inclusive lines of a node. A node ending at
// column 0 does not own the line it ends on.
func lineSpan(n *sitter.Node) (int, int) {
	start := int(n.StartPoint().Row) + 1
	endPt := n.EndPoint()
	end := int(endPt.Row) + 1
	if endPt.Column == 0 && int(endPt.Row)+1 > start {
		end = int(endPt.Row)
	}
	return start, end
}

type capture struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
	doc       string
}
