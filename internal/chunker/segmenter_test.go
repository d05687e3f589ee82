package chunker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repocite/internal/chunker"
	"repocite/internal/chunker/languages"
)

func segment(t *testing.T, path, src string) []chunker.Chunk {
	t.Helper()
	chunks, err := chunker.NewSegmenter(languages.Default()).Segment(path, []byte(src))
	require.NoError(t, err)
	return chunks
}

type span struct {
	Type  string
	Name  string
	Start int
	End   int
}

func spans(chunks []chunker.Chunk) []span {
	out := make([]span, len(chunks))
	for i, c := range chunks {
		out[i] = span{c.SymbolType, c.SymbolName, c.StartLine, c.EndLine}
	}
	return out
}

const pythonSource = `"""Module doc.

More text.
"""
import os
from a.b import c, d as e

X = 1


@decorator
def foo(a):
    """Foo does things."""
    return a


class Bar:
    def method(self):
        pass

# just a comment

async def baz():
    return await foo(1)
`

func TestSegment_Python(t *testing.T) {
	chunks := segment(t, "/repo/pkg/mod.py", pythonSource)

	assert.Equal(t, []span{
		{chunker.TypeModule, "mod", 1, 4},
		{chunker.TypeFunction, "foo", 11, 14},
		{chunker.TypeClass, "Bar", 17, 19},
		{chunker.TypeFunction, "baz", 23, 24},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 5, 10},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 20, 22},
	}, spans(chunks))

	t.Run("docstrings", func(t *testing.T) {
		assert.Equal(t, "Module doc.\n\nMore text.", chunks[0].Docstring)
		assert.Equal(t, "Foo does things.", chunks[1].Docstring)
		assert.Empty(t, chunks[2].Docstring)
	})

	t.Run("ids", func(t *testing.T) {
		assert.Equal(t, "/repo/pkg/mod.py::module", chunks[0].ID)
		assert.Equal(t, "/repo/pkg/mod.py::function::foo:11-14", chunks[1].ID)
		assert.Equal(t, "/repo/pkg/mod.py::class::Bar:17-19", chunks[2].ID)
		assert.Equal(t, "/repo/pkg/mod.py::module_body:5-10", chunks[4].ID)
	})

	t.Run("imports are shared by every chunk", func(t *testing.T) {
		for _, c := range chunks {
			assert.Equal(t, []string{"os", "a.b.c", "a.b.d"}, c.Imports)
		}
	})

	t.Run("text is the literal span", func(t *testing.T) {
		assert.Equal(t, "@decorator\ndef foo(a):\n    \"\"\"Foo does things.\"\"\"\n    return a", chunks[1].Text)
		assert.Equal(t, "\n# just a comment\n", chunks[5].Text)
	})
}

func TestSegment_LeadingBlankLinesThenFunction(t *testing.T) {
	src := "\n\ndef f(x):\n    a = 1\n    b = 2\n    c = 3\n    d = 4\n    e = 5\n    g = 6\n    return x\n"
	require.Len(t, chunker.SplitLines(src), 10)

	chunks := segment(t, "a.py", src)

	require.Len(t, chunks, 1)
	assert.Equal(t, span{chunker.TypeFunction, "f", 3, 10}, spans(chunks)[0])
	assert.Equal(t, "a.py::function::f:3-10", chunks[0].ID)
}

func TestSegment_CommentOnlyGapIsKept(t *testing.T) {
	src := "def a():\n    return 1\n\n# only a comment\n\ndef b():\n    return 2\n"

	chunks := segment(t, "gap.py", src)

	assert.Equal(t, []span{
		{chunker.TypeFunction, "a", 1, 2},
		{chunker.TypeFunction, "b", 6, 7},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 3, 5},
	}, spans(chunks))
}

func TestSegment_WhitespaceOnlyGapIsDropped(t *testing.T) {
	src := "def a():\n    return 1\n\n   \n\ndef b():\n    return 2\n"

	chunks := segment(t, "gap.py", src)

	assert.Equal(t, []span{
		{chunker.TypeFunction, "a", 1, 2},
		{chunker.TypeFunction, "b", 6, 7},
	}, spans(chunks))
}

func TestSegment_LongGapIsSplit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 600; i++ {
		fmt.Fprintf(&b, "x_%d = %d\n", i, i)
	}

	chunks := segment(t, "long.py", b.String())

	assert.Equal(t, []span{
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 1, 250},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 251, 500},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 501, 600},
	}, spans(chunks))
}

func TestSegment_SyntaxError(t *testing.T) {
	chunks, err := chunker.NewSegmenter(languages.Default()).Segment("bad.py", []byte("def broken(:\n    pass\n"))

	assert.ErrorIs(t, err, chunker.ErrSyntax)
	assert.Contains(t, err.Error(), "bad.py")
	assert.Empty(t, chunks)
}

func TestSegment_UnknownExtension(t *testing.T) {
	chunks, err := chunker.NewSegmenter(languages.Default()).Segment("README.md", []byte("# hello\n"))

	assert.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestSegment_EmptyFile(t *testing.T) {
	assert.Empty(t, segment(t, "empty.py", ""))
	assert.Empty(t, segment(t, "blank.py", "\n\n  \n"))
}

const goSource = `// Package demo does demo things.
package demo

import (
	"fmt"
	"strings"
)

// Greet says hello.
func Greet(name string) string {
	return fmt.Sprintf("hi %s", strings.ToUpper(name))
}

type Point struct {
	X, Y int
}

func (p Point) Sum() int { return p.X + p.Y }
`

func TestSegment_Go(t *testing.T) {
	chunks := segment(t, "demo.go", goSource)

	assert.Equal(t, []span{
		{chunker.TypeModule, "demo", 1, 1},
		{chunker.TypeFunction, "Greet", 10, 12},
		{chunker.TypeClass, "Point", 14, 16},
		{chunker.TypeFunction, "Sum", 18, 18},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 2, 9},
	}, spans(chunks))
	assert.Equal(t, "Package demo does demo things.", chunks[0].Docstring)
	assert.Equal(t, "Greet says hello.", chunks[1].Docstring)
	assert.Equal(t, []string{"fmt", "strings"}, chunks[0].Imports)
}

const tsSource = `import { x } from "./x";

export interface Shape {
  area(): number;
}

/** Doubles a number. */
export const double = (n: number): number => n * 2;

class Box {}
`

func TestSegment_TypeScript(t *testing.T) {
	chunks := segment(t, "shapes.ts", tsSource)

	assert.Equal(t, []span{
		{chunker.TypeClass, "Shape", 3, 5},
		{chunker.TypeFunction, "double", 8, 8},
		{chunker.TypeClass, "Box", 10, 10},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 1, 1},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 6, 7},
	}, spans(chunks))
	assert.Equal(t, "Doubles a number.", chunks[1].Docstring)
	assert.Equal(t, []string{"./x"}, chunks[0].Imports)
}

const tsxSource = `import React from "react";
import { Title } from "./title";

/** Renders the app shell. */
export function App() {
  return <div className="app"><Title text="hello" /></div>;
}

export const Badge = ({ label }: { label: string }) => <span>{label}</span>;

class Panel extends React.Component {
  render() {
    return <section>{this.props.children}</section>;
  }
}
`

func TestSegment_TSX(t *testing.T) {
	chunks := segment(t, "web/App.tsx", tsxSource)

	assert.Equal(t, []span{
		{chunker.TypeFunction, "App", 5, 7},
		{chunker.TypeFunction, "Badge", 9, 9},
		{chunker.TypeClass, "Panel", 11, 15},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 1, 4},
	}, spans(chunks))
	assert.Equal(t, "Renders the app shell.", chunks[0].Docstring)
	assert.Contains(t, chunks[0].Text, "<Title text=\"hello\" />")
	assert.Equal(t, []string{"react", "./title"}, chunks[0].Imports)
}

func TestSegment_JSXNeedsTSXGrammar(t *testing.T) {
	src := "import React from \"react\";\n\nexport function App() {\n  return <div>hello</div>;\n}\n"
	seg := chunker.NewSegmenter(languages.Default())

	chunks, err := seg.Segment("App.tsx", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []span{
		{chunker.TypeFunction, "App", 3, 5},
		{chunker.TypeModuleBody, chunker.ModuleBodyName, 1, 1},
	}, spans(chunks))

	// The same source is not valid plain TypeScript.
	_, err = seg.Segment("App.ts", []byte(src))
	assert.ErrorIs(t, err, chunker.ErrSyntax)
}

func TestSegment_Invariants(t *testing.T) {
	var long strings.Builder
	long.WriteString("import sys\n\n")
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&long, "print(%d)\n", i)
	}
	long.WriteString("\ndef tail():\n    return sys.argv\n")

	fixtures := map[string]string{
		"mod.py":    pythonSource,
		"long.py":   long.String(),
		"demo.go":   goSource,
		"shapes.ts": tsSource,
		"App.tsx":   tsxSource,
		"app.js":    "// app entry\nimport fs from 'fs';\n\nfunction main() {\n  return fs;\n}\n\nconst run = () => main();\nrun();\n",
	}

	seg := chunker.NewSegmenter(languages.Default())
	for path, src := range fixtures {
		t.Run(path, func(t *testing.T) {
			chunks, err := seg.Segment(path, []byte(src))
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			lines := chunker.SplitLines(src)
			owner := make([]int, len(lines)+1)
			for _, c := range chunks {
				require.GreaterOrEqual(t, c.StartLine, 1)
				require.LessOrEqual(t, c.EndLine, len(lines))
				require.LessOrEqual(t, c.StartLine, c.EndLine)
				assert.Equal(t, strings.Join(lines[c.StartLine-1:c.EndLine], "\n"), c.Text)
				if c.SymbolType == chunker.TypeModuleBody {
					assert.LessOrEqual(t, c.EndLine-c.StartLine+1, chunker.MaxChunkLines)
					assert.NotEmpty(t, strings.TrimSpace(c.Text))
				}
				for l := c.StartLine; l <= c.EndLine; l++ {
					owner[l]++
				}
			}
			for l := 1; l <= len(lines); l++ {
				if strings.TrimSpace(lines[l-1]) == "" {
					assert.LessOrEqual(t, owner[l], 1, "line %d", l)
					continue
				}
				assert.Equal(t, 1, owner[l], "line %d: %q", l, lines[l-1])
			}

			again, err := seg.Segment(path, []byte(src))
			require.NoError(t, err)
			assert.Equal(t, chunks, again)
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, chunker.SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, chunker.SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, chunker.SplitLines("a\r\nb"))
	assert.Equal(t, []string{"", "a"}, chunker.SplitLines("\na\n"))
}

func TestRegistry(t *testing.T) {
	r := languages.Default()

	assert.Equal(t, []string{"go", "javascript", "python", "tsx", "typescript"}, r.Languages())
	assert.Equal(t, "python", r.LanguageName("x/y.py"))
	assert.Equal(t, "typescript", r.LanguageName("x/y.ts"))
	assert.Equal(t, "tsx", r.LanguageName("x/y.tsx"))
	assert.Equal(t, "", r.LanguageName("x/y.rs"))
	assert.True(t, r.Extensions()["tsx"])
}
