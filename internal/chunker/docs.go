package chunker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const commentType = "comment"

// preamble returns the last line of the leading comment block (plus the
// module docstring for DocString languages) and the module documentation.
// It returns 0 when the file starts with a statement.
func preamble(root *sitter.Node, src []byte, style DocStyle) (int, string) {
	end := 0
	var (
		comments []string
		doc      string
		seenDoc  bool
	)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == commentType {
			comments = append(comments, cleanComment(child.Content(src)))
			_, end = lineSpan(child)
			continue
		}
		if style == DocString && !seenDoc {
			if lit := stringStatement(child); lit != nil {
				doc = cleanDocstring(lit.Content(src))
				seenDoc = true
				_, end = lineSpan(child)
				continue
			}
		}
		break
	}
	if style == DocComment {
		doc = strings.TrimSpace(strings.Join(comments, "\n"))
	}
	return end, doc
}

// definitionDoc returns the documentation attached to a definition node.
func definitionDoc(n *sitter.Node, src []byte, style DocStyle) string {
	if style == DocString {
		def := n
		if d := n.ChildByFieldName("definition"); d != nil {
			def = d
		}
		body := def.ChildByFieldName("body")
		if body == nil {
			return ""
		}
		for i := 0; i < int(body.NamedChildCount()); i++ {
			stmt := body.NamedChild(i)
			if stmt.Type() == commentType {
				continue
			}
			if lit := stringStatement(stmt); lit != nil {
				return cleanDocstring(lit.Content(src))
			}
			return ""
		}
		return ""
	}

	var parts []string
	next := n
	for prev := n.PrevSibling(); prev != nil && prev.Type() == commentType; prev = prev.PrevSibling() {
		if int(next.StartPoint().Row)-int(prev.EndPoint().Row) > 1 {
			break
		}
		parts = append([]string{cleanComment(prev.Content(src))}, parts...)
		next = prev
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// stringStatement returns the string literal of an expression statement
// consisting of a bare string, or nil.
func stringStatement(n *sitter.Node) *sitter.Node {
	if n.Type() != "expression_statement" || n.NamedChildCount() == 0 {
		return nil
	}
	lit := n.NamedChild(0)
	if lit.Type() != "string" {
		return nil
	}
	return lit
}

// cleanComment strips comment markers from every line of a comment.
func cleanComment(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		for _, p := range []string{"///", "//", "/**", "/*", "#"} {
			if strings.HasPrefix(l, p) {
				l = l[len(p):]
				break
			}
		}
		l = strings.TrimSuffix(l, "*/")
		l = strings.TrimPrefix(strings.TrimSpace(l), "*")
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// cleanDocstring removes the prefix and quotes of a string literal and
// dedents its body.
func cleanDocstring(lit string) string {
	i := 0
	for i < len(lit) && strings.ContainsRune("rRbBuUfF", rune(lit[i])) {
		i++
	}
	lit = lit[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(lit) >= 2*len(q) && strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) {
			lit = lit[len(q) : len(lit)-len(q)]
			break
		}
	}
	return dedent(lit)
}

// dedent trims the first line, removes the common indentation of the
// remaining lines and drops leading and trailing blank lines.
func dedent(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\t", "    "), "\n")
	margin := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			continue
		}
		indent := len(l) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \r")
	}
	return strings.Join(lines, "\n")
}
