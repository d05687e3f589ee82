package languages

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// walk visits n and its descendants depth-first in source order.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

type importSet struct {
	seen map[string]bool
	list []string
}

func (s *importSet) add(target string) {
	if target == "" || s.seen[target] {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	s.seen[target] = true
	s.list = append(s.list, target)
}

// pythonImports returns "a.b" for `import a.b` and "module.name" for
// `from module import name`. Relative dots are dropped.
func pythonImports(root *sitter.Node, src []byte) []string {
	var set importSet
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				set.add(importedName(n.NamedChild(i), src))
			}
		case "import_from_statement":
			mod := n.ChildByFieldName("module_name")
			module := ""
			if mod != nil {
				module = strings.TrimLeft(mod.Content(src), ".")
			}
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if mod != nil && child.StartByte() == mod.StartByte() {
					continue
				}
				name := "*"
				if child.Type() != "wildcard_import" {
					name = importedName(child, src)
				}
				if name == "" {
					continue
				}
				if module == "" {
					set.add(name)
				} else {
					set.add(module + "." + name)
				}
			}
		}
	})
	return set.list
}

func importedName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "dotted_name":
		return n.Content(src)
	case "aliased_import":
		if name := n.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return ""
}

func goImports(root *sitter.Node, src []byte) []string {
	var set importSet
	walk(root, func(n *sitter.Node) {
		if n.Type() != "import_spec" {
			return
		}
		if p := n.ChildByFieldName("path"); p != nil {
			set.add(unquote(p.Content(src)))
		}
	})
	return set.list
}

// esImports returns the module specifier of every JavaScript or TypeScript
// import statement.
func esImports(root *sitter.Node, src []byte) []string {
	var set importSet
	walk(root, func(n *sitter.Node) {
		if n.Type() != "import_statement" {
			return
		}
		if s := n.ChildByFieldName("source"); s != nil {
			set.add(unquote(s.Content(src)))
		}
	})
	return set.list
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, "\"'`")
}
