// Package languages registers the tree-sitter grammars the segmenter
// understands.
package languages

import "repocite/internal/chunker"

// Default returns a registry with every supported language registered.
func Default() *chunker.Registry {
	r := chunker.NewRegistry()
	RegisterPython(r)
	RegisterGo(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	return r
}
