package languages

import (
	"repocite/internal/chunker"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *chunker.Registry) {
	r.Register("go", &chunker.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @function
			(method_declaration name: (field_identifier) @name) @function
			(type_declaration (type_spec name: (type_identifier) @name)) @class
		`,
		Extensions: []string{"go"},
		DocStyle:   chunker.DocComment,
		Imports:    goImports,
	})
}
