package languages

import (
	"repocite/internal/chunker"

	"github.com/smacker/go-tree-sitter/javascript"
)

func RegisterJavaScript(r *chunker.Registry) {
	r.Register("javascript", &chunker.LanguageSpec{
		Language: javascript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @function
			(generator_function_declaration name: (identifier) @name) @function
			(class_declaration name: (identifier) @name) @class
			(export_statement (function_declaration name: (identifier) @name)) @function
			(export_statement (class_declaration name: (identifier) @name)) @class
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @function
			(export_statement (lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function)))) @function
		`,
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
		DocStyle:   chunker.DocComment,
		Imports:    esImports,
	})
}
