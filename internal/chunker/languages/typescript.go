package languages

import (
	"repocite/internal/chunker"

	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// typeScriptQuery is shared by the TypeScript and TSX grammars, which use the
// same node names for declarations.
const typeScriptQuery = `
	(function_declaration name: (identifier) @name) @function
	(class_declaration name: (type_identifier) @name) @class
	(export_statement (function_declaration name: (identifier) @name)) @function
	(export_statement (class_declaration name: (type_identifier) @name)) @class
	(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @function
	(export_statement (lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function)))) @function
	(interface_declaration name: (type_identifier) @name) @class
	(type_alias_declaration name: (type_identifier) @name) @class
	(export_statement (interface_declaration name: (type_identifier) @name)) @class
	(export_statement (type_alias_declaration name: (type_identifier) @name)) @class
`

// RegisterTypeScript registers .ts files with the TypeScript grammar and .tsx
// files with the TSX grammar, which also parses JSX.
func RegisterTypeScript(r *chunker.Registry) {
	r.Register("typescript", &chunker.LanguageSpec{
		Language:   typescript.GetLanguage(),
		Query:      typeScriptQuery,
		Extensions: []string{"ts", "mts", "cts"},
		DocStyle:   chunker.DocComment,
		Imports:    esImports,
	})
	r.Register("tsx", &chunker.LanguageSpec{
		Language:   tsx.GetLanguage(),
		Query:      typeScriptQuery,
		Extensions: []string{"tsx"},
		DocStyle:   chunker.DocComment,
		Imports:    esImports,
	})
}
