package lang

func init() {
	Register(&LanguageSpec{
		Language:          Go,
		FileExtensions:    []string{".go"},
		FunctionNodeTypes: []string{"function_declaration", "method_declaration", "func_literal"},
		ClassNodeTypes:    []string{},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import_spec"},
		Queries: []Query{
			{QueryImports, `(import_spec path: (interpreted_string_literal) @name) @definition`},
			{QueryFunctions, `(function_declaration name: (identifier) @name) @definition`},
			{QueryMethods, `(method_declaration name: (field_identifier) @name) @definition`},
			{QueryClasses, `(type_spec name: (type_identifier) @name type: (struct_type)) @definition`},
			{QueryInterfaces, `(type_spec name: (type_identifier) @name type: (interface_type)) @definition`},
			{QueryTypes, `
(type_spec name: (type_identifier) @name type: [(type_identifier) (qualified_type) (map_type) (slice_type) (array_type) (function_type) (pointer_type) (channel_type) (generic_type)]) @definition
(type_alias name: (type_identifier) @name) @definition`},
			{QueryVariables, `
(source_file (var_declaration (var_spec name: (identifier) @name) @definition))
(source_file (const_declaration (const_spec name: (identifier) @name) @definition))`},
		},
		Builtins: []string{
			"append", "cap", "clear", "close", "complex", "copy", "delete", "imag",
			"len", "make", "max", "min", "new", "panic", "print", "println", "real",
			"recover",
		},
	})
}
