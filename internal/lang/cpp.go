package lang

func init() {
	Register(&LanguageSpec{
		Language:          CPP,
		FileExtensions:    []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx", ".h"},
		FunctionNodeTypes: []string{"function_definition", "lambda_expression"},
		ClassNodeTypes:    []string{"class_specifier", "struct_specifier"},
		CallNodeTypes:     []string{"call_expression", "new_expression"},
		ImportNodeTypes:   []string{"preproc_include"},
		Queries: []Query{
			{QueryImports, `(preproc_include path: (_) @name) @definition`},
			{QueryClasses, `
(class_specifier name: (type_identifier) @name body: (field_declaration_list)) @definition
(struct_specifier name: (type_identifier) @name body: (field_declaration_list)) @definition`},
			{QueryMethods, `
(function_definition declarator: (function_declarator declarator: (field_identifier) @name)) @definition
(function_definition declarator: (function_declarator declarator: (qualified_identifier name: (identifier) @name))) @definition`},
			{QueryFunctions, cFunctionQuery},
			{QueryTypes, `
(type_definition declarator: (type_identifier) @name) @definition
(alias_declaration name: (type_identifier) @name) @definition
(enum_specifier name: (type_identifier) @name body: (enumerator_list)) @definition`},
			{QueryModules, `(namespace_definition name: (namespace_identifier) @name) @definition`},
		},
		Builtins: append([]string{
			"std::move", "std::forward", "std::make_shared", "std::make_unique",
			"std::swap", "std::sort", "std::find", "std::to_string", "std::cout",
		}, cBuiltins...),
		SelfReceivers: []string{"this"},
	})
}
