package lang

func init() {
	Register(&LanguageSpec{
		Language:          PHP,
		FileExtensions:    []string{".php"},
		FunctionNodeTypes: []string{"function_definition", "method_declaration", "anonymous_function", "arrow_function"},
		ClassNodeTypes:    []string{"class_declaration", "interface_declaration", "trait_declaration", "enum_declaration"},
		CallNodeTypes:     []string{"function_call_expression", "member_call_expression", "scoped_call_expression", "object_creation_expression"},
		ImportNodeTypes:   []string{"namespace_use_declaration"},
		Queries: []Query{
			{QueryImports, `
(namespace_use_clause (qualified_name) @name) @definition
(namespace_use_clause (name) @name) @definition`},
			{QueryClasses, `(class_declaration name: (name) @name) @definition`},
			{QueryInterfaces, `(interface_declaration name: (name) @name) @definition`},
			{QueryTypes, `
(trait_declaration name: (name) @name) @definition
(enum_declaration name: (name) @name) @definition`},
			{QueryMethods, `(method_declaration name: (name) @name) @definition`},
			{QueryFunctions, `(function_definition name: (name) @name) @definition`},
			{QueryModules, `(namespace_definition name: (namespace_name) @name) @definition`},
		},
		Builtins: []string{
			"count", "strlen", "array_map", "array_filter", "array_merge",
			"array_keys", "array_values", "in_array", "isset", "empty", "unset",
			"var_dump", "print_r", "sprintf", "printf", "implode", "explode",
			"json_encode", "json_decode", "str_replace", "substr", "strpos",
			"trim", "is_array", "is_string", "intval",
		},
		SelfReceivers:  []string{"$this", "self", "static"},
		SuperReceivers: []string{"parent"},
	})
}
