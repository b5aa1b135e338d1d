package lang

func tsQueries() []Query {
	return []Query{
		{QueryImports, jsImportQuery},
		{QueryClasses, `
(class_declaration name: (type_identifier) @name) @definition
(abstract_class_declaration name: (type_identifier) @name) @definition`},
		{QueryMethods, `(method_definition name: (property_identifier) @name) @definition`},
		{QueryFunctions, `
(function_declaration name: (identifier) @name) @definition
(generator_function_declaration name: (identifier) @name) @definition`},
		{QueryArrowFunctions, `
(variable_declarator name: (identifier) @name value: (arrow_function) @definition)
(variable_declarator name: (identifier) @name value: (function_expression) @definition)`},
		{QueryInterfaces, `(interface_declaration name: (type_identifier) @name) @definition`},
		{QueryTypes, `
(type_alias_declaration name: (type_identifier) @name) @definition
(enum_declaration name: (identifier) @name) @definition`},
		{QueryDecorators, `
(decorator (identifier) @name) @definition
(decorator (call_expression function: (_) @name)) @definition`},
		{QueryModules, `(internal_module name: (identifier) @name) @definition`},
	}
}

func tsSpec(l Language, exts []string) *LanguageSpec {
	return &LanguageSpec{
		Language:          l,
		FileExtensions:    exts,
		FunctionNodeTypes: []string{"function_declaration", "generator_function_declaration", "function_expression", "arrow_function", "method_definition"},
		ClassNodeTypes:    []string{"class_declaration", "abstract_class_declaration", "class", "interface_declaration"},
		CallNodeTypes:     []string{"call_expression", "new_expression"},
		ImportNodeTypes:   []string{"import_statement"},
		Queries:           tsQueries(),
		Builtins:          jsBuiltins,
		SelfReceivers:     []string{"this"},
		SuperReceivers:    []string{"super"},
	}
}

func init() {
	Register(tsSpec(TypeScript, []string{".ts", ".mts", ".cts"}))
}
