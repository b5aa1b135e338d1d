package lang

func init() {
	Register(&LanguageSpec{
		Language:          Scala,
		FileExtensions:    []string{".scala", ".sc"},
		FunctionNodeTypes: []string{"function_definition", "lambda_expression"},
		ClassNodeTypes:    []string{"class_definition", "object_definition", "trait_definition"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import_declaration"},
		Queries: []Query{
			{QueryImports, `(import_declaration path: (_) @name) @definition`},
			{QueryClasses, `
(class_definition name: (identifier) @name) @definition
(object_definition name: (identifier) @name) @definition`},
			{QueryInterfaces, `(trait_definition name: (identifier) @name) @definition`},
			{QueryFunctions, `(function_definition name: (identifier) @name) @definition`},
			{QueryTypes, `(type_definition name: (type_identifier) @name) @definition`},
		},
		Builtins: []string{
			"println", "print", "require", "assert", "Some", "Option", "List",
			"Seq", "Map", "Set", "Vector", "Future",
		},
		SelfReceivers:  []string{"this"},
		SuperReceivers: []string{"super"},
	})
}
