package lang

func init() {
	Register(&LanguageSpec{
		Language:          Java,
		FileExtensions:    []string{".java"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration", "lambda_expression"},
		ClassNodeTypes:    []string{"class_declaration", "interface_declaration", "enum_declaration", "record_declaration"},
		CallNodeTypes:     []string{"method_invocation", "object_creation_expression"},
		ImportNodeTypes:   []string{"import_declaration"},
		Queries: []Query{
			{QueryImports, `
(import_declaration (scoped_identifier) @name) @definition
(import_declaration (identifier) @name) @definition`},
			{QueryClasses, `
(class_declaration name: (identifier) @name) @definition
(enum_declaration name: (identifier) @name) @definition
(record_declaration name: (identifier) @name) @definition`},
			{QueryInterfaces, `(interface_declaration name: (identifier) @name) @definition`},
			{QueryMethods, `
(method_declaration name: (identifier) @name) @definition
(constructor_declaration name: (identifier) @name) @definition`},
			{QueryDecorators, `
(marker_annotation name: (_) @name) @definition
(annotation name: (_) @name) @definition`},
		},
		Builtins: []string{
			"System.out.println", "System.out.print", "System.out.printf",
			"System.err.println", "System.exit", "String.valueOf", "String.format",
			"Integer.parseInt", "Integer.valueOf", "Long.parseLong", "Objects.equals",
			"Objects.requireNonNull", "Objects.hash", "Math.max", "Math.min",
			"Math.abs", "Arrays.asList", "List.of", "Map.of", "Set.of",
			"Collections.emptyList", "Optional.of", "Optional.empty",
		},
		SelfReceivers:  []string{"this"},
		SuperReceivers: []string{"super"},
	})
}
