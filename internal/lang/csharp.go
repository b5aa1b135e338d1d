package lang

func init() {
	Register(&LanguageSpec{
		Language:          CSharp,
		FileExtensions:    []string{".cs"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration", "local_function_statement", "lambda_expression"},
		ClassNodeTypes:    []string{"class_declaration", "struct_declaration", "record_declaration", "interface_declaration"},
		CallNodeTypes:     []string{"invocation_expression", "object_creation_expression"},
		ImportNodeTypes:   []string{"using_directive"},
		Queries: []Query{
			{QueryImports, `
(using_directive (qualified_name) @name) @definition
(using_directive (identifier) @name) @definition`},
			{QueryClasses, `
(class_declaration name: (identifier) @name) @definition
(struct_declaration name: (identifier) @name) @definition
(record_declaration name: (identifier) @name) @definition`},
			{QueryInterfaces, `(interface_declaration name: (identifier) @name) @definition`},
			{QueryMethods, `
(method_declaration name: (identifier) @name) @definition
(constructor_declaration name: (identifier) @name) @definition`},
			{QueryFunctions, `(local_function_statement name: (identifier) @name) @definition`},
			{QueryTypes, `(enum_declaration name: (identifier) @name) @definition`},
			{QueryModules, `(namespace_declaration name: (_) @name) @definition`},
			{QueryDecorators, `(attribute name: (_) @name) @definition`},
		},
		Builtins: []string{
			"Console.WriteLine", "Console.Write", "Console.ReadLine", "String.Format",
			"string.Format", "string.IsNullOrEmpty", "Math.Max", "Math.Min",
			"Math.Abs", "nameof", "typeof", "Task.Run", "Task.FromResult",
			"Enumerable.Range", "Guid.NewGuid",
		},
		SelfReceivers:  []string{"this"},
		SuperReceivers: []string{"base"},
	})
}
