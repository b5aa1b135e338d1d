package lang

func init() {
	Register(&LanguageSpec{
		Language:          Python,
		FileExtensions:    []string{".py", ".pyi"},
		FunctionNodeTypes: []string{"function_definition", "lambda"},
		ClassNodeTypes:    []string{"class_definition"},
		CallNodeTypes:     []string{"call"},
		ImportNodeTypes:   []string{"import_statement", "import_from_statement"},
		Queries: []Query{
			{QueryImports, `
(import_statement name: (dotted_name) @name) @definition
(import_statement name: (aliased_import name: (dotted_name) @name)) @definition
(import_from_statement module_name: (dotted_name) @name) @definition
(import_from_statement module_name: (relative_import) @name) @definition`},
			{QueryClasses, `(class_definition name: (identifier) @name) @definition`},
			{QueryMethods, `
(class_definition body: (block (function_definition name: (identifier) @name) @definition))
(class_definition body: (block (decorated_definition definition: (function_definition name: (identifier) @name) @definition)))`},
			{QueryFunctions, `(function_definition name: (identifier) @name) @definition`},
			{QueryArrowFunctions, `(assignment left: (identifier) @name right: (lambda) @definition)`},
			{QueryDecorators, `
(decorator (identifier) @name) @definition
(decorator (attribute) @name) @definition
(decorator (call function: (_) @name)) @definition`},
			{QueryVariables, `(module (expression_statement (assignment left: (identifier) @name) @definition))`},
		},
		Builtins: []string{
			"print", "len", "range", "str", "int", "float", "bool", "list", "dict",
			"set", "tuple", "frozenset", "bytes", "isinstance", "issubclass",
			"getattr", "setattr", "hasattr", "delattr", "open", "type", "id",
			"hash", "iter", "next", "enumerate", "zip", "map", "filter", "sorted",
			"reversed", "sum", "min", "max", "abs", "round", "any", "all", "repr",
			"format", "input", "vars", "dir", "callable", "divmod", "pow", "ord",
			"chr", "bin", "hex", "oct", "globals", "locals", "staticmethod",
			"classmethod", "property", "object", "Exception", "ValueError",
			"TypeError", "KeyError", "RuntimeError", "NotImplementedError",
		},
		SelfReceivers:  []string{"self", "cls"},
		SuperReceivers: []string{"super"},
	})
}
